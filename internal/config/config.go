package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the server and CLIs read from the environment.
type Config struct {
	HTTPAddr       string
	StorageDriver  string // "postgres" or "memory"
	DatabaseDSN    string
	Redis          RedisConfig
	JWTSecret      string
	JWTIssuer      string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	RequestTimeout time.Duration
	CORSOrigin     string
	// AllowStaffSignup lets self-registration request the staff role.
	AllowStaffSignup bool
	Mail             MailConfig
	Telegram         TelegramConfig
	// LocalizationDir overrides the embedded locale tables when set.
	LocalizationDir string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MailConfig struct {
	FromEmail    string
	ResendAPIKey string
	SMTPEnabled  bool
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPass     string
}

type TelegramConfig struct {
	BotToken    string
	StaffChatID int64
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return strings.EqualFold(v, "true") || v == "1"
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// DSNFromParts builds a postgres DSN from the DB_* variables, the way the admin CLI always has.
func DSNFromParts() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_USER", "user"),
		getEnv("DB_PASSWORD", "password"),
		getEnv("DB_NAME", "roomresqdb"),
		getEnv("DB_PORT", "5432"),
	)
}

// Load reads the configuration from the environment. Call godotenv.Load first to pick up .env.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", "postgres")),
		DatabaseDSN:   getEnv("DATABASE_DSN", DSNFromParts()),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTIssuer:        getEnv("JWT_ISSUER", DefaultJWTIssuer),
		CORSOrigin:       getEnv("CORS_ORIGIN", "http://localhost:5173"),
		AllowStaffSignup: getBool("ALLOW_STAFF_SIGNUP", false),
		Mail: MailConfig{
			FromEmail:    getEnv("MAIL_FROM", "RoomResQ <noreply@roomresq.dev>"),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			SMTPEnabled:  getBool("SMTP_ENABLED", false),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPass:     getEnv("SMTP_PASS", ""),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		},
		LocalizationDir: getEnv("LOCALIZATION_DIR", ""),
	}

	var err error
	if cfg.AccessTTL, err = getDuration("ACCESS_TOKEN_TTL", DefaultAccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL, err = getDuration("REFRESH_TOKEN_TTL", DefaultRefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", DefaultRequestTimeout); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		if cfg.Redis.DB, err = strconv.Atoi(v); err != nil {
			return Config{}, fmt.Errorf("REDIS_DB: %w", err)
		}
	}
	if v := os.Getenv("TELEGRAM_STAFF_CHAT_ID"); v != "" {
		if cfg.Telegram.StaffChatID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return Config{}, fmt.Errorf("TELEGRAM_STAFF_CHAT_ID: %w", err)
		}
	}

	switch cfg.StorageDriver {
	case "postgres", "memory":
	default:
		return Config{}, fmt.Errorf("STORAGE_DRIVER: unknown driver %q", cfg.StorageDriver)
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is not set")
	}
	return cfg, nil
}
