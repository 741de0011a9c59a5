package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomresq/backend/internal/api/handler"
	"roomresq/backend/internal/auth"
	"roomresq/backend/internal/complaint"
	"roomresq/backend/internal/config"
	"roomresq/backend/internal/eventhub"
	"roomresq/backend/internal/localization"
	"roomresq/backend/internal/mailer"
	"roomresq/backend/internal/storage"
	"roomresq/backend/internal/telegram"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupDependencies opens the configured store and returns it with a health probe.
func setupDependencies(ctx context.Context, cfg config.Config) (storage.Storage, func(context.Context) error) {
	if cfg.StorageDriver == "memory" {
		log.Println("WARNING: Using in-memory storage, data is lost on restart")
		return storage.NewMemory(), nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get PostgreSQL handle: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	s := storage.NewStorageService(db, rdb)
	if err := s.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("INFO: Database and Redis connections established, migrations complete.")

	health := func(ctx context.Context) error {
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	}
	return s, health
}

// startTelegram pushes complaint events into the staff chat and answers its commands.
func startTelegram(ctx context.Context, cfg config.TelegramConfig, hub *eventhub.Hub, s storage.ComplaintStore, l *localization.Localizer) {
	if cfg.BotToken == "" {
		log.Println("INFO: TELEGRAM_BOT_TOKEN not set, staff chat notifications disabled")
		return
	}
	if cfg.StaffChatID == 0 {
		log.Println("WARNING: TELEGRAM_STAFF_CHAT_ID not set, staff chat notifications disabled")
		return
	}
	bot, err := telegram.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Printf("ERROR: Could not start Telegram bot: %v", err)
		return
	}

	if !hub.Register(telegram.NewClient(bot, cfg.StaffChatID, l, localization.DefaultLanguage)) {
		return
	}
	go telegram.NewBotService(bot, s, l, cfg.StaffChatID, localization.DefaultLanguage).Run(ctx)
}

func main() {
	log.Println("Starting RoomResQ Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Error loading .env file")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	s, health := setupDependencies(ctx, cfg)

	// 2. Services
	authSvc, err := auth.NewService(s, mailer.New(cfg.Mail), auth.OptionsFromConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to configure auth: %v", err)
	}
	complaints := complaint.NewService(s)

	localizer, err := localization.NewLocalizer(cfg.LocalizationDir)
	if err != nil {
		log.Fatalf("Failed to load translations: %v", err)
	}

	// 3. Live updates
	hub := eventhub.NewHub(s)
	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("ERROR: Event hub exited: %v", err)
		}
	}()
	startTelegram(ctx, cfg.Telegram, hub, s, localizer)

	// 4. HTTP
	h := handler.NewHandler(authSvc, complaints, hub)
	h.Health = health
	r := handler.NewRouter(h, handler.RouterConfig{
		CORSOrigin:     cfg.CORSOrigin,
		RequestTimeout: cfg.RequestTimeout,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Printf("INFO: Listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("INFO: Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: HTTP shutdown: %v", err)
	}
	select {
	case <-hub.Done():
	case <-shutdownCtx.Done():
	}
}
