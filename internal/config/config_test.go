package config_test

import (
	"testing"
	"time"

	"roomresq/backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("ACCESS_TOKEN_TTL", "")
	t.Setenv("REQUEST_TIMEOUT", "")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.StorageDriver)
	assert.Equal(t, config.DefaultAccessTokenTTL, cfg.AccessTTL)
	assert.Equal(t, config.DefaultRequestTimeout, cfg.RequestTimeout)
	assert.False(t, cfg.AllowStaffSignup)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("ACCESS_TOKEN_TTL", "15m")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("ALLOW_STAFF_SIGNUP", "true")
	t.Setenv("TELEGRAM_STAFF_CHAT_ID", "-100123")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StorageDriver)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.AllowStaffSignup)
	assert.Equal(t, int64(-100123), cfg.Telegram.StaffChatID)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{"JWT_SECRET": ""}},
		{name: "bad driver", env: map[string]string{"JWT_SECRET": "s", "STORAGE_DRIVER": "mongo"}},
		{name: "bad duration", env: map[string]string{"JWT_SECRET": "s", "STORAGE_DRIVER": "memory", "REQUEST_TIMEOUT": "soon"}},
		{name: "bad chat id", env: map[string]string{"JWT_SECRET": "s", "STORAGE_DRIVER": "memory", "TELEGRAM_STAFF_CHAT_ID": "staff"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
