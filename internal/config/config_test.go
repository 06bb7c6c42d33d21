package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStorefrontDefaults(t *testing.T) {
	got := Storefront{Title: "Black Market"}.WithDefaults()
	assert.Equal(t, DefaultMaxCartItems, got.MaxCartItems)
	assert.Equal(t, DefaultCurrency, got.Currency)
	assert.Equal(t, "Black Market", got.Title)

	kept := Storefront{MaxCartItems: 3, Currency: "bank"}.WithDefaults()
	assert.Equal(t, 3, kept.MaxCartItems)
	assert.Equal(t, "bank", kept.Currency)
}

func TestGetEnvBasedSetting(t *testing.T) {
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("JOURNAL_PATH_PROD", "/var/lib/market.db")
	t.Setenv("JOURNAL_PATH_DEV", "./dev.db")

	assert.Equal(t, "/var/lib/market.db", GetEnvBasedSetting("JOURNAL_PATH"))
}

func TestLoadServerConfig(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("SERVER_HOST", "")
	t.Setenv("SERVER_PORT", "6000")
	t.Setenv("HOST_CALLBACK_BASE", "http://127.0.0.1:30120/market/")
	t.Setenv("HOST_CALLBACK_TIMEOUT_MS", "750")
	t.Setenv("JOURNAL_RETENTION_HOURS", "not-a-number")
	t.Setenv("ALLOWED_ORIGIN_DEV", "")

	cfg := LoadServerConfig()
	assert.Equal(t, "127.0.0.1:6000", cfg.Addr())
	assert.Equal(t, "http://127.0.0.1:30120/market", cfg.CallbackBase)
	assert.Equal(t, 750*time.Millisecond, cfg.CallbackTimeout)
	assert.Equal(t, defaultRetentionHours, cfg.RetentionHours)
	assert.Equal(t, "*", cfg.AllowedOrigin)
}
