// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"blackmarket/internal/logger"
)

const (
	DefaultMaxCartItems = 10
	DefaultCurrency     = "cash"

	defaultCallbackBase    = "https://nu-blackmarket"
	defaultCallbackTimeout = 5 * time.Second
	defaultRetentionHours  = 72
)

// Storefront is the host-supplied configuration object delivered with openUI.
// It is read-only for the lifetime of a session.
type Storefront struct {
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	MaxCartItems int    `json:"maxCartItems"`
	EnableSounds bool   `json:"enableSounds"`
	Currency     string `json:"currency"`
}

// WithDefaults fills the fields the host left empty.
func (s Storefront) WithDefaults() Storefront {
	if s.MaxCartItems <= 0 {
		s.MaxCartItems = DefaultMaxCartItems
	}
	if strings.TrimSpace(s.Currency) == "" {
		s.Currency = DefaultCurrency
	}
	return s
}

// Server holds the process-level settings read from the environment.
type Server struct {
	Host            string
	Port            string
	AllowedOrigin   string
	CallbackBase    string
	CallbackTimeout time.Duration
	JournalPath     string
	RetentionHours  int
	VisualsPath     string
	RateLimitRPS    float64
	RateLimitBurst  int
}

// Addr returns host:port for the HTTP listener.
func (s Server) Addr() string {
	return s.Host + ":" + s.Port
}

//
// --- Utility Helpers ---
//

// Environment returns the ENVIRONMENT setting, defaulting to dev.
func Environment() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}
	return env
}

// Helper: get a setting based on ENVIRONMENT (dev or prod)
func GetEnvBasedSetting(base string) string {
	return os.Getenv(fmt.Sprintf("%s_%s", base, strings.ToUpper(Environment())))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		logger.LogWarn("Invalid %s: %q, using default %d", key, raw, fallback)
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		logger.LogWarn("Invalid %s: %q, using default %v", key, raw, fallback)
		return fallback
	}
	return v
}

// Helper: log which environment is running
func LogCurrentEnvironment() {
	if Environment() == "dev" {
		logger.LogInfo("Running in development environment")
	} else {
		logger.LogInfo("Running in %s environment", Environment())
	}
}

//
// --- Loaders ---
//

// LoadEnv reads .env file
func LoadEnv() {
	wd, err := os.Getwd()
	if err != nil {
		log.Printf("Could not determine working directory: %v", err)
	}

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file found in %s. Using system environment variables.", wd)
	} else {
		log.Printf("Loaded environment variables from .env file in %s", wd)
	}
}

// LoggerConfig returns a logger.Config struct populated from environment
func LoggerConfig() logger.Config {
	logDir := GetEnvBasedSetting("LOGS_DIRECTORY")
	if logDir == "" {
		logDir = "./logs"
	}

	logFormat := GetEnvBasedSetting("LOG_FILE_FORMAT")
	if logFormat == "" {
		logFormat = "storefront_%s.log"
	}

	return logger.Config{
		LogsDirectory: logDir,
		LogFileFormat: logFormat,
		TimeZone:      envOr("TIME_ZONE", "Local"),
		Level:         os.Getenv("LOG_LEVEL"),
	}
}

// LoadServerConfig collects listener, callback and journal settings.
func LoadServerConfig() Server {
	cfg := Server{
		Host:            envOr("SERVER_HOST", "127.0.0.1"),
		Port:            envOr("SERVER_PORT", "5051"),
		AllowedOrigin:   GetEnvBasedSetting("ALLOWED_ORIGIN"),
		CallbackBase:    strings.TrimRight(envOr("HOST_CALLBACK_BASE", defaultCallbackBase), "/"),
		CallbackTimeout: defaultCallbackTimeout,
		JournalPath:     GetEnvBasedSetting("JOURNAL_PATH"),
		RetentionHours:  envInt("JOURNAL_RETENTION_HOURS", defaultRetentionHours),
		VisualsPath:     os.Getenv("VISUALS_PATH"),
		RateLimitRPS:    envFloat("UI_RATE_LIMIT_RPS", 20),
		RateLimitBurst:  envInt("UI_RATE_LIMIT_BURST", 40),
	}

	if ms := envInt("HOST_CALLBACK_TIMEOUT_MS", 0); ms > 0 {
		cfg.CallbackTimeout = time.Duration(ms) * time.Millisecond
	}

	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
		logger.LogWarn("ALLOWED_ORIGIN not set, websocket accepts any origin")
	}
	if cfg.JournalPath == "" {
		logger.LogInfo("JOURNAL_PATH not set, intent journal disabled")
	}

	return cfg
}
