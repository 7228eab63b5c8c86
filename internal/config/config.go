package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Email    EmailConfig
	Sheets   SheetsConfig
	LowStock LowStockConfig
	MongoDB  MongoDBConfig
	Redis    RedisConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// EmailConfig contains credentials for the transactional email API.
// These are checked per evaluation rather than at startup so a missing
// credential surfaces as a failed run.
type EmailConfig struct {
	APIKey  string
	From    string
	BaseURL string
}

// SheetsConfig contains configuration for the optional alert archive.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether the sheet archive is configured.
func (s SheetsConfig) Enabled() bool {
	return s.CredentialsPath != "" && s.SpreadsheetID != ""
}

// LowStockConfig holds evaluator and scheduler settings.
type LowStockConfig struct {
	CronSchedule string
	Timezone     string
	DigestHour   int
	DigestWindow time.Duration
	RunTimeout   time.Duration
	LockTTL      time.Duration
	Location     *time.Location
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// RedisConfig configures the optional distributed run lock.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis lock should be used.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	digestHour, err := getenvInt("DIGEST_HOUR", 9)
	if err != nil {
		return nil, err
	}
	windowMinutes, err := getenvInt("DIGEST_WINDOW_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	redisDB, err := getenvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Email: EmailConfig{
			APIKey:  os.Getenv("EMAIL_API_KEY"),
			From:    os.Getenv("EMAIL_FROM"),
			BaseURL: getenvWithDefault("EMAIL_BASE_URL", "https://api.resend.com"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		LowStock: LowStockConfig{
			CronSchedule: getenvWithDefault("LOWSTOCK_CRON_SCHEDULE", "*/5 * * * *"),
			Timezone:     getenvWithDefault("BUSINESS_TIMEZONE", "America/Chicago"),
			DigestHour:   digestHour,
			DigestWindow: time.Duration(windowMinutes) * time.Minute,
			RunTimeout:   2 * time.Minute,
			LockTTL:      5 * time.Minute,
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "stockwatch"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated and
// resolves the business timezone.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}
	if c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must not be empty")
	}

	if c.LowStock.CronSchedule == "" {
		return errors.New("LOWSTOCK_CRON_SCHEDULE must be provided")
	}

	if c.LowStock.Timezone == "" {
		return errors.New("BUSINESS_TIMEZONE must be provided")
	}
	loc, err := time.LoadLocation(c.LowStock.Timezone)
	if err != nil {
		return fmt.Errorf("BUSINESS_TIMEZONE %q: %w", c.LowStock.Timezone, err)
	}
	c.LowStock.Location = loc

	if c.LowStock.DigestHour < 0 || c.LowStock.DigestHour > 23 {
		return fmt.Errorf("DIGEST_HOUR must be between 0 and 23, got %d", c.LowStock.DigestHour)
	}
	if c.LowStock.DigestWindow <= 0 {
		return errors.New("DIGEST_WINDOW_MINUTES must be positive")
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be provided together")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
