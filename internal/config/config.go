package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server and the admin CLI read from the environment
type Config struct {
	Port    string
	GinMode string

	Database DatabaseConfig

	TelegramToken         string
	TelegramWebhookSecret string
	TelegramAPIEndpoint   string
	TelegramSendTimeout   time.Duration

	Location          *time.Location
	ReminderSchedule  string
	ReminderSendDelay time.Duration

	JWTSecret      string
	JWTExpiry      time.Duration
	GoogleClientID string
	AdminEmails    []string

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	AdminReportEmails []string

	CORSAllowedOrigins []string
}

// DatabaseConfig selects and addresses the persistence backend
type DatabaseConfig struct {
	Driver     string // "postgres" or "sqlite"
	DSN        string
	SQLitePath string
}

// Load reads an optional .env file and then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		GinMode:               os.Getenv("GIN_MODE"),
		TelegramToken:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookSecret: os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
		TelegramAPIEndpoint:   os.Getenv("TELEGRAM_API_ENDPOINT"),
		ReminderSchedule:      getEnv("REMINDER_SCHEDULE", "0 18 * * 4"), // Thursday 18:00
		JWTSecret:             os.Getenv("JWT_SECRET"),
		GoogleClientID:        os.Getenv("GOOGLE_CLIENT_ID"),
		AdminEmails:           getList("ADMIN_EMAILS"),
		SendGridAPIKey:        os.Getenv("SENDGRID_API_KEY"),
		SendGridFromEmail:     os.Getenv("SENDGRID_NOTIFICATIONS_FROM_EMAIL"),
		SendGridFromName:      getEnv("SENDGRID_FROM_NAME", "Khatma"),
		AdminReportEmails:     getList("ADMIN_REPORT_EMAILS"),
		CORSAllowedOrigins:    getList("CORS_ALLOWED_ORIGINS"),
	}

	var err error
	if cfg.Database, err = loadDatabase(cfg.GinMode); err != nil {
		return nil, err
	}

	tz := getEnv("TIMEZONE", "Asia/Riyadh")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	if cfg.ReminderSendDelay, err = getDuration("REMINDER_SEND_DELAY", 100*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.TelegramSendTimeout, err = getDuration("TELEGRAM_SEND_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.JWTExpiry, err = getDuration("JWT_EXPIRY", 24*time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings the HTTP server cannot run without
func (c *Config) Validate() error {
	var missing []string
	if c.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

// IsRelease reports whether gin runs in release mode
func (c *Config) IsRelease() bool {
	return c.GinMode == "release"
}

func loadDatabase(ginMode string) (DatabaseConfig, error) {
	db := DatabaseConfig{
		Driver:     strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		SQLitePath: getEnv("SQLITE_PATH", "./data/khatma.db"),
	}

	switch db.Driver {
	case "sqlite":
		return db, nil
	case "postgres":
	default:
		return db, fmt.Errorf("unsupported DATABASE_DRIVER %q", db.Driver)
	}

	// In production use the single DATABASE_URL, in development the individual parameters
	if ginMode == "release" || os.Getenv("DATABASE_URL") != "" {
		dsn, err := getEnvRequired("DATABASE_URL")
		if err != nil {
			return db, err
		}
		db.DSN = dsn
		return db, nil
	}

	params := make(map[string]string)
	for _, key := range []string{"DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_PORT"} {
		value, err := getEnvRequired(key)
		if err != nil {
			return db, err
		}
		params[key] = value
	}
	sslMode := getEnv("DB_SSL_MODE", "disable")

	db.DSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC connect_timeout=10",
		params["DB_HOST"], params["DB_USER"], params["DB_PASSWORD"], params["DB_NAME"], params["DB_PORT"], sslMode)
	return db, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvRequired returns the variable or an error naming it
func getEnvRequired(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value, nil
	}
	return "", fmt.Errorf("required environment variable %s is not set", key)
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		// Allow plain milliseconds as well
		if ms, convErr := strconv.Atoi(raw); convErr == nil {
			return time.Duration(ms) * time.Millisecond, nil
		}
		return 0, fmt.Errorf("invalid %s format: %w", key, err)
	}
	return d, nil
}

func getList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LogValue keeps secrets out of startup logs
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("port", c.Port),
		slog.String("gin_mode", c.GinMode),
		slog.String("db_driver", c.Database.Driver),
		slog.String("timezone", c.Location.String()),
		slog.String("reminder_schedule", c.ReminderSchedule),
		slog.Duration("reminder_send_delay", c.ReminderSendDelay),
		slog.Bool("telegram_configured", c.TelegramToken != ""),
		slog.Bool("sendgrid_configured", c.SendGridAPIKey != ""),
		slog.Int("admin_emails", len(c.AdminEmails)),
	)
}
