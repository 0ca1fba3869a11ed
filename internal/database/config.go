package database

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"khatma/internal/config"
	"khatma/internal/models"
	"khatma/internal/utils"
)

// Options tune how Open connects
type Options struct {
	MaxRetries int
	RetryDelay time.Duration
	LogLevel   logger.LogLevel
}

// DefaultOptions retries five times, five seconds apart, and logs slow queries only
func DefaultOptions() Options {
	return Options{
		MaxRetries: 5,
		RetryDelay: 5 * time.Second,
		LogLevel:   logger.Warn,
	}
}

// Settings are polled by the scheduler on every tick. Postgres quotes
// identifiers with double quotes, sqlite with backticks.
var settingPolls = []string{
	`FROM "setting" WHERE "setting"."key"`,
	"FROM `setting` WHERE `setting`.`key`",
}

// Open connects to the configured database, tunes the pool and migrates the schema
func Open(ctx context.Context, cfg config.DatabaseConfig, opts Options) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	// Base logger writes through slog
	baseLogger := logger.New(
		slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	customLogger := utils.NewCustomGormLogger(baseLogger, settingPolls...)

	gormConfig := &gorm.Config{
		Logger: customLogger,
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		PrepareStmt:    true,
		TranslateError: true,
	}

	maxRetries := opts.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var db *gorm.DB
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(dialector, gormConfig)
		if err == nil {
			break
		}
		slog.Warn("Database connection attempt failed", "attempt", i+1, "error", err)
		if i < maxRetries-1 {
			slog.Info("Retrying database connection", "delay", opts.RetryDelay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.RetryDelay):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// One writer at a time avoids SQLITE_BUSY under concurrent webhooks
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	slog.Info("Database connection established and migrations completed", "driver", cfg.Driver)
	return db, nil
}

// Migrate creates or updates every table the service uses
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Person{},
		&models.Friday{},
		&models.Reading{},
		&models.Notification{},
		&models.Setting{},
		&models.DispatchRun{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Ping checks the connection is alive
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres", "":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres DSN is empty")
		}
		return postgres.Open(cfg.DSN), nil
	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = "khatma.db"
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		return sqlite.Open(path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
