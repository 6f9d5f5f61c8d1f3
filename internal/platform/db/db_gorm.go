// Package db opens the relational store and owns the single write gate.
package db

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// DriverSQLite is the default single-file store.
	DriverSQLite = "sqlite"
	// DriverPostgres selects a PostgreSQL server instead of the local file.
	DriverPostgres = "postgres"

	connectTimeout = 60 * time.Second
)

// retryInterval is the pause between connection attempts.
var retryInterval = 3 * time.Second

// Config holds the connection settings for the store.
type Config struct {
	Driver        string // "sqlite" or "postgres"
	Path          string // SQLite database file
	Host          string
	Port          string
	User          string
	Password      string
	Name          string
	RunMigrations bool
}

// Opener opens a gorm connection for a DSN. Tests substitute it.
type Opener func(dsn string) (*gorm.DB, error)

// LoadConfigFromEnv reads the store settings from environment variables.
func LoadConfigFromEnv() Config {
	driver := strings.ToLower(os.Getenv("DB_DRIVER"))
	if driver == "" {
		driver = DriverSQLite
	}
	path := os.Getenv("DB_PATH")
	if path == "" {
		path = filepath.Join("database", "cvara.db")
	}
	migrate := os.Getenv("RUN_MIGRATIONS")
	return Config{
		Driver:   driver,
		Path:     path,
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     os.Getenv("DB_NAME"),
		// SQLite files are created on demand, so they are migrated unless explicitly disabled.
		RunMigrations: migrate == "true" || (migrate == "" && driver == DriverSQLite),
	}
}

// BuildDSN builds the driver-specific connection string.
// SQLite runs in WAL mode with a 5s busy timeout so readers never block the single writer.
func BuildDSN(cfg Config) string {
	if cfg.Driver == DriverPostgres {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", cfg.Path)
}

// OpenerFor returns the gorm opener for the configured driver.
func OpenerFor(driver string) Opener {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if driver == DriverPostgres {
		return func(dsn string) (*gorm.DB, error) {
			return gorm.Open(postgres.Open(dsn), gcfg)
		}
	}
	return func(dsn string) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open(dsn), gcfg)
	}
}

// ConnectWithRetry keeps calling open until it succeeds or timeout elapses.
func ConnectWithRetry(dsn string, timeout time.Duration, open Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := open(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("db connect failed after %v: %w", timeout, err)
		}
		slog.Warn("db connect failed, retrying", "error", err)
		time.Sleep(retryInterval)
	}
}

// OpenDB connects to the store and, when enabled, migrates the given models.
func OpenDB(cfg Config, models ...any) (*gorm.DB, error) {
	if cfg.Driver == DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := ConnectWithRetry(BuildDSN(cfg), connectTimeout, OpenerFor(cfg.Driver))
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations && len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}

	slog.Info("database ready", "driver", cfg.Driver, "migrated", cfg.RunMigrations)
	return db, nil
}
