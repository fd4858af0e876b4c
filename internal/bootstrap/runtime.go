// Package bootstrap wires the process-level runtime: database, Redis and optional
// demo data.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/cache"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/config"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/database"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/middleware"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/seed"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SQLitePath replaces PostgreSQL with a local SQLite file (":memory:" works too).
	SQLitePath string
	SeedDemo   bool
}

// InitRuntime connects to the database and Redis and optionally seeds demo data.
// Redis is optional; an unreachable server yields a nil client.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := OpenDatabase(cfg, opts.SQLitePath)
	if err != nil {
		return nil, nil, err
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedDemo {
		if cfg.IsProduction() {
			middleware.Logger.Warn("demo seeding is disabled in production")
		} else if _, err := seed.Demo(db, seed.DefaultOptions()); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// OpenDatabase opens SQLite when sqlitePath is set and PostgreSQL otherwise.
func OpenDatabase(cfg *config.Config, sqlitePath string) (*gorm.DB, error) {
	if sqlitePath != "" {
		middleware.Logger.Info("using sqlite database", slog.String("path", sqlitePath))
		db, err := database.OpenSQLite(sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		return db, nil
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return db, nil
}
