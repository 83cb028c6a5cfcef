// Package database opens the postgres pool and applies schema migrations.
package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/squonkradio/core/logger"
)

const (
	pingTimeout = 3 * time.Second
	retryEvery  = 2 * time.Second
)

// Connect opens the pool and pings until postgres answers or ctx ends.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	start := time.Now()
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)

	target := []slog.Attr{
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
	}
	for attempt := 1; ; attempt++ {
		if err = ping(ctx, db); err == nil {
			break
		}
		if attempt == 1 {
			logger.Warn(ctx, "db", "db.wait", append(target, slog.String("err", err.Error()))...)
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			logger.Error(ctx, "db", "db.connect", append(target,
				slog.String("status", "fail"),
				slog.Int("attempts", attempt),
				slog.Duration("duration", logger.RoundMS(time.Since(start))),
				slog.String("err", err.Error()),
			)...)
			return nil, fmt.Errorf("database: connect %s:%s: %w", cfg.Host, cfg.Port, err)
		case <-time.After(retryEvery):
		}
	}

	logger.Info(ctx, "db", "db.connect", append(target,
		slog.String("status", "ok"),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)...)
	return db, nil
}

func ping(ctx context.Context, db *sqlx.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return db.PingContext(ctx)
}

// Source picks the migration files: dir when set, the embedded set otherwise.
func Source(cfg Config, embedded fs.FS) fs.FS {
	if cfg.MigrationsDir != "" {
		return os.DirFS(cfg.MigrationsDir)
	}
	return embedded
}

// Migrate applies every pending up migration in files over one connection
// borrowed from db. db stays open.
func Migrate(ctx context.Context, db *sqlx.DB, files fs.FS) error {
	src, err := iofs.New(files, ".")
	if err != nil {
		return fmt.Errorf("database: read migrations: %w", err)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("database: migration connection: %w", err)
	}
	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		_ = src.Close()
		_ = conn.Close()
		return fmt.Errorf("database: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return fmt.Errorf("database: init migrations: %w", err)
	}
	defer m.Close()

	from, _, _ := m.Version()
	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error(ctx, "db", "db.migrate",
			slog.String("status", "fail"),
			slog.Uint64("from_ver", uint64(from)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("database: migrate: %w", err)
	}
	to, _, _ := m.Version()
	logger.Info(ctx, "db", "db.migrate",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}
