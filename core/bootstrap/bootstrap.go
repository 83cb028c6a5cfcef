// Package bootstrap brings up the process-wide infrastructure: logging and,
// for the postgres session backend, a migrated database pool.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/squonkradio/core/config"
	coredatabase "github.com/m3rciful/squonkradio/core/database"
	"github.com/m3rciful/squonkradio/core/logger"
)

// DefaultConnectTimeout bounds how long Run waits for postgres.
const DefaultConnectTimeout = 30 * time.Second

// Options select what Run brings up. Database is nil when no component
// needs postgres. The function fields default to the real implementations
// and exist for tests.
type Options struct {
	Config         *coreconfig.Config
	Database       *coredatabase.Config
	Migrations     fs.FS
	ConnectTimeout time.Duration

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, *sqlx.DB, fs.FS) error
}

// Infra is what Run brought up.
type Infra struct {
	DB *sqlx.DB
}

// Close releases the database pool, if any.
func (i *Infra) Close() error {
	if i == nil || i.DB == nil {
		return nil
	}
	return i.DB.Close()
}

// Run starts the logger, then connects and migrates when a database is
// configured. On error nothing opened by Run is left open, except the
// logger which callers shut down with logger.Shutdown.
func Run(ctx context.Context, opts Options) (*Infra, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config")
	}
	initLogger := opts.LoggerInit
	if initLogger == nil {
		initLogger = logger.InitLogger
	}
	if err := initLogger(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger: %w", err)
	}
	if opts.Database == nil {
		return &Infra{}, nil
	}

	connect, migrate := opts.Connect, opts.Migrate
	if connect == nil {
		connect = coredatabase.Connect
	}
	if migrate == nil {
		migrate = coredatabase.Migrate
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	db, err := connect(cctx, *opts.Database)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if err := migrate(ctx, db, coredatabase.Source(*opts.Database, opts.Migrations)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return &Infra{DB: db}, nil
}
