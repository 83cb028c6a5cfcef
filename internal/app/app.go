// Package app wires configuration, storage and Telegram handlers into a
// runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	corebootstrap "github.com/m3rciful/squonkradio/core/bootstrap"
	"github.com/m3rciful/squonkradio/core/logger"
	coretelegram "github.com/m3rciful/squonkradio/core/telegram"
	"github.com/m3rciful/squonkradio/core/telegram/middleware"
	"github.com/m3rciful/squonkradio/core/telegram/router"
	"github.com/m3rciful/squonkradio/internal/config"
	"github.com/m3rciful/squonkradio/internal/radio"
	"github.com/m3rciful/squonkradio/internal/session"
	"github.com/m3rciful/squonkradio/internal/songs"
	"github.com/m3rciful/squonkradio/migrations"

	tele "gopkg.in/telebot.v4"
)

// App owns the long-lived resources of a running bot.
type App struct {
	cfg      *config.Config
	infra    *corebootstrap.Infra
	sessions session.Store
	library  *songs.Library
	handlers *radio.Handlers
}

// New initializes logging, the session backend and the song library.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	opts := corebootstrap.Options{Config: &cfg.Config, Migrations: migrations.FS}
	if cfg.Session.Backend == config.BackendPostgres {
		db := cfg.Database
		opts.Database = &db
	}
	infra, err := corebootstrap.Run(ctx, opts)
	if err != nil {
		return nil, err
	}

	sessions, err := openSessions(cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	library := songs.NewLibrary(cfg.Storage.Root)
	logger.Info(ctx, "app", "bootstrap",
		slog.String("backend", cfg.Session.Backend),
		slog.String("path", library.Root()),
	)

	return &App{
		cfg:      cfg,
		infra:    infra,
		sessions: sessions,
		library:  library,
		handlers: radio.New(library, sessions, nil),
	}, nil
}

func openSessions(cfg *config.Config, infra *corebootstrap.Infra) (session.Store, error) {
	switch cfg.Session.Backend {
	case config.BackendBolt:
		st, err := session.OpenBolt(cfg.Session.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("app: open session store: %w", err)
		}
		return st, nil
	case config.BackendPostgres:
		if infra == nil || infra.DB == nil {
			return nil, errors.New("app: postgres session backend without database")
		}
		return session.NewPostgresStore(infra.DB), nil
	default:
		return session.NewMemoryStore(), nil
	}
}

// Middlewares returns the chain installed around every handler, outermost
// first.
func (a *App) Middlewares() []tele.MiddlewareFunc {
	chain := []tele.MiddlewareFunc{middleware.Recover}
	if ms := a.cfg.RateLimit.IntervalMS; ms > 0 {
		chain = append(chain, middleware.RateLimit(
			time.Duration(ms)*time.Millisecond,
			a.cfg.RateLimit.Excluded,
			a.handlers.Throttled,
		))
	}
	return append(chain, middleware.LogUpdates, middleware.Count)
}

// TelegramRunOptions registers the radio handlers and builds the runtime options.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	if err := a.handlers.Register(reg); err != nil {
		return coretelegram.RunOptions{}, err
	}

	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Middlewares: a.Middlewares(),
		Routes:      router.Routes(reg, router.Options{OnPrivateReject: a.handlers.PrivateOnly}),
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			if rt.Bot == nil {
				return errors.New("app: runtime without bot")
			}
			a.handlers.SetFileFetcher(rt.Bot)
			return nil
		},
		// Handlers have drained by the time OnStop runs.
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			return a.Close()
		},
	}, nil
}

// Close releases the session store and database.
func (a *App) Close() error {
	return errors.Join(a.sessions.Close(), a.infra.Close())
}
