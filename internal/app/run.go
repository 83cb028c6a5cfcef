package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/squonkradio/core/logger"
	coretelegram "github.com/m3rciful/squonkradio/core/telegram"
	"github.com/m3rciful/squonkradio/internal/config"
)

// runTelegram is replaced in tests.
var runTelegram = coretelegram.RunTelegram

// Run loads the configuration at path and serves the bot until ctx ends.
func Run(ctx context.Context, path string) (err error) {
	started := time.Now()
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("app: config %s: %w", path, err)
	}

	a, err := New(ctx, cfg)
	defer func() { err = errors.Join(err, logger.Shutdown()) }()
	if err != nil {
		return err
	}

	opts, err := a.TelegramRunOptions()
	if err != nil {
		return errors.Join(err, a.Close())
	}
	onStart, onStop := opts.OnStart, opts.OnStop
	stopped := false
	opts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if err := onStart(ctx, rt); err != nil {
			return err
		}
		logger.Info(ctx, "app", "ready", slog.Duration("startup", logger.RoundMS(time.Since(started))))
		return nil
	}
	opts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		stopped = true
		logger.Info(ctx, "app", "shutdown")
		return onStop(ctx, rt)
	}

	err = runTelegram(ctx, opts)
	if !stopped {
		err = errors.Join(err, a.Close())
	}
	return err
}
