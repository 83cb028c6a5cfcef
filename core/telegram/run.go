// Package telegram runs the bot: it builds the telebot instance, installs
// middlewares and routes, and shuts everything down in order.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	coreconfig "github.com/m3rciful/squonkradio/core/config"
	"github.com/m3rciful/squonkradio/core/logger"
	tghelpers "github.com/m3rciful/squonkradio/core/telegram/helpers"
	tgsender "github.com/m3rciful/squonkradio/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// drainTimeout bounds how long shutdown waits for running handlers.
const drainTimeout = 30 * time.Second

// Route binds a telebot endpoint to a handler.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions describe the bot to run.
type RunOptions struct {
	Config      *coreconfig.Config
	Registry    *Registry
	Sender      tgsender.Options
	Middlewares []tele.MiddlewareFunc
	Routes      []Route

	// OnStart runs after routes are installed and before updates flow.
	OnStart func(ctx context.Context, rt Runtime) error
	// OnStop runs once no handler is running and queued sends are done.
	OnStop func(ctx context.Context, rt Runtime) error
}

// Runtime is handed to the lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram serves updates until ctx is cancelled.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil {
		return errors.New("telegram: nil config")
	}
	cfg := opts.Config
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	started := time.Now()
	poller := BuildPoller(cfg)
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  poller,
		Client:  newHTTPClient(pollTimeout(cfg)),
		OnError: logHandlerError,
	})
	if err != nil {
		return fmt.Errorf("telegram: create bot: %w", err)
	}
	logMode(ctx, bot, poller, time.Since(started))

	busy := &inflight{}
	bot.Use(busy.track)
	bot.Use(opts.Middlewares...)
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	SetupCommands(bot, opts.Registry)

	rt := Runtime{
		Bot:        bot,
		Dispatcher: tgsender.NewDispatcher(opts.Sender),
		Registry:   opts.Registry,
	}
	tghelpers.SetDispatcher(rt.Dispatcher)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return errors.Join(err, shutdown(context.WithoutCancel(ctx), rt, busy, nil))
		}
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-stopped
	case <-stopped:
	}

	return shutdown(context.WithoutCancel(ctx), rt, busy, opts.OnStop)
}

// shutdown lets running handlers finish, flushes the send queue and only
// then calls onStop, so stores closed there are never used afterwards.
func shutdown(ctx context.Context, rt Runtime, busy *inflight, onStop func(context.Context, Runtime) error) error {
	if left := busy.wait(drainTimeout); left > 0 {
		logger.Warn(ctx, "tg", "handlers.abandoned", slog.Int64("count", left))
	}
	rt.Dispatcher.Close()
	tghelpers.SetDispatcher(nil)
	logger.Info(ctx, "tg.sender", "sender.closed", slog.Uint64("send_failures", rt.Dispatcher.Failures()))

	if onStop == nil {
		return nil
	}
	return onStop(ctx, rt)
}

// inflight counts handlers that have not returned yet.
type inflight struct {
	n atomic.Int64
}

func (f *inflight) track(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		f.n.Add(1)
		defer f.n.Add(-1)
		return next(c)
	}
}

// wait returns once no handler runs or timeout passes, reporting how many
// were still running.
func (f *inflight) wait(timeout time.Duration) int64 {
	deadline := time.Now().Add(timeout)
	for {
		left := f.n.Load()
		if left == 0 || time.Now().After(deadline) {
			return left
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func logMode(ctx context.Context, bot *tele.Bot, p tele.Poller, took time.Duration) {
	switch p := p.(type) {
	case *tele.Webhook:
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", took),
		)
	case *tele.LongPoller:
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Duration("poll_timeout", p.Timeout),
			slog.Duration("duration", took),
		)
		// A webhook left over from an earlier deployment blocks getUpdates.
		if err := bot.RemoveWebhook(false); err != nil {
			logger.Warn(ctx, "tg", "webhook.delete", slog.String("err", err.Error()))
		}
	}
}

// logHandlerError receives errors returned by handlers. The user already got
// a reply, so the error only needs to reach the log.
func logHandlerError(err error, c tele.Context) {
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Error(ctx, "tg", "handler.error", slog.String("err", logger.Clip(err.Error(), 256)))
}
