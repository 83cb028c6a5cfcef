// Package sender delivers the bot's outgoing messages and songs on a small
// worker pool, retrying transient Telegram failures.
package sender

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/m3rciful/squonkradio/core/logger"

	tele "gopkg.in/telebot.v4"
)

// Kind names the Bot API method behind a queued send.
type Kind string

// The two calls the bot makes for users.
const (
	KindMessage Kind = "sendMessage"
	KindAudio   Kind = "sendAudio"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("sender: queue closed")
	// ErrQueueFull is returned by Enqueue when every slot is taken.
	ErrQueueFull = errors.New("sender: queue full")

	tokenRe  = regexp.MustCompile(`bot\d+:[\w-]+`)
	statusRe = regexp.MustCompile(`\((\d{3})\)$`)
)

// Options sizes the dispatcher. Zero values pick the defaults.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds one send including its retries. Audio uploads of a
	// few megabytes need most of it.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 128
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 90 * time.Second
	}
	return o
}

type job struct {
	ctx  context.Context
	kind Kind
	send func() error
}

// Dispatcher runs queued sends on a fixed set of workers.
type Dispatcher struct {
	opts Options
	jobs chan job
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	failures atomic.Uint64
}

// NewDispatcher starts the workers.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, jobs: make(chan job, opts.QueueSize)}
	d.wg.Add(opts.Workers)
	for range opts.Workers {
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				d.run(j)
			}
		}()
	}
	return d
}

// Enqueue schedules send. It never blocks: a full or closed queue is
// reported so the caller can send inline instead. send may run more than
// once.
func (d *Dispatcher) Enqueue(ctx context.Context, kind Kind, send func() error) error {
	if send == nil {
		return errors.New("sender: nil send")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- job{ctx: ctx, kind: kind, send: send}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Failures counts sends that gave up.
func (d *Dispatcher) Failures() uint64 {
	return d.failures.Load()
}

// Close stops accepting jobs and returns once the queued ones are done.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	var err error
	attempt := 0
	for attempt <= d.opts.MaxRetries {
		attempt++
		if err = j.send(); err == nil {
			d.logDone(j, attempt, start)
			return
		}
		if attempt > d.opts.MaxRetries || !Retryable(err) {
			break
		}
		wait := d.backoff(err, attempt)
		logger.Debug(j.ctx, "tg.sender", "send.retry",
			slog.String("method", string(j.kind)),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error_kind", errorKind(err)),
		)
		if werr := sleep(ctx, wait); werr != nil {
			err = errors.Join(err, werr)
			break
		}
	}

	d.failures.Add(1)
	logger.Error(j.ctx, "tg.sender", "send.fail",
		slog.String("method", string(j.kind)),
		slog.Int("attempts", attempt),
		slog.Duration("elapsed", time.Since(start)),
		slog.String("error_kind", errorKind(err)),
		slog.String("err", redact(err.Error())),
	)
}

func (d *Dispatcher) logDone(j job, attempt int, start time.Time) {
	lvl := slog.LevelDebug
	if attempt > 1 {
		lvl = slog.LevelInfo
	}
	logger.Log(j.ctx, lvl, "tg.sender", "send.ok",
		slog.String("method", string(j.kind)),
		slog.Int("attempts", attempt),
		slog.Duration("elapsed", time.Since(start)),
	)
}

// backoff waits as long as Telegram asks on flood control and grows
// linearly otherwise.
func (d *Dispatcher) backoff(err error, attempt int) time.Duration {
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second
	}
	return d.opts.RetryBackoff * time.Duration(attempt)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retryable reports whether repeating a failed send can help: dropped or
// timed out connections, flood control and 5xx answers.
func Retryable(err error) bool {
	switch errorKind(err) {
	case "network", "timeout", "flood", "http_5xx":
		return true
	}
	return false
}

func errorKind(err error) string {
	if err == nil {
		return ""
	}
	var (
		flood tele.FloodError
		nerr  net.Error
		op    *net.OpError
	)
	switch {
	case errors.As(err, &flood):
		return "flood"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &nerr) && nerr.Timeout():
		return "timeout"
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.EPIPE),
		errors.As(err, &op) && op.Op == "dial":
		return "network"
	}
	switch code := statusCode(err); {
	case code >= 500:
		return "http_5xx"
	case code >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// statusCode extracts the Bot API error code. Errors telebot does not know
// by description only carry it as a "(502)" suffix.
func statusCode(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	if m := statusRe.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}

// redact hides the bot token that request URLs leak into transport errors.
func redact(msg string) string {
	return tokenRe.ReplaceAllString(msg, "bot<redacted>")
}
