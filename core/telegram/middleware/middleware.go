// Package middleware holds the telebot middlewares the bot installs around
// every handler.
package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	coreconfig "github.com/m3rciful/squonkradio/core/config"
	"github.com/m3rciful/squonkradio/core/logger"
	"github.com/m3rciful/squonkradio/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/squonkradio/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Recover turns a handler panic into an error so telebot's OnError logs it
// and the bot keeps serving.
func Recover(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(tghelpers.BuildContext(c), "tg", "panic",
					slog.Any("value", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		return next(c)
	}
}

// PrivateOnly lets the update through only in one-to-one chats. Elsewhere
// onReject answers, when set.
func PrivateOnly(onReject tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat != nil && chat.Type == tele.ChatPrivate {
				return next(c)
			}
			attrs := []slog.Attr{slog.String("outcome", "rejected")}
			if chat != nil {
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			logger.Info(tghelpers.BuildContext(c), "tg", "access.private_only", attrs...)
			if onReject == nil {
				return nil
			}
			return onReject(c)
		}
	}
}

// Kind classifies an update as coreconfig.UpdateCallback or
// coreconfig.UpdateMessage.
func Kind(c tele.Context) string {
	if c.Callback() != nil {
		return coreconfig.UpdateCallback
	}
	return coreconfig.UpdateMessage
}

// RateLimit drops updates from a user that arrive less than interval after
// the previous accepted one. skip exempts update kinds; onLimited may answer
// the dropped update.
func RateLimit(interval time.Duration, skip func(kind string) bool, onLimited tele.HandlerFunc) tele.MiddlewareFunc {
	var (
		mu   sync.Mutex
		seen = make(map[int64]time.Time)
	)
	allow := func(user int64, now time.Time) bool {
		mu.Lock()
		defer mu.Unlock()
		if last, ok := seen[user]; ok && now.Sub(last) < interval {
			return false
		}
		seen[user] = now
		if len(seen) > 4096 {
			for id, t := range seen {
				if now.Sub(t) >= interval {
					delete(seen, id)
				}
			}
		}
		return true
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			kind := Kind(c)
			if interval <= 0 || user == nil || (skip != nil && skip(kind)) || allow(user.ID, time.Now()) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "rate_limited",
				slog.String("kind", kind),
				slog.Duration("interval", interval),
			)
			if onLimited == nil {
				return nil
			}
			return onLimited(c)
		}
	}
}

// LogUpdates writes a sampled debug line describing each incoming update.
func LogUpdates(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if logger.Sampled() {
			logger.Debug(tghelpers.BuildContext(c), "tg", "update.received", describe(c)...)
		}
		return next(c)
	}
}

func describe(c tele.Context) []slog.Attr {
	var attrs []slog.Attr
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if u := c.Sender(); u != nil && u.Username != "" {
		attrs = append(attrs, slog.String("username", logger.Clip(u.Username, 64)))
	}
	if cb := c.Callback(); cb != nil {
		return append(attrs, slog.String("cb_key", logger.Clip(callbacks.Key(c), 64)))
	}
	if msg := c.Message(); msg != nil && msg.Audio != nil {
		return append(attrs,
			slog.String("payload", "audio"),
			slog.Int64("bytes", msg.Audio.FileSize),
		)
	}
	if text := c.Text(); text != "" {
		attrs = append(attrs, slog.String("payload", logger.Clip(text, 128)))
	}
	return attrs
}
