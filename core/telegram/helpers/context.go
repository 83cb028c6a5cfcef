// Package helpers carries the per-update logging context and the reply
// helpers used by handlers.
package helpers

import (
	"context"

	"github.com/m3rciful/squonkradio/core/logger"

	tele "gopkg.in/telebot.v4"
)

const ctxKey = "squonk.ctx"

// BuildContext returns the logging context of the update behind c. The first
// call derives it from the update, chat and sender ids and caches it on c.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := c.Get(ctxKey).(context.Context); ok && ctx != nil {
		return ctx
	}
	u := logger.Update{UpdateID: c.Update().ID}
	if chat := c.Chat(); chat != nil {
		u.ChatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		u.UserID = user.ID
	}
	u.RID = logger.BuildRID(u.UpdateID, u.ChatID, u.UserID)

	ctx := logger.WithUpdate(context.Background(), u)
	c.Set(ctxKey, ctx)
	return ctx
}

// WithHandler names the handler serving c in every later log line.
func WithHandler(c tele.Context, name string) context.Context {
	ctx := logger.WithHandler(BuildContext(c), name)
	c.Set(ctxKey, ctx)
	return ctx
}
