// Package router turns a registry into telebot routes: one per command and
// media endpoint, plus the text and callback dispatchers.
package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/squonkradio/core/logger"
	tg "github.com/m3rciful/squonkradio/core/telegram"
	"github.com/m3rciful/squonkradio/core/telegram/callbacks"
	"github.com/m3rciful/squonkradio/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Options customise how unmatched or refused updates are answered.
type Options struct {
	// OnPrivateReject answers a private-only command used in a group.
	OnPrivateReject tele.HandlerFunc
	// UnknownCallback answers a button whose key is not registered. The
	// default is a short "Unsupported action" notice.
	UnknownCallback tele.HandlerFunc
}

// Routes builds every route of reg. Text that matches no text route is
// logged and otherwise ignored.
func Routes(reg *tg.Registry, opts Options) []tg.Route {
	if opts.UnknownCallback == nil {
		opts.UnknownCallback = func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		}
	}

	var routes []tg.Route
	for _, name := range reg.Commands() {
		cmd, _ := reg.Command(name)
		h := cmd.Handler
		if cmd.PrivateOnly {
			h = middleware.PrivateOnly(opts.OnPrivateReject)(h)
		}
		routes = append(routes, tg.Route{Endpoint: name, Handler: named(strings.TrimPrefix(name, "/"), h)})
	}
	for _, m := range reg.Media() {
		routes = append(routes, tg.Route{Endpoint: m.Endpoint, Handler: named("media."+m.Name, m.Handler)})
	}
	routes = append(routes,
		tg.Route{Endpoint: tele.OnText, Handler: textHandler(reg)},
		tg.Route{Endpoint: tele.OnCallback, Handler: callbackHandler(reg, opts.UnknownCallback)},
	)

	logger.Info(context.Background(), "tg.wire", "routes",
		slog.Int("commands", len(reg.Commands())),
		slog.Int("media", len(reg.Media())),
		slog.Int("total", len(routes)),
	)
	return routes
}

func named(name string, h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		return handled(c, name, "", h)
	}
}

func textHandler(reg *tg.Registry) tele.HandlerFunc {
	return func(c tele.Context) error {
		route, ok := reg.MatchText(c.Text())
		if !ok {
			return handled(c, "text.unmatched", "skip", nil)
		}
		return handled(c, "text."+route.Name, "", route.Handler)
	}
}

// callbackHandler dispatches button presses by key. Handlers answer the
// callback query themselves so they can show an alert.
func callbackHandler(reg *tg.Registry, unknown tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		key := callbacks.Key(c)
		if h, ok := reg.Callback(key); ok {
			return handled(c, "callback."+key, "", h)
		}
		return handled(c, "callback.unknown", "rejected", unknown)
	}
}
