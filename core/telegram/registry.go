package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/m3rciful/squonkradio/core/logger"

	tele "gopkg.in/telebot.v4"
)

// Command is a slash command listed in the bot menu.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// PrivateOnly commands answer only in one-to-one chats.
	PrivateOnly bool
}

// TextRoute handles plain text accepted by Match.
type TextRoute struct {
	Name    string
	Match   func(text string) bool
	Handler tele.HandlerFunc
}

// MediaRoute handles one media endpoint such as tele.OnAudio.
type MediaRoute struct {
	Endpoint string
	Name     string
	Handler  tele.HandlerFunc
}

// Registry collects everything the bot answers to. It is filled before the
// bot starts and only read afterwards.
type Registry struct {
	commands  map[string]Command
	callbacks map[string]tele.HandlerFunc
	texts     []TextRoute
	media     []MediaRoute
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]Command),
		callbacks: make(map[string]tele.HandlerFunc),
	}
}

// RegisterCommand adds a "/name" command.
func (r *Registry) RegisterCommand(name string, cmd Command) error {
	switch {
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		return fmt.Errorf("telegram: command %q must start with '/'", name)
	case cmd.Handler == nil || cmd.Description == "":
		return fmt.Errorf("telegram: command %s needs a handler and a description", name)
	}
	if _, dup := r.commands[name]; dup {
		return fmt.Errorf("telegram: command %s registered twice", name)
	}
	r.commands[name] = cmd
	return nil
}

// Commands returns the registered command names in menu order.
func (r *Registry) Commands() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Command looks a command up by its "/name".
func (r *Registry) Command(name string) (Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Menu is the command list published with setMyCommands.
func (r *Registry) Menu() []tele.Command {
	var menu []tele.Command
	for _, name := range r.Commands() {
		menu = append(menu, tele.Command{Text: name, Description: r.commands[name].Description})
	}
	return menu
}

// RegisterCallback binds an inline button key to h.
func (r *Registry) RegisterCallback(key string, h tele.HandlerFunc) error {
	if key == "" || h == nil {
		return fmt.Errorf("telegram: callback %q needs a key and a handler", key)
	}
	if _, dup := r.callbacks[key]; dup {
		return fmt.Errorf("telegram: callback %s registered twice", key)
	}
	r.callbacks[key] = h
	return nil
}

// Callback returns the handler bound to key.
func (r *Registry) Callback(key string) (tele.HandlerFunc, bool) {
	h, ok := r.callbacks[key]
	return h, ok
}

// RegisterText adds a text route. Routes are tried in registration order.
func (r *Registry) RegisterText(name string, match func(string) bool, h tele.HandlerFunc) error {
	if name == "" || match == nil || h == nil {
		return fmt.Errorf("telegram: text route %q needs a name, a matcher and a handler", name)
	}
	for _, t := range r.texts {
		if t.Name == name {
			return fmt.Errorf("telegram: text route %s registered twice", name)
		}
	}
	r.texts = append(r.texts, TextRoute{Name: name, Match: match, Handler: h})
	return nil
}

// MatchText returns the first text route accepting text.
func (r *Registry) MatchText(text string) (TextRoute, bool) {
	for _, t := range r.texts {
		if t.Match(text) {
			return t, true
		}
	}
	return TextRoute{}, false
}

// RegisterMedia binds a media endpoint such as tele.OnAudio to h.
func (r *Registry) RegisterMedia(endpoint, name string, h tele.HandlerFunc) error {
	if !strings.HasPrefix(endpoint, "\a") || h == nil {
		return fmt.Errorf("telegram: media route %q needs a telebot endpoint and a handler", endpoint)
	}
	for _, m := range r.media {
		if m.Endpoint == endpoint {
			return fmt.Errorf("telegram: media route %s registered twice", name)
		}
	}
	if name == "" {
		name = strings.TrimPrefix(endpoint, "\a")
	}
	r.media = append(r.media, MediaRoute{Endpoint: endpoint, Name: name, Handler: h})
	return nil
}

// Media returns the media routes in registration order.
func (r *Registry) Media() []MediaRoute {
	return r.media
}

// CommandSetter is the part of *tele.Bot that publishes the command menu.
type CommandSetter interface {
	SetCommands(opts ...interface{}) error
}

// SetupCommands publishes the registry menu. A failure is logged only: the
// commands still work when typed.
func SetupCommands(bot CommandSetter, r *Registry) {
	menu := r.Menu()
	if len(menu) == 0 {
		return
	}
	ctx := context.Background()
	if err := bot.SetCommands(menu); err != nil {
		logger.Warn(ctx, "tg.wire", "commands.publish", slog.String("outcome", "fail"), slog.String("err", err.Error()))
		return
	}
	logger.Info(ctx, "tg.wire", "commands.publish", slog.Int("count", len(menu)))
}
