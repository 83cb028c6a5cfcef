package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/squonkradio/core/logger"
	"github.com/m3rciful/squonkradio/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes ReplyMD and SendAudio through d. With nil they send
// inline, which is what tests rely on.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

func deliver(c tele.Context, kind sender.Kind, send func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return send()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, kind, send)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "send.inline",
			slog.String("method", string(kind)),
			slog.String("reason", err.Error()),
		)
		return send()
	}
	return err
}

// ReplyMD answers the current message in Markdown, or sends to the chat when
// the update has no message (button presses).
func ReplyMD(c tele.Context, text string) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
	return deliver(c, sender.KindMessage, func() error {
		if c.Message() == nil {
			return c.Send(text, opts)
		}
		return c.Reply(text, opts)
	})
}

// SendAudio uploads a song to the current chat. telebot opens the file for
// every attempt, so a retried upload starts from the beginning.
func SendAudio(c tele.Context, audio *tele.Audio, markup *tele.ReplyMarkup) error {
	return deliver(c, sender.KindAudio, func() error {
		if markup == nil {
			return c.Send(audio)
		}
		return c.Send(audio, markup)
	})
}

// Respond answers the button press on c right away; Telegram shows the
// spinner until it does. Non-callback updates are ignored.
func Respond(c tele.Context, text string, alert bool) error {
	if c.Callback() == nil {
		return nil
	}
	if text == "" {
		return c.Respond()
	}
	return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: alert})
}
