package router

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/squonkradio/core/logger"
	tghelpers "github.com/m3rciful/squonkradio/core/telegram/helpers"
	"github.com/m3rciful/squonkradio/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// handled runs h under the handler name and writes one summary line for the
// update. A non-empty outcome overrides the one derived from the error.
func handled(c tele.Context, name, outcome string, h tele.HandlerFunc) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, name)

	var err error
	if h != nil {
		err = h(c)
	}
	if outcome == "" {
		outcome = "ok"
		if err != nil {
			outcome = "fail"
		}
	}

	sent := middleware.Counts(c)
	attrs := []slog.Attr{
		slog.String("outcome", outcome),
		slog.Duration("duration", time.Since(start)),
		slog.Int("messages", sent.Messages),
	}
	if sent.Audio > 0 {
		attrs = append(attrs, slog.Int("audio", sent.Audio))
	}
	if sent.Keyboard {
		attrs = append(attrs, slog.Bool("kb", true))
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.Clip(err.Error(), 256)))
		if code := errorCode(err); code != "" {
			attrs = append(attrs, slog.String("err_code", code))
		}
	}
	logger.Info(ctx, "tg", "handler.handled", attrs...)
	return err
}

// errorCode reads the Code() of domain errors such as songs.StorageError.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return strings.ToUpper(coded.Code())
	}
	return ""
}
