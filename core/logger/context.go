package logger

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Update identifies the Telegram update a log line belongs to.
type Update struct {
	RID      string
	UpdateID int
	ChatID   int64
	UserID   int64
	Handler  string
}

type updateKey struct{}

// WithUpdate stores u on ctx. The handler adds its fields to every line
// written with that context.
func WithUpdate(ctx context.Context, u Update) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, updateKey{}, u)
}

// UpdateFrom returns the update stored on ctx, or the zero value.
func UpdateFrom(ctx context.Context) Update {
	if ctx == nil {
		return Update{}
	}
	u, _ := ctx.Value(updateKey{}).(Update)
	return u
}

// WithHandler names the handler serving the update on ctx.
func WithHandler(ctx context.Context, name string) context.Context {
	u := UpdateFrom(ctx)
	u.Handler = name
	return WithUpdate(ctx, u)
}

// BuildRID joins update, chat and user ids in base36, e.g. "2n9c.-1q2w.5k".
func BuildRID(updateID int, chatID, userID int64) string {
	return strconv.FormatInt(int64(updateID), 36) + "." +
		strconv.FormatInt(chatID, 36) + "." +
		strconv.FormatInt(userID, 36)
}

// Clip strips control characters from user supplied text and cuts it to max
// runes.
func Clip(s string, max int) string {
	if max <= 0 || s == "" {
		return ""
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			r = ' '
		}
		if n == max {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// RoundMS rounds d to whole milliseconds; negative durations become zero.
func RoundMS(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}
