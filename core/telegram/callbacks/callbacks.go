// Package callbacks reads the routing key out of inline button presses.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Parse returns the routing key and payload of cb. Plain buttons carry the
// key as their whole data ("next"); telebot's unique buttons arrive as
// "\f<unique>|<payload>" unless telebot already split them.
func Parse(cb *tele.Callback) (key, payload string) {
	switch {
	case cb == nil:
		return "", ""
	case cb.Unique != "":
		return cb.Unique, cb.Data
	}
	key, payload, _ = strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return strings.TrimSpace(key), payload
}

// Key is the routing key of the button press on c, or "".
func Key(c tele.Context) string {
	key, _ := Parse(c.Callback())
	return key
}
