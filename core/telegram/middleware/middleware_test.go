package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type stubContext struct {
	tele.Context
	chat     *tele.Chat
	user     *tele.User
	callback *tele.Callback
	store    map[string]any
	sent     []any
}

func newStub(chat *tele.Chat) *stubContext {
	return &stubContext{chat: chat, user: &tele.User{ID: 7}, store: map[string]any{}}
}

func (s *stubContext) Chat() *tele.Chat         { return s.chat }
func (s *stubContext) Sender() *tele.User       { return s.user }
func (s *stubContext) Callback() *tele.Callback { return s.callback }
func (s *stubContext) Update() tele.Update      { return tele.Update{ID: 1} }
func (s *stubContext) Get(key string) any       { return s.store[key] }
func (s *stubContext) Set(key string, v any)    { s.store[key] = v }
func (s *stubContext) Send(what any, _ ...any) error {
	s.sent = append(s.sent, what)
	return nil
}

func TestPrivateOnly(t *testing.T) {
	var ran, rejected bool
	h := PrivateOnly(func(tele.Context) error {
		rejected = true
		return nil
	})(func(tele.Context) error {
		ran = true
		return nil
	})

	require.NoError(t, h(newStub(&tele.Chat{ID: -5, Type: tele.ChatGroup})))
	assert.False(t, ran)
	assert.True(t, rejected)

	require.NoError(t, h(newStub(&tele.Chat{ID: 5, Type: tele.ChatPrivate})))
	assert.True(t, ran)

	assert.NoError(t, PrivateOnly(nil)(h)(newStub(nil)))
}

func TestCount(t *testing.T) {
	c := newStub(&tele.Chat{ID: 1, Type: tele.ChatGroup})
	h := Count(func(c tele.Context) error {
		if err := c.Send("hello"); err != nil {
			return err
		}
		return c.Send(&tele.Audio{}, &tele.ReplyMarkup{})
	})

	require.NoError(t, h(c))
	assert.Equal(t, Sent{Messages: 2, Audio: 1, Keyboard: true}, Counts(c))
	assert.Len(t, c.sent, 2)
	assert.Equal(t, Sent{}, Counts(newStub(nil)))
}

func TestRateLimit(t *testing.T) {
	calls, limited := 0, 0
	mw := RateLimit(time.Hour, func(kind string) bool { return kind == "callback" }, func(tele.Context) error {
		limited++
		return nil
	})
	h := mw(func(tele.Context) error {
		calls++
		return nil
	})

	msg := newStub(&tele.Chat{ID: 1})
	require.NoError(t, h(msg))
	require.NoError(t, h(msg))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, limited)

	press := newStub(&tele.Chat{ID: 1})
	press.callback = &tele.Callback{Data: "next"}
	require.NoError(t, h(press))
	require.NoError(t, h(press))
	assert.Equal(t, 3, calls, "callbacks are exempt")

	other := newStub(&tele.Chat{ID: 2})
	other.user = &tele.User{ID: 8}
	require.NoError(t, h(other))
	assert.Equal(t, 4, calls)
}

func TestRecoverTurnsPanicIntoError(t *testing.T) {
	err := Recover(func(tele.Context) error { panic("boom") })(newStub(&tele.Chat{ID: 1}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	want := errors.New("plain")
	assert.ErrorIs(t, Recover(func(tele.Context) error { return want })(newStub(nil)), want)
}

func TestLogUpdatesPassesThrough(t *testing.T) {
	ran := false
	require.NoError(t, LogUpdates(func(tele.Context) error {
		ran = true
		return nil
	})(newStub(&tele.Chat{ID: 1})))
	assert.True(t, ran)
}
