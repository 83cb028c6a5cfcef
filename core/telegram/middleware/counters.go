package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const countsKey = "squonk.sent"

// Sent summarises what the bot sent while serving one update.
type Sent struct {
	Messages int
	Audio    int
	Keyboard bool
}

// tally is shared by the context wrappers of one update. Sends may run on
// the sender workers, hence the atomics.
type tally struct {
	messages atomic.Int32
	audio    atomic.Int32
	keyboard atomic.Bool
}

func (t *tally) note(what any, opts []any) {
	t.messages.Add(1)
	if _, ok := what.(*tele.Audio); ok {
		t.audio.Add(1)
	}
	for _, o := range opts {
		switch o := o.(type) {
		case *tele.ReplyMarkup:
			if o != nil {
				t.keyboard.Store(true)
			}
		case *tele.SendOptions:
			if o != nil && o.ReplyMarkup != nil {
				t.keyboard.Store(true)
			}
		}
	}
}

type countingContext struct {
	tele.Context
	t *tally
}

func (c countingContext) Send(what any, opts ...any) error {
	err := c.Context.Send(what, opts...)
	if err == nil {
		c.t.note(what, opts)
	}
	return err
}

func (c countingContext) Reply(what any, opts ...any) error {
	err := c.Context.Reply(what, opts...)
	if err == nil {
		c.t.note(what, opts)
	}
	return err
}

// Count wraps the context so successful Send and Reply calls are tallied
// for Counts.
func Count(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		t := &tally{}
		c.Set(countsKey, t)
		return next(countingContext{Context: c, t: t})
	}
}

// Counts reports what was sent for the update so far.
func Counts(c tele.Context) Sent {
	t, ok := c.Get(countsKey).(*tally)
	if !ok {
		return Sent{}
	}
	return Sent{
		Messages: int(t.messages.Load()),
		Audio:    int(t.audio.Load()),
		Keyboard: t.keyboard.Load(),
	}
}
