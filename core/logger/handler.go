package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

// line is an ordered set of fields. A repeated key keeps its first position
// and takes the latest value.
type line struct {
	keys []string
	vals map[string]any
}

func newLine() *line {
	return &line{vals: make(map[string]any, 16)}
}

func (l *line) set(key string, v any) {
	if _, ok := l.vals[key]; !ok {
		l.keys = append(l.keys, key)
	}
	l.vals[key] = v
}

func (l *line) setDefault(key string, v any) {
	if _, ok := l.vals[key]; !ok {
		l.set(key, v)
	}
}

// lineHandler renders records as one kv or JSON line each and hands them to
// a sink.
type lineHandler struct {
	out   *sink
	level slog.Leveler
	json  bool
	attrs []slog.Attr
	group string
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *lineHandler) Handle(ctx context.Context, r slog.Record) error {
	l := newLine()
	l.set("ts", r.Time.UTC().Format(tsLayout))
	l.set("level", r.Level.String())
	l.set("component", "app")
	l.set("event", r.Message)

	for _, a := range h.attrs {
		h.add(l, h.group, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.add(l, h.group, a)
		return true
	})

	u := UpdateFrom(ctx)
	if u.RID != "" {
		l.setDefault("rid", u.RID)
	}
	if u.UpdateID != 0 {
		l.setDefault("update_id", int64(u.UpdateID))
	}
	if u.ChatID != 0 {
		l.setDefault("chat_id", u.ChatID)
	}
	if u.UserID != 0 {
		l.setDefault("user_id", u.UserID)
	}
	if u.Handler != "" {
		l.setDefault("handler", u.Handler)
	}
	if l.vals["event"] == "" {
		l.set("event", "unknown")
	}

	var buf []byte
	if h.json {
		buf = encodeJSON(l)
	} else {
		buf = encodeKV(l)
	}
	h.out.write(append(buf, '\n'))
	return nil
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(c.attrs[:len(c.attrs):len(c.attrs)], attrs...)
	return &c
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.group = join(h.group, name)
	return &c
}

func (h *lineHandler) add(l *line, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			h.add(l, join(prefix, a.Key), child)
		}
		return
	}
	key := join(prefix, a.Key)
	if key == "" {
		return
	}
	switch v.Kind() {
	case slog.KindString:
		if s := strings.TrimSpace(v.String()); s != "" {
			l.set(key, s)
		}
	case slog.KindDuration:
		l.set(msKey(key), RoundMS(v.Duration()).Milliseconds())
	case slog.KindTime:
		l.set(key, v.Time().UTC().Format(time.RFC3339Nano))
	case slog.KindAny:
		switch x := v.Any().(type) {
		case nil:
		case error:
			l.set(key, x.Error())
		default:
			l.set(key, fmt.Sprint(x))
		}
	default:
		l.set(key, v.Any())
	}
}

// msKey puts the unit into duration keys: "duration" becomes "duration_ms".
func msKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

func join(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

func encodeKV(l *line) []byte {
	var b strings.Builder
	for i, k := range l.keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		s := fmt.Sprint(l.vals[k])
		if s == "" || strings.ContainsAny(s, " =\"\t\n") {
			s = strconv.Quote(s)
		}
		b.WriteString(s)
	}
	return []byte(b.String())
}

func encodeJSON(l *line) []byte {
	buf := []byte{'{'}
	for i, k := range l.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, k)
		buf = append(buf, ':')
		v, err := json.Marshal(l.vals[k])
		if err != nil {
			v, _ = json.Marshal(fmt.Sprint(l.vals[k]))
		}
		buf = append(buf, v...)
	}
	return append(buf, '}')
}
