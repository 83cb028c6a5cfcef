package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture installs a logger writing into a buffer and returns a func that
// flushes it and yields the written lines.
func capture(t *testing.T, format string, lvl slog.Level) func() []string {
	t.Helper()
	buf := &bytes.Buffer{}
	install(buf, format, lvl)
	t.Cleanup(func() { _ = Shutdown() })
	return func() []string {
		require.NoError(t, Shutdown())
		return strings.Split(strings.TrimSpace(buf.String()), "\n")
	}
}

func TestKVLineOrder(t *testing.T) {
	lines := capture(t, "kv", slog.LevelInfo)

	ctx := WithUpdate(context.Background(), Update{RID: "a.b.c", UpdateID: 42, ChatID: -100777, UserID: 7})
	ctx = WithHandler(ctx, "play")
	Info(ctx, "storage.songs", "song.pick",
		slog.String("outcome", "ok"),
		slog.String("song", "my song.mp3"),
		slog.Duration("duration", 1500*time.Microsecond),
	)

	got := lines()
	require.Len(t, got, 1)
	tokens := strings.SplitN(got[0], " ", 5)
	assert.True(t, strings.HasPrefix(tokens[0], "ts="))
	assert.Equal(t, "level=INFO", tokens[1])
	assert.Equal(t, "component=storage.songs", tokens[2])
	assert.Equal(t, "event=song.pick", tokens[3])
	for _, want := range []string{`song="my song.mp3"`, "duration_ms=2", "rid=a.b.c", "update_id=42", "chat_id=-100777", "user_id=7", "handler=play"} {
		assert.Contains(t, got[0], want)
	}
}

func TestJSONLine(t *testing.T) {
	lines := capture(t, "json", slog.LevelDebug)

	Error(context.Background(), "tg.sender", "send.fail",
		slog.Any("err", errors.New("boom")),
		slog.Int("attempts", 3),
		slog.String("empty", "  "),
	)

	got := lines()
	require.Len(t, got, 1)
	require.True(t, strings.HasPrefix(got[0], `{"ts":`), got[0])

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(got[0]), &m))
	assert.Equal(t, "ERROR", m["level"])
	assert.Equal(t, "tg.sender", m["component"])
	assert.Equal(t, "send.fail", m["event"])
	assert.Equal(t, "boom", m["err"])
	assert.EqualValues(t, 3, m["attempts"])
	assert.NotContains(t, m, "empty")
}

func TestLevelFilterAndSampling(t *testing.T) {
	lines := capture(t, "kv", slog.LevelInfo)
	Debug(context.Background(), "tg", "update.received")
	assert.False(t, Sampled(), "debug disabled")
	Info(context.Background(), "tg", "kept")

	got := lines()
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "event=kept")
}

func TestSampler(t *testing.T) {
	var s sampler
	s.set(3)
	var allowed []bool
	for i := 0; i < 6; i++ {
		allowed = append(allowed, s.allow())
	}
	assert.Equal(t, []bool{true, false, false, true, false, false}, allowed)

	s.set(0)
	assert.True(t, s.allow())
}

func TestHelpersWithoutLogger(t *testing.T) {
	require.NoError(t, Shutdown())
	assert.NotPanics(t, func() {
		Info(context.Background(), "app", "noop")
		Error(WithHandler(context.TODO(), "x"), "app", "noop")
	})
}

func TestBuildRIDAndClip(t *testing.T) {
	assert.Equal(t, "16.-2s.7", BuildRID(42, -100, 7))
	assert.Equal(t, "ab c", Clip("ab\x00c", 10))
	assert.Equal(t, "héll", Clip("héllo", 4))
	assert.Empty(t, Clip("x", 0))
	assert.Equal(t, "duration_ms", msKey("duration"))
	assert.Equal(t, "elapsed_ms", msKey("elapsed_ms"))
}
