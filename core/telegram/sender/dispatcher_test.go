package sender

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})

	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), KindAudio, func() error {
		if calls.Add(1) < 3 {
			return timeoutErr{}
		}
		return nil
	}))
	d.Close()

	assert.Equal(t, int32(3), calls.Load())
	assert.Zero(t, d.Failures())
}

func TestDispatcherGivesUpAfterMaxRetries(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 1, RetryBackoff: time.Millisecond})

	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), KindMessage, func() error {
		calls.Add(1)
		return syscall.ECONNRESET
	}))
	d.Close()

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, uint64(1), d.Failures())
}

func TestDispatcherStopsOnPermanentError(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})

	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), KindMessage, func() error {
		calls.Add(1)
		return errors.New("telegram: bad request: chat not found (400)")
	}))
	d.Close()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(1), d.Failures())
}

func TestCloseRunsQueuedJobs(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 8})
	var done atomic.Int32
	for range 5 {
		require.NoError(t, d.Enqueue(context.Background(), KindMessage, func() error {
			done.Add(1)
			return nil
		}))
	}
	d.Close()
	assert.Equal(t, int32(5), done.Load())

	err := d.Enqueue(context.Background(), KindMessage, func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
	d.Close()
}

func TestEnqueueFullQueue(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), KindAudio, func() error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), KindAudio, func() error { return nil }))

	err := d.Enqueue(context.Background(), KindAudio, func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)
	close(release)
	d.Close()
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
		kind string
	}{
		{nil, false, ""},
		{timeoutErr{}, true, "timeout"},
		{fmt.Errorf("post: %w", io.ErrUnexpectedEOF), true, "network"},
		{&net.OpError{Op: "dial", Err: errors.New("refused")}, true, "network"},
		{tele.FloodError{RetryAfter: 1}, true, "flood"},
		{errors.New("telegram: internal server error (502)"), true, "http_5xx"},
		{&tele.Error{Code: 500, Description: "oops"}, true, "http_5xx"},
		{errors.New("telegram: bad request (400)"), false, "http_4xx"},
		{errors.New("something else"), false, "unknown"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Retryable(tc.err), "%v", tc.err)
		assert.Equal(t, tc.kind, errorKind(tc.err), "%v", tc.err)
	}
}

func TestBackoffHonoursFloodWait(t *testing.T) {
	d := &Dispatcher{opts: Options{RetryBackoff: time.Second}}
	assert.Equal(t, 7*time.Second, d.backoff(tele.FloodError{RetryAfter: 7}, 1))
	assert.Equal(t, 2*time.Second, d.backoff(timeoutErr{}, 2))
}

func TestRedactToken(t *testing.T) {
	msg := redact(`Post "https://api.telegram.org/bot123456:ABC-def_ghi/sendAudio": timeout`)
	assert.NotContains(t, msg, "ABC-def_ghi")
	assert.Contains(t, msg, "bot<redacted>/sendAudio")
}
