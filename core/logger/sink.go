package logger

import (
	"io"
	"sync"
	"sync/atomic"
)

// sink writes rendered lines on its own goroutine so handlers never wait on
// a slow terminal or disk. Lines written after close are dropped.
type sink struct {
	out   io.Writer
	lines chan []byte
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
	err    error
}

func newSink(out io.Writer, depth int) *sink {
	s := &sink{
		out:   out,
		lines: make(chan []byte, depth),
		done:  make(chan struct{}),
	}
	go s.drain()
	return s
}

func (s *sink) drain() {
	defer close(s.done)
	for p := range s.lines {
		if _, err := s.out.Write(p); err != nil && s.err == nil {
			s.err = err
		}
	}
}

func (s *sink) write(p []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	s.lines <- p
}

// close waits until every queued line is written and returns the first
// write error.
func (s *sink) close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.lines)
	}
	s.mu.Unlock()
	<-s.done
	return s.err
}

// sampler lets through the first of every n calls.
type sampler struct {
	every atomic.Int64
	calls atomic.Int64
}

func (s *sampler) set(n int) {
	s.every.Store(int64(n))
	s.calls.Store(0)
}

func (s *sampler) allow() bool {
	n := s.every.Load()
	if n <= 1 {
		return true
	}
	return (s.calls.Add(1)-1)%n == 0
}
