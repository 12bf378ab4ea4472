package app

import (
	"context"
	"sync"
)

// latest tracks the newest of a series of equivalent requests. Starting a request
// cancels the previous one; finishing reports whether the response is still current.
type latest struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func (l *latest) begin(parent context.Context) (context.Context, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	l.gen++
	l.cancel = cancel
	return ctx, l.gen
}

func (l *latest) finish(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return false
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	return true
}

// abort cancels whatever is in flight, e.g. when the host navigates away.
func (l *latest) abort() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
