package search

import (
	"context"
	"sync"
	"time"
)

// token is the cancellation token of one Search invocation. It spans the
// debounce wait and the network work that follows it.
type token struct {
	ctx    context.Context
	cancel context.CancelFunc
	timer  *time.Timer
	done   chan struct{}
	once   sync.Once
}

func newToken(parent context.Context) *token {
	ctx, cancel := context.WithCancel(parent)
	return &token{ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

// supersede clears the pending debounce timer and signals cancellation.
// If the timer had not fired yet, the invocation is finished here.
func (t *token) supersede() {
	if t.timer != nil && t.timer.Stop() {
		t.finish()
	}
	t.cancel()
}

// finish releases the token and closes done. Idempotent.
func (t *token) finish() {
	t.once.Do(func() {
		t.cancel()
		close(t.done)
	})
}

func (t *token) cancelled() bool { return t.ctx.Err() != nil }
