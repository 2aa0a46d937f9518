package runtime

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

var ErrNotReady = errors.New("service not ready")

// Readiness is the process-wide "initialization finished" signal. main marks it
// ready once every dependency is open, and not ready again when shutdown starts.
// Nothing flips it lazily from a request path.
type Readiness struct {
	ready atomic.Bool

	mu        sync.Mutex
	listeners []func(bool)
}

func NewReadiness() *Readiness {
	return &Readiness{}
}

func (r *Readiness) Ready() bool {
	return r.ready.Load()
}

func (r *Readiness) MarkReady() { r.set(true) }

func (r *Readiness) MarkNotReady() { r.set(false) }

// OnChange registers fn to run on every transition. fn is called immediately
// with the current state.
func (r *Readiness) OnChange(fn func(ready bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
	fn(r.ready.Load())
}

// Check adapts the signal to a ReadyCheck.
func (r *Readiness) Check(context.Context) error {
	if !r.Ready() {
		return ErrNotReady
	}
	return nil
}

func (r *Readiness) set(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready.Swap(v) == v {
		return
	}
	for _, fn := range r.listeners {
		fn(v)
	}
}
