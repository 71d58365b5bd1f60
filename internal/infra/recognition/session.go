package recognition

import (
	"context"
	"sync"
)

// sessionRunner runs at most one session goroutine at a time. Starting a
// new session waits for a stopped one to return, so sources sharing a
// device or a directory never work on it from two goroutines.
type sessionRunner struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// start launches run in its own goroutine unless a session is already
// running, in which case it reports false. finish is called once run has
// returned and the runner accepts a new session.
func (r *sessionRunner) start(ctx context.Context, run func(context.Context), finish func()) (bool, error) {
	r.mu.Lock()
	for {
		if r.cancel != nil {
			r.mu.Unlock()
			return false, nil
		}
		prev := r.done
		if prev == nil || isClosed(prev) {
			break
		}
		r.mu.Unlock()
		select {
		case <-prev:
		case <-ctx.Done():
			return false, ctx.Err()
		}
		r.mu.Lock()
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	go func() {
		run(sessionCtx)

		r.mu.Lock()
		if r.done == done {
			r.cancel = nil
		}
		r.mu.Unlock()
		cancel()
		close(done)

		if finish != nil {
			finish()
		}
	}()
	return true, nil
}

// stop cancels the running session without waiting for it.
func (r *sessionRunner) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// wait blocks until the last started session has returned.
func (r *sessionRunner) wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	if done != nil {
		<-done
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
