// Package locker provides named mutual exclusion across requests. Checkout
// uses it to run at most one checkout per user at a time.
package locker

import (
	"context"
	"fmt"
	"sync"

	"github.com/01moynul/taptosell-commerce/internal/apperrors"
)

// Locker hands out exclusive locks by key. Acquire waits until the lock is
// free or ctx is done; the returned func releases it and is safe to call
// more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// busy is what callers see when ctx ends while waiting.
func busy(key string) error {
	return fmt.Errorf("%w: %s is locked by another request", apperrors.ErrConflict, key)
}

// Local is an in-process Locker for single-instance deployments and tests.
type Local struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func NewLocal() *Local {
	return &Local{held: make(map[string]chan struct{})}
}

func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	for {
		l.mu.Lock()
		wait, taken := l.held[key]
		if !taken {
			done := make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(done)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, busy(key)
		}
	}
}
