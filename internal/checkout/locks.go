package checkout

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
)

// LocalLocks is the in-process CheckoutLocker used when a single API instance serves all users.
type LocalLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocks() *LocalLocks {
	return &LocalLocks{held: make(map[string]struct{})}
}

func (l *LocalLocks) TryLock(_ context.Context, userID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[userID]; busy {
		return nil, orders.ErrCheckoutInProgress
	}
	l.held[userID] = struct{}{}
	return func() {
		l.mu.Lock()
		delete(l.held, userID)
		l.mu.Unlock()
	}, nil
}
