package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/google/uuid"
)

// MemoryLedger stores deep copies, so neither the caller's order nor a returned one can
// alter what has been recorded.
type MemoryLedger struct {
	mu     sync.RWMutex
	orders []orders.Order
	byID   map[string]int
	byUser map[string][]int
	now    func() time.Time
}

func NewMemory() *MemoryLedger {
	return &MemoryLedger{
		byID:   make(map[string]int),
		byUser: make(map[string][]int),
		now:    time.Now,
	}
}

func (l *MemoryLedger) Append(_ context.Context, o orders.Order) (orders.Order, error) {
	if err := o.Validate(); err != nil {
		return orders.Order{}, err
	}
	o = o.Clone()
	o.ID = uuid.NewString()
	o.CreatedAt = l.now().UTC()

	l.mu.Lock()
	idx := len(l.orders)
	l.orders = append(l.orders, o)
	l.byID[o.ID] = idx
	l.byUser[o.UserID] = append(l.byUser[o.UserID], idx)
	l.mu.Unlock()

	return o.Clone(), nil
}

func (l *MemoryLedger) FindByID(_ context.Context, id string) (orders.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx, ok := l.byID[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return l.orders[idx].Clone(), nil
}

// FindByUser returns the user's orders, newest first.
func (l *MemoryLedger) FindByUser(_ context.Context, userID string) ([]orders.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idxs := l.byUser[userID]
	out := make([]orders.Order, 0, len(idxs))
	for i := len(idxs) - 1; i >= 0; i-- {
		out = append(out, l.orders[idxs[i]].Clone())
	}
	return out, nil
}

func (l *MemoryLedger) FindAll(_ context.Context) ([]orders.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]orders.Order, 0, len(l.orders))
	for i := len(l.orders) - 1; i >= 0; i-- {
		out = append(out, l.orders[i].Clone())
	}
	return out, nil
}
