package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
)

type slot struct {
	mu sync.Mutex
	p  orders.Product
}

// MemoryCatalog keeps one lock per product so reservations on different products never
// contend. The map lock is held only to find or insert a slot.
type MemoryCatalog struct {
	mu    sync.RWMutex
	slots map[string]*slot
	now   func() time.Time
}

func NewMemory() *MemoryCatalog {
	return &MemoryCatalog{slots: make(map[string]*slot), now: time.Now}
}

func (c *MemoryCatalog) slot(id string) (*slot, bool) {
	c.mu.RLock()
	s, ok := c.slots[id]
	c.mu.RUnlock()
	return s, ok
}

func (c *MemoryCatalog) Lookup(_ context.Context, productID string) (orders.Product, error) {
	s, ok := c.slot(productID)
	if !ok {
		return orders.Product{}, &orders.ProductNotFoundError{ProductID: productID}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p, nil
}

func (c *MemoryCatalog) Reserve(_ context.Context, productID string, qty int) (orders.Product, error) {
	if qty <= 0 {
		return orders.Product{}, orders.NewValidationError("quantity", "must be positive")
	}
	s, ok := c.slot(productID)
	if !ok {
		return orders.Product{}, &orders.ProductNotFoundError{ProductID: productID}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p.Stock < qty {
		return orders.Product{}, &orders.InsufficientStockError{ProductID: productID, Requested: qty, Available: s.p.Stock}
	}
	s.p.Stock -= qty
	s.p.UpdatedAt = c.now()
	return s.p, nil
}

func (c *MemoryCatalog) Release(_ context.Context, productID string, qty int) error {
	if qty <= 0 {
		return orders.NewValidationError("quantity", "must be positive")
	}
	s, ok := c.slot(productID)
	if !ok {
		return &orders.ProductNotFoundError{ProductID: productID}
	}
	s.mu.Lock()
	s.p.Stock += qty
	s.p.UpdatedAt = c.now()
	s.mu.Unlock()
	return nil
}

// Put upserts a product record, as the catalog-administration side would.
func (c *MemoryCatalog) Put(_ context.Context, p orders.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	p.UpdatedAt = c.now()

	c.mu.Lock()
	s, ok := c.slots[p.ID]
	if !ok {
		c.slots[p.ID] = &slot{p: p}
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
	return nil
}

func (c *MemoryCatalog) SetPrice(_ context.Context, productID string, priceCents int64) error {
	if priceCents < 0 {
		return orders.NewValidationError("priceCents", "must not be negative")
	}
	s, ok := c.slot(productID)
	if !ok {
		return &orders.ProductNotFoundError{ProductID: productID}
	}
	s.mu.Lock()
	s.p.PriceCents = priceCents
	s.p.UpdatedAt = c.now()
	s.mu.Unlock()
	return nil
}

func (c *MemoryCatalog) List(_ context.Context) ([]orders.Product, error) {
	c.mu.RLock()
	slots := make([]*slot, 0, len(c.slots))
	for _, s := range c.slots {
		slots = append(slots, s)
	}
	c.mu.RUnlock()

	out := make([]orders.Product, 0, len(slots))
	for _, s := range slots {
		s.mu.Lock()
		out = append(out, s.p)
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func validateProduct(p orders.Product) error {
	switch {
	case p.ID == "":
		return orders.NewValidationError("id", "is required")
	case p.PriceCents < 0:
		return orders.NewValidationError("priceCents", "must not be negative")
	case p.Stock < 0:
		return orders.NewValidationError("stock", "must not be negative")
	}
	return nil
}
