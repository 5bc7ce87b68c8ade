package cart

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
)

type userCart struct {
	mu    sync.Mutex
	lines []orders.CartLine
}

// MemoryStore serializes mutations per user with a dedicated mutex. Readers get a copy taken
// under that mutex, so they never see a half-applied write.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string]*userCart
}

func NewMemory() *MemoryStore {
	return &MemoryStore{carts: make(map[string]*userCart)}
}

func (s *MemoryStore) cart(userID string) *userCart {
	s.mu.RLock()
	c, ok := s.carts[userID]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.carts[userID]; !ok {
		c = &userCart{}
		s.carts[userID] = c
	}
	return c
}

// mutate applies fn to a private copy and keeps the result only when fn succeeds.
func (s *MemoryStore) mutate(userID string, fn func([]orders.CartLine) ([]orders.CartLine, error)) (orders.Cart, error) {
	c := s.cart(userID)
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := fn(snapshot(userID, c.lines).Lines)
	if err != nil {
		return orders.Cart{}, err
	}
	c.lines = next
	return snapshot(userID, c.lines), nil
}

func snapshot(userID string, lines []orders.CartLine) orders.Cart {
	return orders.Cart{UserID: userID, Lines: lines}.Clone()
}

func (s *MemoryStore) Get(_ context.Context, userID string) (orders.Cart, error) {
	if err := validateUser(userID); err != nil {
		return orders.Cart{}, err
	}
	c := s.cart(userID)
	c.mu.Lock()
	defer c.mu.Unlock()
	return snapshot(userID, c.lines), nil
}

func (s *MemoryStore) AddLine(_ context.Context, userID, productID string, qty int) (orders.Cart, error) {
	if err := validateAdd(userID, productID, qty); err != nil {
		return orders.Cart{}, err
	}
	return s.mutate(userID, func(l []orders.CartLine) ([]orders.CartLine, error) {
		return addLine(l, productID, qty)
	})
}

func (s *MemoryStore) SetQuantity(_ context.Context, userID, productID string, qty int) (orders.Cart, error) {
	if err := validateUser(userID); err != nil {
		return orders.Cart{}, err
	}
	if productID == "" {
		return orders.Cart{}, orders.NewValidationError("productId", "is required")
	}
	return s.mutate(userID, func(l []orders.CartLine) ([]orders.CartLine, error) {
		return setQuantity(l, productID, qty)
	})
}

func (s *MemoryStore) RemoveLine(_ context.Context, userID, productID string) (orders.Cart, error) {
	if err := validateUser(userID); err != nil {
		return orders.Cart{}, err
	}
	return s.mutate(userID, func(l []orders.CartLine) ([]orders.CartLine, error) {
		return removeLine(l, productID), nil
	})
}

func (s *MemoryStore) Deduct(_ context.Context, userID string, lines []orders.CartLine) (orders.Cart, error) {
	if err := validateUser(userID); err != nil {
		return orders.Cart{}, err
	}
	return s.mutate(userID, func(l []orders.CartLine) ([]orders.CartLine, error) {
		return deductLines(l, lines), nil
	})
}

func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	_, err := s.mutate(userID, func([]orders.CartLine) ([]orders.CartLine, error) { return nil, nil })
	return err
}
