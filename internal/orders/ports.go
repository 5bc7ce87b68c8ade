package orders

import "context"

// Catalog owns product stock. Reserve and Release are the only ways stock changes.
type Catalog interface {
	Lookup(ctx context.Context, productID string) (Product, error)
	// Reserve atomically checks stock >= qty and decrements it. The returned snapshot is the
	// product as of the reservation, including its current price.
	Reserve(ctx context.Context, productID string, qty int) (Product, error)
	// Release undoes a prior successful Reserve of the same quantity.
	Release(ctx context.Context, productID string, qty int) error
}

// CartStore serializes mutations per user; different users never contend.
type CartStore interface {
	Get(ctx context.Context, userID string) (Cart, error)
	AddLine(ctx context.Context, userID, productID string, qty int) (Cart, error)
	SetQuantity(ctx context.Context, userID, productID string, qty int) (Cart, error)
	RemoveLine(ctx context.Context, userID, productID string) (Cart, error)
	// Deduct subtracts the given quantities from the cart, dropping lines that reach zero.
	// Lines added or raised after the quantities were read survive.
	Deduct(ctx context.Context, userID string, lines []CartLine) (Cart, error)
	Clear(ctx context.Context, userID string) error
}

// CheckoutLocker admits one checkout per user at a time. TryLock fails with
// ErrCheckoutInProgress instead of waiting.
type CheckoutLocker interface {
	TryLock(ctx context.Context, userID string) (unlock func(), err error)
}

// Ledger is append-only. Orders are never updated or deleted through it.
type Ledger interface {
	Append(ctx context.Context, o Order) (Order, error)
	FindByID(ctx context.Context, id string) (Order, error)
	FindByUser(ctx context.Context, userID string) ([]Order, error)
	FindAll(ctx context.Context) ([]Order, error)
}

type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, o Order) error
}

type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, Order) error { return nil }
