package checkout

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
)

const defaultPublishTimeout = 2 * time.Second

type Coordinator struct {
	carts   orders.CartStore
	catalog orders.Catalog
	ledger  orders.Ledger
	events  orders.EventPublisher
	locks   orders.CheckoutLocker
	log     *slog.Logger

	publishTimeout time.Duration
}

// NewCoordinator wires a coordinator. A nil events publishes nothing; nil locks falls back to
// in-process locks.
func NewCoordinator(log *slog.Logger, carts orders.CartStore, catalog orders.Catalog, ledger orders.Ledger, events orders.EventPublisher, locks orders.CheckoutLocker) *Coordinator {
	if events == nil {
		events = orders.NopPublisher{}
	}
	if locks == nil {
		locks = NewLocalLocks()
	}
	return &Coordinator{
		carts:          carts,
		catalog:        catalog,
		ledger:         ledger,
		events:         events,
		locks:          locks,
		log:            log,
		publishTimeout: defaultPublishTimeout,
	}
}

type reservation struct {
	productID string
	qty       int
}

// Checkout converts the user's cart into an order. Either the order is stored, stock is
// debited and the ordered quantities leave the cart, or the attempt fails and stock, cart
// and ledger are as they were before. A second checkout for the same user while one is
// running fails with ErrCheckoutInProgress.
func (c *Coordinator) Checkout(ctx context.Context, userID string) (orders.Order, error) {
	unlock, err := c.locks.TryLock(ctx, userID)
	if err != nil {
		return orders.Order{}, err
	}
	defer unlock()

	cart, err := c.carts.Get(ctx, userID)
	if err != nil {
		return orders.Order{}, err
	}
	if cart.IsEmpty() {
		return orders.Order{}, orders.ErrEmptyCart
	}

	// A fixed acquisition order rules out circular waits between overlapping checkouts.
	lines := cart.Clone().Lines
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	log := c.log.With("user_id", userID, "lines", len(lines))
	log.Debug("checkout started")

	held := make([]reservation, 0, len(lines))
	committed := false
	defer func() {
		if !committed {
			c.releaseAll(ctx, log, held)
		}
	}()

	orderLines := make([]orders.OrderLine, 0, len(lines))
	for _, l := range lines {
		if _, err := c.catalog.Lookup(ctx, l.ProductID); err != nil {
			log.Info("checkout rejected", "product_id", l.ProductID, "err", err)
			return orders.Order{}, err
		}
		p, err := c.catalog.Reserve(ctx, l.ProductID, l.Quantity)
		if err != nil {
			log.Info("checkout rejected", "product_id", l.ProductID, "err", err)
			return orders.Order{}, err
		}
		held = append(held, reservation{productID: l.ProductID, qty: l.Quantity})
		orderLines = append(orderLines, orders.OrderLine{
			ProductID:      p.ID,
			Name:           p.Name,
			Quantity:       l.Quantity,
			UnitPriceCents: p.PriceCents,
		})
	}

	order, err := c.ledger.Append(ctx, orders.NewOrder(userID, orderLines))
	if err != nil {
		log.Error("append order failed", "err", err)
		return orders.Order{}, err
	}
	committed = true

	// The stored order is the commit point; a cart that fails to update is reported, not undone.
	// Only the ordered quantities leave the cart, so lines added meanwhile stay.
	if _, err := c.carts.Deduct(context.WithoutCancel(ctx), userID, lines); err != nil {
		log.Error("deduct cart after checkout failed", "order_id", order.ID, "err", err)
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.publishTimeout)
	defer cancel()
	if err := c.events.PublishOrderPlaced(pctx, order); err != nil {
		log.Warn("publish order placed failed", "order_id", order.ID, "err", err)
	}

	log.Info("checkout completed", "order_id", order.ID, "total_cents", order.TotalCents)
	return order, nil
}

// releaseAll runs even when ctx is already cancelled so that no reservation outlives a
// failed attempt.
func (c *Coordinator) releaseAll(ctx context.Context, log *slog.Logger, held []reservation) {
	if len(held) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for i := len(held) - 1; i >= 0; i-- {
		r := held[i]
		if err := c.catalog.Release(ctx, r.productID, r.qty); err != nil {
			log.Error("release reservation failed", "product_id", r.productID, "qty", r.qty, "err", err)
		}
	}
	log.Info("checkout compensated", "released", len(held))
}
