package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/ariefcatur/go-cart-checkout/internal/redisx"
	"github.com/go-chi/chi/v5"
)

type Checkouter interface {
	Checkout(ctx context.Context, userID string) (orders.Order, error)
}

type IdempotencyStore interface {
	Begin(ctx context.Context, userID, key string) (string, error)
	Complete(ctx context.Context, userID, key, orderID string) error
	Abort(ctx context.Context, userID, key string) error
}

// OrdersCache hands out a generation with every lookup; Set under a generation that
// Invalidate has since bumped must never become visible.
type OrdersCache interface {
	Get(ctx context.Context, userID string) (list []orders.Order, gen int64, hit bool, err error)
	Set(ctx context.Context, userID string, gen int64, list []orders.Order) error
	Invalidate(ctx context.Context, userID string) error
}

type StatsReader interface {
	All(ctx context.Context) ([]orders.SalesStat, error)
}

// OrdersHandler serves checkout and order history. Idempotency, Cache and Stats are
// optional; without Stats the projection is computed from the ledger.
type OrdersHandler struct {
	Checkout    Checkouter
	Ledger      orders.Ledger
	Idempotency IdempotencyStore
	Cache       OrdersCache
	Stats       StatsReader
	Auth        *Auth
	Log         *slog.Logger
}

const IdempotencyHeader = "Idempotency-Key"

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.create)
	r.Get("/orders/my", h.listMine)
	r.With(h.Auth.RequireAdmin).Get("/orders", h.listAll)
	r.With(h.Auth.RequireAdmin).Get("/orders/stats", h.stats)
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := principalFrom(ctx).UserID
	key := r.Header.Get(IdempotencyHeader)
	claimed := false
	if key != "" && h.Idempotency != nil {
		prior, err := h.Idempotency.Begin(ctx, userID, key)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		if prior != "" {
			o, err := h.Ledger.FindByID(ctx, prior)
			if err != nil {
				writeError(w, h.Log, err)
				return
			}
			writeJSON(w, http.StatusCreated, o)
			return
		}
		claimed = true
	}

	o, err := h.Checkout.Checkout(ctx, userID)
	if err != nil {
		if claimed {
			if aerr := h.Idempotency.Abort(context.WithoutCancel(ctx), userID, key); aerr != nil {
				h.Log.Warn("release idempotency key failed", "user_id", userID, "err", aerr)
			}
		}
		writeError(w, h.Log, err)
		return
	}

	bg := context.WithoutCancel(ctx)
	if claimed {
		if err := h.Idempotency.Complete(bg, userID, key, o.ID); err != nil {
			h.Log.Warn("store idempotency key failed", "order_id", o.ID, "err", err)
		}
	}
	if h.Cache != nil {
		if err := h.Cache.Invalidate(bg, userID); err != nil {
			h.Log.Warn("invalidate orders cache failed", "user_id", userID, "err", err)
		}
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	userID := principalFrom(ctx).UserID

	var (
		gen  int64
		fill bool
	)
	if h.Cache != nil {
		list, g, hit, err := h.Cache.Get(ctx, userID)
		switch {
		case err != nil:
			h.Log.Warn("orders cache read failed", "user_id", userID, "err", err)
		case hit:
			writeJSON(w, http.StatusOK, nonNil(list))
			return
		default:
			gen, fill = g, true
		}
	}

	list, err := h.Ledger.FindByUser(ctx, userID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	list = nonNil(list)
	if fill {
		if err := h.Cache.Set(ctx, userID, gen, list); err != nil {
			h.Log.Warn("orders cache write failed", "user_id", userID, "err", err)
		}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) listAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.Ledger.FindAll(ctx)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (h *OrdersHandler) stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var (
		out []orders.SalesStat
		err error
	)
	if h.Stats != nil {
		out, err = h.Stats.All(ctx)
	} else {
		var list []orders.Order
		if list, err = h.Ledger.FindAll(ctx); err == nil {
			out = orders.Tally(list)
		}
	}
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if out == nil {
		out = []orders.SalesStat{}
	}
	writeJSON(w, http.StatusOK, out)
}

func nonNil(list []orders.Order) []orders.Order {
	if list == nil {
		return []orders.Order{}
	}
	return list
}

var (
	_ IdempotencyStore = (*redisx.Idempotency)(nil)
	_ OrdersCache      = (*redisx.OrdersCache)(nil)
	_ StatsReader      = (*redisx.SalesStats)(nil)
)
