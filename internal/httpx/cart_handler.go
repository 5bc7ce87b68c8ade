package httpx

import (
	"log/slog"
	"net/http"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	Carts   orders.CartStore
	Catalog orders.Catalog
	Log     *slog.Logger
}

type lineReq struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.get)
	r.Post("/cart/add", h.add)
	r.Put("/cart/update", h.update)
	r.Delete("/cart/remove/{productId}", h.remove)
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Carts.Get(r.Context(), principalFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req lineReq
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, h.Log, orders.NewValidationError("productId", "is required"))
		return
	}
	if req.Quantity <= 0 {
		writeError(w, h.Log, orders.NewValidationError("quantity", "must be positive"))
		return
	}
	if _, err := h.Catalog.Lookup(r.Context(), req.ProductID); err != nil {
		writeError(w, h.Log, err)
		return
	}
	c, err := h.Carts.AddLine(r.Context(), principalFrom(r.Context()).UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// update sets an absolute quantity; zero or less removes the line.
func (h *CartHandler) update(w http.ResponseWriter, r *http.Request) {
	var req lineReq
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, h.Log, orders.NewValidationError("productId", "is required"))
		return
	}
	if req.Quantity > 0 {
		if _, err := h.Catalog.Lookup(r.Context(), req.ProductID); err != nil {
			writeError(w, h.Log, err)
			return
		}
	}
	c, err := h.Carts.SetQuantity(r.Context(), principalFrom(r.Context()).UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	c, err := h.Carts.RemoveLine(r.Context(), principalFrom(r.Context()).UserID, chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
