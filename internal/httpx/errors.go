package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ariefcatur/go-cart-checkout/internal/cart"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/ariefcatur/go-cart-checkout/internal/redisx"
)

var (
	errUnauthorized = errors.New("missing or invalid bearer token")
	errForbidden    = errors.New("admin role required")
)

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	ProductID string `json:"productId,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, orders.ErrEmptyCart):
		return http.StatusBadRequest, "empty_cart"
	case orders.IsValidation(err):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, orders.ErrProductNotFound):
		return http.StatusNotFound, "product_not_found"
	case errors.Is(err, orders.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found"
	case errors.Is(err, orders.ErrInsufficientStock):
		return http.StatusConflict, "insufficient_stock"
	case errors.Is(err, orders.ErrCheckoutInProgress):
		return http.StatusConflict, "checkout_in_progress"
	case errors.Is(err, redisx.ErrInFlight):
		return http.StatusConflict, "duplicate_request"
	case errors.Is(err, cart.ErrContention):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	code, name := statusFor(err)
	body := errorBody{Error: name, Message: err.Error()}
	if code == http.StatusInternalServerError {
		log.Error("request failed", "err", err)
		body.Message = "internal error"
	}
	if id, ok := orders.ProductIDOf(err); ok {
		body.ProductID = id
	}
	writeJSON(w, code, body)
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return orders.NewValidationError("body", "invalid json")
	}
	return nil
}
