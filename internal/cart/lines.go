package cart

import (
	"fmt"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
)

var errTooMany = orders.NewValidationError("quantity", fmt.Sprintf("must not exceed %d", orders.MaxLineQuantity))

func validateUser(userID string) error {
	if userID == "" {
		return orders.NewValidationError("userId", "is required")
	}
	return nil
}

func validateAdd(userID, productID string, qty int) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	if productID == "" {
		return orders.NewValidationError("productId", "is required")
	}
	if qty <= 0 {
		return orders.NewValidationError("quantity", "must be positive")
	}
	if qty > orders.MaxLineQuantity {
		return errTooMany
	}
	return nil
}

// addLine merges qty into the product's line or appends a new one. The merged quantity may
// not pass MaxLineQuantity.
func addLine(lines []orders.CartLine, productID string, qty int) ([]orders.CartLine, error) {
	for i := range lines {
		if lines[i].ProductID == productID {
			if lines[i].Quantity > orders.MaxLineQuantity-qty {
				return nil, errTooMany
			}
			lines[i].Quantity += qty
			return lines, nil
		}
	}
	return append(lines, orders.CartLine{ProductID: productID, Quantity: qty}), nil
}

// setQuantity replaces the quantity; qty <= 0 removes the line.
func setQuantity(lines []orders.CartLine, productID string, qty int) ([]orders.CartLine, error) {
	if qty <= 0 {
		return removeLine(lines, productID), nil
	}
	if qty > orders.MaxLineQuantity {
		return nil, errTooMany
	}
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = qty
			return lines, nil
		}
	}
	return append(lines, orders.CartLine{ProductID: productID, Quantity: qty}), nil
}

func removeLine(lines []orders.CartLine, productID string) []orders.CartLine {
	out := lines[:0]
	for _, l := range lines {
		if l.ProductID != productID {
			out = append(out, l)
		}
	}
	return out
}

// deductLines takes the ordered quantities out of lines.
func deductLines(lines []orders.CartLine, ordered []orders.CartLine) []orders.CartLine {
	take := make(map[string]int, len(ordered))
	for _, o := range ordered {
		take[o.ProductID] += o.Quantity
	}
	out := lines[:0]
	for _, l := range lines {
		l.Quantity -= take[l.ProductID]
		if l.Quantity > 0 {
			out = append(out, l)
		}
	}
	return out
}
