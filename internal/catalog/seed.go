package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Seeder interface {
	Put(ctx context.Context, p orders.Product) error
}

// SeedProduct is one entry of a catalog seed file. Price is a decimal amount ("79.99").
type SeedProduct struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Stock       int             `json:"stock"`
}

// ToCents converts a decimal amount to integer cents. Sub-cent precision is rejected rather
// than rounded.
func ToCents(d decimal.Decimal) (int64, error) {
	c := d.Shift(2)
	if !c.IsInteger() {
		return 0, orders.NewValidationError("price", fmt.Sprintf("%s has sub-cent precision", d))
	}
	if c.IsNegative() {
		return 0, orders.NewValidationError("price", "must not be negative")
	}
	return c.IntPart(), nil
}

// LoadSeed reads a JSON array of products and upserts each one. It returns the stored products.
func LoadSeed(ctx context.Context, r io.Reader, dst Seeder) ([]orders.Product, error) {
	var items []SeedProduct
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	out := make([]orders.Product, 0, len(items))
	for i, it := range items {
		cents, err := ToCents(it.Price)
		if err != nil {
			return nil, fmt.Errorf("seed item %d (%s): %w", i, it.Name, err)
		}
		p := orders.Product{
			ID:         it.ID,
			Name:       it.Name,
			PriceCents: cents,
			Stock:      it.Stock,
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if err := dst.Put(ctx, p); err != nil {
			return nil, fmt.Errorf("seed item %d (%s): %w", i, it.Name, err)
		}
		out = append(out, p)
	}
	return out, nil
}
