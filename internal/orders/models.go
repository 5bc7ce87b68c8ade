package orders

import "time"

type Product struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"priceCents"`
	Stock      int       `json:"stock"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// MaxLineQuantity caps a single cart line.
const MaxLineQuantity = 10000

type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart lines keep insertion order; at most one line per product.
type Cart struct {
	UserID string     `json:"userId"`
	Lines  []CartLine `json:"lines"`
}

func (c Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// Clone returns a cart that shares no memory with c.
func (c Cart) Clone() Cart {
	out := Cart{UserID: c.UserID, Lines: make([]CartLine, len(c.Lines))}
	copy(out.Lines, c.Lines)
	return out
}

// OrderLine carries the unit price captured at checkout, independent of later catalog changes.
type OrderLine struct {
	ProductID      string `json:"productId"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

func (l OrderLine) SubtotalCents() int64 { return int64(l.Quantity) * l.UnitPriceCents }

type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"userId"`
	Lines      []OrderLine `json:"lines"`
	TotalCents int64       `json:"totalCents"`
	CreatedAt  time.Time   `json:"createdAt"`
}

func (o Order) Clone() Order {
	out := o
	out.Lines = make([]OrderLine, len(o.Lines))
	copy(out.Lines, o.Lines)
	return out
}

// NewOrder builds an unsaved order; the ledger assigns ID and CreatedAt.
func NewOrder(userID string, lines []OrderLine) Order {
	o := Order{UserID: userID, Lines: lines}
	o.TotalCents = SumLines(lines)
	return o
}

func SumLines(lines []OrderLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.SubtotalCents()
	}
	return total
}

// Validate checks the invariants every stored order must satisfy.
func (o Order) Validate() error {
	if o.UserID == "" {
		return NewValidationError("userId", "is required")
	}
	if len(o.Lines) == 0 {
		return NewValidationError("lines", "order has no lines")
	}
	for _, l := range o.Lines {
		if l.ProductID == "" {
			return NewValidationError("productId", "is required")
		}
		if l.Quantity <= 0 {
			return NewValidationError("quantity", "must be positive")
		}
		if l.UnitPriceCents < 0 {
			return NewValidationError("unitPriceCents", "must not be negative")
		}
	}
	if o.TotalCents != SumLines(o.Lines) {
		return NewValidationError("totalCents", "does not match lines")
	}
	return nil
}

// SalesStat is one row of the per-product sales projection.
type SalesStat struct {
	ProductID    string `json:"productId"`
	UnitsSold    int64  `json:"unitsSold"`
	RevenueCents int64  `json:"revenueCents"`
	Revenue      string `json:"revenue"`
}
