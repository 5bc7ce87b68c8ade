package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresCatalog struct{ DB *pgxpool.Pool }

func NewPostgres(db *pgxpool.Pool) *PostgresCatalog { return &PostgresCatalog{DB: db} }

const productColumns = `id, name, price_cents, stock, updated_at`

func scanProduct(row pgx.Row) (orders.Product, error) {
	var p orders.Product
	err := row.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Stock, &p.UpdatedAt)
	return p, err
}

func (c *PostgresCatalog) Lookup(ctx context.Context, productID string) (orders.Product, error) {
	p, err := scanProduct(c.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, productID))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, &orders.ProductNotFoundError{ProductID: productID}
	}
	if err != nil {
		return orders.Product{}, fmt.Errorf("lookup product %s: %w", productID, err)
	}
	return p, nil
}

// Reserve is a single conditional UPDATE, so the row lock taken by Postgres makes the
// check-and-decrement indivisible for concurrent callers on the same product.
func (c *PostgresCatalog) Reserve(ctx context.Context, productID string, qty int) (orders.Product, error) {
	if qty <= 0 {
		return orders.Product{}, orders.NewValidationError("quantity", "must be positive")
	}
	p, err := scanProduct(c.DB.QueryRow(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
		RETURNING `+productColumns, productID, qty))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, fmt.Errorf("reserve %s: %w", productID, err)
	}

	// nothing updated: either the product is gone or stock is short
	var stock int
	err = c.DB.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, &orders.ProductNotFoundError{ProductID: productID}
	}
	if err != nil {
		return orders.Product{}, fmt.Errorf("reserve %s: %w", productID, err)
	}
	return orders.Product{}, &orders.InsufficientStockError{ProductID: productID, Requested: qty, Available: stock}
}

func (c *PostgresCatalog) Release(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return orders.NewValidationError("quantity", "must be positive")
	}
	ct, err := c.DB.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1`, productID, qty)
	if err != nil {
		return fmt.Errorf("release %s: %w", productID, err)
	}
	if ct.RowsAffected() != 1 {
		return &orders.ProductNotFoundError{ProductID: productID}
	}
	return nil
}

func (c *PostgresCatalog) Put(ctx context.Context, p orders.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	_, err := c.DB.Exec(ctx, `
		INSERT INTO products(id, name, price_cents, stock)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, price_cents = EXCLUDED.price_cents, stock = EXCLUDED.stock, updated_at = now()
	`, p.ID, p.Name, p.PriceCents, p.Stock)
	if err != nil {
		return fmt.Errorf("put product %s: %w", p.ID, err)
	}
	return nil
}

func (c *PostgresCatalog) SetPrice(ctx context.Context, productID string, priceCents int64) error {
	if priceCents < 0 {
		return orders.NewValidationError("priceCents", "must not be negative")
	}
	ct, err := c.DB.Exec(ctx, `UPDATE products SET price_cents = $2, updated_at = now() WHERE id=$1`, productID, priceCents)
	if err != nil {
		return fmt.Errorf("set price %s: %w", productID, err)
	}
	if ct.RowsAffected() != 1 {
		return &orders.ProductNotFoundError{ProductID: productID}
	}
	return nil
}

func (c *PostgresCatalog) List(ctx context.Context) ([]orders.Product, error) {
	rows, err := c.DB.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
