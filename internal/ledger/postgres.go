package ledger

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresLedger struct{ DB *pgxpool.Pool }

func NewPostgres(db *pgxpool.Pool) *PostgresLedger { return &PostgresLedger{DB: db} }

// Append writes the order header and all lines in one transaction; any failure rolls the
// whole order back.
func (l *PostgresLedger) Append(ctx context.Context, o orders.Order) (orders.Order, error) {
	if err := o.Validate(); err != nil {
		return orders.Order{}, err
	}
	o = o.Clone()
	o.ID = uuid.NewString()

	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return orders.Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, total_cents)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, o.ID, o.UserID, o.TotalCents).Scan(&o.CreatedAt)
	if err != nil {
		return orders.Order{}, fmt.Errorf("insert order: %w", err)
	}

	for i, it := range o.Lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(order_id, line_no, product_id, name, qty, price_cents)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			o.ID, i, it.ProductID, it.Name, it.Quantity, it.UnitPriceCents,
		)
		if err != nil {
			return orders.Order{}, fmt.Errorf("insert order item %s: %w", it.ProductID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return orders.Order{}, err
	}
	o.CreatedAt = o.CreatedAt.UTC()
	return o, nil
}

func (l *PostgresLedger) FindByID(ctx context.Context, id string) (orders.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	out, err := l.query(ctx, `WHERE o.id = $1`, id)
	if err != nil {
		return orders.Order{}, err
	}
	if len(out) == 0 {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return out[0], nil
}

func (l *PostgresLedger) FindByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	return l.query(ctx, `WHERE o.user_id = $1`, userID)
}

func (l *PostgresLedger) FindAll(ctx context.Context) ([]orders.Order, error) {
	return l.query(ctx, ``)
}

// query joins headers with their items and folds rows back into orders, newest first.
func (l *PostgresLedger) query(ctx context.Context, where string, args ...any) ([]orders.Order, error) {
	rows, err := l.DB.Query(ctx, `
		SELECT o.id, o.user_id, o.total_cents, o.created_at,
		       i.product_id, i.name, i.qty, i.price_cents
		FROM orders o
		JOIN order_items i ON i.order_id = o.id
		`+where+`
		ORDER BY o.created_at DESC, o.id, i.line_no`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Order
	for rows.Next() {
		var (
			o  orders.Order
			it orders.OrderLine
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalCents, &o.CreatedAt,
			&it.ProductID, &it.Name, &it.Quantity, &it.UnitPriceCents); err != nil {
			return nil, err
		}
		if n := len(out); n > 0 && out[n-1].ID == o.ID {
			out[n-1].Lines = append(out[n-1].Lines, it)
			continue
		}
		o.CreatedAt = o.CreatedAt.UTC()
		o.Lines = []orders.OrderLine{it}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []orders.Order{}
	}
	return out, nil
}
