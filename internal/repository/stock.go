package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/options-product/internal/domain/product"
	"github.com/xenking/options-product/internal/shop"
)

const (
	insertStockTransactionSQL = `INSERT INTO stock_transactions (variation_id, order_id, change, type, notes)
		VALUES ($1, $2, $3, 'order', 'order ' || $2::text)
		ON CONFLICT (variation_id, order_id) DO NOTHING`

	decrementStockSQL = `UPDATE variations SET items_in_stock = items_in_stock - $2 WHERE id = $1`

	foreignKeyViolation = "23503"
)

var _ shop.StockKeeper = (*StockRepository)(nil)

// StockRepository records stock movements caused by confirmed orders.
type StockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository returns a StockRepository that uses the given pool.
func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

// Decrement lowers the stock of a variation for an order and logs the
// movement in one transaction. A movement already logged for the same order
// is not applied again. Stock may go negative; overselling is reported, not
// refused.
func (r *StockRepository) Decrement(ctx context.Context, variationID, orderID string, quantity int) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, insertStockTransactionSQL, variationID, orderID, -quantity)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
				return product.ErrNotFound
			}
			return fmt.Errorf("logging stock transaction of %q: %w", variationID, err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, decrementStockSQL, variationID, quantity); err != nil {
			return fmt.Errorf("decrementing stock of %q: %w", variationID, err)
		}
		return nil
	})
}
