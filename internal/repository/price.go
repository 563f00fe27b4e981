package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/options-product/internal/domain/price"
)

const listActivePricesSQL = `SELECT p.id, p.product_id, p.currency,
		t.id, t.name, t.rate,
		p.amount, p.tax_included, p.is_sale, p.is_active, p.valid_from, p.valid_until
	FROM prices p
	JOIN tax_classes t ON t.id = p.tax_class_id
	WHERE p.product_id = $1 AND p.is_active = TRUE
		AND ($2::text = '' OR p.currency = $2)
	ORDER BY p.currency, p.is_sale, p.valid_from DESC, p.id`

var _ price.Repository = (*PriceRepository)(nil)

// PriceRepository implements price.Repository backed by PostgreSQL.
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository returns a PriceRepository that uses the given pool.
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// ListActive returns active price records of a product. Validity windows are
// left to the caller, which knows the current time.
func (r *PriceRepository) ListActive(ctx context.Context, productID, currency string) ([]price.Price, error) {
	rows, err := r.pool.Query(ctx, listActivePricesSQL, productID, currency)
	if err != nil {
		return nil, fmt.Errorf("listing prices of %q: %w", productID, err)
	}

	prices, err := pgx.CollectRows(rows, scanPrice)
	if err != nil {
		return nil, fmt.Errorf("listing prices of %q: %w", productID, err)
	}
	return prices, nil
}

func scanPrice(row pgx.CollectableRow) (price.Price, error) {
	var p price.Price
	err := row.Scan(
		&p.ID, &p.ProductID, &p.Currency,
		&p.TaxClass.ID, &p.TaxClass.Name, &p.TaxClass.Rate,
		&p.Amount, &p.TaxIncluded, &p.IsSale, &p.IsActive, &p.ValidFrom, &p.ValidUntil,
	)
	return p, err
}
