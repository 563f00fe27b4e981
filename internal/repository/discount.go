package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/options-product/internal/domain/discount"
	"github.com/xenking/options-product/internal/domain/money"
	"github.com/xenking/options-product/internal/domain/order"
)

const (
	getDiscountByCodeSQL = `SELECT d.code, d.name, d.type, d.value, COALESCE(d.currency, ''),
		t.id, t.name, t.rate,
		d.valid_from, d.valid_until, d.is_active, d.max_uses, d.uses,
		d.restriction, d.restriction_ids, d.before_tax
		FROM discounts d
		LEFT JOIN tax_classes t ON t.id = d.tax_class_id
		WHERE UPPER(d.code) = UPPER($1)`

	incrementDiscountUsesSQL = `WITH usage AS (
			INSERT INTO discount_usages (code, order_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
			RETURNING code
		)
		UPDATE discounts SET uses = uses + 1 WHERE code IN (SELECT code FROM usage)`

	upsertDiscountSQL = `INSERT INTO discounts (code, name, type, value, currency, tax_class_id,
		valid_from, valid_until, is_active, max_uses, restriction, restriction_ids, before_tax)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name, type = EXCLUDED.type, value = EXCLUDED.value,
			currency = EXCLUDED.currency, tax_class_id = EXCLUDED.tax_class_id,
			valid_from = EXCLUDED.valid_from, valid_until = EXCLUDED.valid_until,
			is_active = EXCLUDED.is_active, max_uses = EXCLUDED.max_uses,
			restriction = EXCLUDED.restriction, restriction_ids = EXCLUDED.restriction_ids,
			before_tax = EXCLUDED.before_tax`

	listDiscountCodesSQL = `SELECT UPPER(code) FROM discounts`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// FindByCode looks up a discount by its code (case-insensitive).
// Inactive discounts are returned too so the caller can report why they
// cannot be used. Returns discount.ErrNotFound when no discount matches.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*discount.Discount, error) {
	rows, err := r.pool.Query(ctx, getDiscountByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding discount by code %q: %w", code, err)
	}

	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("finding discount by code %q: %w", code, err)
	}
	return &d, nil
}

// IncrementUses atomically increments the usage counter for the given code.
// Each order counts once per code.
func (r *DiscountRepository) IncrementUses(ctx context.Context, code, orderID string) error {
	_, err := r.pool.Exec(ctx, incrementDiscountUsesSQL, code, orderID)
	if err != nil {
		return fmt.Errorf("incrementing uses for discount %q: %w", code, err)
	}
	return nil
}

// Upsert inserts or replaces a discount definition. The usage counter of an
// existing discount is kept.
func (r *DiscountRepository) Upsert(ctx context.Context, d discount.Discount) error {
	var taxClassID string
	if d.TaxClass != nil {
		taxClassID = d.TaxClass.ID
	}
	kind := d.Restriction.Kind
	if kind == "" {
		kind = order.RestrictNone
	}
	ids := d.Restriction.IDs
	if ids == nil {
		ids = []string{}
	}

	_, err := r.pool.Exec(ctx, upsertDiscountSQL,
		d.Code, d.Name, string(d.Type), d.Value, d.Currency, taxClassID,
		d.ValidFrom, d.ValidUntil, d.IsActive, d.MaxUses, string(kind), ids, d.BeforeTax,
	)
	if err != nil {
		return fmt.Errorf("upserting discount %q: %w", d.Code, err)
	}
	return nil
}

// ListCodes calls fn with every stored discount code, upper-cased.
func (r *DiscountRepository) ListCodes(ctx context.Context, fn func(code string)) error {
	rows, err := r.pool.Query(ctx, listDiscountCodesSQL)
	if err != nil {
		return fmt.Errorf("listing discount codes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return fmt.Errorf("scanning discount code: %w", err)
		}
		fn(code)
	}
	return rows.Err()
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var (
		d            discount.Discount
		discountType string
		taxID        *string
		taxName      *string
		taxRate      decimal.NullDecimal
		validFrom    *time.Time
		validUntil   *time.Time
		restriction  string
	)
	err := row.Scan(
		&d.Code, &d.Name, &discountType, &d.Value, &d.Currency,
		&taxID, &taxName, &taxRate,
		&validFrom, &validUntil, &d.IsActive, &d.MaxUses, &d.Uses,
		&restriction, &d.Restriction.IDs, &d.BeforeTax,
	)
	if err != nil {
		return d, err
	}

	d.Type = discount.Type(discountType)
	d.Restriction.Kind = order.RestrictionKind(restriction)
	d.ValidFrom = validFrom
	d.ValidUntil = validUntil
	if taxID != nil {
		d.TaxClass = &money.TaxClass{ID: *taxID, Rate: taxRate.Decimal}
		if taxName != nil {
			d.TaxClass.Name = *taxName
		}
	}
	return d, nil
}
