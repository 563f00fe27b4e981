package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/options-product/internal/domain/product"
)

const (
	getProductByIDSQL = `SELECT p.id, p.name, p.slug, p.sku, p.is_active,
		COALESCE(ARRAY_AGG(pc.category_id ORDER BY pc.category_id)
			FILTER (WHERE pc.category_id IS NOT NULL), '{}')
		FROM products p
		LEFT JOIN product_categories pc ON pc.product_id = p.id
		WHERE p.id = $1
		GROUP BY p.id`

	variationColumns = `v.id, v.product_id, v.sku, v.name, v.is_active, v.items_in_stock,
		COALESCE((SELECT ARRAY_AGG(pc.category_id ORDER BY pc.category_id)
			FROM product_categories pc WHERE pc.product_id = v.product_id), '{}')`

	getVariationSQL = `SELECT ` + variationColumns + `
		FROM variations v WHERE v.id = $1`

	listVariationsSQL = `SELECT ` + variationColumns + `
		FROM variations v WHERE v.product_id = $1 ORDER BY v.id`

	listVariationOptionsSQL = `SELECT vo.variation_id, o.id, o.group_id, o.name, o.value, o.ordering
		FROM variation_options vo
		JOIN options o ON o.id = vo.option_id
		WHERE vo.variation_id = ANY($1)
		ORDER BY o.group_id, o.ordering`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID returns a single product with its category IDs.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetVariation returns a single variation with its options.
func (r *ProductRepository) GetVariation(ctx context.Context, id string) (*product.Variation, error) {
	rows, err := r.pool.Query(ctx, getVariationSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting variation %q: %w", id, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVariation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting variation %q: %w", id, err)
	}

	vs := []product.Variation{v}
	if err := r.attachOptions(ctx, vs); err != nil {
		return nil, err
	}
	return &vs[0], nil
}

// ListVariations returns all variations of a product ordered by ID.
func (r *ProductRepository) ListVariations(ctx context.Context, productID string) ([]product.Variation, error) {
	rows, err := r.pool.Query(ctx, listVariationsSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("listing variations of %q: %w", productID, err)
	}

	vs, err := pgx.CollectRows(rows, scanVariation)
	if err != nil {
		return nil, fmt.Errorf("listing variations of %q: %w", productID, err)
	}
	if err := r.attachOptions(ctx, vs); err != nil {
		return nil, err
	}
	return vs, nil
}

func (r *ProductRepository) attachOptions(ctx context.Context, vs []product.Variation) error {
	if len(vs) == 0 {
		return nil
	}
	ids := make([]string, len(vs))
	index := make(map[string]int, len(vs))
	for i, v := range vs {
		ids[i] = v.ID
		index[v.ID] = i
	}

	rows, err := r.pool.Query(ctx, listVariationOptionsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing variation options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			variationID string
			o           product.Option
		)
		if err := rows.Scan(&variationID, &o.ID, &o.GroupID, &o.Name, &o.Value, &o.Ordering); err != nil {
			return fmt.Errorf("scanning variation option: %w", err)
		}
		i := index[variationID]
		vs[i].Options = append(vs[i].Options, o)
	}
	return rows.Err()
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.SKU, &p.IsActive, &p.CategoryIDs)
	return p, err
}

func scanVariation(row pgx.CollectableRow) (product.Variation, error) {
	var v product.Variation
	err := row.Scan(
		&v.ID, &v.ProductID, &v.SKU, &v.Name, &v.IsActive, &v.ItemsInStock,
		&v.CategoryIDs,
	)
	return v, err
}
