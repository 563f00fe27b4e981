package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/options-product/internal/domain/money"
	"github.com/xenking/options-product/internal/domain/price"
	"github.com/xenking/options-product/internal/domain/product"
)

const (
	upsertTaxClassSQL = `INSERT INTO tax_classes (id, name, rate) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, rate = EXCLUDED.rate`

	upsertCategorySQL = `INSERT INTO categories (id, parent_id, name, slug, is_active, is_internal)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET parent_id = EXCLUDED.parent_id, name = EXCLUDED.name,
			slug = EXCLUDED.slug, is_active = EXCLUDED.is_active, is_internal = EXCLUDED.is_internal`

	upsertProductSQL = `INSERT INTO products (id, name, slug, sku, is_active) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, slug = EXCLUDED.slug,
			sku = EXCLUDED.sku, is_active = EXCLUDED.is_active`

	clearProductCategoriesSQL = `DELETE FROM product_categories WHERE product_id = $1`

	insertProductCategorySQL = `INSERT INTO product_categories (product_id, category_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	upsertOptionGroupSQL = `INSERT INTO option_groups (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

	upsertOptionSQL = `INSERT INTO options (id, group_id, name, value, ordering) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET group_id = EXCLUDED.group_id, name = EXCLUDED.name,
			value = EXCLUDED.value, ordering = EXCLUDED.ordering`

	upsertVariationSQL = `INSERT INTO variations (id, product_id, sku, name, is_active, items_in_stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET product_id = EXCLUDED.product_id, sku = EXCLUDED.sku,
			name = EXCLUDED.name, is_active = EXCLUDED.is_active, items_in_stock = EXCLUDED.items_in_stock`

	clearVariationOptionsSQL = `DELETE FROM variation_options WHERE variation_id = $1`

	insertVariationOptionSQL = `INSERT INTO variation_options (variation_id, option_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	clearPricesSQL = `DELETE FROM prices WHERE product_id = $1`

	insertPriceSQL = `INSERT INTO prices (product_id, currency, tax_class_id, amount, tax_included,
		is_sale, is_active, valid_from, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
)

// CatalogWriter loads catalog data: tax classes, categories, products with
// their variations and prices.
type CatalogWriter struct {
	pool *pgxpool.Pool
}

// NewCatalogWriter returns a CatalogWriter that uses the given pool.
func NewCatalogWriter(pool *pgxpool.Pool) *CatalogWriter {
	return &CatalogWriter{pool: pool}
}

// UpsertTaxClass inserts or updates a tax class.
func (w *CatalogWriter) UpsertTaxClass(ctx context.Context, tc money.TaxClass) error {
	if _, err := w.pool.Exec(ctx, upsertTaxClassSQL, tc.ID, tc.Name, tc.Rate); err != nil {
		return fmt.Errorf("upserting tax class %q: %w", tc.ID, err)
	}
	return nil
}

// UpsertCategory inserts or updates a category. Parents must be written
// before their children.
func (w *CatalogWriter) UpsertCategory(ctx context.Context, c product.Category) error {
	_, err := w.pool.Exec(ctx, upsertCategorySQL,
		c.ID, c.ParentID, c.Name, c.Slug, c.IsActive, c.IsInternal,
	)
	if err != nil {
		return fmt.Errorf("upserting category %q: %w", c.ID, err)
	}
	return nil
}

// UpsertOptionGroup inserts or updates an option group and its options.
func (w *CatalogWriter) UpsertOptionGroup(ctx context.Context, g product.OptionGroup) error {
	return pgx.BeginFunc(ctx, w.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertOptionGroupSQL, g.ID, g.Name); err != nil {
			return fmt.Errorf("upserting option group %q: %w", g.ID, err)
		}
		for _, o := range g.Options {
			if _, err := tx.Exec(ctx, upsertOptionSQL, o.ID, g.ID, o.Name, o.Value, o.Ordering); err != nil {
				return fmt.Errorf("upserting option %q: %w", o.ID, err)
			}
		}
		return nil
	})
}

// ReplaceProduct writes a product together with its variations and prices,
// replacing whatever was stored for it before.
func (w *CatalogWriter) ReplaceProduct(ctx context.Context, p product.Product, variations []product.Variation, prices []price.Price) error {
	return pgx.BeginFunc(ctx, w.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Slug, p.SKU, p.IsActive); err != nil {
			return fmt.Errorf("upserting product %q: %w", p.ID, err)
		}

		if _, err := tx.Exec(ctx, clearProductCategoriesSQL, p.ID); err != nil {
			return fmt.Errorf("clearing categories of %q: %w", p.ID, err)
		}
		for _, id := range p.CategoryIDs {
			if _, err := tx.Exec(ctx, insertProductCategorySQL, p.ID, id); err != nil {
				return fmt.Errorf("linking %q to category %q: %w", p.ID, id, err)
			}
		}

		for _, v := range variations {
			_, err := tx.Exec(ctx, upsertVariationSQL,
				v.ID, p.ID, v.SKU, v.Name, v.IsActive, v.ItemsInStock,
			)
			if err != nil {
				return fmt.Errorf("upserting variation %q: %w", v.ID, err)
			}
			if _, err := tx.Exec(ctx, clearVariationOptionsSQL, v.ID); err != nil {
				return fmt.Errorf("clearing options of %q: %w", v.ID, err)
			}
			for _, o := range v.Options {
				if _, err := tx.Exec(ctx, insertVariationOptionSQL, v.ID, o.ID); err != nil {
					return fmt.Errorf("linking %q to option %q: %w", v.ID, o.ID, err)
				}
			}
		}

		if _, err := tx.Exec(ctx, clearPricesSQL, p.ID); err != nil {
			return fmt.Errorf("clearing prices of %q: %w", p.ID, err)
		}
		for _, pr := range prices {
			_, err := tx.Exec(ctx, insertPriceSQL,
				p.ID, pr.Currency, pr.TaxClass.ID, pr.Amount, pr.TaxIncluded,
				pr.IsSale, pr.IsActive, pr.ValidFrom, pr.ValidUntil,
			)
			if err != nil {
				return fmt.Errorf("inserting %s price of %q: %w", pr.Currency, p.ID, err)
			}
		}
		return nil
	})
}
