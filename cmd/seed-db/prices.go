package main

import (
	"context"
	"sort"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/options-product/internal/domain/price"
)

// priceSummary is the effective price of a product in one currency.
type priceSummary struct {
	Currency string
	Normal   string
	Sale     string
	InSale   bool
}

// summarizePrices reads back the tiers of a product in every currency it is
// priced in, sorted by currency.
func summarizePrices(ctx context.Context, r *price.Resolver, productID string) ([]priceSummary, error) {
	byCurrency, err := r.Prices(ctx, productID)
	if err != nil {
		return nil, err
	}

	out := make([]priceSummary, 0, len(byCurrency))
	for currency, tiers := range byCurrency {
		inSale, err := r.InSale(ctx, productID, currency)
		if err != nil {
			return nil, err
		}
		s := priceSummary{Currency: currency, InSale: inSale}
		if tiers.Normal != nil {
			s.Normal = tiers.Normal.Amount.StringFixed(2)
		}
		if tiers.Sale != nil {
			s.Sale = tiers.Sale.Amount.StringFixed(2)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

func reportPrices(ctx context.Context, lg *zap.Logger, r *price.Resolver, c *catalog) error {
	for _, p := range c.Products {
		summaries, err := summarizePrices(ctx, r, p.Product.ID)
		if err != nil {
			return errors.Wrapf(err, "summarize prices of %s", p.Product.ID)
		}
		if len(summaries) == 0 {
			lg.Warn("Product has no effective price", zap.String("id", p.Product.ID))
			continue
		}
		for _, s := range summaries {
			lg.Info("Effective price",
				zap.String("id", p.Product.ID),
				zap.String("currency", s.Currency),
				zap.String("normal", s.Normal),
				zap.String("sale", s.Sale),
				zap.Bool("in_sale", s.InSale),
			)
		}
	}
	return nil
}
