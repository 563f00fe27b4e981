package main

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/options-product/internal/domain/price"
)

type stubPrices struct {
	records []price.Price
	err     error
}

func (s stubPrices) ListActive(_ context.Context, productID, currency string) ([]price.Price, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []price.Price
	for _, p := range s.records {
		if p.ProductID == productID && (currency == "" || p.Currency == currency) {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestSummarizePrices(t *testing.T) {
	since := time.Now().AddDate(-1, 0, 0)
	record := func(id int64, currency, amount string, sale bool) price.Price {
		return price.Price{
			ID: id, ProductID: "shirt", Currency: currency,
			Amount: decimal.RequireFromString(amount), TaxIncluded: true,
			IsSale: sale, IsActive: true, ValidFrom: since,
		}
	}
	r := price.NewResolver(stubPrices{records: []price.Price{
		record(1, "EUR", "29.9", false),
		record(2, "CHF", "32.50", false),
		record(3, "CHF", "25", true),
	}})

	got, err := summarizePrices(context.Background(), r, "shirt")
	require.NoError(t, err)
	assert.Equal(t, []priceSummary{
		{Currency: "CHF", Normal: "32.50", Sale: "25.00", InSale: true},
		{Currency: "EUR", Normal: "29.90"},
	}, got)

	got, err = summarizePrices(context.Background(), r, "unknown")
	require.NoError(t, err)
	assert.Empty(t, got)

	r = price.NewResolver(stubPrices{err: errors.New("connection refused")})
	_, err = summarizePrices(context.Background(), r, "shirt")
	require.Error(t, err)
}
