package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/options-product/internal/domain/discount"
	"github.com/xenking/options-product/internal/domain/order"
	"github.com/xenking/options-product/internal/domain/validation"
)

func TestParseCatalog_SeedFile(t *testing.T) {
	data, err := os.ReadFile("../../db/seed/catalog.json")
	require.NoError(t, err)

	c, err := parseCatalog(data)
	require.NoError(t, err)

	assert.Len(t, c.TaxClasses, 2)
	assert.Len(t, c.Categories, 3)
	require.Len(t, c.Products, 2)

	shirt := c.Products[0]
	assert.Len(t, shirt.Variations, 6, "three sizes times two colors")
	assert.Equal(t, "shirt-s-black", shirt.Variations[0].ID)
	assert.Equal(t, "SH-S-BLACK", shirt.Variations[0].SKU)
	assert.Equal(t, "Shirt S / Black", shirt.Variations[0].Name)
	assert.Equal(t, 25, shirt.Variations[0].ItemsInStock)
	require.Len(t, shirt.Prices, 3)
	assert.True(t, shirt.Prices[1].IsSale)
	require.NotNil(t, shirt.Prices[1].ValidUntil)

	novel := c.Products[1]
	require.Len(t, novel.Variations, 1)
	assert.Equal(t, "novel", novel.Variations[0].ID)
	assert.Empty(t, novel.Variations[0].Options)

	require.Len(t, c.Discounts, 4)
	assert.Equal(t, order.RestrictNone, c.Discounts[0].Restriction.Kind)
	assert.Equal(t, discount.Prepaid, c.Discounts[3].Type)
	require.NotNil(t, c.Discounts[3].TaxClass)
	assert.Equal(t, "vat19", c.Discounts[3].TaxClass.ID)
}

func TestParseCatalog_Errors(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantKind validation.Kind
	}{
		{
			name: "unknown option group",
			data: `{"products": [{"id": "p", "option_groups": ["size"]}]}`,
		},
		{
			name: "unknown tax class",
			data: `{"products": [{"id": "p", "prices": [{"currency": "EUR", "tax_class": "vat", "amount": "1"}]}]}`,
		},
		{
			name: "bad date",
			data: `{"discounts": [{"code": "x", "type": "percentage", "value": "5", "valid_from": "tomorrow"}]}`,
		},
		{
			name:     "misconfigured discount",
			data:     `{"discounts": [{"code": "x", "type": "amount_excl_tax", "value": "5"}]}`,
			wantKind: validation.KindDiscountConfig,
		},
		{
			name: "invalid json",
			data: `{`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCatalog([]byte(tt.data))
			require.Error(t, err)
			if tt.wantKind != "" {
				assert.True(t, validation.HasKind(err, tt.wantKind))
			}
		})
	}
}
