package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/options-product/internal/domain/discount"
	"github.com/xenking/options-product/internal/domain/money"
)

func writeGz(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

func TestParseLine(t *testing.T) {
	def := decimal.NewFromInt(25)

	tests := []struct {
		name      string
		line      string
		want      voucher
		wantOK    bool
		wantError bool
	}{
		{name: "code only", line: "gift-0001", want: voucher{code: "GIFT-0001", value: def}, wantOK: true},
		{name: "code and value", line: " GIFT-0002 , 50.5 ", want: voucher{code: "GIFT-0002", value: decimal.RequireFromString("50.5")}, wantOK: true},
		{name: "blank", line: "   "},
		{name: "comment", line: "# batch 7"},
		{name: "too short", line: "ABC", wantError: true},
		{name: "bad value", line: "GIFT-0003,lots", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := parseLine(tt.line, def)
			if tt.wantError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want.code, got.code)
				assert.True(t, tt.want.value.Equal(got.value))
			}
		})
	}
}

func TestReadVouchers(t *testing.T) {
	a := writeGz(t, "a.gz", "GIFT-0001", "GIFT-0002,10")
	b := writeGz(t, "b.gz", "# second batch", "gift-0002,99", "GIFT-0003")

	got, dups, err := readVouchers(context.Background(), zap.NewNop(), []string{a, b}, decimal.NewFromInt(25))
	require.NoError(t, err)
	assert.Equal(t, 1, dups)
	require.Len(t, got, 3)
	assert.Equal(t, "GIFT-0001", got[0].code)
	assert.Equal(t, "GIFT-0002", got[1].code)
	assert.True(t, decimal.NewFromInt(10).Equal(got[1].value), "first occurrence wins")
	assert.Equal(t, "GIFT-0003", got[2].code)
}

func TestReadVouchers_BadLine(t *testing.T) {
	a := writeGz(t, "a.gz", "GIFT-0001", "X")

	_, _, err := readVouchers(context.Background(), zap.NewNop(), []string{a}, decimal.NewFromInt(25))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.gz:2")
}

func TestSkipExisting(t *testing.T) {
	filter := bloom.NewWithEstimates(1000, 0.001)
	filter.AddString("GIFT-0001")

	stored := map[string]bool{"GIFT-0001": true}
	var lookups []string
	exists := func(_ context.Context, code string) (bool, error) {
		lookups = append(lookups, code)
		return stored[code], nil
	}

	vouchers := []voucher{{code: "GIFT-0001"}, {code: "GIFT-0002"}}
	fresh, err := skipExisting(context.Background(), vouchers, filter, exists)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "GIFT-0002", fresh[0].code)
	assert.Contains(t, lookups, "GIFT-0001")

	failing := func(context.Context, string) (bool, error) { return false, errors.New("db down") }
	_, err = skipExisting(context.Background(), vouchers[:1], filter, failing)
	require.Error(t, err)
}

func TestVoucher_Discount(t *testing.T) {
	v := voucher{code: "GIFT-0001", value: decimal.NewFromInt(25)}
	d := v.discount("EUR", money.TaxClass{ID: "vat19", Rate: decimal.NewFromInt(19)}, 1)

	assert.Equal(t, discount.Prepaid, d.Type)
	assert.False(t, d.BeforeTax)
	assert.NoError(t, d.CheckConfig())
}
