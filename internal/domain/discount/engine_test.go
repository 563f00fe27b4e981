package discount

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/options-product/internal/domain/money"
	"github.com/xenking/options-product/internal/domain/order"
	"github.com/xenking/options-product/internal/domain/price"
	"github.com/xenking/options-product/internal/domain/product"
	"github.com/xenking/options-product/internal/domain/validation"
)

var (
	swissTax  = money.TaxClass{ID: "ch", Name: "Standard Swiss Tax Rate", Rate: decimal.RequireFromString("7.6")}
	germanTax = money.TaxClass{ID: "de", Name: "Umsatzsteuer", Rate: decimal.RequireFromString("19")}
	fixedNow  = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	tolerance = decimal.RequireFromString("0.000001")
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func assertNear(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	assert.True(t, want.Sub(got).Abs().LessThan(tolerance), "expected %s, got %s", want, got)
}

type priceTable map[string]*price.Price

func (p priceTable) Require(_ context.Context, productID, currency string) (*price.Price, error) {
	pr, ok := p[productID]
	if !ok || pr.Currency != currency {
		return nil, validation.New(validation.KindPriceUnavailable, "no price")
	}
	return pr, nil
}

type line struct {
	productID string
	amount    string
	quantity  int
	sale      bool
	category  string
	taxClass  *money.TaxClass
}

func newOrder(t *testing.T, lines ...line) *order.Order {
	t.Helper()
	prices := priceTable{}
	o := order.New("o1", "CHF", fixedNow)
	for _, l := range lines {
		tc := swissTax
		if l.taxClass != nil {
			tc = *l.taxClass
		}
		prices[l.productID] = &price.Price{
			ProductID:   l.productID,
			Currency:    "CHF",
			TaxClass:    tc,
			Amount:      d(l.amount),
			TaxIncluded: true,
			IsSale:      l.sale,
			IsActive:    true,
		}
		v := product.Variation{ID: l.productID + "-v", ProductID: l.productID, SKU: l.productID}
		if l.category != "" {
			v.CategoryIDs = []string{l.category}
		}
		_, err := o.ModifyItem(context.Background(), prices, v, l.quantity, order.Relative)
		require.NoError(t, err)
	}
	return o
}

func newTestEngine() *Engine {
	e := NewEngine()
	e.now = func() time.Time { return fixedNow }
	return e
}

func percentage(code, value string) *Discount {
	return &Discount{Code: code, Name: code, Type: Percentage, Value: d(value), IsActive: true}
}

func amountInclTax(code, value string) *Discount {
	tc := swissTax
	return &Discount{Code: code, Name: code, Type: AmountInclTax, Value: d(value), Currency: "CHF", TaxClass: &tc, IsActive: true}
}

// discountIncl returns the tax-inclusive discount allocated to a line.
func discountIncl(it *order.LineItem) decimal.Decimal {
	return it.Discount().Incl()
}

func TestCheckConfig(t *testing.T) {
	tc := swissTax

	tests := []struct {
		name     string
		discount Discount
		wantErr  bool
	}{
		{name: "percentage", discount: Discount{Type: Percentage, Value: d("30")}},
		{name: "percentage with currency", discount: Discount{Type: Percentage, Value: d("30"), Currency: "CHF"}, wantErr: true},
		{name: "percentage with tax class", discount: Discount{Type: Percentage, Value: d("30"), TaxClass: &tc}, wantErr: true},
		{name: "percentage over 100", discount: Discount{Type: Percentage, Value: d("101")}, wantErr: true},
		{name: "amount excl without currency", discount: Discount{Type: AmountExclTax, Value: d("30")}, wantErr: true},
		{name: "amount excl", discount: Discount{Type: AmountExclTax, Value: d("30"), Currency: "CHF"}},
		{name: "amount excl with tax class", discount: Discount{Type: AmountExclTax, Value: d("30"), Currency: "CHF", TaxClass: &tc}, wantErr: true},
		{name: "amount incl", discount: Discount{Type: AmountInclTax, Value: d("30"), Currency: "CHF", TaxClass: &tc}},
		{name: "amount incl without currency", discount: Discount{Type: AmountInclTax, Value: d("30"), TaxClass: &tc}, wantErr: true},
		{name: "amount incl without tax class", discount: Discount{Type: AmountInclTax, Value: d("30"), Currency: "CHF"}, wantErr: true},
		{name: "prepaid", discount: Discount{Type: Prepaid, Value: d("20"), Currency: "CHF", TaxClass: &tc}},
		{name: "prepaid without tax class", discount: Discount{Type: Prepaid, Value: d("20"), Currency: "CHF"}, wantErr: true},
		{name: "unknown type", discount: Discount{Type: "42", Value: d("30")}, wantErr: true},
		{name: "zero value", discount: Discount{Type: Percentage, Value: decimal.Zero}, wantErr: true},
		{
			name:     "empty category restriction",
			discount: Discount{Type: Percentage, Value: d("30"), Restriction: order.Restriction{Kind: order.RestrictCategories}},
			wantErr:  true,
		},
		{
			name:     "product restriction",
			discount: Discount{Type: Percentage, Value: d("30"), Restriction: order.Restriction{Kind: order.RestrictProducts, IDs: []string{"p1"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.discount.CheckConfig()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, validation.HasKind(err, validation.KindDiscountConfig))
		})
	}
}

func TestEngine_Validate(t *testing.T) {
	farFuture := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
	longAgo := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		mutate    func(d *Discount)
		wantKinds []validation.Kind
	}{
		{name: "valid", mutate: func(*Discount) {}},
		{
			name: "inactive and not yet valid",
			mutate: func(d *Discount) {
				d.IsActive = false
				d.ValidFrom = &farFuture
			},
			wantKinds: []validation.Kind{validation.KindDiscountInactive, validation.KindDiscountNotYet},
		},
		{
			name: "not yet valid and expired",
			mutate: func(d *Discount) {
				d.ValidFrom = &farFuture
				d.ValidUntil = &longAgo
			},
			wantKinds: []validation.Kind{validation.KindDiscountNotYet, validation.KindDiscountExpired},
		},
		{
			name: "window bounds are inclusive by date",
			mutate: func(d *Discount) {
				d.ValidFrom = &today
				d.ValidUntil = &today
			},
		},
		{
			name: "usage cap reached",
			mutate: func(d *Discount) {
				d.MaxUses = 3
				d.Uses = 3
			},
			wantKinds: []validation.Kind{validation.KindDiscountExhausted},
		},
		{
			name: "usage below cap",
			mutate: func(d *Discount) {
				d.MaxUses = 3
				d.Uses = 2
			},
		},
		{
			name:      "currency mismatch",
			mutate:    func(d *Discount) { d.Currency = "EUR" },
			wantKinds: []validation.Kind{validation.KindMultipleCurrency},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOrder(t, line{productID: "p1", amount: "79.90", quantity: 1})
			disc := amountInclTax("asdf", "10")
			tt.mutate(disc)

			err := newTestEngine().Validate(disc, o)
			if len(tt.wantKinds) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *validation.Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantKinds, verr.Kinds())
		})
	}
}

func TestEngine_AddTo_Percentage(t *testing.T) {
	o := newOrder(t,
		line{productID: "p1", amount: "79.90", quantity: 3},
		line{productID: "p2", amount: "79.90", quantity: 5},
	)

	inactive := percentage("asdf", "30")
	inactive.IsActive = false
	require.Error(t, newTestEngine().AddTo(inactive, o))
	assert.Empty(t, o.Discounts())

	require.NoError(t, newTestEngine().AddTo(percentage("asdf", "30"), o))

	items := o.Items()
	assertNear(t, d("71.91"), discountIncl(items[0]))
	assertNear(t, d("119.85"), discountIncl(items[1]))
	assertNear(t, d("79.90").Div(d("1.076")).Mul(d("0.9")), items[0].Discount().Excl)
}

func TestEngine_AddTo_AmountProportional(t *testing.T) {
	o := newOrder(t,
		line{productID: "p1", amount: "79.90", quantity: 3},
		line{productID: "p2", amount: "79.90", quantity: 5},
	)

	require.NoError(t, newTestEngine().AddTo(amountInclTax("asdf", "50.00"), o))

	items := o.Items()
	assertNear(t, d("50").Mul(d("3")).Div(d("8")), discountIncl(items[0]))
	assertNear(t, d("50").Mul(d("5")).Div(d("8")), discountIncl(items[1]))
	assertNear(t, d("50").Div(d("1.076")), o.Discounts()[0].Allocated)
	assert.True(t, o.Discounts()[0].Remaining.IsZero())
}

func TestEngine_AddTo_AmountClipped(t *testing.T) {
	o := newOrder(t, line{productID: "p1", amount: "79.90", quantity: 1})

	require.NoError(t, newTestEngine().AddTo(amountInclTax("asdf", "100"), o))

	it := o.Items()[0]
	assertNear(t, d("79.90"), discountIncl(it))
	assert.True(t, it.DiscountedSubtotal().Excl.IsZero())
	assertNear(t, d("20.10").Div(d("1.076")), o.Discounts()[0].Remaining)
}

func TestEngine_AddTo_Restrictions(t *testing.T) {
	tests := []struct {
		name        string
		restriction order.Restriction
		wantFirst   bool
		wantSecond  bool
		wantErr     bool
	}{
		{
			name:        "only categories",
			restriction: order.Restriction{Kind: order.RestrictCategories, IDs: []string{"discountable"}},
			wantSecond:  true,
		},
		{
			name:        "only products",
			restriction: order.Restriction{Kind: order.RestrictProducts, IDs: []string{"p1"}},
			wantFirst:   true,
		},
		{
			name:        "exclude sale",
			restriction: order.Restriction{Kind: order.RestrictExcludeSale},
			wantSecond:  true,
		},
		{
			name:        "nothing eligible",
			restriction: order.Restriction{Kind: order.RestrictProducts, IDs: []string{"p9"}},
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOrder(t,
				line{productID: "p1", amount: "79.90", quantity: 3, sale: true},
				line{productID: "p2", amount: "99.90", quantity: 2, category: "discountable"},
			)
			disc := percentage("asdf", "30")
			disc.Restriction = tt.restriction

			err := newTestEngine().AddTo(disc, o)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, validation.HasKind(err, validation.KindDiscountConfig))
				assert.Empty(t, o.Discounts())
				return
			}
			require.NoError(t, err)
			items := o.Items()
			assert.Equal(t, tt.wantFirst, items[0].Discount().Excl.IsPositive())
			assert.Equal(t, tt.wantSecond, items[1].Discount().Excl.IsPositive())
		})
	}
}

func TestEngine_AddTo_Idempotent(t *testing.T) {
	o := newOrder(t,
		line{productID: "p1", amount: "79.90", quantity: 3},
		line{productID: "p2", amount: "59.90", quantity: 1},
	)
	e := newTestEngine()
	disc := amountInclTax("asdf", "50")

	require.NoError(t, e.AddTo(disc, o))
	first := []decimal.Decimal{o.Items()[0].Discount().Excl, o.Items()[1].Discount().Excl}

	require.NoError(t, e.AddTo(disc, o))
	require.Len(t, o.Discounts(), 1)
	assert.True(t, first[0].Equal(o.Items()[0].Discount().Excl))
	assert.True(t, first[1].Equal(o.Items()[1].Discount().Excl))

	disc.Value = d("60")
	require.NoError(t, e.AddTo(disc, o))
	require.Len(t, o.Discounts(), 1)
	assertNear(t, d("60"), discountIncl(o.Items()[0]).Add(discountIncl(o.Items()[1])))
}

func TestEngine_AddTo_AttachmentOrder(t *testing.T) {
	line3 := line{productID: "p1", amount: "79.90", quantity: 3}

	// 20% of 239.70, then 20.00 from the rest.
	o := newOrder(t, line3)
	e := newTestEngine()
	require.NoError(t, e.AddTo(percentage("perc20", "20"), o))
	require.NoError(t, e.AddTo(amountInclTax("amount20", "20"), o))
	assertNear(t, d("171.76"), o.Items()[0].DiscountedSubtotal().Incl())

	// 20.00 first, then 20% of the rest.
	o = newOrder(t, line3)
	require.NoError(t, e.AddTo(amountInclTax("amount20", "20"), o))
	require.NoError(t, e.AddTo(percentage("perc20", "20"), o))
	assertNear(t, d("175.76"), o.Items()[0].DiscountedSubtotal().Incl())
}

func TestEngine_AddTo_Prepaid(t *testing.T) {
	tc := swissTax
	voucher := &Discount{Code: "voucher", Name: "Voucher", Type: Prepaid, Value: d("20"), Currency: "CHF", TaxClass: &tc, IsActive: true}

	o := newOrder(t, line{productID: "p1", amount: "100.00", quantity: 1})
	require.NoError(t, newTestEngine().AddTo(voucher, o))
	assert.True(t, o.Items()[0].Discount().Excl.IsZero(), "prepaid vouchers leave line items untouched")
	assert.True(t, o.Discounts()[0].IsPrepaid())

	voucher.BeforeTax = true
	require.NoError(t, newTestEngine().AddTo(voucher, o))
	require.Len(t, o.Discounts(), 1)
	assertNear(t, d("20"), discountIncl(o.Items()[0]))
	assertNear(t, d("80").Div(d("1.076")), o.Items()[0].DiscountedSubtotal().Excl)
}

func TestEngine_AddTo_TaxRateMismatch(t *testing.T) {
	beforeTax := func() *Discount {
		disc := amountInclTax("GIFT", "50")
		disc.Type = Prepaid
		disc.BeforeTax = true
		return disc
	}
	prepaid := func() *Discount {
		disc := amountInclTax("GIFT", "50")
		disc.Type = Prepaid
		return disc
	}
	onlySwiss := func() *Discount {
		disc := amountInclTax("A50", "50")
		disc.Restriction = order.Restriction{Kind: order.RestrictProducts, IDs: []string{"p2"}}
		return disc
	}

	tests := []struct {
		name     string
		discount func() *Discount
		wantErr  bool
	}{
		{name: "amount incl", discount: func() *Discount { return amountInclTax("A50", "50") }, wantErr: true},
		{name: "prepaid before tax", discount: beforeTax, wantErr: true},
		{name: "prepaid", discount: prepaid},
		{name: "percentage", discount: func() *Discount { return percentage("P10", "10") }},
		{name: "restricted to matching rate", discount: onlySwiss},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOrder(t,
				line{productID: "p1", amount: "200.00", quantity: 1, taxClass: &germanTax},
				line{productID: "p2", amount: "79.90", quantity: 1},
			)

			err := newTestEngine().AddTo(tt.discount(), o)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, validation.HasKind(err, validation.KindDiscountConfig))
			assert.Empty(t, o.Discounts())
			assert.True(t, o.Items()[0].Discount().Excl.IsZero())
		})
	}
}

func TestCheckAttached(t *testing.T) {
	o := newOrder(t, line{productID: "p2", amount: "79.90", quantity: 1})
	require.NoError(t, newTestEngine().AddTo(amountInclTax("A50", "50"), o))
	require.NoError(t, CheckAttached(o))

	prices := priceTable{"p1": {
		ProductID: "p1", Currency: "CHF", TaxClass: germanTax,
		Amount: d("200.00"), TaxIncluded: true, IsActive: true,
	}}
	_, err := o.ModifyItem(context.Background(), prices, product.Variation{ID: "p1-v", ProductID: "p1", SKU: "p1"}, 1, order.Relative)
	require.NoError(t, err)

	err = CheckAttached(o)
	require.Error(t, err)
	assert.True(t, validation.HasKind(err, validation.KindDiscountConfig))
}

func TestEngine_AddTo_SealedOrder(t *testing.T) {
	o := newOrder(t, line{productID: "p1", amount: "79.90", quantity: 1})
	require.NoError(t, o.UpdateStatus(order.StatusCheckoutStarted, "", fixedNow))

	err := newTestEngine().AddTo(percentage("asdf", "10"), o)
	require.Error(t, err)
	assert.True(t, validation.HasKind(err, validation.KindOrderSealed))
}

func TestReallocate_AfterItemRemoval(t *testing.T) {
	o := newOrder(t,
		line{productID: "p1", amount: "79.90", quantity: 3},
		line{productID: "p2", amount: "79.90", quantity: 5},
	)
	require.NoError(t, newTestEngine().AddTo(amountInclTax("asdf", "50"), o))

	_, err := o.ModifyItem(context.Background(), nil, product.Variation{ID: "p2-v", ProductID: "p2"}, 0, order.Absolute)
	require.NoError(t, err)
	Reallocate(o)

	require.Len(t, o.Items(), 1)
	assertNear(t, d("50"), discountIncl(o.Items()[0]))
}
