// Package totals computes order totals from line items, allocated
// discounts, prepaid vouchers and shipping.
//
// Everything is accumulated at full precision on the tax-exclusive basis.
// Only the reported figures are rounded, each once.
package totals

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/xenking/options-product/internal/domain/money"
	"github.com/xenking/options-product/internal/domain/order"
	"github.com/xenking/options-product/internal/domain/shipping"
)

// Options are the shop settings a recalculation depends on.
type Options struct {
	// PricesIncludeTax selects the basis Subtotal, Discount and Shipping
	// are reported on. Total is the same on both.
	PricesIncludeTax bool
	// DiscountShipping lets the unused part of amount discounts reduce
	// the shipping charge.
	DiscountShipping bool
}

// DefaultOptions reports tax-inclusive prices and discounts shipping.
func DefaultOptions() Options {
	return Options{PricesIncludeTax: true, DiscountShipping: true}
}

// TaxGroup sums the line items and shipping taxed at one rate.
type TaxGroup struct {
	Rate decimal.Decimal
	// Tax is the tax amount of the group.
	Tax decimal.Decimal
	// Total is the tax-inclusive amount of the group.
	Total decimal.Decimal
}

// Totals are the reported figures of an order, rounded to minor units.
//
// On the tax-exclusive basis subtotal + tax = total - shipping + discount;
// on the tax-inclusive basis subtotal = total - shipping + discount. Each
// holds within the rounding of the individual figures.
type Totals struct {
	Currency string
	// Subtotal is the undiscounted sum of the line items.
	Subtotal decimal.Decimal
	// Discount is what line item discounts and prepaid vouchers took off.
	Discount decimal.Decimal
	// ShippingDiscount is what discounts took off shipping.
	ShippingDiscount decimal.Decimal
	// Shipping is the charge left after ShippingDiscount.
	Shipping    decimal.Decimal
	ItemsTax    decimal.Decimal
	ShippingTax decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
	// DiscountRemaining is the tax-exclusive discount value that found
	// nothing left to reduce.
	DiscountRemaining decimal.Decimal
	// TaxBreakdown is ordered by ascending rate.
	TaxBreakdown []TaxGroup
}

// TaxGroup returns the breakdown entry of a rate.
func (t Totals) TaxGroup(rate decimal.Decimal) (TaxGroup, bool) {
	for _, g := range t.TaxBreakdown {
		if g.Rate.Equal(rate) {
			return g, true
		}
	}
	return TaxGroup{}, false
}

type group struct {
	rate decimal.Decimal
	excl decimal.Decimal
}

// Recalculate computes the totals of o. Line item discounts must already be
// allocated; see discount.Reallocate.
func Recalculate(o *order.Order, ship shipping.Calculator, opts Options) Totals {
	var (
		subtotalEx = decimal.Zero
		subtotalIn = decimal.Zero
		discEx     = decimal.Zero
		discIn     = decimal.Zero
		itemsTax   = decimal.Zero
		groups     = map[string]*group{}
	)
	addToGroup := func(rate, excl decimal.Decimal) {
		key := rate.String()
		g, ok := groups[key]
		if !ok {
			g = &group{rate: rate}
			groups[key] = g
		}
		g.excl = g.excl.Add(excl)
	}

	for _, it := range o.Items() {
		sub := it.Subtotal()
		disc := it.Discount()
		net := it.DiscountedSubtotal()
		if net.Excl.IsNegative() {
			net.Excl = decimal.Zero
		}

		subtotalEx = subtotalEx.Add(sub.Excl)
		subtotalIn = subtotalIn.Add(sub.Incl())
		discEx = discEx.Add(disc.Excl)
		discIn = discIn.Add(disc.Incl())
		itemsTax = itemsTax.Add(net.Tax())
		addToGroup(net.Rate, net.Excl)
	}

	// Unused amount discounts, kept tax-inclusive at their own rate so
	// they can be set against shipping.
	remainingIn := decimal.Zero
	remainingExcl := decimal.Zero
	for _, d := range o.Discounts() {
		remainingIn = remainingIn.Add(d.Remaining.Mul(money.Factor(d.TaxRate)))
		remainingExcl = remainingExcl.Add(d.Remaining)
	}

	shipCharge := money.Zero(o.Currency)
	if ship != nil {
		shipCharge = ship.Compute(o)
	}
	shipDisc := money.FromExclusive(o.Currency, decimal.Zero, shipCharge.Rate)
	if opts.DiscountShipping && remainingIn.IsPositive() && shipCharge.Excl.IsPositive() {
		if remainingIn.GreaterThanOrEqual(shipCharge.Incl()) {
			shipDisc = shipCharge
		} else {
			shipDisc = money.FromInclusive(o.Currency, remainingIn, shipCharge.Rate)
		}
		left := remainingIn.Sub(shipDisc.Incl())
		remainingExcl = remainingExcl.Mul(left).Div(remainingIn)
		shipCharge = shipCharge.Sub(shipDisc)
	}
	if !shipCharge.Excl.IsZero() {
		addToGroup(shipCharge.Rate, shipCharge.Excl)
	}

	breakdown := make([]TaxGroup, 0, len(groups))
	gross := decimal.Zero
	for _, g := range groups {
		m := money.FromExclusive(o.Currency, g.excl, g.rate)
		gross = gross.Add(m.Incl())
		breakdown = append(breakdown, TaxGroup{
			Rate:  g.rate,
			Tax:   money.Round(m.Tax()),
			Total: money.Round(m.Incl()),
		})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		return breakdown[i].Rate.LessThan(breakdown[j].Rate)
	})

	// Prepaid vouchers settle against what is left to pay, in attachment
	// order. Their unused value is converted through their own tax class.
	prepaid := decimal.Zero
	for _, d := range o.Discounts() {
		if !d.IsPrepaid() {
			continue
		}
		use := decimal.Min(d.Value, gross.Sub(prepaid))
		if use.IsNegative() {
			use = decimal.Zero
		}
		prepaid = prepaid.Add(use)
		if left := d.Value.Sub(use); left.IsPositive() {
			remainingExcl = remainingExcl.Add(left.Div(money.Factor(d.TaxRate)))
		}
	}

	t := Totals{
		Currency:          o.Currency,
		ItemsTax:          money.Round(itemsTax),
		ShippingTax:       money.Round(shipCharge.Tax()),
		Tax:               money.Round(itemsTax.Add(shipCharge.Tax())),
		Total:             money.Round(gross.Sub(prepaid)),
		DiscountRemaining: money.Round(remainingExcl),
		TaxBreakdown:      breakdown,
	}
	if opts.PricesIncludeTax {
		t.Subtotal = money.Round(subtotalIn)
		t.Discount = money.Round(discIn.Add(prepaid))
		t.Shipping = money.Round(shipCharge.Incl())
		t.ShippingDiscount = money.Round(shipDisc.Incl())
	} else {
		t.Subtotal = money.Round(subtotalEx)
		t.Discount = money.Round(discEx.Add(prepaid))
		t.Shipping = money.Round(shipCharge.Excl)
		t.ShippingDiscount = money.Round(shipDisc.Excl)
	}
	return t
}
