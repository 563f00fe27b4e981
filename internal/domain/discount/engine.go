package discount

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/options-product/internal/domain/money"
	"github.com/xenking/options-product/internal/domain/order"
	"github.com/xenking/options-product/internal/domain/validation"
)

var hundred = decimal.NewFromInt(100)

// Engine validates discounts and attaches them to orders.
type Engine struct {
	now func() time.Time
}

// NewEngine creates an Engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// Validate checks whether d may be applied to o. All failing checks are
// reported together.
func (e *Engine) Validate(d *Discount, o *order.Order) error {
	var c validation.Collector
	c.Merge(d.CheckConfig())

	if o.IsSealed() {
		c.Add(validation.KindOrderSealed, "discounts cannot be added to a sealed order")
	}
	if !d.IsActive {
		c.Add(validation.KindDiscountInactive, "discount "+d.Code+" is not active")
	}

	today := day(e.now())
	if d.ValidFrom != nil && day(*d.ValidFrom).After(today) {
		c.Add(validation.KindDiscountNotYet, "discount "+d.Code+" is not valid yet")
	}
	if d.ValidUntil != nil && day(*d.ValidUntil).Before(today) {
		c.Add(validation.KindDiscountExpired, "discount "+d.Code+" has expired")
	}

	if d.Type != Percentage && d.Currency != "" && d.Currency != o.Currency {
		c.Add(validation.KindMultipleCurrency, "discount is in "+d.Currency+", order is in "+o.Currency)
	}
	if d.Exhausted() {
		c.Add(validation.KindDiscountExhausted, "discount "+d.Code+" has been used up")
	}
	c.Merge(checkTaxRate(d.Terms(), o))

	return c.Err()
}

// CheckAttached verifies that every attached discount still matches the
// tax rate of the items it is allocated to. Call it after items change.
func CheckAttached(o *order.Order) error {
	var c validation.Collector
	for _, d := range o.Discounts() {
		c.Merge(checkTaxRate(d, o))
	}
	return c.Err()
}

// checkTaxRate rejects tax-inclusive amounts allocated over items taxed at
// another rate: the net amount is derived through the discount's own rate.
func checkTaxRate(d order.AppliedDiscount, o *order.Order) error {
	if d.Type != AmountInclTax && !(d.Type == Prepaid && d.BeforeTax) {
		return nil
	}
	for _, it := range d.Restriction.Eligible(o) {
		if !it.TaxRate().Equal(d.TaxRate) {
			return validation.Newf(validation.KindDiscountConfig,
				"discount %s is taxed at %s%%, item %s at %s%%",
				d.Code, d.TaxRate, it.SKU, it.TaxRate())
		}
	}
	return nil
}

// AddTo validates d, attaches it to o and reallocates every attached
// discount. Adding a discount that is already attached replaces it.
func (e *Engine) AddTo(d *Discount, o *order.Order) error {
	if err := e.Validate(d, o); err != nil {
		return err
	}

	terms := d.Terms()
	if terms.Type != Prepaid || terms.BeforeTax {
		if len(terms.Restriction.Eligible(o)) == 0 {
			return validation.Newf(validation.KindDiscountConfig,
				"discount %s applies to no item of the order", d.Code)
		}
	}

	o.AttachDiscount(terms)
	Reallocate(o)
	return nil
}

// Reallocate recomputes line item discounts from the attached discounts.
// Discounts apply in attachment order, each against the balance left by the
// ones before it. Amounts are handled tax-exclusive.
func Reallocate(o *order.Order) {
	o.ResetDiscounts()

	for i, d := range o.Discounts() {
		eligible := d.Restriction.Eligible(o)

		switch {
		case d.Type == Percentage:
			allocated := decimal.Zero
			for _, it := range eligible {
				share := it.DiscountedSubtotal().Excl.Mul(d.Value).Div(hundred)
				it.AddDiscount(share)
				allocated = allocated.Add(share)
			}
			o.SetAllocation(i, allocated, decimal.Zero)

		case d.IsPrepaid():
			// Settled against the final total.
			o.SetAllocation(i, decimal.Zero, decimal.Zero)

		default:
			allocated, remaining := allocateAmount(eligible, amountExcl(d))
			o.SetAllocation(i, allocated, remaining)
		}
	}
}

// amountExcl converts the discount value to its tax-exclusive amount.
func amountExcl(d order.AppliedDiscount) decimal.Decimal {
	if d.Type == AmountExclTax {
		return d.Value
	}
	return d.Value.Div(money.Factor(d.TaxRate))
}

// allocateAmount spreads amount over items proportionally to their
// remaining balance. Whatever exceeds the eligible balance is returned as
// remaining.
func allocateAmount(items []*order.LineItem, amount decimal.Decimal) (allocated, remaining decimal.Decimal) {
	eligible := decimal.Zero
	for _, it := range items {
		eligible = eligible.Add(it.DiscountedSubtotal().Excl)
	}

	if !amount.LessThan(eligible) {
		for _, it := range items {
			it.AddDiscount(it.DiscountedSubtotal().Excl)
		}
		return eligible, amount.Sub(eligible)
	}

	for _, it := range items {
		it.AddDiscount(it.DiscountedSubtotal().Excl.Mul(amount).Div(eligible))
	}
	return amount, decimal.Zero
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
