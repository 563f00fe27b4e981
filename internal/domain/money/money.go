// Package money models tax-aware monetary amounts.
//
// A Money value keeps one canonical amount, the tax-exclusive one, at full
// decimal precision together with the tax rate that applies to it. The
// tax-inclusive amount is always derived as excl * (1 + rate/100), so the two
// can never drift apart. Rounding to minor units happens only through Round,
// at the boundaries where amounts become externally observable.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorUnits is the number of decimal places reported amounts are rounded to.
const MinorUnits = 2

var hundred = decimal.NewFromInt(100)

// TaxClass is a named tax rate, expressed in percent (7.6 means 7.6%).
type TaxClass struct {
	ID   string
	Name string
	Rate decimal.Decimal
}

// Factor returns 1 + rate/100.
func Factor(rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(rate.Div(hundred))
}

// noisePlaces bounds the precision kept before rounding to minor units.
// Decimal division stops after 16 places, so an amount derived through a
// tax factor can land a hair below an exact .005 boundary.
const noisePlaces = 12

// Round rounds half-up to MinorUnits decimal places. Amounts handled here are
// never negative, so decimal's half-away-from-zero rounding is half-up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(noisePlaces).Round(MinorUnits)
}

// Money is an amount in a currency with its tax rate.
type Money struct {
	Currency string
	Excl     decimal.Decimal
	Rate     decimal.Decimal
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Currency: currency}
}

// FromExclusive builds Money from a tax-exclusive amount.
func FromExclusive(currency string, excl, rate decimal.Decimal) Money {
	return Money{Currency: currency, Excl: excl, Rate: rate}
}

// FromInclusive builds Money from a tax-inclusive amount.
func FromInclusive(currency string, incl, rate decimal.Decimal) Money {
	return Money{Currency: currency, Excl: incl.Div(Factor(rate)), Rate: rate}
}

// Incl returns the tax-inclusive amount.
func (m Money) Incl() decimal.Decimal {
	return m.Excl.Mul(Factor(m.Rate))
}

// Tax returns the tax contained in the inclusive amount.
func (m Money) Tax() decimal.Decimal {
	return m.Excl.Mul(m.Rate).Div(hundred)
}

// In returns the amount on the requested basis.
func (m Money) In(inclTax bool) decimal.Decimal {
	if inclTax {
		return m.Incl()
	}
	return m.Excl
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Excl.IsZero()
}

// Mul scales the amount by n.
func (m Money) Mul(n decimal.Decimal) Money {
	m.Excl = m.Excl.Mul(n)
	return m
}

// Sub subtracts o, which must share currency and rate.
func (m Money) Sub(o Money) Money {
	m.Excl = m.Excl.Sub(o.Excl)
	return m
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s (excl. %s, %s%% tax)",
		m.Currency, Round(m.Incl()).StringFixed(MinorUnits), Round(m.Excl).StringFixed(MinorUnits), m.Rate.String())
}
