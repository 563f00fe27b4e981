// Package shipping computes shipping charges for orders.
package shipping

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/options-product/internal/domain/money"
	"github.com/xenking/options-product/internal/domain/order"
)

// Calculator computes the shipping charge of an order.
type Calculator interface {
	Compute(o *order.Order) money.Money
}

// Null charges nothing.
type Null struct{}

// Compute implements Calculator.
func (Null) Compute(o *order.Order) money.Money {
	return money.Zero(o.Currency)
}

// Fixed charges the same amount for every non-empty order.
type Fixed struct {
	Amount      decimal.Decimal
	TaxIncluded bool
	TaxClass    money.TaxClass
}

// Compute implements Calculator.
func (f Fixed) Compute(o *order.Order) money.Money {
	if o.IsEmpty() {
		return money.FromExclusive(o.Currency, decimal.Zero, f.TaxClass.Rate)
	}
	if f.TaxIncluded {
		return money.FromInclusive(o.Currency, f.Amount, f.TaxClass.Rate)
	}
	return money.FromExclusive(o.Currency, f.Amount, f.TaxClass.Rate)
}
