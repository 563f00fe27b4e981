package order

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/options-product/internal/domain/money"
	"github.com/xenking/options-product/internal/domain/price"
)

// LineItem is one variation and its quantity within an order.
type LineItem struct {
	VariationID string
	ProductID   string
	SKU         string
	Name        string
	CategoryIDs []string
	Quantity    int

	// Price fields are captured from the resolved price record.
	Currency    string
	UnitAmount  decimal.Decimal
	TaxIncluded bool
	TaxClass    money.TaxClass
	IsSale      bool

	// discount is the tax-exclusive amount allocated by discounts.
	discount decimal.Decimal
}

func (it *LineItem) capture(p *price.Price) {
	it.Currency = p.Currency
	it.UnitAmount = p.Amount
	it.TaxIncluded = p.TaxIncluded
	it.TaxClass = p.TaxClass
	it.IsSale = p.IsSale
}

// TaxRate returns the rate of the captured tax class.
func (it *LineItem) TaxRate() decimal.Decimal {
	return it.TaxClass.Rate
}

// UnitPrice returns the captured unit price.
func (it *LineItem) UnitPrice() money.Money {
	if it.TaxIncluded {
		return money.FromInclusive(it.Currency, it.UnitAmount, it.TaxClass.Rate)
	}
	return money.FromExclusive(it.Currency, it.UnitAmount, it.TaxClass.Rate)
}

// Subtotal is the undiscounted line amount.
func (it *LineItem) Subtotal() money.Money {
	return it.UnitPrice().Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Discount is the amount allocated to this line by attached discounts.
func (it *LineItem) Discount() money.Money {
	return money.FromExclusive(it.Currency, it.discount, it.TaxClass.Rate)
}

// DiscountedSubtotal is the line amount after discounts.
func (it *LineItem) DiscountedSubtotal() money.Money {
	return it.Subtotal().Sub(it.Discount())
}

// AddDiscount allocates a further tax-exclusive discount to the line.
func (it *LineItem) AddDiscount(excl decimal.Decimal) {
	it.discount = it.discount.Add(excl)
}

// ResetDiscount drops every allocated discount.
func (it *LineItem) ResetDiscount() {
	it.discount = decimal.Zero
}
