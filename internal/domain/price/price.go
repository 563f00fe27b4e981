package price

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/options-product/internal/domain/money"
)

// Price is a stored unit price of a product in one currency.
type Price struct {
	ID        int64
	ProductID string
	Currency  string
	TaxClass  money.TaxClass
	// Amount is the stored unit price; TaxIncluded tells whether it
	// already contains tax.
	Amount      decimal.Decimal
	TaxIncluded bool
	IsSale      bool
	IsActive    bool
	ValidFrom   time.Time
	ValidUntil  *time.Time
}

// Unit returns the unit price as a tax-aware amount.
func (p Price) Unit() money.Money {
	if p.TaxIncluded {
		return money.FromInclusive(p.Currency, p.Amount, p.TaxClass.Rate)
	}
	return money.FromExclusive(p.Currency, p.Amount, p.TaxClass.Rate)
}

// UnitPriceInclTax returns the unit price including tax.
func (p Price) UnitPriceInclTax() decimal.Decimal {
	return p.Unit().Incl()
}

// UnitPriceExclTax returns the unit price excluding tax.
func (p Price) UnitPriceExclTax() decimal.Decimal {
	return p.Unit().Excl
}

// UnitTax returns the tax contained in one unit.
func (p Price) UnitTax() decimal.Decimal {
	return p.Unit().Tax()
}

// UnitPrice returns the unit price on the presentation basis selected by
// pricesIncludeTax.
func (p Price) UnitPrice(pricesIncludeTax bool) decimal.Decimal {
	return p.Unit().In(pricesIncludeTax)
}

// CoversDate reports whether the validity window contains t.
func (p Price) CoversDate(t time.Time) bool {
	if t.Before(p.ValidFrom) {
		return false
	}
	return p.ValidUntil == nil || !t.After(*p.ValidUntil)
}

// Tiers holds the normal and sale price of a product in one currency.
// A tier without a matching record is nil.
type Tiers struct {
	Normal *Price
	Sale   *Price
}

// Effective returns the price a buyer pays: the sale price when present,
// otherwise the normal one.
func (t Tiers) Effective() *Price {
	if t.Sale != nil {
		return t.Sale
	}
	return t.Normal
}

// Repository loads price records.
type Repository interface {
	// ListActive returns the active price records for a product, in every
	// currency when currency is empty.
	ListActive(ctx context.Context, productID, currency string) ([]Price, error)
}
