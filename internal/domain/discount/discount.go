// Package discount validates discounts against orders and allocates them
// over line items.
package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/options-product/internal/domain/money"
	"github.com/xenking/options-product/internal/domain/order"
	"github.com/xenking/options-product/internal/domain/validation"
)

// Type tells how a discount value is interpreted.
type Type = order.DiscountType

const (
	// AmountExclTax is a fixed amount given without tax.
	AmountExclTax = order.DiscountAmountExclTax
	// AmountInclTax is a fixed amount given with tax, converted through the
	// discount's tax class.
	AmountInclTax = order.DiscountAmountInclTax
	// Percentage reduces eligible line items by a percentage.
	Percentage = order.DiscountPercentage
	// Prepaid is a voucher that reduces the final total.
	Prepaid = order.DiscountPrepaid
)

// ErrNotFound is returned when no discount has the requested code.
var ErrNotFound = errors.New("discount not found")

// Discount is a discount definition from the catalog.
type Discount struct {
	Code     string
	Name     string
	Type     Type
	Value    decimal.Decimal
	Currency string
	TaxClass *money.TaxClass
	// ValidFrom and ValidUntil are compared by date; nil is open-ended.
	ValidFrom  *time.Time
	ValidUntil *time.Time
	IsActive   bool
	// MaxUses of zero means unlimited.
	MaxUses     int
	Uses        int
	Restriction order.Restriction
	// BeforeTax makes a prepaid voucher reduce the taxable base instead of
	// the final total.
	BeforeTax bool
}

// Repository provides lookup and usage tracking of discounts.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Discount, error)
	IncrementUses(ctx context.Context, code, orderID string) error
}

// CheckConfig verifies that type, currency, tax class, value and
// restriction are consistent. Every problem is reported as
// discount_misconfigured.
func (d *Discount) CheckConfig() error {
	var c validation.Collector
	misconfigured := func(msg string) {
		c.Add(validation.KindDiscountConfig, msg)
	}

	switch d.Type {
	case Percentage:
		if d.Currency != "" || d.TaxClass != nil {
			misconfigured("percentage discounts cannot have a currency or tax class")
		}
		if d.Value.GreaterThan(decimal.NewFromInt(100)) {
			misconfigured("percentage cannot exceed 100")
		}
	case AmountExclTax:
		if d.Currency == "" {
			misconfigured("amount discounts need a currency")
		}
		if d.TaxClass != nil {
			misconfigured("tax-exclusive amount discounts cannot have a tax class")
		}
	case AmountInclTax, Prepaid:
		if d.Currency == "" || d.TaxClass == nil {
			misconfigured("amount discounts with tax need a currency and a tax class")
		}
	default:
		misconfigured("unknown discount type " + string(d.Type))
	}

	if !d.Value.IsPositive() {
		misconfigured("value must be positive")
	}

	switch d.Restriction.Kind {
	case "", order.RestrictNone, order.RestrictExcludeSale:
	case order.RestrictCategories, order.RestrictProducts:
		if len(d.Restriction.IDs) == 0 {
			misconfigured("restriction " + string(d.Restriction.Kind) + " lists nothing")
		}
	default:
		misconfigured("unknown restriction " + string(d.Restriction.Kind))
	}

	return c.Err()
}

// Terms copies the definition into the form attached to an order.
func (d *Discount) Terms() order.AppliedDiscount {
	applied := order.AppliedDiscount{
		Code:        d.Code,
		Name:        d.Name,
		Type:        d.Type,
		Value:       d.Value,
		Currency:    d.Currency,
		BeforeTax:   d.BeforeTax,
		Restriction: d.Restriction,
	}
	if d.TaxClass != nil {
		applied.TaxRate = d.TaxClass.Rate
	}
	return applied
}

// Exhausted reports whether the usage cap has been reached.
func (d *Discount) Exhausted() bool {
	return d.MaxUses > 0 && d.Uses >= d.MaxUses
}
