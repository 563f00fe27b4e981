package order

import (
	"github.com/shopspring/decimal"
)

// DiscountType tells how a discount value is interpreted.
type DiscountType string

const (
	DiscountAmountExclTax DiscountType = "amount_excl_tax"
	DiscountAmountInclTax DiscountType = "amount_incl_tax"
	DiscountPercentage    DiscountType = "percentage"
	DiscountPrepaid       DiscountType = "prepaid"
)

// AppliedDiscount is a discount attached to an order. Its terms are copied
// when it is attached so allocations can be replayed without the catalog.
type AppliedDiscount struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Type        DiscountType    `json:"type"`
	Value       decimal.Decimal `json:"value"`
	Currency    string          `json:"currency,omitempty"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	BeforeTax   bool            `json:"before_tax,omitempty"`
	Restriction Restriction     `json:"restriction"`

	// Allocated is the tax-exclusive amount spread over line items by the
	// last allocation.
	Allocated decimal.Decimal `json:"allocated"`
	// Remaining is the tax-exclusive part of an amount discount that did
	// not fit onto the eligible line items.
	Remaining decimal.Decimal `json:"remaining"`
}

// IsPrepaid reports whether the discount reduces the final total instead of
// the line items.
func (d AppliedDiscount) IsPrepaid() bool {
	return d.Type == DiscountPrepaid && !d.BeforeTax
}

// Discounts returns the attached discounts in attachment order.
func (o *Order) Discounts() []AppliedDiscount {
	return o.discounts
}

// AttachDiscount attaches d, replacing a discount with the same code in
// place so attachment order is preserved.
func (o *Order) AttachDiscount(d AppliedDiscount) {
	for i := range o.discounts {
		if o.discounts[i].Code == d.Code {
			o.discounts[i] = d
			return
		}
	}
	o.discounts = append(o.discounts, d)
}

// DetachDiscount removes the discount with the given code.
func (o *Order) DetachDiscount(code string) bool {
	for i := range o.discounts {
		if o.discounts[i].Code == code {
			o.discounts = append(o.discounts[:i], o.discounts[i+1:]...)
			return true
		}
	}
	return false
}

// SetAllocation stores the result of allocating the discount at index i.
func (o *Order) SetAllocation(i int, allocated, remaining decimal.Decimal) {
	o.discounts[i].Allocated = allocated
	o.discounts[i].Remaining = remaining
}

// ResetDiscounts clears every line item allocation.
func (o *Order) ResetDiscounts() {
	for _, it := range o.items {
		it.ResetDiscount()
	}
}
