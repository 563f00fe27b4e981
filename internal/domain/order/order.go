// Package order holds the Order aggregate: insertion-ordered line items, the
// status state machine, attached discounts and payments.
//
// The aggregate only enforces its own invariants. Price lookup, discount
// allocation and totals are computed by the price, discount and totals
// packages, which mutate the order through the methods exposed here.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/options-product/internal/domain/price"
	"github.com/xenking/options-product/internal/domain/product"
	"github.com/xenking/options-product/internal/domain/validation"
)

var (
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrConflict is returned when an order was modified concurrently.
	ErrConflict = errors.New("order version conflict")
)

// PriceSource resolves the price a variation is sold at.
type PriceSource interface {
	Require(ctx context.Context, productID, currency string) (*price.Price, error)
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// Save persists o when its stored version still equals o.Version and
	// bumps the version. A stale order fails with ErrConflict.
	Save(ctx context.Context, o *Order) error
}

// QuantityMode tells ModifyItem how to interpret the quantity argument.
type QuantityMode int

const (
	// Relative adds the quantity to the current one.
	Relative QuantityMode = iota
	// Absolute replaces the current quantity.
	Absolute
)

// Order is a customer order in a single currency.
type Order struct {
	ID        string
	Currency  string
	Status    Status
	Notes     string
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
	// Total is the last recalculated grand total, tax included.
	Total decimal.Decimal

	items     []*LineItem
	discounts []AppliedDiscount
	history   []StatusChange
	payments  []Payment
}

// New creates an empty draft order.
func New(id, currency string, now time.Time) *Order {
	return &Order{
		ID:        id,
		Currency:  currency,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Items returns the line items in insertion order.
func (o *Order) Items() []*LineItem {
	return o.items
}

// Item returns the line item of a variation.
func (o *Order) Item(variationID string) (*LineItem, bool) {
	for _, it := range o.items {
		if it.VariationID == variationID {
			return it, true
		}
	}
	return nil, false
}

// IsEmpty reports whether the order has no line items.
func (o *Order) IsEmpty() bool {
	return len(o.items) == 0
}

// Quantity returns the number of units over all line items.
func (o *Order) Quantity() int {
	var n int
	for _, it := range o.items {
		n += it.Quantity
	}
	return n
}

// IsSealed reports whether items can no longer be modified.
func (o *Order) IsSealed() bool {
	return o.Status != StatusDraft
}

// ValidateBase checks that the order is still modifiable and that every line
// item is in the order currency.
func (o *Order) ValidateBase() error {
	var c validation.Collector
	if o.IsSealed() {
		c.Add(validation.KindOrderSealed, "order is sealed and cannot be modified")
	}
	for _, it := range o.items {
		if it.Currency != o.Currency {
			c.Add(validation.KindMultipleCurrency, "line item "+it.SKU+" is in "+it.Currency+", order is in "+o.Currency)
		}
	}
	return c.Err()
}

// ModifyItem changes the quantity of a variation. The price is captured when
// the variation is first added; later changes keep it until RefreshPrices.
//
// A resulting quantity of zero or less removes the line item; the removed
// item is returned with quantity zero.
func (o *Order) ModifyItem(ctx context.Context, prices PriceSource, v product.Variation, quantity int, mode QuantityMode) (*LineItem, error) {
	if err := o.ValidateBase(); err != nil {
		return nil, err
	}
	if mode == Absolute && quantity < 0 {
		return nil, validation.Newf(validation.KindInvalidQuantity, "absolute quantity %d is negative", quantity)
	}

	item, exists := o.Item(v.ID)
	target := quantity
	if exists && mode == Relative {
		target += item.Quantity
	}

	if target <= 0 {
		if !exists {
			return &LineItem{VariationID: v.ID, ProductID: v.ProductID, SKU: v.SKU, Name: v.Name, Currency: o.Currency}, nil
		}
		o.removeItem(v.ID)
		item.Quantity = 0
		return item, nil
	}

	if !exists {
		p, err := prices.Require(ctx, v.ProductID, o.Currency)
		if err != nil {
			return nil, err
		}
		item = &LineItem{
			VariationID: v.ID,
			ProductID:   v.ProductID,
			SKU:         v.SKU,
			Name:        v.Name,
			CategoryIDs: v.CategoryIDs,
		}
		item.capture(p)
		o.items = append(o.items, item)
	}
	item.Quantity = target
	return item, nil
}

// RefreshPrices re-captures the current price of every line item. Nothing is
// changed unless every price resolves.
func (o *Order) RefreshPrices(ctx context.Context, prices PriceSource) error {
	if err := o.ValidateBase(); err != nil {
		return err
	}

	fresh := make([]*price.Price, len(o.items))
	var c validation.Collector
	for i, it := range o.items {
		p, err := prices.Require(ctx, it.ProductID, o.Currency)
		if err != nil {
			if !c.Merge(err) {
				return err
			}
			continue
		}
		fresh[i] = p
	}
	if err := c.Err(); err != nil {
		return err
	}

	for i, it := range o.items {
		it.capture(fresh[i])
	}
	return nil
}

func (o *Order) removeItem(variationID string) {
	for i, it := range o.items {
		if it.VariationID == variationID {
			o.items = append(o.items[:i], o.items[i+1:]...)
			return
		}
	}
}
