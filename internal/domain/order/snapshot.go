package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the storable form of an Order.
type Snapshot struct {
	ID        string            `json:"id"`
	Currency  string            `json:"currency"`
	Status    string            `json:"status"`
	Notes     string            `json:"notes,omitempty"`
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Total     decimal.Decimal   `json:"total"`
	Items     []ItemSnapshot    `json:"items"`
	Discounts []AppliedDiscount `json:"discounts"`
	History   []StatusSnapshot  `json:"history"`
	Payments  []Payment         `json:"payments"`
}

// ItemSnapshot is the storable form of a LineItem.
type ItemSnapshot struct {
	VariationID  string          `json:"variation_id"`
	ProductID    string          `json:"product_id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	CategoryIDs  []string        `json:"category_ids,omitempty"`
	Quantity     int             `json:"quantity"`
	Currency     string          `json:"currency"`
	UnitAmount   decimal.Decimal `json:"unit_amount"`
	TaxIncluded  bool            `json:"tax_included"`
	TaxClassID   string          `json:"tax_class_id"`
	TaxClassName string          `json:"tax_class_name"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	IsSale       bool            `json:"is_sale"`
	Discount     decimal.Decimal `json:"discount"`
}

// StatusSnapshot is the storable form of a StatusChange.
type StatusSnapshot struct {
	Status string    `json:"status"`
	Notes  string    `json:"notes,omitempty"`
	At     time.Time `json:"at"`
}

// Snapshot captures the full state of the order.
func (o *Order) Snapshot() Snapshot {
	s := Snapshot{
		ID:        o.ID,
		Currency:  o.Currency,
		Status:    o.Status.String(),
		Notes:     o.Notes,
		Version:   o.Version,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
		Total:     o.Total,
		Items:     make([]ItemSnapshot, len(o.items)),
		Discounts: append([]AppliedDiscount(nil), o.discounts...),
		History:   make([]StatusSnapshot, len(o.history)),
		Payments:  append([]Payment(nil), o.payments...),
	}
	for i, it := range o.items {
		s.Items[i] = ItemSnapshot{
			VariationID:  it.VariationID,
			ProductID:    it.ProductID,
			SKU:          it.SKU,
			Name:         it.Name,
			CategoryIDs:  it.CategoryIDs,
			Quantity:     it.Quantity,
			Currency:     it.Currency,
			UnitAmount:   it.UnitAmount,
			TaxIncluded:  it.TaxIncluded,
			TaxClassID:   it.TaxClass.ID,
			TaxClassName: it.TaxClass.Name,
			TaxRate:      it.TaxClass.Rate,
			IsSale:       it.IsSale,
			Discount:     it.discount,
		}
	}
	for i, h := range o.history {
		s.History[i] = StatusSnapshot{Status: h.Status.String(), Notes: h.Notes, At: h.At}
	}
	return s
}

// Restore rebuilds an Order from a snapshot. Unknown status names restore as
// Draft.
func Restore(s Snapshot) *Order {
	status, ok := ParseStatus(s.Status)
	if !ok {
		status = StatusDraft
	}
	o := &Order{
		ID:        s.ID,
		Currency:  s.Currency,
		Status:    status,
		Notes:     s.Notes,
		Version:   s.Version,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Total:     s.Total,
		discounts: append([]AppliedDiscount(nil), s.Discounts...),
		payments:  append([]Payment(nil), s.Payments...),
	}
	for _, is := range s.Items {
		it := &LineItem{
			VariationID: is.VariationID,
			ProductID:   is.ProductID,
			SKU:         is.SKU,
			Name:        is.Name,
			CategoryIDs: is.CategoryIDs,
			Quantity:    is.Quantity,
			Currency:    is.Currency,
			UnitAmount:  is.UnitAmount,
			TaxIncluded: is.TaxIncluded,
			IsSale:      is.IsSale,
			discount:    is.Discount,
		}
		it.TaxClass.ID = is.TaxClassID
		it.TaxClass.Name = is.TaxClassName
		it.TaxClass.Rate = is.TaxRate
		o.items = append(o.items, it)
	}
	for _, h := range s.History {
		st, _ := ParseStatus(h.Status)
		o.history = append(o.history, StatusChange{Status: st, Notes: h.Notes, At: h.At})
	}
	return o
}
