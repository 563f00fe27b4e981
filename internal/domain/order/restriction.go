package order

import "slices"

// RestrictionKind selects which line items a discount applies to.
type RestrictionKind string

const (
	RestrictNone        RestrictionKind = "all"
	RestrictCategories  RestrictionKind = "only_categories"
	RestrictProducts    RestrictionKind = "only_products"
	RestrictExcludeSale RestrictionKind = "exclude_sale"
)

// Restriction is a predicate over line items.
type Restriction struct {
	Kind RestrictionKind `json:"kind"`
	// IDs are category or product IDs, depending on Kind.
	IDs []string `json:"ids,omitempty"`
}

// Matches reports whether the line item is eligible.
func (r Restriction) Matches(it *LineItem) bool {
	switch r.Kind {
	case RestrictCategories:
		for _, id := range it.CategoryIDs {
			if slices.Contains(r.IDs, id) {
				return true
			}
		}
		return false
	case RestrictProducts:
		return slices.Contains(r.IDs, it.ProductID)
	case RestrictExcludeSale:
		return !it.IsSale
	default:
		return true
	}
}

// Eligible returns the line items of o the restriction admits.
func (r Restriction) Eligible(o *Order) []*LineItem {
	var out []*LineItem
	for _, it := range o.items {
		if r.Matches(it) {
			out = append(out, it)
		}
	}
	return out
}
