package product

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested product or variation does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item whose purchasable units are its variations.
type Product struct {
	ID          string
	Name        string
	Slug        string
	SKU         string
	IsActive    bool
	CategoryIDs []string
}

// Variation is one purchasable combination of options of a product.
type Variation struct {
	ID           string
	ProductID    string
	SKU          string
	Name         string
	IsActive     bool
	ItemsInStock int
	Options      []Option
	// CategoryIDs mirrors the owning product's categories so eligibility
	// checks do not need the product itself.
	CategoryIDs []string
}

// Category groups products; children render as "parent - child".
type Category struct {
	ID         string
	ParentID   string
	Name       string
	Slug       string
	IsActive   bool
	IsInternal bool
}

// Repository defines read operations for the product catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetVariation(ctx context.Context, id string) (*Variation, error)
	ListVariations(ctx context.Context, productID string) ([]Variation, error)
}
