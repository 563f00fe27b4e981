package price

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/options-product/internal/domain/validation"
)

type cacheKey struct {
	productID string
	currency  string
}

// Resolver selects the applicable price tiers for a product and currency.
//
// Price records are memoized per product and currency; the tiers are picked
// from them on every lookup, so validity windows follow the clock. After
// price records change, call Invalidate.
type Resolver struct {
	repo Repository
	now  func() time.Time

	mu    sync.Mutex
	cache map[cacheKey][]Price
}

// NewResolver creates a Resolver backed by the given Repository.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{
		repo:  repo,
		now:   time.Now,
		cache: make(map[cacheKey][]Price),
	}
}

// Resolve returns the normal and sale price of a product in a currency.
// Tiers without a record are nil; an error is returned only when the
// lookup itself fails.
func (r *Resolver) Resolve(ctx context.Context, productID, currency string) (Tiers, error) {
	key := cacheKey{productID: productID, currency: currency}

	r.mu.Lock()
	records, ok := r.cache[key]
	r.mu.Unlock()
	if !ok {
		var err error
		records, err = r.repo.ListActive(ctx, productID, currency)
		if err != nil {
			return Tiers{}, errors.Wrapf(err, "list prices of %s", productID)
		}

		r.mu.Lock()
		r.cache[key] = records
		r.mu.Unlock()
	}

	return selectTiers(records, currency, r.now()), nil
}

// Require resolves the tiers and fails with price_unavailable when the
// product has no effective price in the currency.
func (r *Resolver) Require(ctx context.Context, productID, currency string) (*Price, error) {
	tiers, err := r.Resolve(ctx, productID, currency)
	if err != nil {
		return nil, err
	}
	p := tiers.Effective()
	if p == nil {
		return nil, validation.Newf(validation.KindPriceUnavailable,
			"no price for product %s in %s", productID, currency)
	}
	return p, nil
}

// Prices returns the tiers of a product for every currency it is priced in.
func (r *Resolver) Prices(ctx context.Context, productID string) (map[string]Tiers, error) {
	records, err := r.repo.ListActive(ctx, productID, "")
	if err != nil {
		return nil, errors.Wrapf(err, "list prices of %s", productID)
	}

	byCurrency := make(map[string][]Price)
	for _, p := range records {
		byCurrency[p.Currency] = append(byCurrency[p.Currency], p)
	}

	now := r.now()
	result := make(map[string]Tiers, len(byCurrency))
	for currency, ps := range byCurrency {
		result[currency] = selectTiers(ps, currency, now)
	}
	return result, nil
}

// InSale reports whether a sale price applies to the product in currency.
func (r *Resolver) InSale(ctx context.Context, productID, currency string) (bool, error) {
	tiers, err := r.Resolve(ctx, productID, currency)
	if err != nil {
		return false, err
	}
	return tiers.Sale != nil, nil
}

// Invalidate drops memoized records of a product, or everything when
// productID is empty.
func (r *Resolver) Invalidate(productID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if productID == "" {
		r.cache = make(map[cacheKey][]Price)
		return
	}
	for key := range r.cache {
		if key.productID == productID {
			delete(r.cache, key)
		}
	}
}

// selectTiers picks, per tier, the active record covering now. Among
// several candidates the one that became valid most recently wins, ties
// broken by the newest record.
func selectTiers(records []Price, currency string, now time.Time) Tiers {
	candidates := make([]Price, 0, len(records))
	for _, p := range records {
		if p.Currency != currency || !p.IsActive || !p.CoversDate(now) {
			continue
		}
		candidates = append(candidates, p)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.ValidFrom.Equal(b.ValidFrom) {
			return a.ValidFrom.After(b.ValidFrom)
		}
		return a.ID > b.ID
	})

	var tiers Tiers
	for i := range candidates {
		p := candidates[i]
		if p.IsSale {
			if tiers.Sale == nil {
				tiers.Sale = &p
			}
			continue
		}
		if tiers.Normal == nil {
			tiers.Normal = &p
		}
	}
	return tiers
}
