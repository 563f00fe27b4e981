package main

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/options-product/internal/domain/discount"
	"github.com/xenking/options-product/internal/domain/money"
	"github.com/xenking/options-product/internal/domain/order"
	"github.com/xenking/options-product/internal/domain/price"
	"github.com/xenking/options-product/internal/domain/product"
)

const dateLayout = "2006-01-02"

type catalogJSON struct {
	TaxClasses []struct {
		ID   string          `json:"id"`
		Name string          `json:"name"`
		Rate decimal.Decimal `json:"rate"`
	} `json:"tax_classes"`
	Categories []struct {
		ID         string `json:"id"`
		Parent     string `json:"parent"`
		Name       string `json:"name"`
		Slug       string `json:"slug"`
		IsInternal bool   `json:"internal"`
	} `json:"categories"`
	OptionGroups []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Options []struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"options"`
	} `json:"option_groups"`
	Products  []productJSON  `json:"products"`
	Discounts []discountJSON `json:"discounts"`
}

type productJSON struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Slug       string   `json:"slug"`
	SKU        string   `json:"sku"`
	Categories []string `json:"categories"`
	// OptionGroups lists the groups the product varies along; one variation
	// is generated per combination.
	OptionGroups []string `json:"option_groups"`
	Stock        int      `json:"stock"`
	Prices       []struct {
		Currency    string          `json:"currency"`
		TaxClass    string          `json:"tax_class"`
		Amount      decimal.Decimal `json:"amount"`
		TaxIncluded bool            `json:"tax_included"`
		IsSale      bool            `json:"sale"`
		ValidFrom   string          `json:"valid_from"`
		ValidUntil  string          `json:"valid_until"`
	} `json:"prices"`
}

type discountJSON struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Value       decimal.Decimal `json:"value"`
	Currency    string          `json:"currency"`
	TaxClass    string          `json:"tax_class"`
	ValidFrom   string          `json:"valid_from"`
	ValidUntil  string          `json:"valid_until"`
	Inactive    bool            `json:"inactive"`
	MaxUses     int             `json:"max_uses"`
	Restriction string          `json:"restriction"`
	IDs         []string        `json:"ids"`
	BeforeTax   bool            `json:"before_tax"`
}

type catalogProduct struct {
	Product    product.Product
	Variations []product.Variation
	Prices     []price.Price
}

// catalog is the seed file resolved into domain values.
type catalog struct {
	TaxClasses   []money.TaxClass
	Categories   []product.Category
	OptionGroups []product.OptionGroup
	Products     []catalogProduct
	Discounts    []discount.Discount
}

func parseCatalog(data []byte) (*catalog, error) {
	var raw catalogJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	c := &catalog{}
	taxClasses := make(map[string]money.TaxClass)
	for _, tc := range raw.TaxClasses {
		t := money.TaxClass{ID: tc.ID, Name: tc.Name, Rate: tc.Rate}
		taxClasses[t.ID] = t
		c.TaxClasses = append(c.TaxClasses, t)
	}
	for _, cat := range raw.Categories {
		c.Categories = append(c.Categories, product.Category{
			ID:         cat.ID,
			ParentID:   cat.Parent,
			Name:       cat.Name,
			Slug:       cat.Slug,
			IsActive:   true,
			IsInternal: cat.IsInternal,
		})
	}
	groups := make(map[string]product.OptionGroup)
	for _, g := range raw.OptionGroups {
		og := product.OptionGroup{ID: g.ID, Name: g.Name}
		for i, o := range g.Options {
			og.Options = append(og.Options, product.Option{
				ID:       o.ID,
				GroupID:  g.ID,
				Name:     o.Name,
				Value:    o.Value,
				Ordering: i,
			})
		}
		groups[og.ID] = og
		c.OptionGroups = append(c.OptionGroups, og)
	}

	for _, p := range raw.Products {
		cp, err := resolveProduct(p, groups, taxClasses)
		if err != nil {
			return nil, errors.Wrapf(err, "product %s", p.ID)
		}
		c.Products = append(c.Products, cp)
	}

	for _, d := range raw.Discounts {
		dd, err := resolveDiscount(d, taxClasses)
		if err != nil {
			return nil, errors.Wrapf(err, "discount %s", d.Code)
		}
		c.Discounts = append(c.Discounts, dd)
	}
	return c, nil
}

func resolveProduct(p productJSON, groups map[string]product.OptionGroup, taxClasses map[string]money.TaxClass) (catalogProduct, error) {
	cp := catalogProduct{
		Product: product.Product{
			ID:          p.ID,
			Name:        p.Name,
			Slug:        p.Slug,
			SKU:         p.SKU,
			IsActive:    true,
			CategoryIDs: p.Categories,
		},
	}

	var selected []product.OptionGroup
	for _, id := range p.OptionGroups {
		g, ok := groups[id]
		if !ok {
			return cp, errors.Errorf("unknown option group %q", id)
		}
		selected = append(selected, g)
	}
	combos := product.GenerateVariations(selected)
	if err := product.ValidateVariations(selected, combos); err != nil {
		return cp, err
	}
	for _, combo := range combos {
		v := product.Variation{
			ID:           p.ID,
			SKU:          p.SKU,
			Name:         p.Name,
			IsActive:     true,
			ItemsInStock: p.Stock,
			Options:      combo,
		}
		if len(combo) > 0 {
			values := make([]string, len(combo))
			for i, o := range combo {
				values[i] = o.Value
			}
			v.ID += "-" + strings.Join(values, "-")
			v.SKU += "-" + strings.ToUpper(strings.Join(values, "-"))
			v.Name += " " + combo.Label()
		}
		cp.Variations = append(cp.Variations, v)
	}

	for _, pr := range p.Prices {
		tc, ok := taxClasses[pr.TaxClass]
		if !ok {
			return cp, errors.Errorf("unknown tax class %q", pr.TaxClass)
		}
		validFrom := time.Unix(0, 0).UTC()
		if pr.ValidFrom != "" {
			t, err := time.Parse(dateLayout, pr.ValidFrom)
			if err != nil {
				return cp, errors.Wrap(err, "valid_from")
			}
			validFrom = t
		}
		validUntil, err := parseDate(pr.ValidUntil)
		if err != nil {
			return cp, errors.Wrap(err, "valid_until")
		}
		cp.Prices = append(cp.Prices, price.Price{
			ProductID:   p.ID,
			Currency:    pr.Currency,
			TaxClass:    tc,
			Amount:      pr.Amount,
			TaxIncluded: pr.TaxIncluded,
			IsSale:      pr.IsSale,
			IsActive:    true,
			ValidFrom:   validFrom,
			ValidUntil:  validUntil,
		})
	}
	return cp, nil
}

func resolveDiscount(d discountJSON, taxClasses map[string]money.TaxClass) (discount.Discount, error) {
	kind := order.RestrictionKind(d.Restriction)
	if kind == "" {
		kind = order.RestrictNone
	}
	dd := discount.Discount{
		Code:        strings.ToUpper(d.Code),
		Name:        d.Name,
		Type:        discount.Type(d.Type),
		Value:       d.Value,
		Currency:    d.Currency,
		IsActive:    !d.Inactive,
		MaxUses:     d.MaxUses,
		Restriction: order.Restriction{Kind: kind, IDs: d.IDs},
		BeforeTax:   d.BeforeTax,
	}
	if d.TaxClass != "" {
		tc, ok := taxClasses[d.TaxClass]
		if !ok {
			return dd, errors.Errorf("unknown tax class %q", d.TaxClass)
		}
		dd.TaxClass = &tc
	}

	var err error
	if dd.ValidFrom, err = parseDate(d.ValidFrom); err != nil {
		return dd, errors.Wrap(err, "valid_from")
	}
	if dd.ValidUntil, err = parseDate(d.ValidUntil); err != nil {
		return dd, errors.Wrap(err, "valid_until")
	}
	if err := dd.CheckConfig(); err != nil {
		return dd, err
	}
	return dd, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
