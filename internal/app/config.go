package app

import (
	"os"
	"strconv"
	"strings"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/options-product/internal/domain/money"
	"github.com/xenking/options-product/internal/domain/shipping"
	"github.com/xenking/options-product/internal/domain/totals"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOP prefix), flags, or YAML config files.
type Config struct {
	DatabaseURL string `usage:"PostgreSQL connection URL (SHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Migrate     bool   `default:"true" usage:"Apply the embedded schema on start"`
	Pricing     PricingConfig
	Shipping    ShippingConfig
	Quote       QuoteConfig
}

// PricingConfig selects the presentation basis of amounts.
type PricingConfig struct {
	PricesIncludeTax bool `default:"true" usage:"Present prices including tax" flag:"prices-include-tax"`
	DiscountShipping bool `default:"true" usage:"Let unused amount discounts reduce shipping" flag:"discount-shipping"`
}

// ShippingConfig selects the shipping strategy.
type ShippingConfig struct {
	Kind        string `default:"null" usage:"Shipping strategy: null or fixed"`
	Amount      string `default:"0" usage:"Fixed shipping charge"`
	TaxRate     string `default:"0" usage:"Tax rate of the shipping charge in percent" flag:"shipping-tax-rate"`
	TaxIncluded bool   `default:"true" usage:"Whether Amount includes tax" flag:"shipping-tax-included"`
}

// QuoteConfig describes the order the quote command works on.
type QuoteConfig struct {
	OrderID  string   `usage:"Existing order to quote; a new one is created when empty" flag:"order-id"`
	Currency string   `default:"EUR" usage:"Currency of a new order"`
	Items    []string `usage:"Items of a new order as variation:quantity"`
	Codes    []string `usage:"Discount codes to apply"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/shop/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set SHOP_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps the standard DATABASE_URL variable to the
// SHOP-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
}

// Options returns the totals options selected by the pricing section.
func (c PricingConfig) Options() totals.Options {
	return totals.Options{
		PricesIncludeTax: c.PricesIncludeTax,
		DiscountShipping: c.DiscountShipping,
	}
}

// Calculator builds the configured shipping strategy.
func (c ShippingConfig) Calculator() (shipping.Calculator, error) {
	switch strings.ToLower(c.Kind) {
	case "", "null":
		return shipping.Null{}, nil
	case "fixed":
		amount, err := decimal.NewFromString(c.Amount)
		if err != nil {
			return nil, errors.Wrap(err, "parse shipping amount")
		}
		rate, err := decimal.NewFromString(c.TaxRate)
		if err != nil {
			return nil, errors.Wrap(err, "parse shipping tax rate")
		}
		if amount.IsNegative() || rate.IsNegative() {
			return nil, errors.New("shipping amount and tax rate must not be negative")
		}
		return shipping.Fixed{
			Amount:      amount,
			TaxIncluded: c.TaxIncluded,
			TaxClass:    money.TaxClass{ID: "shipping", Name: "Shipping", Rate: rate},
		}, nil
	default:
		return nil, errors.Errorf("unknown shipping kind %q", c.Kind)
	}
}

// LineItem is one parsed entry of QuoteConfig.Items.
type LineItem struct {
	VariationID string
	Quantity    int
}

// LineItems parses Items. An entry without a quantity counts as one.
func (c QuoteConfig) LineItems() ([]LineItem, error) {
	items := make([]LineItem, 0, len(c.Items))
	for _, raw := range c.Items {
		id, qty, found := strings.Cut(strings.TrimSpace(raw), ":")
		if id == "" {
			return nil, errors.Errorf("item %q: missing variation", raw)
		}
		item := LineItem{VariationID: id, Quantity: 1}
		if found {
			n, err := strconv.Atoi(qty)
			if err != nil {
				return nil, errors.Wrapf(err, "item %q: parse quantity", raw)
			}
			item.Quantity = n
		}
		items = append(items, item)
	}
	return items, nil
}
