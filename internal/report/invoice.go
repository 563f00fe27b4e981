// Package report renders priced orders for documents such as invoices.
package report

import (
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/options-product/internal/domain/money"
	"github.com/xenking/options-product/internal/domain/order"
	"github.com/xenking/options-product/internal/domain/totals"
)

// Invoice writes o and its totals as an invoice JSON document. Amounts are
// strings with two decimal places. Empty orders render with empty item and
// tax lists.
func Invoice(e *jx.Encoder, o *order.Order, t totals.Totals, pricesIncludeTax bool) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("order_id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("status", func(e *jx.Encoder) { e.Str(o.Status.String()) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(o.Currency) })
		e.Field("created_at", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format("2006-01-02")) })
		e.Field("prices_include_tax", func(e *jx.Encoder) { e.Bool(pricesIncludeTax) })

		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items() {
					encodeItem(e, it, pricesIncludeTax)
				}
			})
		})
		e.Field("discounts", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, d := range o.Discounts() {
					e.Obj(func(e *jx.Encoder) {
						e.Field("code", func(e *jx.Encoder) { e.Str(d.Code) })
						e.Field("name", func(e *jx.Encoder) { e.Str(d.Name) })
						e.Field("type", func(e *jx.Encoder) { e.Str(string(d.Type)) })
						e.Field("value", func(e *jx.Encoder) { amount(e, d.Value) })
					})
				}
			})
		})

		e.Field("subtotal", func(e *jx.Encoder) { amount(e, t.Subtotal) })
		e.Field("discount", func(e *jx.Encoder) { amount(e, t.Discount) })
		e.Field("shipping", func(e *jx.Encoder) { amount(e, t.Shipping) })
		e.Field("shipping_discount", func(e *jx.Encoder) { amount(e, t.ShippingDiscount) })
		e.Field("tax", func(e *jx.Encoder) { amount(e, t.Tax) })
		e.Field("tax_details", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, g := range t.TaxBreakdown {
					e.Obj(func(e *jx.Encoder) {
						e.Field("rate", func(e *jx.Encoder) { e.Str(g.Rate.String()) })
						e.Field("tax_amount", func(e *jx.Encoder) { amount(e, g.Tax) })
						e.Field("total", func(e *jx.Encoder) { amount(e, g.Total) })
					})
				}
			})
		})
		e.Field("total", func(e *jx.Encoder) { amount(e, t.Total) })
		e.Field("discount_remaining", func(e *jx.Encoder) { amount(e, t.DiscountRemaining) })
		e.Field("paid", func(e *jx.Encoder) { amount(e, o.Paid()) })
		e.Field("balance_remaining", func(e *jx.Encoder) { amount(e, t.Total.Sub(o.Paid())) })
	})
}

// InvoiceJSON renders the invoice into a new buffer.
func InvoiceJSON(o *order.Order, t totals.Totals, pricesIncludeTax bool) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.SetIdent(2)

	Invoice(e, o, t, pricesIncludeTax)
	return append([]byte(nil), e.Bytes()...)
}

func encodeItem(e *jx.Encoder, it *order.LineItem, inclTax bool) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("sku", func(e *jx.Encoder) { e.Str(it.SKU) })
		e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
		e.Field("unit_price", func(e *jx.Encoder) { amount(e, it.UnitPrice().In(inclTax)) })
		e.Field("tax_rate", func(e *jx.Encoder) { e.Str(it.TaxRate().String()) })
		e.Field("subtotal", func(e *jx.Encoder) { amount(e, it.Subtotal().In(inclTax)) })
		e.Field("discount", func(e *jx.Encoder) { amount(e, it.Discount().In(inclTax)) })
		e.Field("total", func(e *jx.Encoder) { amount(e, it.DiscountedSubtotal().In(inclTax)) })
		e.Field("is_sale", func(e *jx.Encoder) { e.Bool(it.IsSale) })
	})
}

func amount(e *jx.Encoder, d decimal.Decimal) {
	e.Str(money.Round(d).StringFixed(money.MinorUnits))
}
