package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is money received, or about to be received, for an order.
type Payment struct {
	ID            string          `json:"id"`
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
	Module        string          `json:"module,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Authorized    *time.Time      `json:"authorized,omitempty"`
}

// AddPayment records a payment.
func (o *Order) AddPayment(p Payment) {
	o.payments = append(o.payments, p)
}

// Payments returns the recorded payments.
func (o *Order) Payments() []Payment {
	return o.payments
}

// Paid sums authorized payments in the order currency. Payments in any
// other currency are not counted.
func (o *Order) Paid() decimal.Decimal {
	paid := decimal.Zero
	for _, p := range o.payments {
		if p.Authorized == nil || p.Currency != o.Currency {
			continue
		}
		paid = paid.Add(p.Amount)
	}
	return paid
}

// BalanceRemaining is the last recalculated total minus what has been paid.
func (o *Order) BalanceRemaining() decimal.Decimal {
	return o.Total.Sub(o.Paid())
}

// IsPaid reports whether nothing is left to pay.
func (o *Order) IsPaid() bool {
	return !o.BalanceRemaining().IsPositive()
}
