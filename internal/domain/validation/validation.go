// Package validation carries the error taxonomy shared by the pricing domain.
//
// Checks that can fail independently are collected into a single *Error so
// callers observe every violated rule at once instead of the first one.
package validation

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Kind identifies a class of validation failure.
type Kind string

const (
	KindOrderEmpty        Kind = "order_empty"
	KindOrderSealed       Kind = "order_sealed"
	KindMultipleCurrency  Kind = "multiple_currency"
	KindStatusRegression  Kind = "status_regression"
	KindInvalidQuantity   Kind = "invalid_quantity"
	KindPriceUnavailable  Kind = "price_unavailable"
	KindDiscountInactive  Kind = "discount_inactive"
	KindDiscountNotYet    Kind = "discount_not_yet_valid"
	KindDiscountExpired   Kind = "discount_expired"
	KindDiscountExhausted Kind = "discount_usage_exceeded"
	KindDiscountConfig    Kind = "discount_misconfigured"

	KindVariationDuplicate  Kind = "variation_duplicate"
	KindVariationIncomplete Kind = "variation_incomplete"
	KindVariationAmbiguous  Kind = "variation_ambiguous"
)

// Violation is a single failed rule.
type Violation struct {
	Kind    Kind
	Message string
}

// Error holds all violations found by one validation pass.
type Error struct {
	Violations []Violation
}

// New returns an Error with a single violation.
func New(kind Kind, msg string) *Error {
	return &Error{Violations: []Violation{{Kind: kind, Message: msg}}}
}

// Newf is like New but formats the message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = string(v.Kind) + ": " + v.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Has reports whether any violation is of the given kind.
func (e *Error) Has(kind Kind) bool {
	for _, v := range e.Violations {
		if v.Kind == kind {
			return true
		}
	}
	return false
}

// Kinds lists the violated kinds in report order.
func (e *Error) Kinds() []Kind {
	kinds := make([]Kind, len(e.Violations))
	for i, v := range e.Violations {
		kinds[i] = v.Kind
	}
	return kinds
}

// HasKind reports whether err, or anything it wraps, is an *Error carrying
// a violation of the given kind.
func HasKind(err error, kind Kind) bool {
	var verr *Error
	if !errors.As(err, &verr) {
		return false
	}
	return verr.Has(kind)
}

// Collector accumulates violations across independent checks.
type Collector struct {
	violations []Violation
}

// Add records a violation.
func (c *Collector) Add(kind Kind, msg string) {
	c.violations = append(c.violations, Violation{Kind: kind, Message: msg})
}

// Err returns nil when nothing was recorded.
func (c *Collector) Err() error {
	if len(c.violations) == 0 {
		return nil
	}
	return &Error{Violations: c.violations}
}

// Merge records the violations carried by err and reports whether err was
// a validation error.
func (c *Collector) Merge(err error) bool {
	var verr *Error
	if !errors.As(err, &verr) {
		return false
	}
	c.violations = append(c.violations, verr.Violations...)
	return true
}
