// Package shop orchestrates the pricing domain against storage: it loads
// orders, applies item and discount changes, recalculates totals and saves
// the result.
package shop

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/options-product/internal/domain/discount"
	"github.com/xenking/options-product/internal/domain/order"
	"github.com/xenking/options-product/internal/domain/product"
	"github.com/xenking/options-product/internal/domain/shipping"
	"github.com/xenking/options-product/internal/domain/totals"
)

const instrumentationName = "github.com/xenking/options-product/internal/shop"

// ErrAlreadyConfirmed is returned when confirming an order a second time.
var ErrAlreadyConfirmed = errors.New("order already confirmed")

// StockKeeper tracks stock of variations.
type StockKeeper interface {
	// Decrement removes quantity units of a variation from stock on behalf
	// of an order. Repeated calls for the same order have no effect.
	Decrement(ctx context.Context, variationID, orderID string, quantity int) error
}

// PriceCatalog resolves prices and forgets what it resolved for a product
// on request.
type PriceCatalog interface {
	order.PriceSource
	Invalidate(productID string)
}

// Dependencies are the collaborators of a Service.
type Dependencies struct {
	Products  product.Repository
	Prices    PriceCatalog
	Discounts discount.Repository
	Orders    order.Repository
	Stock     StockKeeper
	Shipping  shipping.Calculator
}

// Quote is an order together with its freshly computed totals.
type Quote struct {
	Order  *order.Order
	Totals totals.Totals
}

// Service encapsulates order pricing use cases.
type Service struct {
	products  product.Repository
	prices    PriceCatalog
	discounts discount.Repository
	orders    order.Repository
	stock     StockKeeper
	shipping  shipping.Calculator
	engine    *discount.Engine
	opts      totals.Options
	now       func() time.Time

	tracer    trace.Tracer
	applied   metric.Int64Counter
	confirmed metric.Int64Counter
}

// NewService creates a Service. The tax basis and shipping discount
// settings in opts are passed to every recalculation.
func NewService(deps Dependencies, opts totals.Options, tp trace.TracerProvider, mp metric.MeterProvider) (*Service, error) {
	meter := mp.Meter(instrumentationName)
	applied, err := meter.Int64Counter("shop.discounts.applied",
		metric.WithDescription("Discounts attached to orders"))
	if err != nil {
		return nil, errors.Wrap(err, "create applied counter")
	}
	confirmed, err := meter.Int64Counter("shop.orders.confirmed",
		metric.WithDescription("Orders confirmed"))
	if err != nil {
		return nil, errors.Wrap(err, "create confirmed counter")
	}

	ship := deps.Shipping
	if ship == nil {
		ship = shipping.Null{}
	}
	return &Service{
		products:  deps.Products,
		prices:    deps.Prices,
		discounts: deps.Discounts,
		orders:    deps.Orders,
		stock:     deps.Stock,
		shipping:  ship,
		engine:    discount.NewEngine(),
		opts:      opts,
		now:       time.Now,
		tracer:    tp.Tracer(instrumentationName),
		applied:   applied,
		confirmed: confirmed,
	}, nil
}

func (s *Service) start(ctx context.Context, name, orderID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "shop."+name, trace.WithAttributes(attribute.String("order.id", orderID)))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// CreateOrder creates and stores an empty draft order.
func (s *Service) CreateOrder(ctx context.Context, currency string) (*order.Order, error) {
	o := order.New(uuid.New().String(), currency, s.now())

	ctx, span := s.start(ctx, "CreateOrder", o.ID)
	defer span.End()

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fail(span, errors.Wrap(err, "create order"))
	}
	zctx.From(ctx).Info("Order created", zap.String("order_id", o.ID), zap.String("currency", currency))
	return o, nil
}

// ModifyItem changes the quantity of a variation in a draft order and
// returns the resulting line item. Discounts are reallocated and totals
// recalculated before the order is saved.
func (s *Service) ModifyItem(ctx context.Context, orderID, variationID string, quantity int, mode order.QuantityMode) (*order.LineItem, *Quote, error) {
	ctx, span := s.start(ctx, "ModifyItem", orderID)
	defer span.End()
	span.SetAttributes(attribute.String("variation.id", variationID), attribute.Int("quantity", quantity))

	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, nil, fail(span, err)
	}
	v, err := s.products.GetVariation(ctx, variationID)
	if err != nil {
		return nil, nil, fail(span, errors.Wrap(err, "get variation"))
	}

	item, err := o.ModifyItem(ctx, s.prices, *v, quantity, mode)
	if err != nil {
		return nil, nil, fail(span, err)
	}
	if err := discount.CheckAttached(o); err != nil {
		return nil, nil, fail(span, err)
	}

	q, err := s.recalculateAndSave(ctx, o)
	if err != nil {
		return nil, nil, fail(span, err)
	}
	zctx.From(ctx).Debug("Item modified",
		zap.String("order_id", o.ID),
		zap.String("variation_id", variationID),
		zap.Int("quantity", item.Quantity),
	)
	return item, q, nil
}

// RefreshPrices re-captures current prices for every item of a draft order.
// Prices memoized for the order's products are dropped first.
func (s *Service) RefreshPrices(ctx context.Context, orderID string) (*Quote, error) {
	ctx, span := s.start(ctx, "RefreshPrices", orderID)
	defer span.End()

	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, fail(span, err)
	}
	for _, it := range o.Items() {
		s.prices.Invalidate(it.ProductID)
	}
	if err := o.RefreshPrices(ctx, s.prices); err != nil {
		return nil, fail(span, err)
	}
	q, err := s.recalculateAndSave(ctx, o)
	if err != nil {
		return nil, fail(span, err)
	}
	return q, nil
}

// ApplyDiscount attaches the discount with the given code. Applying a code
// that is already attached replaces its allocation.
func (s *Service) ApplyDiscount(ctx context.Context, orderID, code string) (*Quote, error) {
	ctx, span := s.start(ctx, "ApplyDiscount", orderID)
	defer span.End()
	span.SetAttributes(attribute.String("discount.code", code))

	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, fail(span, err)
	}
	d, err := s.discounts.FindByCode(ctx, code)
	if err != nil {
		return nil, fail(span, errors.Wrap(err, "find discount"))
	}
	if err := s.engine.AddTo(d, o); err != nil {
		return nil, fail(span, err)
	}

	q, err := s.recalculateAndSave(ctx, o)
	if err != nil {
		return nil, fail(span, err)
	}
	s.applied.Add(ctx, 1, metric.WithAttributes(attribute.String("discount.type", string(d.Type))))
	zctx.From(ctx).Info("Discount applied",
		zap.String("order_id", o.ID),
		zap.String("code", code),
		zap.String("type", string(d.Type)),
		zap.Stringer("total", q.Totals.Total),
	)
	return q, nil
}

// RemoveDiscount detaches a discount from a draft order.
func (s *Service) RemoveDiscount(ctx context.Context, orderID, code string) (*Quote, error) {
	ctx, span := s.start(ctx, "RemoveDiscount", orderID)
	defer span.End()

	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, fail(span, err)
	}
	if err := o.ValidateBase(); err != nil {
		return nil, fail(span, err)
	}
	if !o.DetachDiscount(code) {
		return nil, fail(span, errors.Wrapf(discount.ErrNotFound, "discount %s is not attached", code))
	}
	q, err := s.recalculateAndSave(ctx, o)
	if err != nil {
		return nil, fail(span, err)
	}
	return q, nil
}

// Recalculate reallocates discounts, recomputes the totals of an order and
// saves the new total.
func (s *Service) Recalculate(ctx context.Context, orderID string) (*Quote, error) {
	ctx, span := s.start(ctx, "Recalculate", orderID)
	defer span.End()

	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, fail(span, err)
	}
	q, err := s.recalculateAndSave(ctx, o)
	if err != nil {
		return nil, fail(span, err)
	}
	return q, nil
}

// Quote computes the totals of an order without saving it.
func (s *Service) Quote(ctx context.Context, orderID string) (*Quote, error) {
	ctx, span := s.start(ctx, "Quote", orderID)
	defer span.End()

	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, fail(span, err)
	}
	return s.recalculate(o), nil
}

// Checkout moves a draft order to checkout.
func (s *Service) Checkout(ctx context.Context, orderID string) (*Quote, error) {
	ctx, span := s.start(ctx, "Checkout", orderID)
	defer span.End()

	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, fail(span, err)
	}
	if err := o.UpdateStatus(order.StatusCheckoutStarted, "", s.now()); err != nil {
		return nil, fail(span, err)
	}
	q, err := s.recalculateAndSave(ctx, o)
	if err != nil {
		return nil, fail(span, err)
	}
	return q, nil
}

// Confirm confirms an order, counts a use of every attached discount and
// takes the ordered quantities out of stock. The side effects are keyed by
// order, so a confirmation that failed to save can be retried.
func (s *Service) Confirm(ctx context.Context, orderID string) (*Quote, error) {
	ctx, span := s.start(ctx, "Confirm", orderID)
	defer span.End()
	lg := zctx.From(ctx)

	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, fail(span, err)
	}
	if o.Status >= order.StatusConfirmed {
		return nil, fail(span, errors.Wrapf(ErrAlreadyConfirmed, "order %s is %s", o.ID, o.Status))
	}
	if err := o.UpdateStatus(order.StatusConfirmed, "", s.now()); err != nil {
		return nil, fail(span, err)
	}
	q := s.recalculate(o)

	for _, d := range o.Discounts() {
		if err := s.discounts.IncrementUses(ctx, d.Code, o.ID); err != nil {
			return nil, fail(span, errors.Wrapf(err, "increment uses of %s", d.Code))
		}
	}
	for _, it := range o.Items() {
		if err := s.stock.Decrement(ctx, it.VariationID, o.ID, it.Quantity); err != nil {
			return nil, fail(span, errors.Wrapf(err, "decrement stock of %s", it.VariationID))
		}
	}
	o.UpdatedAt = s.now()
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, fail(span, errors.Wrap(err, "save order"))
	}

	s.confirmed.Add(ctx, 1, metric.WithAttributes(attribute.String("currency", o.Currency)))
	lg.Info("Order confirmed",
		zap.String("order_id", o.ID),
		zap.Int("items", len(o.Items())),
		zap.Stringer("total", q.Totals.Total),
	)
	return q, nil
}

// RecordPayment adds a payment to an order. A confirmed order that is fully
// paid moves to Paid.
func (s *Service) RecordPayment(ctx context.Context, orderID string, p order.Payment) (*order.Order, error) {
	ctx, span := s.start(ctx, "RecordPayment", orderID)
	defer span.End()
	lg := zctx.From(ctx)

	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, fail(span, err)
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	o.AddPayment(p)
	if p.Currency != o.Currency {
		lg.Warn("Payment currency differs from order currency",
			zap.String("order_id", o.ID),
			zap.String("payment_currency", p.Currency),
			zap.String("order_currency", o.Currency),
		)
		o.Notes += "Currency of payment " + p.ID + " does not match.\n"
	}
	if o.Status == order.StatusConfirmed && o.IsPaid() {
		if err := o.UpdateStatus(order.StatusPaid, "", s.now()); err != nil {
			return nil, fail(span, err)
		}
	}

	o.UpdatedAt = s.now()
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, fail(span, errors.Wrap(err, "save order"))
	}
	return o, nil
}

func (s *Service) load(ctx context.Context, orderID string) (*order.Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

func (s *Service) recalculate(o *order.Order) *Quote {
	discount.Reallocate(o)
	t := totals.Recalculate(o, s.shipping, s.opts)
	o.Total = t.Total
	return &Quote{Order: o, Totals: t}
}

func (s *Service) recalculateAndSave(ctx context.Context, o *order.Order) (*Quote, error) {
	q := s.recalculate(o)
	o.UpdatedAt = s.now()
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, errors.Wrap(err, "save order")
	}
	return q, nil
}
