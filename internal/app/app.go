package app

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/options-product/internal/domain/order"
	"github.com/xenking/options-product/internal/domain/price"
	"github.com/xenking/options-product/internal/report"
	"github.com/xenking/options-product/internal/repository"
	"github.com/xenking/options-product/internal/shop"
)

// Env is the wired application: storage pool and the shop service on top
// of it.
type Env struct {
	Pool    *pgxpool.Pool
	Service *shop.Service
}

// Close releases the storage pool.
func (e *Env) Close() {
	e.Pool.Close()
}

// New creates all dependencies. It is the single wiring point for the
// application.
func New(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) (*Env, error) {
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}

	if cfg.Migrate {
		lg.Info("Running migrations")
		if err := repository.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
	}

	calc, err := cfg.Shipping.Calculator()
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "shipping")
	}

	svc, err := shop.NewService(shop.Dependencies{
		Products:  repository.NewProductRepository(pool),
		Prices:    price.NewResolver(repository.NewPriceRepository(pool)),
		Discounts: repository.NewDiscountRepository(pool),
		Orders:    repository.NewOrderRepository(pool),
		Stock:     repository.NewStockRepository(pool),
		Shipping:  calc,
	}, cfg.Pricing.Options(), m.TracerProvider(), m.MeterProvider())
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "create shop service")
	}

	return &Env{Pool: pool, Service: svc}, nil
}

// Quote builds or loads the configured order, applies discount codes,
// recalculates and saves it, and returns the rendered invoice.
func Quote(ctx context.Context, svc *shop.Service, cfg *Config) ([]byte, error) {
	lg := zctx.From(ctx)

	orderID := cfg.Quote.OrderID
	if orderID == "" {
		items, err := cfg.Quote.LineItems()
		if err != nil {
			return nil, errors.Wrap(err, "parse items")
		}
		o, err := svc.CreateOrder(ctx, cfg.Quote.Currency)
		if err != nil {
			return nil, errors.Wrap(err, "create order")
		}
		orderID = o.ID
		lg.Info("Order created", zap.String("order_id", orderID))

		for _, it := range items {
			if _, _, err := svc.ModifyItem(ctx, orderID, it.VariationID, it.Quantity, order.Relative); err != nil {
				return nil, errors.Wrapf(err, "add %s", it.VariationID)
			}
		}
	}

	for _, code := range cfg.Quote.Codes {
		if _, err := svc.ApplyDiscount(ctx, orderID, code); err != nil {
			return nil, errors.Wrapf(err, "apply %s", code)
		}
	}

	q, err := svc.Recalculate(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "recalculate")
	}

	lg.Info("Order quoted",
		zap.String("order_id", orderID),
		zap.Stringer("total", q.Totals.Total),
	)
	return report.InvoiceJSON(q.Order, q.Totals, cfg.Pricing.PricesIncludeTax), nil
}
