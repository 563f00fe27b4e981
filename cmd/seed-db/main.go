package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/options-product/internal/domain/price"
	"github.com/xenking/options-product/internal/repository"
)

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, catalogFile); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}

	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, catalogFile string) error {
	lg.Info("Reading catalog file", zap.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}
	c, err := parseCatalog(data)
	if err != nil {
		return errors.Wrap(err, "parse catalog")
	}

	lg.Info("Connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, lg, repository.NewCatalogWriter(pool), c); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedDiscounts(ctx, lg, repository.NewDiscountRepository(pool), c); err != nil {
		return errors.Wrap(err, "seed discounts")
	}
	if err := reportPrices(ctx, lg, price.NewResolver(repository.NewPriceRepository(pool)), c); err != nil {
		return errors.Wrap(err, "report prices")
	}

	return nil
}

func seedCatalog(ctx context.Context, lg *zap.Logger, w *repository.CatalogWriter, c *catalog) error {
	for _, tc := range c.TaxClasses {
		if err := w.UpsertTaxClass(ctx, tc); err != nil {
			return err
		}
	}
	for _, cat := range c.Categories {
		if err := w.UpsertCategory(ctx, cat); err != nil {
			return err
		}
	}
	for _, g := range c.OptionGroups {
		if err := w.UpsertOptionGroup(ctx, g); err != nil {
			return err
		}
	}

	lg.Info("Upserting products", zap.Int("count", len(c.Products)))

	for _, p := range c.Products {
		if err := w.ReplaceProduct(ctx, p.Product, p.Variations, p.Prices); err != nil {
			return err
		}

		lg.Info("Upserted product",
			zap.String("id", p.Product.ID),
			zap.Int("variations", len(p.Variations)),
			zap.Int("prices", len(p.Prices)),
		)
	}
	return nil
}

func seedDiscounts(ctx context.Context, lg *zap.Logger, repo *repository.DiscountRepository, c *catalog) error {
	for _, d := range c.Discounts {
		if err := repo.Upsert(ctx, d); err != nil {
			return err
		}

		lg.Info("Upserted discount", zap.String("code", d.Code), zap.String("type", string(d.Type)))
	}
	return nil
}
