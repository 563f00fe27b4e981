package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/options-product/internal/domain/discount"
	"github.com/xenking/options-product/internal/domain/money"
	"github.com/xenking/options-product/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000
)

type options struct {
	databaseURL string
	files       []string
	currency    string
	taxClass    string
	taxRate     string
	value       string
	maxUses     int
}

func main() {
	var (
		opts  options
		files string
	)

	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&files, "files", "", "comma-separated gzip files with one CODE[,VALUE] per line")
	flag.StringVar(&opts.currency, "currency", "EUR", "currency of the vouchers")
	flag.StringVar(&opts.taxClass, "tax-class", "vat19", "tax class of the vouchers")
	flag.StringVar(&opts.taxRate, "tax-rate", "19", "rate of the tax class")
	flag.StringVar(&opts.value, "value", "25", "voucher value when a line has none")
	flag.IntVar(&opts.maxUses, "max-uses", 1, "uses per voucher, 0 for unlimited")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	for _, f := range strings.Split(files, ",") {
		if f = strings.TrimSpace(f); f != "" {
			opts.files = append(opts.files, f)
		}
	}
	if len(opts.files) == 0 {
		lg.Fatal("At least one voucher file is required: set --files")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts); err != nil {
		lg.Fatal("Voucher ingest failed", zap.Error(err))
	}

	lg.Info("Voucher ingest completed")
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	for _, f := range opts.files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	defaultValue, err := decimal.NewFromString(opts.value)
	if err != nil {
		return errors.Wrap(err, "parse value")
	}
	rate, err := decimal.NewFromString(opts.taxRate)
	if err != nil {
		return errors.Wrap(err, "parse tax rate")
	}

	lg.Info("Reading voucher files", zap.Int("files", len(opts.files)))

	vouchers, dups, err := readVouchers(ctx, lg, opts.files, defaultValue)
	if err != nil {
		return errors.Wrap(err, "read vouchers")
	}

	lg.Info("Vouchers read", zap.Int("unique", len(vouchers)), zap.Int("duplicates", dups))

	pool, err := repository.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := repository.NewDiscountRepository(pool)

	existing := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	if err := repo.ListCodes(ctx, func(code string) { existing.AddString(code) }); err != nil {
		return errors.Wrap(err, "load existing codes")
	}

	fresh, err := skipExisting(ctx, vouchers, existing, func(ctx context.Context, code string) (bool, error) {
		_, err := repo.FindByCode(ctx, code)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, discount.ErrNotFound):
			return false, nil
		default:
			return false, err
		}
	})
	if err != nil {
		return errors.Wrap(err, "filter existing codes")
	}

	lg.Info("Writing vouchers",
		zap.Int("new", len(fresh)),
		zap.Int("existing", len(vouchers)-len(fresh)),
	)

	tc := money.TaxClass{ID: opts.taxClass, Rate: rate}
	for i, v := range fresh {
		d := v.discount(opts.currency, tc, opts.maxUses)
		if err := d.CheckConfig(); err != nil {
			return errors.Wrapf(err, "voucher %s", v.code)
		}
		if err := repo.Upsert(ctx, d); err != nil {
			return errors.Wrapf(err, "upsert voucher %s", v.code)
		}

		if (i+1)%progressEvery == 0 || i+1 == len(fresh) {
			lg.Info("Write progress", zap.Int("written", i+1), zap.Int("total", len(fresh)))
		}
	}

	return nil
}
