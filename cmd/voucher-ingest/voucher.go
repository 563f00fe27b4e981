package main

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/options-product/internal/domain/discount"
	"github.com/xenking/options-product/internal/domain/money"
	"github.com/xenking/options-product/internal/domain/order"
)

const (
	minCodeLen = 6
	maxCodeLen = 32
)

// voucher is one prepaid code read from a file.
type voucher struct {
	code  string
	value decimal.Decimal
}

func (v voucher) discount(currency string, tc money.TaxClass, maxUses int) discount.Discount {
	return discount.Discount{
		Code:        v.code,
		Name:        "Voucher " + v.code,
		Type:        discount.Prepaid,
		Value:       v.value,
		Currency:    currency,
		TaxClass:    &tc,
		IsActive:    true,
		MaxUses:     maxUses,
		Restriction: order.Restriction{Kind: order.RestrictNone},
	}
}

// parseLine reads "CODE" or "CODE,VALUE". Blank lines and lines starting
// with # are skipped.
func parseLine(line string, defaultValue decimal.Decimal) (voucher, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return voucher{}, false, nil
	}

	code, rawValue, hasValue := strings.Cut(line, ",")
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < minCodeLen || len(code) > maxCodeLen {
		return voucher{}, false, errors.Errorf("code %q: length must be between %d and %d", code, minCodeLen, maxCodeLen)
	}

	v := voucher{code: code, value: defaultValue}
	if hasValue {
		value, err := decimal.NewFromString(strings.TrimSpace(rawValue))
		if err != nil {
			return voucher{}, false, errors.Wrapf(err, "code %q: parse value", code)
		}
		v.value = value
	}
	return v, true, nil
}

// readVouchers streams all files concurrently and merges their vouchers.
// A code listed more than once keeps its first occurrence in file order.
func readVouchers(ctx context.Context, lg *zap.Logger, files []string, defaultValue decimal.Decimal) ([]voucher, int, error) {
	perFile := make([][]voucher, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			var (
				vouchers []voucher
				lineNo   int
			)
			err := streamGzFile(ctx, path, func(line string) error {
				lineNo++
				v, ok, err := parseLine(line, defaultValue)
				if err != nil {
					return errors.Wrapf(err, "%s:%d", path, lineNo)
				}
				if ok {
					vouchers = append(vouchers, v)
				}
				return nil
			})
			if err != nil {
				return err
			}

			lg.Info("File read", zap.String("path", path), zap.Int("vouchers", len(vouchers)))
			perFile[i] = vouchers
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var (
		merged []voucher
		dups   int
		seen   = make(map[string]struct{})
	)
	for _, vouchers := range perFile {
		for _, v := range vouchers {
			if _, ok := seen[v.code]; ok {
				dups++
				continue
			}
			seen[v.code] = struct{}{}
			merged = append(merged, v)
		}
	}
	return merged, dups, nil
}

// skipExisting drops vouchers whose code is already stored. The filter
// answers most lookups; a positive answer is confirmed with exists.
func skipExisting(
	ctx context.Context,
	vouchers []voucher,
	filter *bloom.BloomFilter,
	exists func(ctx context.Context, code string) (bool, error),
) ([]voucher, error) {
	fresh := make([]voucher, 0, len(vouchers))
	for _, v := range vouchers {
		if filter.TestString(v.code) {
			ok, err := exists(ctx, v.code)
			if err != nil {
				return nil, errors.Wrapf(err, "look up %s", v.code)
			}
			if ok {
				continue
			}
		}
		fresh = append(fresh, v)
	}
	return fresh, nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
