package main

import (
	"context"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/options-product/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}

		env, err := appkg.New(ctx, lg, m, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		invoice, err := appkg.Quote(ctx, env.Service, cfg)
		if err != nil {
			return err
		}
		if _, err := os.Stdout.Write(append(invoice, '\n')); err != nil {
			return errors.Wrap(err, "write invoice")
		}
		return nil
	})
}
