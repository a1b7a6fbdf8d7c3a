package main

import (
	"context"
	"fmt"
	"os"

	"github.com/noah-isme/lexcal-api/internal/bootstrap"
	"github.com/noah-isme/lexcal-api/internal/cli"
	"github.com/noah-isme/lexcal-api/pkg/config"
	"github.com/noah-isme/lexcal-api/pkg/database"
	"github.com/noah-isme/lexcal-api/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	app, err := bootstrap.New(cfg, logr)
	if err != nil {
		return err
	}
	defer app.Close() //nolint:errcheck

	root := cli.NewRootCmd(&cli.App{
		Location: cfg.Location(),
		Migrate: func(ctx context.Context) error {
			return database.Migrate(app.DB)
		},
		Conflicts: app.Conflicts,
		Slots:     app.Slots,
		Exports:   app.Exports,
		Tokens:    app.Tokens,
	})
	return root.ExecuteContext(context.Background())
}
