package main

import (
	"context"
	"fmt"

	"github.com/Lixing-Zhang/products-api/internal/config"
	"github.com/Lixing-Zhang/products-api/internal/database"
	"github.com/Lixing-Zhang/products-api/internal/repository"
	"github.com/Lixing-Zhang/products-api/internal/service"
	"github.com/Lixing-Zhang/products-api/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// storeOpener returns the product store selected by cfg and a func that
// releases it.
type storeOpener func(ctx context.Context, cfg config.DatabaseConfig) (repository.ProductRepository, func() error, error)

func openStore(ctx context.Context, cfg config.DatabaseConfig) (repository.ProductRepository, func() error, error) {
	switch cfg.Driver {
	case "memory":
		return repository.NewInMemoryProductRepository(), func() error { return nil }, nil
	case "postgres":
		db, err := database.Open(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresProductRepository(db), func() error { return database.Close(db) }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

// app is what every command needs once configuration is loaded
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	products *service.ProductService
	close    func() error
}

func (a *app) shutdown() {
	if err := a.close(); err != nil {
		a.log.Warn("failed to close product store", zap.Error(err))
	}
	_ = a.log.Sync()
}

func bootstrap(ctx context.Context, open storeOpener) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.LogLevel)

	store, closeStore, err := open(ctx, cfg.Database)
	if err != nil {
		log.Error("failed to open product store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		products: service.NewProductService(store),
		close:    closeStore,
	}, nil
}

func newRootCmd(open storeOpener) *cobra.Command {
	root := &cobra.Command{
		Use:           "products-api",
		Short:         "Product catalog HTTP service",
		Long:          "Serves CRUD operations over the products table, or runs them once from the console.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), open)
		},
	}

	root.AddCommand(newServeCmd(open))
	root.AddCommand(newSchemaCmd(open))
	root.AddCommand(newProductsCmd(open))

	return root
}
