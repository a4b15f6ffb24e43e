package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lixing-Zhang/products-api/internal/middleware"
	"github.com/Lixing-Zhang/products-api/internal/seed"
	"github.com/Lixing-Zhang/products-api/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const startupTimeout = 30 * time.Second

func newServeCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Prepare the products table and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), open)
		},
	}
}

func runServe(ctx context.Context, open storeOpener) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := bootstrap(ctx, open)
	if err != nil {
		return err
	}
	defer a.shutdown()
	log := a.log

	log.Info("starting products api server",
		zap.String("port", a.cfg.Server.Port),
		zap.String("host", a.cfg.Server.Host),
		zap.String("driver", a.cfg.Database.Driver),
		zap.String("log_level", a.cfg.LogLevel),
	)

	if err := smokeTest(ctx, a); err != nil {
		return err
	}

	if len(a.cfg.Seed.Sources) > 0 {
		if _, err := runSeed(ctx, a, a.cfg.Seed.Sources); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	router := server.NewRouter(a.products, middleware.NewMetrics(reg), log)

	addr := fmt.Sprintf("%s:%s", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.cfg.Server.WriteTimeout) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serverErr:
		if ok {
			log.Error("server failed to start", zap.Error(err))
			return err
		}
		return nil
	case <-quit:
	}

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// smokeTest runs the one-shot startup diagnostics and logs what it found.
func smokeTest(ctx context.Context, a *app) error {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	a.log.Info("checking connection to database and preparing products table")
	report, err := a.products.Startup(ctx)
	if err != nil {
		a.log.Error("startup smoke test failed", zap.Error(err))
		return err
	}

	a.log.Info("database reachable", zap.Time("database_time", report.DatabaseTime))
	for _, c := range report.Columns {
		a.log.Info("products column",
			zap.String("column", c.ColumnName),
			zap.String("type", c.DataType),
			zap.String("nullable", c.IsNullable),
		)
	}

	a.log.Info("products loaded", zap.Int("count", len(report.Products)))
	for _, p := range report.Products {
		a.log.Debug("product",
			zap.Int64("id", p.ID),
			zap.String("name", p.Name),
			zap.String("price", p.Price.StringFixed(2)),
			zap.String("category", p.Category),
		)
	}
	return nil
}

// runSeed loads the seed sources and inserts their products, skipping names
// that already exist.
func runSeed(ctx context.Context, a *app, sources []string) (seed.Result, error) {
	loader := seed.NewLoader(time.Duration(a.cfg.Seed.Timeout) * time.Second)

	products, err := loader.Load(ctx, sources)
	if err != nil {
		a.log.Error("failed to load seed sources", zap.Strings("sources", sources), zap.Error(err))
		return seed.Result{}, err
	}

	res, err := seed.Apply(ctx, a.products, products)
	if err != nil {
		a.log.Error("failed to seed products", zap.Error(err))
		return res, err
	}

	a.log.Info("seed applied",
		zap.Int("sources", len(sources)),
		zap.Int("added", res.Added),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
