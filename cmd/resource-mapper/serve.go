package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"resource-mapper/internal/catalog"
	"resource-mapper/internal/config"
	"resource-mapper/internal/host"
	"resource-mapper/internal/idgen"
	"resource-mapper/internal/memstore"
	"resource-mapper/internal/metrics"
	"resource-mapper/internal/schema"
	"resource-mapper/internal/server"
	"resource-mapper/internal/store/postgres"
	"resource-mapper/internal/transform"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		logger := cfg.Logger()
		slog.SetDefault(logger)

		transforms := transform.Default()

		sch, err := loadSchema(cfg.Schema, transforms)
		if err != nil {
			return err
		}

		for _, w := range sch.Warnings.Warnings {
			logger.Warn("schema warning", "diagnostic", w.String())
		}

		cat, err := catalog.LoadFile(cfg.Catalog)
		if err != nil {
			return err
		}

		ids := idgen.Nanoid{Prefixes: cfg.IDPrefixes}

		stores, closeStores, err := openStores(cfg, cat, ids, logger)
		if err != nil {
			return err
		}
		defer closeStores()

		srvCfg := server.Config{
			Schema:     sch,
			Metadata:   cat,
			Access:     cat,
			Stores:     stores,
			Transforms: transforms,
			Logger:     logger,
		}

		if cfg.Metrics {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			m, err := metrics.New(reg)
			if err != nil {
				return fmt.Errorf("register metrics: %w", err)
			}

			srvCfg.Metrics = m
			srvCfg.Gatherer = reg
		}

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           server.New(srvCfg).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr, "scopes", sch.ScopeNames())
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Info("shutting down", "signal", sig.String())
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("HTTP shutdown error", "err", err)
		}

		return nil
	},
}

// loadSchema reads and compiles a schema file.
func loadSchema(path string, transforms *transform.Registry) (*schema.Schema, error) {
	f, err := schema.LoadFile(path)
	if err != nil {
		return nil, err
	}

	return schema.Compile(f, transforms)
}

// openStores picks Postgres when a database URL is configured and the
// in-memory store otherwise.
func openStores(cfg *config.Config, cat *catalog.Catalog, ids idgen.Generator, logger *slog.Logger) (host.Stores, func(), error) {
	if cfg.DatabaseURL != "" {
		store, err := postgres.Open(cfg.DatabaseURL, cat, ids)
		if err != nil {
			return nil, nil, err
		}

		logger.Info("using postgres store")

		return store, func() { store.Close() }, nil
	}

	store := memstore.New(cat, ids)

	if cfg.Seed != "" {
		n, err := store.LoadSeed(cfg.Seed)
		if err != nil {
			return nil, nil, err
		}

		logger.Info("seeded in-memory store", "path", cfg.Seed, "records", n)
	} else {
		logger.Info("using empty in-memory store (RESMAP_DATABASE_URL not set)")
	}

	return store, func() {}, nil
}
