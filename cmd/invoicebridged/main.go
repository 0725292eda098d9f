package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomide-ak/invoice-bridge/internal/advisor"
	"github.com/tomide-ak/invoice-bridge/internal/advisor/openai"
	"github.com/tomide-ak/invoice-bridge/internal/common"
	"github.com/tomide-ak/invoice-bridge/internal/export"
	"github.com/tomide-ak/invoice-bridge/internal/pipeline"
	"github.com/tomide-ak/invoice-bridge/internal/repository"
	"github.com/tomide-ak/invoice-bridge/internal/server"
	"github.com/tomide-ak/invoice-bridge/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("config.invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcomes, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("db.open.failed", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	store, err := storage.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.ConvertedDir, logger)
	if err != nil {
		logger.Error("storage.init.failed", "error", err)
		os.Exit(1)
	}

	var corrector advisor.Corrector
	if cfg.Advisor.Enabled {
		corrector = openai.NewClient(openai.Config{
			APIKey:  cfg.Advisor.APIKey,
			BaseURL: cfg.Advisor.BaseURL,
			Model:   cfg.Advisor.Model,
			Timeout: cfg.Advisor.Timeout,
		}, logger)
		logger.Info("advisor.enabled", "model", cfg.Advisor.Model)
	} else {
		logger.Info("advisor.disabled")
	}

	orchestrator := pipeline.New(store, outcomes, corrector, logger)
	exporter := export.NewService(outcomes, logger)
	srv := server.New(orchestrator, outcomes, exporter, logger).
		WithDefaultStrict(cfg.Server.StrictValidation)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http.serving", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http.serve.failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http.shutdown.failed", "error", err)
	}
	logger.Info("stopped")
}

// openRepository picks the outcome store by configured driver and ensures
// the schema exists before serving.
func openRepository(ctx context.Context, cfg *common.Config, logger *slog.Logger) (repository.OutcomeRepository, func(), error) {
	switch cfg.Database.Driver {
	case "sqlite":
		repo, err := repository.OpenSQLite(cfg.Database.DSN, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = repo.Close()
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	default:
		pool, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
		repo := repository.NewPostgresOutcomes(pool, logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil
	}
}
