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

	"github.com/rimworks/rimworks/internal/app"
	"github.com/rimworks/rimworks/internal/customers"
	"github.com/rimworks/rimworks/internal/inventory"
	"github.com/rimworks/rimworks/internal/invoices"
	"github.com/rimworks/rimworks/internal/observability"
	"github.com/rimworks/rimworks/internal/payments"
	"github.com/rimworks/rimworks/internal/platform/cache"
	"github.com/rimworks/rimworks/internal/platform/db"
	"github.com/rimworks/rimworks/internal/quotes"
	"github.com/rimworks/rimworks/internal/reporting"
	"github.com/rimworks/rimworks/internal/shared"
	"github.com/rimworks/rimworks/internal/workshop"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, summaries uncached", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	customerRepo := customers.NewRepository(pool)
	customerService := customers.NewService(customerRepo)
	customerHandler := customers.NewHandler(logger, customerService)

	quoteRepo := quotes.NewRepository(pool)
	quoteService := quotes.NewService(quoteRepo, customerRepo)
	quoteHandler := quotes.NewHandler(logger, quoteService)

	invoiceRepo := invoices.NewRepository(pool)
	invoiceService := invoices.NewService(invoiceRepo, quoteRepo, customerRepo, auditLogger)
	invoiceHandler := invoices.NewHandler(logger, invoiceService)

	paymentRepo := payments.NewRepository(pool)
	paymentService := payments.NewService(paymentRepo, auditLogger)
	paymentHandler := payments.NewHandler(logger, paymentService, idempotencyStore)

	workshopRepo := workshop.NewRepository(pool)
	workshopService := workshop.NewService(workshopRepo, invoiceRepo, auditLogger)
	workshopHandler := workshop.NewHandler(logger, workshopService)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, workshopService, auditLogger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	reportingRepo := reporting.NewRepository(pool)
	reportingService := reporting.NewService(reportingRepo, redisClient, cfg.SummaryCacheTTL, logger)
	reportingHandler := reporting.NewHandler(logger, reportingService)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Pool:             pool,
		CustomersHandler: customerHandler,
		QuotesHandler:    quoteHandler,
		InvoicesHandler:  invoiceHandler,
		PaymentsHandler:  paymentHandler,
		WorkshopHandler:  workshopHandler,
		InventoryHandler: inventoryHandler,
		ReportingHandler: reportingHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
