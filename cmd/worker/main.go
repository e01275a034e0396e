package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/rimworks/rimworks/internal/app"
	"github.com/rimworks/rimworks/internal/inventory"
	"github.com/rimworks/rimworks/internal/platform/db"
	"github.com/rimworks/rimworks/internal/shared"
	"github.com/rimworks/rimworks/internal/workshop"
	"github.com/rimworks/rimworks/jobs"
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

	auditLogger := shared.NewAuditLogger(pool)

	workshopRepo := workshop.NewRepository(pool)
	workshopService := workshop.NewService(workshopRepo, nil, auditLogger)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, workshopService, auditLogger)

	overnightJob := jobs.NewOvernightDueScanJob(workshopRepo, logger, 0)
	missingEODJob := jobs.NewMissingEODCheckJob(inventoryService, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskOvernightDueScan, Handler: overnightJob.Handle},
			{Type: jobs.TaskMissingEODCheck, Handler: missingEODJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/30 * * * *", Task: jobs.NewOvernightDueScanTask()},
			{Spec: "0 22 * * *", Task: jobs.NewMissingEODCheckTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
