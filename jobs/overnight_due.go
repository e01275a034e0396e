package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/rimworks/rimworks/internal/workshop"
)

// OvernightScanner lists open overnight jobs due before a deadline.
type OvernightScanner interface {
	ListOvernightDueBefore(ctx context.Context, deadline time.Time) ([]workshop.Job, error)
}

// OvernightDueScanJob surfaces overnight jobs whose due date is inside the
// warning window so the morning shift sees them before customers do.
type OvernightDueScanJob struct {
	scanner OvernightScanner
	logger  *slog.Logger
	window  time.Duration
}

// NewOvernightDueScanJob constructs the job. window <= 0 defaults to 2h.
func NewOvernightDueScanJob(scanner OvernightScanner, logger *slog.Logger, window time.Duration) *OvernightDueScanJob {
	if window <= 0 {
		window = 2 * time.Hour
	}
	return &OvernightDueScanJob{scanner: scanner, logger: logger, window: window}
}

// Handle processes TaskOvernightDueScan tasks.
func (j *OvernightDueScanJob) Handle(ctx context.Context, _ *asynq.Task) error {
	deadline := time.Now().Add(j.window)
	jobs, err := j.scanner.ListOvernightDueBefore(ctx, deadline)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		j.logger.Debug("overnight scan clean")
		return nil
	}
	for _, job := range jobs {
		j.logger.Warn("overnight job due",
			slog.Int64("job_id", job.ID),
			slog.Int64("invoice_id", job.InvoiceID),
			slog.String("status", string(job.Status)),
			slog.Time("due_date", *job.DueDate))
	}
	return nil
}
