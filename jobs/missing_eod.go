package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// EODChecker reports whether the end-of-day record exists for a date.
type EODChecker interface {
	HasEODForDate(ctx context.Context, date time.Time) (bool, error)
}

// MissingEODCheckJob runs after closing time and nags when nobody filed
// the end-of-day count. Without that baseline the next morning's
// reconciliation cannot run.
type MissingEODCheckJob struct {
	checker EODChecker
	logger  *slog.Logger
}

// NewMissingEODCheckJob constructs the job.
func NewMissingEODCheckJob(checker EODChecker, logger *slog.Logger) *MissingEODCheckJob {
	return &MissingEODCheckJob{checker: checker, logger: logger}
}

// Handle processes TaskMissingEODCheck tasks.
func (j *MissingEODCheckJob) Handle(ctx context.Context, _ *asynq.Task) error {
	today := time.Now()
	exists, err := j.checker.HasEODForDate(ctx, today)
	if err != nil {
		return err
	}
	if !exists {
		j.logger.Warn("end-of-day record missing", slog.String("record_date", today.Format("2006-01-02")))
	}
	return nil
}
