package jobs

import "github.com/hibiken/asynq"

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOvernightDueScan flags overnight jobs approaching their due date.
	TaskOvernightDueScan = "workshop:overnight_due_scan"
	// TaskMissingEODCheck reminds the floor when no end-of-day record was
	// filed for the current date.
	TaskMissingEODCheck = "inventory:missing_eod_check"
)

// NewOvernightDueScanTask constructs the scan task. The payload is empty;
// the handler derives its window from the clock.
func NewOvernightDueScanTask() *asynq.Task {
	return asynq.NewTask(TaskOvernightDueScan, nil)
}

// NewMissingEODCheckTask constructs the reminder task.
func NewMissingEODCheckTask() *asynq.Task {
	return asynq.NewTask(TaskMissingEODCheck, nil)
}
