package workshop

import "time"

// JobStatus is the server-authoritative lifecycle state of a repair job.
// Transitions happen through the service only; callers never set status.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusAccepted   JobStatus = "accepted"
	StatusInProgress JobStatus = "in_progress"
	StatusCompleted  JobStatus = "completed"
)

// Job is one unit of repair work, created 1:1 from an invoice line item
// when the invoice is sent to the workshop floor.
type Job struct {
	ID            int64      `json:"id"`
	InvoiceID     int64      `json:"invoice_id"`
	InvoiceItemID int64      `json:"invoice_item_id"`
	TechnicianID  *int64     `json:"technician_id"`
	Status        JobStatus  `json:"status"`
	Vehicle       string     `json:"vehicle"`
	Damage        string     `json:"damage"`
	JobTypes      []string   `json:"job_types"`
	Notes         string     `json:"notes"`
	DueDate       *time.Time `json:"due_date"`
	IsOvernight   bool       `json:"is_overnight"`
	AcceptedAt    *time.Time `json:"accepted_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ListJobsRequest filters the job board.
type ListJobsRequest struct {
	InvoiceID    *int64
	TechnicianID *int64
	Status       *JobStatus
	Limit        int
	Offset       int
}
