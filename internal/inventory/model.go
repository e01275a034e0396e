package inventory

import "time"

// RecordType distinguishes the two daily reconciliation snapshots.
type RecordType string

const (
	TypeEOD RecordType = "eod"
	TypeSOD RecordType = "sod"
)

// InventoryRecord is one reconciliation snapshot. At most one record per
// (type, date); the discrepancy fields are derived by the service, never
// accepted from callers.
type InventoryRecord struct {
	ID                      int64      `json:"id"`
	Type                    RecordType `json:"type"`
	RecordDate              time.Time  `json:"record_date"`
	RimCount                int        `json:"rim_count"`
	UnfinishedOvernightJobs int        `json:"unfinished_overnight_jobs"`
	PreviousEODID           *int64     `json:"previous_eod_id"`
	HasDiscrepancy          bool       `json:"has_discrepancy"`
	DiscrepancyNotes        string     `json:"discrepancy_notes,omitempty"`
	RecordedBy              int64      `json:"recorded_by"`
	CreatedAt               time.Time  `json:"created_at"`
}

// CreateRecordRequest carries the caller-supplied fields of a snapshot.
// Notes are kept only when the service detects a discrepancy.
type CreateRecordRequest struct {
	RecordDate time.Time
	RimCount   int
	Notes      string
	RecordedBy int64
}

// ListRecordsRequest filters the reconciliation history.
type ListRecordsRequest struct {
	Type   *RecordType
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}
