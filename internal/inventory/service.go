package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rimworks/rimworks/internal/fault"
	"github.com/rimworks/rimworks/internal/shared"
)

// WorkshopPort supplies the overnight-job snapshot recorded with every
// reconciliation row.
type WorkshopPort interface {
	UnfinishedOvernightCount(ctx context.Context) (int, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the daily inventory reconciliation. One EOD and one SOD per
// calendar date; the SOD count reconciles against the latest EOD baseline.
type Service struct {
	repo     Repository
	workshop WorkshopPort
	audit    AuditPort
}

// NewService builds Service.
func NewService(repo Repository, workshop WorkshopPort, audit AuditPort) *Service {
	return &Service{repo: repo, workshop: workshop, audit: audit}
}

// CreateEOD records the end-of-day rim count. The unfinished overnight job
// count is snapshotted at write time so the row explains itself later.
func (s *Service) CreateEOD(ctx context.Context, req CreateRecordRequest) (*InventoryRecord, error) {
	date := dateOnly(req.RecordDate)

	exists, err := s.repo.ExistsForDate(ctx, TypeEOD, date)
	if err != nil {
		return nil, fmt.Errorf("check eod: %w", err)
	}
	if exists {
		return nil, fault.EODAlreadyExists{RecordDate: date}
	}

	overnight, err := s.workshop.UnfinishedOvernightCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot overnight jobs: %w", err)
	}

	id, err := s.repo.Create(ctx, InventoryRecord{
		Type:                    TypeEOD,
		RecordDate:              date,
		RimCount:                req.RimCount,
		UnfinishedOvernightJobs: overnight,
		RecordedBy:              req.RecordedBy,
	})
	if err != nil {
		// Unique (type, record_date) backs the exists check against a
		// concurrent submission.
		if errors.Is(err, ErrDuplicate) {
			return nil, fault.EODAlreadyExists{RecordDate: date}
		}
		return nil, fmt.Errorf("create eod: %w", err)
	}

	s.recordAudit(ctx, req.RecordedBy, "inventory:eod", id, map[string]any{
		"record_date": date.Format("2006-01-02"),
		"rim_count":   req.RimCount,
	})
	return s.repo.Get(ctx, id)
}

// CreateSOD records the start-of-day rim count and reconciles it against
// the latest EOD baseline. A mismatch sets the discrepancy flag and keeps
// the submitted notes; matching counts discard them.
func (s *Service) CreateSOD(ctx context.Context, req CreateRecordRequest) (*InventoryRecord, error) {
	date := dateOnly(req.RecordDate)

	exists, err := s.repo.ExistsForDate(ctx, TypeSOD, date)
	if err != nil {
		return nil, fmt.Errorf("check sod: %w", err)
	}
	if exists {
		return nil, fault.SODAlreadyExists{RecordDate: date}
	}

	baseline, err := s.repo.LatestEOD(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fault.EODNotFound{RecordDate: date}
		}
		return nil, fmt.Errorf("load eod baseline: %w", err)
	}

	overnight, err := s.workshop.UnfinishedOvernightCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot overnight jobs: %w", err)
	}

	discrepant := req.RimCount != baseline.RimCount
	notes := ""
	if discrepant {
		notes = req.Notes
	}

	id, err := s.repo.Create(ctx, InventoryRecord{
		Type:                    TypeSOD,
		RecordDate:              date,
		RimCount:                req.RimCount,
		UnfinishedOvernightJobs: overnight,
		PreviousEODID:           &baseline.ID,
		HasDiscrepancy:          discrepant,
		DiscrepancyNotes:        notes,
		RecordedBy:              req.RecordedBy,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, fault.SODAlreadyExists{RecordDate: date}
		}
		return nil, fmt.Errorf("create sod: %w", err)
	}

	s.recordAudit(ctx, req.RecordedBy, "inventory:sod", id, map[string]any{
		"record_date":     date.Format("2006-01-02"),
		"rim_count":       req.RimCount,
		"baseline_count":  baseline.RimCount,
		"has_discrepancy": discrepant,
	})
	return s.repo.Get(ctx, id)
}

// HasEODForDate reports whether the end-of-day record was filed.
func (s *Service) HasEODForDate(ctx context.Context, date time.Time) (bool, error) {
	return s.repo.ExistsForDate(ctx, TypeEOD, dateOnly(date))
}

// List returns reconciliation records matching the filter.
func (s *Service) List(ctx context.Context, req ListRecordsRequest) ([]InventoryRecord, int, error) {
	return s.repo.List(ctx, req)
}

// dateOnly truncates to the calendar date in UTC so two submissions on the
// same day always collide regardless of clock time.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "inventory_record",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
	})
}
