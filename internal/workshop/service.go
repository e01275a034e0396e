package workshop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rimworks/rimworks/internal/fault"
	"github.com/rimworks/rimworks/internal/invoices"
	"github.com/rimworks/rimworks/internal/shared"
)

// InvoicePort is the slice of the invoice repository the workshop needs.
type InvoicePort interface {
	Get(ctx context.Context, id int64) (*invoices.Invoice, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service drives the repair-job lifecycle. Every transition loads the job
// under a row lock and checks the current status server-side; callers only
// name the transition, never the resulting state.
type Service struct {
	repo        Repository
	invoicePort InvoicePort
	audit       AuditPort
}

// NewService builds Service.
func NewService(repo Repository, invoicePort InvoicePort, audit AuditPort) *Service {
	return &Service{repo: repo, invoicePort: invoicePort, audit: audit}
}

// SendToTechnician dispatches an invoice to the workshop floor, creating
// exactly one pending job per invoice line item. A second call fails whole;
// the unique invoice_item_id constraint backs the exists check.
func (s *Service) SendToTechnician(ctx context.Context, invoiceID, actingUserID int64) ([]Job, error) {
	inv, err := s.invoicePort.Get(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, invoices.ErrNotFound) {
			return nil, fault.InvoiceNotFound{InvoiceID: invoiceID}
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if len(inv.Items) == 0 {
		return nil, fault.InvoiceHasNoItems{InvoiceID: invoiceID}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.JobsExistForInvoice(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("check jobs: %w", err)
		}
		if exists {
			return fault.JobsAlreadyCreated{InvoiceID: invoiceID}
		}

		jobs := make([]Job, 0, len(inv.Items))
		for _, it := range inv.Items {
			jobs = append(jobs, Job{
				InvoiceID:     invoiceID,
				InvoiceItemID: it.ID,
				Status:        StatusPending,
				Vehicle:       it.Vehicle,
				Damage:        it.Damage,
				JobTypes:      it.JobTypes,
				Notes:         it.Description,
			})
		}
		if _, err := tx.InsertJobs(ctx, jobs); err != nil {
			if errors.Is(err, ErrItemTaken) {
				return fault.JobsAlreadyCreated{InvoiceID: invoiceID}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actingUserID,
			Action:   "job:send_to_technician",
			Entity:   "invoice",
			EntityID: fmt.Sprintf("%d", invoiceID),
			Meta:     map[string]any{"job_count": len(inv.Items)},
		})
	}

	list, _, err := s.repo.List(ctx, ListJobsRequest{InvoiceID: &invoiceID})
	return list, err
}

// Accept assigns a pending job to a technician.
func (s *Service) Accept(ctx context.Context, jobID, technicianID int64) (*Job, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		job, err := lockJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if job.Status != StatusPending {
			return fault.JobAlreadyAccepted{JobID: jobID}
		}
		return tx.SetAccepted(ctx, jobID, technicianID, time.Now())
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, jobID)
}

// Start moves an accepted job onto the bench. Calling it again while the
// job is in progress is a no-op.
func (s *Service) Start(ctx context.Context, jobID int64) (*Job, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		job, err := lockJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		switch job.Status {
		case StatusCompleted:
			return fault.JobAlreadyCompleted{JobID: jobID}
		case StatusPending:
			return fault.JobNotAccepted{JobID: jobID}
		case StatusInProgress:
			return nil
		}
		return tx.SetStatus(ctx, jobID, StatusInProgress)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, jobID)
}

// Complete finishes a job a technician has taken on.
func (s *Service) Complete(ctx context.Context, jobID int64) (*Job, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		job, err := lockJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		switch job.Status {
		case StatusCompleted:
			return fault.JobAlreadyCompleted{JobID: jobID}
		case StatusPending:
			return fault.JobNotAccepted{JobID: jobID}
		}
		return tx.SetCompleted(ctx, jobID, time.Now())
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, jobID)
}

// SetDueDate sets or clears the job deadline and the overnight flag.
// Unconditional; due dates move freely in any state.
func (s *Service) SetDueDate(ctx context.Context, jobID int64, due *time.Time, overnight bool) (*Job, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := lockJob(ctx, tx, jobID); err != nil {
			return err
		}
		return tx.SetDueDate(ctx, jobID, due, overnight)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, jobID)
}

// AddNote overwrites the job notes verbatim.
func (s *Service) AddNote(ctx context.Context, jobID int64, text string) (*Job, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := lockJob(ctx, tx, jobID); err != nil {
			return err
		}
		return tx.SetNotes(ctx, jobID, text)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, jobID)
}

// Reverse undoes a dispatch mistake: the job returns to pending with its
// technician and timestamps cleared, and the reason is appended to the
// notes so the history stays on the card.
func (s *Service) Reverse(ctx context.Context, jobID int64, reason string, actingUserID int64) (*Job, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		job, err := lockJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if job.Status == StatusPending {
			return fault.JobCannotBeReversed{JobID: jobID}
		}

		notes := "[REVERSED]: " + reason
		if job.Notes != "" {
			notes = job.Notes + "\n" + notes
		}
		return tx.ResetToPending(ctx, jobID, notes)
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actingUserID,
			Action:   "job:reverse",
			Entity:   "job",
			EntityID: fmt.Sprintf("%d", jobID),
			Meta:     map[string]any{"reason": reason},
		})
	}
	return s.repo.Get(ctx, jobID)
}

// Get loads one job.
func (s *Service) Get(ctx context.Context, jobID int64) (*Job, error) {
	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fault.JobNotFound{JobID: jobID}
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs matching the filter plus the total count.
func (s *Service) List(ctx context.Context, req ListJobsRequest) ([]Job, int, error) {
	return s.repo.List(ctx, req)
}

// UnfinishedOvernightCount snapshots how many overnight jobs are still
// open. Inventory reconciliation records it with each EOD and SOD row.
func (s *Service) UnfinishedOvernightCount(ctx context.Context) (int, error) {
	return s.repo.CountUnfinishedOvernight(ctx)
}

func lockJob(ctx context.Context, tx TxRepository, jobID int64) (*Job, error) {
	job, err := tx.GetJobForUpdate(ctx, jobID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fault.JobNotFound{JobID: jobID}
		}
		return nil, fmt.Errorf("lock job: %w", err)
	}
	return job, nil
}
