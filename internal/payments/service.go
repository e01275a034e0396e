package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rimworks/rimworks/internal/fault"
	"github.com/rimworks/rimworks/internal/invoices"
	"github.com/rimworks/rimworks/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service records payments against invoices. Payments are append-only;
// corrections are new compensating rows, never edits.
type Service struct {
	repo  Repository
	audit AuditPort
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Record applies one payment to an invoice. The invoice row is locked for
// the duration of the transaction, so the balance read, the ceiling check,
// the insert, and the derived status write are one atomic unit; two
// concurrent submissions cannot both pass the check.
func (s *Service) Record(ctx context.Context, req RecordPaymentRequest) (*Receipt, error) {
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = "PAY-" + strings.ToUpper(uuid.NewString()[:8])
	}

	var receipt Receipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, req.InvoiceID)
		if err != nil {
			if errors.Is(err, ErrInvoiceNotFound) {
				return fault.InvoiceNotFound{InvoiceID: req.InvoiceID}
			}
			return fmt.Errorf("lock invoice: %w", err)
		}

		paid, err := tx.PaymentSum(ctx, req.InvoiceID)
		if err != nil {
			return fmt.Errorf("sum payments: %w", err)
		}

		balance := inv.Total - paid
		if req.Amount > balance {
			return fault.PaymentExceedsBalance{
				InvoiceID: req.InvoiceID,
				Balance:   balance,
				Attempted: req.Amount,
			}
		}

		payment := Payment{
			InvoiceID:  req.InvoiceID,
			Amount:     req.Amount,
			Mode:       req.Mode,
			Reference:  reference,
			ReceivedBy: req.ReceivedBy,
		}
		id, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		payment.ID = id
		payment.CreatedAt = time.Now()

		status := invoices.StatusFor(paid+req.Amount, inv.Total)
		if status != inv.Status {
			if err := tx.SetInvoiceStatus(ctx, req.InvoiceID, status); err != nil {
				return fmt.Errorf("set invoice status: %w", err)
			}
		}

		receipt = Receipt{
			Payment:       payment,
			InvoiceStatus: string(status),
			Balance:       balance - req.Amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  req.ReceivedBy,
			Action:   "payment:record",
			Entity:   "payment",
			EntityID: fmt.Sprintf("%d", receipt.Payment.ID),
			Meta: map[string]any{
				"invoice_id": req.InvoiceID,
				"amount":     req.Amount,
				"mode":       string(req.Mode),
			},
		})
	}

	return &receipt, nil
}

// ListByInvoice returns the payment history for one invoice.
func (s *Service) ListByInvoice(ctx context.Context, invoiceID int64) ([]Payment, error) {
	return s.repo.ListByInvoice(ctx, invoiceID)
}
