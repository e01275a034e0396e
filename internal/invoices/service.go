package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rimworks/rimworks/internal/customers"
	"github.com/rimworks/rimworks/internal/fault"
	"github.com/rimworks/rimworks/internal/quotes"
	"github.com/rimworks/rimworks/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the quote-to-invoice conversion and the invoice lifecycle.
type Service struct {
	repo         Repository
	quoteRepo    quotes.Repository
	customerRepo customers.Repository
	audit        AuditPort
}

// NewService builds Service.
func NewService(repo Repository, quoteRepo quotes.Repository, customerRepo customers.Repository, audit AuditPort) *Service {
	return &Service{repo: repo, quoteRepo: quoteRepo, customerRepo: customerRepo, audit: audit}
}

// CreateFromQuote converts a quote into an invoice exactly once. The
// customer's discount percent applies only when the customer is VIP. The
// invoice insert, the item snapshot, and the quote status flip commit
// together or not at all.
func (s *Service) CreateFromQuote(ctx context.Context, quoteID, actingUserID int64) (*Invoice, error) {
	quote, err := s.quoteRepo.Get(ctx, quoteID)
	if err != nil {
		if errors.Is(err, quotes.ErrNotFound) {
			return nil, fault.QuoteNotFound{QuoteID: quoteID}
		}
		return nil, fmt.Errorf("get quote: %w", err)
	}

	customer, err := s.customerRepo.Get(ctx, quote.CustomerID)
	if err != nil {
		if errors.Is(err, customers.ErrNotFound) {
			return nil, fault.CustomerNotFound{CustomerID: quote.CustomerID}
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	var subtotal int64
	items := make([]InvoiceItem, 0, len(quote.Items))
	for _, it := range quote.Items {
		subtotal += int64(it.Quantity) * it.UnitCost
		items = append(items, InvoiceItem{
			QuoteItemID: it.ID,
			Vehicle:     it.Vehicle,
			Damage:      it.Damage,
			Quantity:    it.Quantity,
			UnitCost:    it.UnitCost,
			JobTypes:    it.JobTypes,
			Description: it.Description,
			SortOrder:   it.SortOrder,
		})
	}

	var discount int64
	if customer.IsVIP {
		discount = subtotal * int64(customer.DiscountPercent) / 100
	}
	var tax int64
	total := subtotal - discount + tax

	var invoiceID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		converted, err := tx.InvoiceExistsForQuote(ctx, quoteID)
		if err != nil {
			return fmt.Errorf("check conversion: %w", err)
		}
		if converted {
			return fault.QuoteAlreadyConverted{QuoteID: quoteID}
		}

		// Allocated after the conversion check so a rejected call rolls
		// the sequence back with everything else.
		number, err := tx.GenerateNumber(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("generate invoice number: %w", err)
		}

		id, err := tx.InsertInvoice(ctx, Invoice{
			Number:     number,
			QuoteID:    quoteID,
			CustomerID: quote.CustomerID,
			Status:     StatusUnpaid,
			Subtotal:   subtotal,
			Discount:   discount,
			Tax:        tax,
			Total:      total,
			CreatedBy:  actingUserID,
		})
		if err != nil {
			// Unique quote_id is the second line of defense against a
			// concurrent conversion slipping past the exists check.
			if errors.Is(err, ErrQuoteTaken) {
				return fault.QuoteAlreadyConverted{QuoteID: quoteID}
			}
			return fmt.Errorf("insert invoice: %w", err)
		}
		invoiceID = id

		if err := tx.InsertItems(ctx, id, items); err != nil {
			return err
		}
		return tx.SetQuoteStatus(ctx, quoteID, quotes.StatusCompleted)
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actingUserID,
			Action:   "invoice:create_from_quote",
			Entity:   "invoice",
			EntityID: fmt.Sprintf("%d", invoiceID),
			Meta:     map[string]any{"quote_id": quoteID, "total": total},
		})
	}

	return s.repo.Get(ctx, invoiceID)
}

// Update edits the invoice header. Total is recomputed as
// subtotal - discount + tax using supplied-or-existing values; the fields
// are written together.
func (s *Service) Update(ctx context.Context, id int64, req UpdateInvoiceRequest) (*Invoice, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fault.InvoiceNotFound{InvoiceID: id}
			}
			return fmt.Errorf("get invoice: %w", err)
		}

		notes := inv.Notes
		if req.Notes != nil {
			notes = *req.Notes
		}
		discount := inv.Discount
		if req.Discount != nil {
			discount = *req.Discount
		}
		tax := inv.Tax
		if req.Tax != nil {
			tax = *req.Tax
		}
		total := inv.Subtotal - discount + tax

		return tx.UpdateHeader(ctx, id, notes, discount, tax, total)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// UpdateItemCost is the explicit price-correction path for a snapshot line
// item. The invoice subtotal and total are recomputed in the same
// transaction so the header never drifts from its items.
func (s *Service) UpdateItemCost(ctx context.Context, invoiceID, itemID, unitCost int64) (*Invoice, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fault.InvoiceNotFound{InvoiceID: invoiceID}
			}
			return fmt.Errorf("get invoice: %w", err)
		}

		items, err := tx.GetItems(ctx, invoiceID)
		if err != nil {
			return err
		}

		var subtotal int64
		found := false
		for _, it := range items {
			cost := it.UnitCost
			if it.ID == itemID {
				found = true
				cost = unitCost
			}
			subtotal += int64(it.Quantity) * cost
		}
		if !found {
			return fault.InvoiceItemNotFound{InvoiceID: invoiceID, ItemID: itemID}
		}

		if err := tx.SetItemCost(ctx, itemID, unitCost); err != nil {
			return err
		}
		return tx.SetSubtotal(ctx, invoiceID, subtotal, subtotal-inv.Discount+inv.Tax)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, invoiceID)
}

// Delete removes an invoice that has no history. Items and the invoice go
// together, and the originating quote returns to pending, undoing the
// conversion's side effect.
func (s *Service) Delete(ctx context.Context, id int64, actingUserID int64) error {
	var quoteID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fault.InvoiceNotFound{InvoiceID: id}
			}
			return fmt.Errorf("get invoice: %w", err)
		}
		quoteID = inv.QuoteID

		paymentCount, err := tx.PaymentCount(ctx, id)
		if err != nil {
			return err
		}
		if paymentCount > 0 {
			return fault.InvoiceHasPayments{InvoiceID: id}
		}

		jobCount, err := tx.JobCount(ctx, id)
		if err != nil {
			return err
		}
		if jobCount > 0 {
			return fault.InvoiceHasJobs{InvoiceID: id}
		}

		if err := tx.DeleteItems(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteInvoice(ctx, id); err != nil {
			return err
		}
		return tx.SetQuoteStatus(ctx, quoteID, quotes.StatusPending)
	})
	if err != nil {
		return err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actingUserID,
			Action:   "invoice:delete",
			Entity:   "invoice",
			EntityID: fmt.Sprintf("%d", id),
			Meta:     map[string]any{"quote_id": quoteID},
		})
	}
	return nil
}

// RecalcStatus recomputes the derived payment status from the payment sum.
// Idempotent; safe to call after every payment write.
func (s *Service) RecalcStatus(ctx context.Context, id int64) (InvoiceStatus, error) {
	var status InvoiceStatus
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fault.InvoiceNotFound{InvoiceID: id}
			}
			return fmt.Errorf("get invoice: %w", err)
		}

		paid, err := tx.PaymentSum(ctx, id)
		if err != nil {
			return err
		}

		status = StatusFor(paid, inv.Total)
		if status == inv.Status {
			return nil
		}
		return tx.SetStatus(ctx, id, status)
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

// Get loads one invoice with its items.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fault.InvoiceNotFound{InvoiceID: id}
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// List returns invoices matching the filter plus the total count.
func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	return s.repo.List(ctx, req)
}
