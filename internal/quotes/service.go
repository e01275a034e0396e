package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rimworks/rimworks/internal/customers"
	"github.com/rimworks/rimworks/internal/fault"
)

// Service owns quote creation and lookup. Status transitions tied to
// invoice conversion live in the invoice service.
type Service struct {
	repo         Repository
	customerRepo customers.Repository
}

// NewService builds Service.
func NewService(repo Repository, customerRepo customers.Repository) *Service {
	return &Service{repo: repo, customerRepo: customerRepo}
}

// Create opens a quote for a customer, computing subtotal, discount and
// total from the submitted items.
func (s *Service) Create(ctx context.Context, req CreateQuoteRequest, createdBy int64) (*Quote, error) {
	if len(req.Items) == 0 {
		return nil, errors.New("quote requires at least one item")
	}

	if _, err := s.customerRepo.Get(ctx, req.CustomerID); err != nil {
		if errors.Is(err, customers.ErrNotFound) {
			return nil, fault.CustomerNotFound{CustomerID: req.CustomerID}
		}
		return nil, fmt.Errorf("verify customer: %w", err)
	}

	number, err := s.repo.GenerateNumber(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("generate quote number: %w", err)
	}

	var subtotal int64
	items := make([]QuoteItem, 0, len(req.Items))
	for i, it := range req.Items {
		subtotal += int64(it.Quantity) * it.UnitCost
		item := QuoteItem{
			Vehicle:     it.Vehicle,
			Damage:      it.Damage,
			Quantity:    it.Quantity,
			UnitCost:    it.UnitCost,
			JobTypes:    it.JobTypes,
			Description: it.Description,
			SortOrder:   it.SortOrder,
		}
		if item.SortOrder == 0 {
			item.SortOrder = i + 1
		}
		items = append(items, item)
	}

	discount := subtotal * int64(req.DiscountPercent) / 100
	quote := Quote{
		Number:          number,
		CustomerID:      req.CustomerID,
		CreatedBy:       createdBy,
		Status:          StatusDraft,
		DiscountPercent: req.DiscountPercent,
		Subtotal:        subtotal,
		DiscountAmount:  discount,
		Total:           subtotal - discount,
		ValidUntil:      req.ValidUntil,
		Items:           items,
	}

	id, err := s.repo.Create(ctx, quote)
	if err != nil {
		return nil, fmt.Errorf("create quote: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Get loads one quote with its items.
func (s *Service) Get(ctx context.Context, id int64) (*Quote, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fault.QuoteNotFound{QuoteID: id}
		}
		return nil, fmt.Errorf("get quote: %w", err)
	}
	return q, nil
}

// List returns quotes matching the filter plus the total count.
func (s *Service) List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error) {
	return s.repo.List(ctx, req)
}
