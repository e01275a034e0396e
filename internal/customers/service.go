package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rimworks/rimworks/internal/fault"
)

// Service owns customer registration and lookup.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a customer. Phone uniqueness is enforced by the store
// and surfaced as a tagged conflict.
func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	customer := Customer{
		Name:            strings.TrimSpace(req.Name),
		Phone:           strings.TrimSpace(req.Phone),
		Email:           req.Email,
		Birthday:        req.Birthday,
		IsVIP:           req.IsVIP,
		DiscountPercent: req.DiscountPercent,
	}

	id, err := s.repo.Create(ctx, customer)
	if err != nil {
		if errors.Is(err, ErrPhoneTaken) {
			return nil, fault.PhoneAlreadyRegistered{Phone: customer.Phone}
		}
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Get loads one customer.
func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fault.CustomerNotFound{CustomerID: id}
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

// List returns customers matching the filter plus the unfiltered total.
func (s *Service) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	return s.repo.List(ctx, req)
}
