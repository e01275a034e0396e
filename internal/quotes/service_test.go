package quotes

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rimworks/rimworks/internal/customers"
	"github.com/rimworks/rimworks/internal/fault"
)

type memRepo struct {
	quotes map[int64]*Quote
	nextID int64
	seq    int64
}

func newMemRepo() *memRepo {
	return &memRepo{quotes: make(map[int64]*Quote)}
}

func (r *memRepo) Get(_ context.Context, id int64) (*Quote, error) {
	q, ok := r.quotes[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *q
	return &out, nil
}

func (r *memRepo) Create(_ context.Context, quote Quote) (int64, error) {
	r.nextID++
	quote.ID = r.nextID
	r.quotes[quote.ID] = &quote
	return quote.ID, nil
}

func (r *memRepo) List(_ context.Context, _ ListQuotesRequest) ([]Quote, int, error) {
	var list []Quote
	for _, q := range r.quotes {
		list = append(list, *q)
	}
	return list, len(list), nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id int64, status QuoteStatus) error {
	q, ok := r.quotes[id]
	if !ok {
		return ErrNotFound
	}
	q.Status = status
	return nil
}

func (r *memRepo) GenerateNumber(_ context.Context, date time.Time) (string, error) {
	r.seq++
	return fmt.Sprintf("QT-%s-%04d", date.Format("0601"), r.seq), nil
}

type customerRepoFake struct {
	known map[int64]bool
}

func (f *customerRepoFake) Get(_ context.Context, id int64) (*customers.Customer, error) {
	if !f.known[id] {
		return nil, customers.ErrNotFound
	}
	return &customers.Customer{ID: id}, nil
}

func (f *customerRepoFake) GetByPhone(_ context.Context, _ string) (*customers.Customer, error) {
	return nil, customers.ErrNotFound
}

func (f *customerRepoFake) Create(_ context.Context, _ customers.Customer) (int64, error) {
	return 0, nil
}

func (f *customerRepoFake) List(_ context.Context, _ customers.ListCustomersRequest) ([]customers.Customer, int, error) {
	return nil, 0, nil
}

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	return NewService(repo, &customerRepoFake{known: map[int64]bool{7: true}}), repo
}

func TestCreateComputesTotals(t *testing.T) {
	svc, _ := newTestService()

	q, err := svc.Create(context.Background(), CreateQuoteRequest{
		CustomerID:      7,
		DiscountPercent: 10,
		Items: []CreateQuoteItemRequest{
			{Vehicle: "BMW E46", Quantity: 2, UnitCost: 10000},
			{Vehicle: "BMW E46", Quantity: 1, UnitCost: 5000},
		},
	}, 99)
	require.NoError(t, err)
	require.Equal(t, int64(25000), q.Subtotal)
	require.Equal(t, int64(2500), q.DiscountAmount)
	require.Equal(t, int64(22500), q.Total)
	require.Equal(t, StatusDraft, q.Status)
	require.Len(t, q.Items, 2)
	require.Regexp(t, `^QT-\d{4}-\d{4}$`, q.Number)
}

func TestCreateAssignsSortOrder(t *testing.T) {
	svc, _ := newTestService()

	q, err := svc.Create(context.Background(), CreateQuoteRequest{
		CustomerID: 7,
		Items: []CreateQuoteItemRequest{
			{Vehicle: "a", Quantity: 1, UnitCost: 100},
			{Vehicle: "b", Quantity: 1, UnitCost: 100},
		},
	}, 99)
	require.NoError(t, err)
	require.Equal(t, 1, q.Items[0].SortOrder)
	require.Equal(t, 2, q.Items[1].SortOrder)
}

func TestCreateUnknownCustomer(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateQuoteRequest{
		CustomerID: 404,
		Items:      []CreateQuoteItemRequest{{Vehicle: "a", Quantity: 1, UnitCost: 100}},
	}, 99)
	require.ErrorAs(t, err, &fault.CustomerNotFound{})
}

func TestCreateRequiresItems(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateQuoteRequest{CustomerID: 7}, 99)
	require.Error(t, err)
}

func TestGetUnknownQuote(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Get(context.Background(), 404)
	require.ErrorAs(t, err, &fault.QuoteNotFound{})
}
