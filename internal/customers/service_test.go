package customers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rimworks/rimworks/internal/fault"
)

type memRepo struct {
	customers map[int64]*Customer
	nextID    int64
}

func newMemRepo() *memRepo {
	return &memRepo{customers: make(map[int64]*Customer)}
}

func (r *memRepo) Get(_ context.Context, id int64) (*Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (r *memRepo) GetByPhone(_ context.Context, phone string) (*Customer, error) {
	for _, c := range r.customers {
		if c.Phone == phone {
			out := *c
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) Create(_ context.Context, c Customer) (int64, error) {
	for _, existing := range r.customers {
		if existing.Phone == c.Phone {
			return 0, ErrPhoneTaken
		}
	}
	r.nextID++
	c.ID = r.nextID
	r.customers[c.ID] = &c
	return c.ID, nil
}

func (r *memRepo) List(_ context.Context, _ ListCustomersRequest) ([]Customer, int, error) {
	var list []Customer
	for _, c := range r.customers {
		list = append(list, *c)
	}
	return list, len(list), nil
}

func TestCreateTrimsAndStores(t *testing.T) {
	svc := NewService(newMemRepo())

	c, err := svc.Create(context.Background(), CreateCustomerRequest{
		Name:            "  Dina  ",
		Phone:           " 08123456789 ",
		IsVIP:           true,
		DiscountPercent: 10,
	})
	require.NoError(t, err)
	require.Equal(t, "Dina", c.Name)
	require.Equal(t, "08123456789", c.Phone)
	require.True(t, c.IsVIP)
	require.Equal(t, 10, c.DiscountPercent)
}

func TestCreateRejectsDuplicatePhone(t *testing.T) {
	svc := NewService(newMemRepo())

	_, err := svc.Create(context.Background(), CreateCustomerRequest{Name: "Dina", Phone: "08123456789"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateCustomerRequest{Name: "Other", Phone: "08123456789"})
	var taken fault.PhoneAlreadyRegistered
	require.ErrorAs(t, err, &taken)
	require.Equal(t, "08123456789", taken.Phone)
}

func TestGetUnknownCustomer(t *testing.T) {
	svc := NewService(newMemRepo())

	_, err := svc.Get(context.Background(), 404)
	require.ErrorAs(t, err, &fault.CustomerNotFound{})
}
