package invoices

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rimworks/rimworks/internal/customers"
	"github.com/rimworks/rimworks/internal/fault"
	"github.com/rimworks/rimworks/internal/quotes"
)

// memStore backs the fake repositories with plain maps. WithTx applies
// writes directly; transaction semantics are the real repository's concern.
type memStore struct {
	invoices    map[int64]*Invoice
	items       map[int64][]InvoiceItem
	quotes      map[int64]*quotes.Quote
	payments    map[int64][]int64
	jobCounts   map[int64]int
	nextInvoice int64
	nextItem    int64
	seq         int64

	// onLock fires when a transaction takes the invoice row lock; tests use
	// it to commit side effects the transaction must then observe.
	onLock func()
}

func newMemStore() *memStore {
	return &memStore{
		invoices:  make(map[int64]*Invoice),
		items:     make(map[int64][]InvoiceItem),
		quotes:    make(map[int64]*quotes.Quote),
		payments:  make(map[int64][]int64),
		jobCounts: make(map[int64]int),
	}
}

type memRepo struct {
	store *memStore
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memTx{store: r.store})
}

func (r *memRepo) Get(_ context.Context, id int64) (*Invoice, error) {
	inv, ok := r.store.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *inv
	out.Items = append([]InvoiceItem(nil), r.store.items[id]...)
	return &out, nil
}

func (r *memRepo) List(_ context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	var list []Invoice
	for _, inv := range r.store.invoices {
		if req.Status != nil && inv.Status != *req.Status {
			continue
		}
		list = append(list, *inv)
	}
	return list, len(list), nil
}

type memTx struct {
	store *memStore
}

func (t *memTx) GenerateNumber(_ context.Context, date time.Time) (string, error) {
	t.store.seq++
	return fmt.Sprintf("INV-%s-%04d", date.Format("0601"), t.store.seq), nil
}

func (t *memTx) InvoiceExistsForQuote(_ context.Context, quoteID int64) (bool, error) {
	for _, inv := range t.store.invoices {
		if inv.QuoteID == quoteID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertInvoice(_ context.Context, inv Invoice) (int64, error) {
	for _, existing := range t.store.invoices {
		if existing.QuoteID == inv.QuoteID {
			return 0, ErrQuoteTaken
		}
	}
	t.store.nextInvoice++
	inv.ID = t.store.nextInvoice
	t.store.invoices[inv.ID] = &inv
	return inv.ID, nil
}

func (t *memTx) InsertItems(_ context.Context, invoiceID int64, items []InvoiceItem) error {
	for _, it := range items {
		t.store.nextItem++
		it.ID = t.store.nextItem
		it.InvoiceID = invoiceID
		t.store.items[invoiceID] = append(t.store.items[invoiceID], it)
	}
	return nil
}

func (t *memTx) SetQuoteStatus(_ context.Context, quoteID int64, status quotes.QuoteStatus) error {
	if q, ok := t.store.quotes[quoteID]; ok {
		q.Status = status
	}
	return nil
}

func (t *memTx) GetInvoiceForUpdate(_ context.Context, id int64) (*Invoice, error) {
	if t.store.onLock != nil {
		t.store.onLock()
	}
	inv, ok := t.store.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *inv
	return &out, nil
}

func (t *memTx) GetItems(_ context.Context, invoiceID int64) ([]InvoiceItem, error) {
	return append([]InvoiceItem(nil), t.store.items[invoiceID]...), nil
}

func (t *memTx) UpdateHeader(_ context.Context, id int64, notes string, discount, tax, total int64) error {
	inv := t.store.invoices[id]
	inv.Notes = notes
	inv.Discount = discount
	inv.Tax = tax
	inv.Total = total
	return nil
}

func (t *memTx) SetItemCost(_ context.Context, itemID int64, unitCost int64) error {
	for invoiceID, items := range t.store.items {
		for i := range items {
			if items[i].ID == itemID {
				t.store.items[invoiceID][i].UnitCost = unitCost
				return nil
			}
		}
	}
	return nil
}

func (t *memTx) SetSubtotal(_ context.Context, id int64, subtotal, total int64) error {
	inv := t.store.invoices[id]
	inv.Subtotal = subtotal
	inv.Total = total
	return nil
}

func (t *memTx) PaymentCount(_ context.Context, invoiceID int64) (int, error) {
	return len(t.store.payments[invoiceID]), nil
}

func (t *memTx) JobCount(_ context.Context, invoiceID int64) (int, error) {
	return t.store.jobCounts[invoiceID], nil
}

func (t *memTx) PaymentSum(_ context.Context, invoiceID int64) (int64, error) {
	var sum int64
	for _, amount := range t.store.payments[invoiceID] {
		sum += amount
	}
	return sum, nil
}

func (t *memTx) SetStatus(_ context.Context, invoiceID int64, status InvoiceStatus) error {
	t.store.invoices[invoiceID].Status = status
	return nil
}

func (t *memTx) DeleteItems(_ context.Context, invoiceID int64) error {
	delete(t.store.items, invoiceID)
	return nil
}

func (t *memTx) DeleteInvoice(_ context.Context, invoiceID int64) error {
	delete(t.store.invoices, invoiceID)
	return nil
}

type quoteRepoFake struct {
	store *memStore
}

func (r *quoteRepoFake) Get(_ context.Context, id int64) (*quotes.Quote, error) {
	q, ok := r.store.quotes[id]
	if !ok {
		return nil, quotes.ErrNotFound
	}
	out := *q
	return &out, nil
}

func (r *quoteRepoFake) Create(_ context.Context, q quotes.Quote) (int64, error) {
	r.store.quotes[q.ID] = &q
	return q.ID, nil
}

func (r *quoteRepoFake) List(_ context.Context, _ quotes.ListQuotesRequest) ([]quotes.Quote, int, error) {
	return nil, 0, nil
}

func (r *quoteRepoFake) UpdateStatus(_ context.Context, id int64, status quotes.QuoteStatus) error {
	if q, ok := r.store.quotes[id]; ok {
		q.Status = status
		return nil
	}
	return quotes.ErrNotFound
}

func (r *quoteRepoFake) GenerateNumber(_ context.Context, date time.Time) (string, error) {
	return "QT-" + date.Format("0601") + "-0001", nil
}

type customerRepoFake struct {
	customers map[int64]*customers.Customer
}

func (r *customerRepoFake) Get(_ context.Context, id int64) (*customers.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, customers.ErrNotFound
	}
	return c, nil
}

func (r *customerRepoFake) GetByPhone(_ context.Context, _ string) (*customers.Customer, error) {
	return nil, customers.ErrNotFound
}

func (r *customerRepoFake) Create(_ context.Context, c customers.Customer) (int64, error) {
	r.customers[c.ID] = &c
	return c.ID, nil
}

func (r *customerRepoFake) List(_ context.Context, _ customers.ListCustomersRequest) ([]customers.Customer, int, error) {
	return nil, 0, nil
}

func newTestService(store *memStore, custs map[int64]*customers.Customer) *Service {
	return NewService(&memRepo{store: store}, &quoteRepoFake{store: store}, &customerRepoFake{customers: custs}, nil)
}

func seedQuote(store *memStore, id, customerID int64, items ...quotes.QuoteItem) {
	store.quotes[id] = &quotes.Quote{
		ID:         id,
		Number:     "QT-2501-0001",
		CustomerID: customerID,
		Status:     quotes.StatusPending,
		Items:      items,
	}
}

func TestCreateFromQuoteAppliesVIPDiscount(t *testing.T) {
	store := newMemStore()
	custs := map[int64]*customers.Customer{
		7: {ID: 7, Name: "Dina", IsVIP: true, DiscountPercent: 10},
	}
	seedQuote(store, 1, 7, quotes.QuoteItem{ID: 11, Quantity: 1, UnitCost: 25000, Vehicle: "BMW E46"})
	svc := newTestService(store, custs)

	inv, err := svc.CreateFromQuote(context.Background(), 1, 99)
	require.NoError(t, err)
	require.Equal(t, int64(25000), inv.Subtotal)
	require.Equal(t, int64(2500), inv.Discount)
	require.Equal(t, int64(22500), inv.Total)
	require.Equal(t, StatusUnpaid, inv.Status)
	require.Len(t, inv.Items, 1)
	require.Equal(t, int64(11), inv.Items[0].QuoteItemID)
	require.Equal(t, quotes.StatusCompleted, store.quotes[1].Status)
}

func TestCreateFromQuoteIgnoresDiscountForNonVIP(t *testing.T) {
	store := newMemStore()
	custs := map[int64]*customers.Customer{
		7: {ID: 7, Name: "Dina", IsVIP: false, DiscountPercent: 10},
	}
	seedQuote(store, 1, 7, quotes.QuoteItem{ID: 11, Quantity: 2, UnitCost: 10000})
	svc := newTestService(store, custs)

	inv, err := svc.CreateFromQuote(context.Background(), 1, 99)
	require.NoError(t, err)
	require.Equal(t, int64(20000), inv.Subtotal)
	require.Zero(t, inv.Discount)
	require.Equal(t, int64(20000), inv.Total)
}

func TestCreateFromQuoteConvertsExactlyOnce(t *testing.T) {
	store := newMemStore()
	custs := map[int64]*customers.Customer{7: {ID: 7}}
	seedQuote(store, 1, 7, quotes.QuoteItem{ID: 11, Quantity: 1, UnitCost: 5000})
	svc := newTestService(store, custs)

	_, err := svc.CreateFromQuote(context.Background(), 1, 99)
	require.NoError(t, err)

	_, err = svc.CreateFromQuote(context.Background(), 1, 99)
	require.ErrorAs(t, err, &fault.QuoteAlreadyConverted{})
	require.Len(t, store.invoices, 1)
}

func TestCreateFromQuoteUnknownQuote(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, map[int64]*customers.Customer{})

	_, err := svc.CreateFromQuote(context.Background(), 404, 99)
	require.ErrorAs(t, err, &fault.QuoteNotFound{})
}

func TestCreateFromQuoteFailedConversionBurnsNoNumber(t *testing.T) {
	store := newMemStore()
	custs := map[int64]*customers.Customer{7: {ID: 7}}
	seedQuote(store, 1, 7, quotes.QuoteItem{ID: 11, Quantity: 1, UnitCost: 5000})
	seedQuote(store, 2, 7, quotes.QuoteItem{ID: 21, Quantity: 1, UnitCost: 5000})
	svc := newTestService(store, custs)

	_, err := svc.CreateFromQuote(context.Background(), 1, 99)
	require.NoError(t, err)
	require.Equal(t, int64(1), store.seq)

	_, err = svc.CreateFromQuote(context.Background(), 1, 99)
	require.ErrorAs(t, err, &fault.QuoteAlreadyConverted{})
	require.Equal(t, int64(1), store.seq)

	// The next successful conversion continues the series without a gap.
	inv, err := svc.CreateFromQuote(context.Background(), 2, 99)
	require.NoError(t, err)
	require.Equal(t, int64(2), store.seq)
	require.Regexp(t, `^INV-\d{4}-0002$`, inv.Number)
}

func TestUpdateRecomputesTotal(t *testing.T) {
	store := newMemStore()
	custs := map[int64]*customers.Customer{7: {ID: 7}}
	seedQuote(store, 1, 7, quotes.QuoteItem{ID: 11, Quantity: 1, UnitCost: 100000})
	svc := newTestService(store, custs)

	inv, err := svc.CreateFromQuote(context.Background(), 1, 99)
	require.NoError(t, err)

	discount := int64(5000)
	tax := int64(11000)
	updated, err := svc.Update(context.Background(), inv.ID, UpdateInvoiceRequest{Discount: &discount, Tax: &tax})
	require.NoError(t, err)
	require.Equal(t, int64(100000-5000+11000), updated.Total)

	// Nil fields keep the stored values.
	notes := "pickup friday"
	updated, err = svc.Update(context.Background(), inv.ID, UpdateInvoiceRequest{Notes: &notes})
	require.NoError(t, err)
	require.Equal(t, "pickup friday", updated.Notes)
	require.Equal(t, int64(5000), updated.Discount)
	require.Equal(t, int64(11000), updated.Tax)
	require.Equal(t, int64(106000), updated.Total)
}

func TestUpdateUnknownInvoice(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, map[int64]*customers.Customer{})

	_, err := svc.Update(context.Background(), 404, UpdateInvoiceRequest{})
	require.ErrorAs(t, err, &fault.InvoiceNotFound{})
}

func TestUpdateItemCostRecomputesSubtotal(t *testing.T) {
	store := newMemStore()
	custs := map[int64]*customers.Customer{7: {ID: 7}}
	seedQuote(store, 1, 7,
		quotes.QuoteItem{ID: 11, Quantity: 2, UnitCost: 10000},
		quotes.QuoteItem{ID: 12, Quantity: 1, UnitCost: 30000},
	)
	svc := newTestService(store, custs)

	inv, err := svc.CreateFromQuote(context.Background(), 1, 99)
	require.NoError(t, err)
	require.Equal(t, int64(50000), inv.Subtotal)

	updated, err := svc.UpdateItemCost(context.Background(), inv.ID, inv.Items[0].ID, 15000)
	require.NoError(t, err)
	require.Equal(t, int64(2*15000+30000), updated.Subtotal)
	require.Equal(t, updated.Subtotal-updated.Discount+updated.Tax, updated.Total)
}

func TestUpdateItemCostUnknownItem(t *testing.T) {
	store := newMemStore()
	custs := map[int64]*customers.Customer{7: {ID: 7}}
	seedQuote(store, 1, 7, quotes.QuoteItem{ID: 11, Quantity: 1, UnitCost: 10000})
	svc := newTestService(store, custs)

	inv, err := svc.CreateFromQuote(context.Background(), 1, 99)
	require.NoError(t, err)

	_, err = svc.UpdateItemCost(context.Background(), inv.ID, 9999, 15000)
	require.ErrorAs(t, err, &fault.InvoiceItemNotFound{})
}

func TestDeleteBlockedByPayments(t *testing.T) {
	store := newMemStore()
	custs := map[int64]*customers.Customer{7: {ID: 7}}
	seedQuote(store, 1, 7, quotes.QuoteItem{ID: 11, Quantity: 1, UnitCost: 10000})
	svc := newTestService(store, custs)

	inv, err := svc.CreateFromQuote(context.Background(), 1, 99)
	require.NoError(t, err)

	store.payments[inv.ID] = []int64{5000}
	err = svc.Delete(context.Background(), inv.ID, 99)
	require.ErrorAs(t, err, &fault.InvoiceHasPayments{})
	require.Contains(t, store.invoices, inv.ID)
}

func TestDeleteBlockedByJobs(t *testing.T) {
	store := newMemStore()
	custs := map[int64]*customers.Customer{7: {ID: 7}}
	seedQuote(store, 1, 7, quotes.QuoteItem{ID: 11, Quantity: 1, UnitCost: 10000})
	svc := newTestService(store, custs)

	inv, err := svc.CreateFromQuote(context.Background(), 1, 99)
	require.NoError(t, err)

	store.jobCounts[inv.ID] = 1
	err = svc.Delete(context.Background(), inv.ID, 99)
	require.ErrorAs(t, err, &fault.InvoiceHasJobs{})
}

func TestDeleteSeesPaymentCommittedWhileWaiting(t *testing.T) {
	store := newMemStore()
	custs := map[int64]*customers.Customer{7: {ID: 7}}
	seedQuote(store, 1, 7, quotes.QuoteItem{ID: 11, Quantity: 1, UnitCost: 10000})
	svc := newTestService(store, custs)

	inv, err := svc.CreateFromQuote(context.Background(), 1, 99)
	require.NoError(t, err)

	// A payment lands just as the delete acquires the invoice lock; the
	// count taken inside the transaction must see it and refuse.
	store.onLock = func() {
		store.payments[inv.ID] = []int64{2500}
	}
	err = svc.Delete(context.Background(), inv.ID, 99)
	require.ErrorAs(t, err, &fault.InvoiceHasPayments{})
	require.Contains(t, store.invoices, inv.ID)
}

func TestDeleteResetsQuoteToPending(t *testing.T) {
	store := newMemStore()
	custs := map[int64]*customers.Customer{7: {ID: 7}}
	seedQuote(store, 1, 7, quotes.QuoteItem{ID: 11, Quantity: 1, UnitCost: 10000})
	svc := newTestService(store, custs)

	inv, err := svc.CreateFromQuote(context.Background(), 1, 99)
	require.NoError(t, err)
	require.Equal(t, quotes.StatusCompleted, store.quotes[1].Status)

	require.NoError(t, svc.Delete(context.Background(), inv.ID, 99))
	require.NotContains(t, store.invoices, inv.ID)
	require.NotContains(t, store.items, inv.ID)
	require.Equal(t, quotes.StatusPending, store.quotes[1].Status)

	// The quote is convertible again after the delete.
	_, err = svc.CreateFromQuote(context.Background(), 1, 99)
	require.NoError(t, err)
}

func TestRecalcStatusDerivesFromPaymentSum(t *testing.T) {
	store := newMemStore()
	custs := map[int64]*customers.Customer{7: {ID: 7}}
	seedQuote(store, 1, 7, quotes.QuoteItem{ID: 11, Quantity: 1, UnitCost: 20000})
	svc := newTestService(store, custs)

	inv, err := svc.CreateFromQuote(context.Background(), 1, 99)
	require.NoError(t, err)

	status, err := svc.RecalcStatus(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusUnpaid, status)

	store.payments[inv.ID] = []int64{5000}
	status, err = svc.RecalcStatus(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPartiallyPaid, status)

	store.payments[inv.ID] = append(store.payments[inv.ID], 15000)
	status, err = svc.RecalcStatus(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, status)

	// Idempotent once paid.
	status, err = svc.RecalcStatus(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, status)
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, StatusUnpaid, StatusFor(0, 10000))
	require.Equal(t, StatusPartiallyPaid, StatusFor(1, 10000))
	require.Equal(t, StatusPartiallyPaid, StatusFor(9999, 10000))
	require.Equal(t, StatusPaid, StatusFor(10000, 10000))
	require.Equal(t, StatusPaid, StatusFor(10001, 10000))
}
