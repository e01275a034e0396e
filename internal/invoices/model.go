package invoices

import "time"

// InvoiceStatus is derived from the payment sum and is never accepted as
// caller input.
type InvoiceStatus string

const (
	StatusUnpaid        InvoiceStatus = "unpaid"
	StatusPartiallyPaid InvoiceStatus = "partially_paid"
	StatusPaid          InvoiceStatus = "paid"
)

// Invoice is the billable record created by converting exactly one quote.
// All amounts are minor currency units. Total always equals
// subtotal - discount + tax.
type Invoice struct {
	ID         int64         `json:"id"`
	Number     string        `json:"number"`
	QuoteID    int64         `json:"quote_id"`
	CustomerID int64         `json:"customer_id"`
	Status     InvoiceStatus `json:"status"`
	Subtotal   int64         `json:"subtotal"`
	Discount   int64         `json:"discount"`
	Tax        int64         `json:"tax"`
	Total      int64         `json:"total"`
	Notes      string        `json:"notes"`
	CreatedBy  int64         `json:"created_by"`
	Items      []InvoiceItem `json:"items,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// InvoiceItem is a snapshot of a quote item taken at conversion time. The
// only mutation after creation is the explicit unit-cost correction path.
type InvoiceItem struct {
	ID          int64    `json:"id"`
	InvoiceID   int64    `json:"invoice_id"`
	QuoteItemID int64    `json:"quote_item_id"`
	Vehicle     string   `json:"vehicle"`
	Damage      string   `json:"damage"`
	Quantity    int      `json:"quantity"`
	UnitCost    int64    `json:"unit_cost"`
	JobTypes    []string `json:"job_types"`
	Description string   `json:"description"`
	SortOrder   int      `json:"sort_order"`
}

// UpdateInvoiceRequest carries the editable header fields. Nil means keep
// the stored value.
type UpdateInvoiceRequest struct {
	Notes    *string
	Discount *int64
	Tax      *int64
}

// ListInvoicesRequest filters the invoice list.
type ListInvoicesRequest struct {
	CustomerID *int64
	Status     *InvoiceStatus
	Limit      int
	Offset     int
}

// StatusFor derives the payment status from the paid sum and total.
func StatusFor(paid, total int64) InvoiceStatus {
	switch {
	case paid >= total:
		return StatusPaid
	case paid > 0:
		return StatusPartiallyPaid
	default:
		return StatusUnpaid
	}
}
