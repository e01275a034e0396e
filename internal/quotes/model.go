package quotes

import "time"

// QuoteStatus is the lifecycle state of a quote. Conversion to an invoice
// marks a quote completed; deleting that invoice puts it back to pending.
type QuoteStatus string

const (
	StatusDraft      QuoteStatus = "draft"
	StatusPending    QuoteStatus = "pending"
	StatusInProgress QuoteStatus = "in_progress"
	StatusCompleted  QuoteStatus = "completed"
)

// Quote is a pre-sale estimate for a customer. Amounts are minor currency
// units; Subtotal/DiscountAmount/Total are computed, never accepted from
// callers.
type Quote struct {
	ID              int64       `json:"id"`
	Number          string      `json:"number"`
	CustomerID      int64       `json:"customer_id"`
	CreatedBy       int64       `json:"created_by"`
	Status          QuoteStatus `json:"status"`
	DiscountPercent int         `json:"discount_percent"`
	Subtotal        int64       `json:"subtotal"`
	DiscountAmount  int64       `json:"discount_amount"`
	Total           int64       `json:"total"`
	ValidUntil      time.Time   `json:"valid_until"`
	Items           []QuoteItem `json:"items,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// QuoteItem is one line of work on a quote.
type QuoteItem struct {
	ID          int64    `json:"id"`
	QuoteID     int64    `json:"quote_id"`
	Vehicle     string   `json:"vehicle"`
	Damage      string   `json:"damage"`
	Quantity    int      `json:"quantity"`
	UnitCost    int64    `json:"unit_cost"`
	JobTypes    []string `json:"job_types"`
	Description string   `json:"description"`
	SortOrder   int      `json:"sort_order"`
}

// CreateQuoteItemRequest is one submitted quote line.
type CreateQuoteItemRequest struct {
	Vehicle     string
	Damage      string
	Quantity    int
	UnitCost    int64
	JobTypes    []string
	Description string
	SortOrder   int
}

// CreateQuoteRequest carries the fields needed to open a quote.
type CreateQuoteRequest struct {
	CustomerID      int64
	DiscountPercent int
	ValidUntil      time.Time
	Items           []CreateQuoteItemRequest
}

// ListQuotesRequest filters the quote list.
type ListQuotesRequest struct {
	CustomerID *int64
	Status     *QuoteStatus
	Limit      int
	Offset     int
}
