package payments

import "time"

// Mode is the payment instrument.
type Mode string

const (
	ModeCash     Mode = "cash"
	ModeTransfer Mode = "transfer"
	ModeCard     Mode = "card"
	ModeQRIS     Mode = "qris"
)

// Payment is one append-only payment row against an invoice. Amount is
// minor currency units and always positive.
type Payment struct {
	ID         int64     `json:"id"`
	InvoiceID  int64     `json:"invoice_id"`
	Amount     int64     `json:"amount"`
	Mode       Mode      `json:"mode"`
	Reference  string    `json:"reference"`
	ReceivedBy int64     `json:"received_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecordPaymentRequest carries the fields needed to record a payment.
// Amount positivity is input validation and is rejected before the
// service; the balance ceiling is the service's invariant.
type RecordPaymentRequest struct {
	InvoiceID  int64
	Amount     int64
	Mode       Mode
	Reference  string
	ReceivedBy int64
}

// Receipt is the outcome of a recorded payment.
type Receipt struct {
	Payment       Payment `json:"payment"`
	InvoiceStatus string  `json:"invoice_status"`
	Balance       int64   `json:"balance"`
}
