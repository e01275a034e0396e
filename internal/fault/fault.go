// Package fault defines the closed set of tagged domain failures for the
// business state layer. Every service operation either returns a success
// value or exactly one of these variants; anything else escaping a service
// is an infrastructure fault and stays opaque to callers.
package fault

import (
	"fmt"
	"time"
)

// QuoteNotFound indicates the referenced quote does not exist.
type QuoteNotFound struct {
	QuoteID int64
}

func (e QuoteNotFound) Error() string {
	return fmt.Sprintf("quote %d not found", e.QuoteID)
}

// QuoteAlreadyConverted indicates an invoice already references the quote.
type QuoteAlreadyConverted struct {
	QuoteID int64
}

func (e QuoteAlreadyConverted) Error() string {
	return fmt.Sprintf("quote %d already converted to an invoice", e.QuoteID)
}

// CustomerNotFound indicates the referenced customer does not exist.
type CustomerNotFound struct {
	CustomerID int64
}

func (e CustomerNotFound) Error() string {
	return fmt.Sprintf("customer %d not found", e.CustomerID)
}

// PhoneAlreadyRegistered indicates another customer owns the phone number.
type PhoneAlreadyRegistered struct {
	Phone string
}

func (e PhoneAlreadyRegistered) Error() string {
	return fmt.Sprintf("phone %s already registered", e.Phone)
}

// InvoiceNotFound indicates the referenced invoice does not exist.
type InvoiceNotFound struct {
	InvoiceID int64
}

func (e InvoiceNotFound) Error() string {
	return fmt.Sprintf("invoice %d not found", e.InvoiceID)
}

// InvoiceItemNotFound indicates the referenced line item does not exist on
// the invoice.
type InvoiceItemNotFound struct {
	InvoiceID int64
	ItemID    int64
}

func (e InvoiceItemNotFound) Error() string {
	return fmt.Sprintf("item %d not found on invoice %d", e.ItemID, e.InvoiceID)
}

// InvoiceHasNoItems rejects dispatching an invoice without line items.
type InvoiceHasNoItems struct {
	InvoiceID int64
}

func (e InvoiceHasNoItems) Error() string {
	return fmt.Sprintf("invoice %d has no items to dispatch", e.InvoiceID)
}

// InvoiceHasPayments blocks deletion of an invoice with payment history.
type InvoiceHasPayments struct {
	InvoiceID int64
}

func (e InvoiceHasPayments) Error() string {
	return fmt.Sprintf("invoice %d has recorded payments", e.InvoiceID)
}

// InvoiceHasJobs blocks deletion of an invoice with dispatched jobs.
type InvoiceHasJobs struct {
	InvoiceID int64
}

func (e InvoiceHasJobs) Error() string {
	return fmt.Sprintf("invoice %d has dispatched jobs", e.InvoiceID)
}

// PaymentExceedsBalance rejects a payment larger than the outstanding
// balance. Balance and Attempted are minor currency units.
type PaymentExceedsBalance struct {
	InvoiceID int64
	Balance   int64
	Attempted int64
}

func (e PaymentExceedsBalance) Error() string {
	return fmt.Sprintf("payment %d exceeds outstanding balance %d on invoice %d", e.Attempted, e.Balance, e.InvoiceID)
}

// JobNotFound indicates the referenced job does not exist.
type JobNotFound struct {
	JobID int64
}

func (e JobNotFound) Error() string {
	return fmt.Sprintf("job %d not found", e.JobID)
}

// JobsAlreadyCreated indicates jobs were already dispatched for the invoice.
type JobsAlreadyCreated struct {
	InvoiceID int64
}

func (e JobsAlreadyCreated) Error() string {
	return fmt.Sprintf("jobs already created for invoice %d", e.InvoiceID)
}

// JobAlreadyAccepted rejects accepting a job that is not pending.
type JobAlreadyAccepted struct {
	JobID int64
}

func (e JobAlreadyAccepted) Error() string {
	return fmt.Sprintf("job %d already accepted", e.JobID)
}

// JobAlreadyCompleted rejects completing a finished job twice.
type JobAlreadyCompleted struct {
	JobID int64
}

func (e JobAlreadyCompleted) Error() string {
	return fmt.Sprintf("job %d already completed", e.JobID)
}

// JobNotAccepted rejects work on a job no technician has accepted yet.
type JobNotAccepted struct {
	JobID int64
}

func (e JobNotAccepted) Error() string {
	return fmt.Sprintf("job %d not accepted by a technician", e.JobID)
}

// JobCannotBeReversed rejects reversing a job that is already pending.
type JobCannotBeReversed struct {
	JobID int64
}

func (e JobCannotBeReversed) Error() string {
	return fmt.Sprintf("job %d cannot be reversed", e.JobID)
}

// EODAlreadyExists indicates an end-of-day record exists for the date.
type EODAlreadyExists struct {
	RecordDate time.Time
}

func (e EODAlreadyExists) Error() string {
	return fmt.Sprintf("end-of-day record already exists for %s", e.RecordDate.Format("2006-01-02"))
}

// SODAlreadyExists indicates a start-of-day record exists for the date.
type SODAlreadyExists struct {
	RecordDate time.Time
}

func (e SODAlreadyExists) Error() string {
	return fmt.Sprintf("start-of-day record already exists for %s", e.RecordDate.Format("2006-01-02"))
}

// EODNotFound indicates no end-of-day baseline exists yet.
type EODNotFound struct {
	RecordDate time.Time
}

func (e EODNotFound) Error() string {
	return fmt.Sprintf("no end-of-day record available before %s", e.RecordDate.Format("2006-01-02"))
}
