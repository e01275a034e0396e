package fault

import "errors"

// Code is the stable outward-facing class of a domain failure.
type Code string

const (
	CodeNotFound   Code = "NOT_FOUND"
	CodeConflict   Code = "CONFLICT"
	CodeBadRequest Code = "BAD_REQUEST"
)

// Classification carries everything the API layer needs to render a
// domain failure: the outward code, the human message, and the failure's
// own structured context.
type Classification struct {
	Code    Code
	Message string
	Detail  map[string]any
}

const dateLayout = "2006-01-02"

// Classify maps a tagged failure to its outward classification. The switch
// is the single place deciding API-visible severity; adding a variant to
// the taxonomy requires adding an arm here. Errors outside the taxonomy
// return ok=false and must surface as opaque internal errors.
func Classify(err error) (Classification, bool) {
	switch v := unwrap(err).(type) {
	case QuoteNotFound:
		return Classification{CodeNotFound, v.Error(), map[string]any{"quote_id": v.QuoteID}}, true
	case CustomerNotFound:
		return Classification{CodeNotFound, v.Error(), map[string]any{"customer_id": v.CustomerID}}, true
	case InvoiceNotFound:
		return Classification{CodeNotFound, v.Error(), map[string]any{"invoice_id": v.InvoiceID}}, true
	case InvoiceItemNotFound:
		return Classification{CodeNotFound, v.Error(), map[string]any{"invoice_id": v.InvoiceID, "item_id": v.ItemID}}, true
	case JobNotFound:
		return Classification{CodeNotFound, v.Error(), map[string]any{"job_id": v.JobID}}, true
	case EODNotFound:
		return Classification{CodeNotFound, v.Error(), map[string]any{"record_date": v.RecordDate.Format(dateLayout)}}, true
	case QuoteAlreadyConverted:
		return Classification{CodeConflict, v.Error(), map[string]any{"quote_id": v.QuoteID}}, true
	case PhoneAlreadyRegistered:
		return Classification{CodeConflict, v.Error(), map[string]any{"phone": v.Phone}}, true
	case InvoiceHasNoItems:
		return Classification{CodeConflict, v.Error(), map[string]any{"invoice_id": v.InvoiceID}}, true
	case InvoiceHasPayments:
		return Classification{CodeConflict, v.Error(), map[string]any{"invoice_id": v.InvoiceID}}, true
	case InvoiceHasJobs:
		return Classification{CodeConflict, v.Error(), map[string]any{"invoice_id": v.InvoiceID}}, true
	case JobsAlreadyCreated:
		return Classification{CodeConflict, v.Error(), map[string]any{"invoice_id": v.InvoiceID}}, true
	case JobAlreadyAccepted:
		return Classification{CodeConflict, v.Error(), map[string]any{"job_id": v.JobID}}, true
	case JobAlreadyCompleted:
		return Classification{CodeConflict, v.Error(), map[string]any{"job_id": v.JobID}}, true
	case JobNotAccepted:
		return Classification{CodeConflict, v.Error(), map[string]any{"job_id": v.JobID}}, true
	case JobCannotBeReversed:
		return Classification{CodeConflict, v.Error(), map[string]any{"job_id": v.JobID}}, true
	case EODAlreadyExists:
		return Classification{CodeConflict, v.Error(), map[string]any{"record_date": v.RecordDate.Format(dateLayout)}}, true
	case SODAlreadyExists:
		return Classification{CodeConflict, v.Error(), map[string]any{"record_date": v.RecordDate.Format(dateLayout)}}, true
	case PaymentExceedsBalance:
		return Classification{CodeBadRequest, v.Error(), map[string]any{
			"invoice_id": v.InvoiceID,
			"balance":    v.Balance,
			"attempted":  v.Attempted,
		}}, true
	default:
		return Classification{}, false
	}
}

// unwrap digs through fmt.Errorf chains so services may annotate a tagged
// failure without hiding it from classification.
func unwrap(err error) error {
	for err != nil {
		switch err.(type) {
		case QuoteNotFound, QuoteAlreadyConverted, CustomerNotFound, PhoneAlreadyRegistered,
			InvoiceNotFound, InvoiceItemNotFound, InvoiceHasNoItems, InvoiceHasPayments, InvoiceHasJobs, PaymentExceedsBalance,
			JobNotFound, JobsAlreadyCreated, JobAlreadyAccepted, JobAlreadyCompleted,
			JobNotAccepted, JobCannotBeReversed, EODAlreadyExists, SODAlreadyExists, EODNotFound:
			return err
		}
		err = errors.Unwrap(err)
	}
	return nil
}
