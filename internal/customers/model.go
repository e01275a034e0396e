package customers

import "time"

// Customer is a shop customer. Phone is the unique lookup key used on the
// floor; VIP customers get their discount percent applied at quote
// conversion.
type Customer struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	Email           *string    `json:"email,omitempty"`
	Birthday        *time.Time `json:"birthday,omitempty"`
	IsVIP           bool       `json:"is_vip"`
	DiscountPercent int        `json:"discount_percent"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateCustomerRequest carries the fields floor staff submit.
type CreateCustomerRequest struct {
	Name            string
	Phone           string
	Email           *string
	Birthday        *time.Time
	IsVIP           bool
	DiscountPercent int
}

// ListCustomersRequest filters the customer list.
type ListCustomersRequest struct {
	Search string
	Limit  int
	Offset int
}
