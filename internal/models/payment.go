package models

import "time"

// PaymentStatus is the settlement lifecycle of a payment attempt.
// COMPLETED is terminal; a completed payment is never re-initiated.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// ValidPaymentStatus reports whether s names a known settlement status.
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}

// Payment is the single settlement record for an order. Retries mutate this
// row and regenerate the transaction id rather than creating a new row.
type Payment struct {
	ID            int64         `json:"paymentId"`
	OrderID       int64         `json:"orderId"`
	UserID        int64         `json:"userId"`
	TransactionID string        `json:"transactionId"`
	Amount        float64       `json:"amount"`
	Status        PaymentStatus `json:"status"`
	PaymentDate   time.Time     `json:"paymentDate"`
}

// DiscountCode is a read-only snapshot from this core's perspective; the
// active flag is toggled by the external seasonal scheduler.
type DiscountCode struct {
	ID         int64     `json:"discountId"`
	Code       string    `json:"code"`
	Rate       float64   `json:"discountRate"`
	IsActive   bool      `json:"isActive"`
	ExpiryDate time.Time `json:"expiryDate"`
}
