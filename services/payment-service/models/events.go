package models

import "time"

// Domain event types published to SNS after a successful reconciliation.
const (
	EventOrderPaid      = "order_paid"
	EventTrainingBooked = "training_booked"
)

// PaymentEvent is the message published to the payment events topic.
type PaymentEvent struct {
	Type       string    `json:"type"`
	SessionID  string    `json:"session_id"`
	OrderID    string    `json:"order_id,omitempty"`
	BookingID  string    `json:"booking_id,omitempty"`
	TrainingID string    `json:"training_id,omitempty"`
	Email      string    `json:"email"`
	Amount     int64     `json:"amount"`   // smallest currency unit
	Currency   string    `json:"currency"` // "pln", "eur"
	InvoiceURL string    `json:"invoice_url,omitempty"`
	Timestamp  time.Time `json:"timestamp"` // UTC event time
}

// ManualReview is enqueued when a paid session cannot be reconciled and
// retrying the webhook would not help.
type ManualReview struct {
	SessionID     string            `json:"sessionId"`
	Kind          PurchaseKind      `json:"kind"`
	Reason        string            `json:"reason"`
	AmountTotal   int64             `json:"amountTotal"`
	Currency      string            `json:"currency"`
	CustomerEmail string            `json:"customerEmail"`
	Metadata      map[string]string `json:"metadata"`
	FailedAt      time.Time         `json:"failedAt"`
}
