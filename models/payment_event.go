package models

import "time"

// Payment event types published to Kafka.
const (
	PaymentEventAuthorized = "payment_authorized"
	PaymentEventCompleted  = "payment_completed"
	PaymentEventVoided     = "payment_voided"
	PaymentEventRefunded   = "payment_refunded"
)

// PaymentEvent is the message published after a payment state transition.
type PaymentEvent struct {
	Type      string    `json:"type"`
	OrderID   string    `json:"order_id"`
	PaymentID string    `json:"payment_id"`
	State     string    `json:"state"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	RemoteID  string    `json:"remote_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
