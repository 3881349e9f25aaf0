package domain

import (
	"time"

	"github.com/google/uuid"
)

// Webhook event types emitted on terminal payment states.
const (
	EventPaymentForwarded        = "payment.forwarded"
	EventPaymentForwardingFailed = "payment.forwarding_failed"
	EventPaymentExpired          = "payment.expired"
)

// WebhookAttempt records one delivery attempt of a terminal-state event.
// The attempt log is append-only: rows are never mutated, so operators can
// audit exactly what was sent and when.
type WebhookAttempt struct {
	ID            uuid.UUID `json:"id"`
	PaymentID     uuid.UUID `json:"payment_id"`
	EventType     string    `json:"event_type"`
	URL           string    `json:"url"`
	AttemptNumber int       `json:"attempt_number"`
	Success       bool      `json:"success"`
	StatusCode    *int      `json:"status_code,omitempty"`
	ErrorMessage  *string   `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// WebhookEvent is the JSON body delivered to the business webhook URL.
type WebhookEvent struct {
	Event      string `json:"event"`
	PaymentID  string `json:"payment_id"`
	BusinessID string `json:"business_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Blockchain string `json:"blockchain"`
	TxHash     string `json:"tx_hash,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}
