package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the lifecycle state of a payment.
// Statuses only ever move forward; terminal states never transition again.
type PaymentStatus string

const (
	PaymentStatusPending          PaymentStatus = "pending"
	PaymentStatusDetected         PaymentStatus = "detected"
	PaymentStatusConfirming       PaymentStatus = "confirming"
	PaymentStatusConfirmed        PaymentStatus = "confirmed"
	PaymentStatusForwarding       PaymentStatus = "forwarding"
	PaymentStatusForwarded        PaymentStatus = "forwarded"
	PaymentStatusForwardingFailed PaymentStatus = "forwarding_failed"
	PaymentStatusExpired          PaymentStatus = "expired"
)

// transitions is the full forward-only transition table.
var transitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusDetected, PaymentStatusExpired},
	PaymentStatusDetected:   {PaymentStatusConfirming, PaymentStatusConfirmed, PaymentStatusExpired},
	PaymentStatusConfirming: {PaymentStatusConfirmed, PaymentStatusExpired},
	PaymentStatusConfirmed:  {PaymentStatusForwarding},
	PaymentStatusForwarding: {PaymentStatusForwarded, PaymentStatusForwardingFailed},
}

// CanTransition reports whether moving from -> to is a legal lifecycle step.
func CanTransition(from, to PaymentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status is final.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusForwarded ||
		s == PaymentStatusForwardingFailed ||
		s == PaymentStatusExpired
}

// Payment represents one expected deposit at a one-time address, through
// detection, confirmation and forwarding.
type Payment struct {
	ID             uuid.UUID     `json:"id"`
	BusinessID     uuid.UUID     `json:"business_id"`
	Chain          Chain         `json:"blockchain"`
	ExpectedAmount string        `json:"expected_amount"` // decimal string in display units
	AddressID      uuid.UUID     `json:"address_id"`
	Address        string        `json:"address"`
	Status         PaymentStatus `json:"status"`
	Confirmations  uint64        `json:"confirmations"`

	// Inbound deposit, populated at detection.
	ReceivedAmount string  `json:"received_amount,omitempty"` // smallest-unit integer string
	TxHash         string  `json:"tx_hash,omitempty"`
	DetectedBlock  *uint64 `json:"-"` // confirmation baseline when the deposit has no tx hash

	// Outbound forwarding result.
	ForwardTxHash    string `json:"forward_tx_hash,omitempty"`
	CommissionAmount string `json:"commission_amount,omitempty"` // smallest-unit integer string
	MerchantAmount   string `json:"merchant_amount,omitempty"`   // smallest-unit integer string
	DestinationWallet string `json:"destination_wallet"`
	FailureReason    *string `json:"failure_reason,omitempty"`

	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	ForwardedAt *time.Time `json:"forwarded_at,omitempty"`
}

// IsTerminal reports whether the payment reached a final state.
func (p *Payment) IsTerminal() bool {
	return p.Status.IsTerminal()
}

// IsExpired reports whether the payment's deadline has passed while it is
// still in a pre-confirmation state. Confirmed and later payments run to
// completion regardless of the deadline.
func (p *Payment) IsExpired(now time.Time) bool {
	switch p.Status {
	case PaymentStatusPending, PaymentStatusDetected, PaymentStatusConfirming:
		return now.After(p.ExpiresAt)
	default:
		return false
	}
}

// BuildIdempotencyKey builds the create-payment idempotency cache key.
func BuildIdempotencyKey(businessID uuid.UUID, referenceID string) string {
	return fmt.Sprintf("%s:%s", businessID, referenceID)
}
