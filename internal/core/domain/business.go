package domain

import (
	"time"

	"github.com/google/uuid"
)

// BusinessTier selects the commission schedule.
type BusinessTier string

const (
	TierFree BusinessTier = "free"
	TierPaid BusinessTier = "paid"
)

// Business is a merchant account receiving forwarded funds. Account CRUD
// lives in the dashboard layer; this engine only reads the fields it needs:
// destination wallets, webhook configuration and the subscription tier.
type Business struct {
	ID               uuid.UUID         `json:"id"`
	Name             string            `json:"name"`
	Tier             BusinessTier      `json:"tier"`
	Wallets          map[Chain]string  `json:"wallets"` // chain -> destination address
	WebhookURL       *string           `json:"webhook_url,omitempty"`
	WebhookSecretEnc string            `json:"-"` // AES-256 encrypted signing secret
	CreatedAt        time.Time         `json:"created_at"`
}

// DestinationWallet returns the business's long-lived wallet for a chain.
func (b *Business) DestinationWallet(chain Chain) (string, bool) {
	addr, ok := b.Wallets[chain]
	return addr, ok && addr != ""
}

// IsPaidTier reports whether the reduced commission rate applies.
func (b *Business) IsPaidTier() bool {
	return b.Tier == TierPaid
}
