package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentAddress is a one-time receiving address derived for a single
// payment. Immutable once created; an address is never reused.
type PaymentAddress struct {
	ID              uuid.UUID `json:"id"`
	PaymentID       uuid.UUID `json:"payment_id"`
	Chain           Chain     `json:"blockchain"`
	Address         string    `json:"address"`
	DerivationIndex uint32    `json:"derivation_index"`
	KeyRecordID     uuid.UUID `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}

// EncryptedKeyRecord holds the AES-GCM ciphertext of a derived private key.
// Plaintext key material never reaches storage or logs; the ciphertext is
// only decryptable with the platform master key, and only the forwarder
// ever asks for the plaintext.
type EncryptedKeyRecord struct {
	ID         uuid.UUID `json:"id"`
	AddressID  uuid.UUID `json:"address_id"`
	Chain      Chain     `json:"blockchain"`
	Ciphertext string    `json:"-"` // hex: nonce || sealed key
	CreatedAt  time.Time `json:"created_at"`
}
