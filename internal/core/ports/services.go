package ports

import (
	"context"
	"math/big"
	"time"

	"chainpay-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// KeyVault encrypts and decrypts private-key material with the process-wide
// master key. Decrypt is only ever called inside the forwarder's execution
// scope; the returned plaintext must be zeroed after the signing operation
// and must never be logged or serialized.
type KeyVault interface {
	Encrypt(privateKey []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// SignatureService signs webhook payloads.
type SignatureService interface {
	// Sign returns the signature header value in t=<timestamp>,v1=<hex> form.
	Sign(secret string, timestamp int64, body []byte) string
	Verify(secret string, timestamp int64, body []byte, header string) bool
}

// TokenService handles JWT tokens for the operator read API.
type TokenService interface {
	Generate(businessID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	BusinessID uuid.UUID
}

// ManualProcessingMarker is returned by SendTransaction on chains without
// automatic broadcast. The forwarder records it as the transaction reference
// so the transfer surfaces for operator follow-up instead of failing
// silently.
const ManualProcessingMarker = "MANUAL_PROCESSING_REQUIRED"

// Deposit describes an observed incoming transfer at a payment address. On
// account-model chains the transaction hash may be unknown; confirmations
// are then counted from the block height recorded at detection.
type Deposit struct {
	TxHash        string
	Amount        *big.Int
	Confirmations uint64
}

// ChainProvider is the per-chain capability set. One implementation per
// supported chain; all implementations are stateless request issuers and
// safe for concurrent use.
type ChainProvider interface {
	Chain() domain.Chain
	GetBalance(ctx context.Context, address string) (*big.Int, error)
	GetConfirmations(ctx context.Context, txHash string) (uint64, error)
	FindDeposit(ctx context.Context, address string) (*Deposit, error)
	HeadBlock(ctx context.Context) (uint64, error)
	SendTransaction(ctx context.Context, from, to string, amount *big.Int, privateKey []byte) (string, error)
}

// ProviderRegistry resolves the provider for a chain, selected once at the
// allocator boundary rather than by string comparison at each call site.
type ProviderRegistry interface {
	Provider(chain domain.Chain) (ChainProvider, error)
}

// Entitlements is the subscription lookup consumed by the forwarder to
// select the commission rate.
type Entitlements interface {
	IsPaidTier(ctx context.Context, businessID uuid.UUID) (bool, error)
}

// IdempotencyCache is the redis-backed create-payment idempotency check.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// PollLock serializes chain scans across gateway instances.
type PollLock interface {
	// TryAcquire returns true when this instance owns the chain scan slot.
	TryAcquire(ctx context.Context, chain domain.Chain, ttl time.Duration) (bool, error)
	Release(ctx context.Context, chain domain.Chain) error
}

// Allocator derives fresh payment addresses. Allocate runs inside the
// caller's transaction so the address, its encrypted key, and the payment
// row commit or roll back together.
type Allocator interface {
	Allocate(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID, chain domain.Chain, seed []byte) (*domain.PaymentAddress, error)
}

// Forwarder executes the commission split and on-chain transfer for a
// confirmed payment, exactly once.
type Forwarder interface {
	Forward(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error)
}

// WebhookNotifier signs and delivers terminal-state events with bounded
// retries and attempt logging.
type WebhookNotifier interface {
	Notify(ctx context.Context, payment *domain.Payment, eventType string) error
}

// PaymentService is the API-facing facade consumed by the HTTP layer.
type PaymentService interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*domain.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
}

// CreatePaymentRequest carries the createPayment operation input.
type CreatePaymentRequest struct {
	BusinessID  uuid.UUID
	ReferenceID string
	Amount      string
	Chain       domain.Chain
	Description string
	Seed        []byte
}
