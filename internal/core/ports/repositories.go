package ports

import (
	"context"
	"time"

	"chainpay-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentRepository defines persistence operations for payments.
type PaymentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// ListInFlight returns up to limit payments on the given chain that are
	// in a non-terminal pre-forwarding state, oldest first.
	ListInFlight(ctx context.Context, chain domain.Chain, limit int) ([]domain.Payment, error)

	// TransitionStatus performs a compare-and-set status move. It returns
	// false (and mutates nothing) when the payment is not currently in the
	// expected from status. The persisted guard is what makes forwarding
	// crash-safe and at-most-once.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus) (bool, error)

	// UpdateDeposit records the inbound deposit observation.
	UpdateDeposit(ctx context.Context, id uuid.UUID, receivedAmount, txHash string, detectedBlock *uint64, confirmations uint64) error

	// UpdateConfirmations refreshes only the confirmation counter.
	UpdateConfirmations(ctx context.Context, id uuid.UUID, confirmations uint64) error

	// RecordForwardResult stores the split and the outbound transaction hash
	// alongside the terminal status, atomically.
	RecordForwardResult(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, forwardTxHash, commission, merchant string, failureReason *string, forwardedAt time.Time) error
}

// AddressRepository defines persistence for payment addresses and their
// encrypted key records. Address and key row are written as one atomic unit.
type AddressRepository interface {
	// CreateWithKey persists the address and its encrypted key inside tx.
	CreateWithKey(ctx context.Context, tx pgx.Tx, addr *domain.PaymentAddress, key *domain.EncryptedKeyRecord) error

	GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*domain.PaymentAddress, error)

	// NextDerivationIndex returns the next unused index for a chain inside
	// tx, locking so concurrent allocations never reuse an index.
	NextDerivationIndex(ctx context.Context, tx pgx.Tx, chain domain.Chain) (uint32, error)

	GetKeyRecord(ctx context.Context, addressID uuid.UUID) (*domain.EncryptedKeyRecord, error)
}

// BusinessRepository reads merchant accounts. Account CRUD lives in the
// dashboard layer; the engine only reads.
type BusinessRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Business, error)
}

// WebhookAttemptRepository appends to the delivery audit log.
type WebhookAttemptRepository interface {
	Append(ctx context.Context, attempt *domain.WebhookAttempt) error
	ListByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]domain.WebhookAttempt, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
