package postgres

import (
	"context"
	"errors"
	"fmt"

	"chainpay-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AddressRepo implements ports.AddressRepository.
type AddressRepo struct {
	pool Pool
}

// NewAddressRepo creates a new AddressRepo.
func NewAddressRepo(pool Pool) *AddressRepo {
	return &AddressRepo{pool: pool}
}

// CreateWithKey persists the address and its encrypted key record inside tx
// as one atomic unit.
func (r *AddressRepo) CreateWithKey(ctx context.Context, tx pgx.Tx, addr *domain.PaymentAddress, key *domain.EncryptedKeyRecord) error {
	addrQuery := `INSERT INTO payment_addresses (id, payment_id, blockchain, address, derivation_index, key_record_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.Exec(ctx, addrQuery,
		addr.ID, addr.PaymentID, addr.Chain, addr.Address, addr.DerivationIndex, addr.KeyRecordID, addr.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert payment address: %w", err)
	}

	keyQuery := `INSERT INTO encrypted_keys (id, address_id, blockchain, ciphertext, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.Exec(ctx, keyQuery,
		key.ID, key.AddressID, key.Chain, key.Ciphertext, key.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert encrypted key: %w", err)
	}
	return nil
}

// GetByPaymentID fetches the address allocated to a payment.
func (r *AddressRepo) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*domain.PaymentAddress, error) {
	query := `SELECT id, payment_id, blockchain, address, derivation_index, key_record_id, created_at
		FROM payment_addresses WHERE payment_id = $1`

	addr := &domain.PaymentAddress{}
	err := r.pool.QueryRow(ctx, query, paymentID).Scan(
		&addr.ID, &addr.PaymentID, &addr.Chain, &addr.Address, &addr.DerivationIndex, &addr.KeyRecordID, &addr.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment address: %w", err)
	}
	return addr, nil
}

// NextDerivationIndex claims the next unused index for a chain inside tx.
// The counter row is locked for the duration of the transaction so
// concurrent allocations never observe the same index.
func (r *AddressRepo) NextDerivationIndex(ctx context.Context, tx pgx.Tx, chain domain.Chain) (uint32, error) {
	query := `INSERT INTO derivation_counters (blockchain, next_index) VALUES ($1, 1)
		ON CONFLICT (blockchain) DO UPDATE SET next_index = derivation_counters.next_index + 1
		RETURNING next_index - 1`

	var index uint32
	if err := tx.QueryRow(ctx, query, chain).Scan(&index); err != nil {
		return 0, fmt.Errorf("claim derivation index: %w", err)
	}
	return index, nil
}

// GetKeyRecord fetches the encrypted key of an address.
func (r *AddressRepo) GetKeyRecord(ctx context.Context, addressID uuid.UUID) (*domain.EncryptedKeyRecord, error) {
	query := `SELECT id, address_id, blockchain, ciphertext, created_at
		FROM encrypted_keys WHERE address_id = $1`

	key := &domain.EncryptedKeyRecord{}
	err := r.pool.QueryRow(ctx, query, addressID).Scan(
		&key.ID, &key.AddressID, &key.Chain, &key.Ciphertext, &key.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan encrypted key: %w", err)
	}
	return key, nil
}
