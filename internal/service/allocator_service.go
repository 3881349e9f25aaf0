package service

import (
	"context"
	"fmt"
	"time"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/internal/wallet"
	"chainpay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// AllocatorService implements ports.Allocator. Each allocation claims the
// next unused derivation index for the chain, derives the keypair, and
// persists the address together with the vault-encrypted private key. The
// plaintext key is zeroed before Allocate returns.
type AllocatorService struct {
	addrRepo ports.AddressRepository
	vault    ports.KeyVault
	log      zerolog.Logger
}

// NewAllocatorService creates a new AllocatorService.
func NewAllocatorService(addrRepo ports.AddressRepository, vault ports.KeyVault, log zerolog.Logger) *AllocatorService {
	return &AllocatorService{
		addrRepo: addrRepo,
		vault:    vault,
		log:      log,
	}
}

// Allocate derives and persists a fresh address for the payment inside tx.
// Re-invocation for a payment that already holds an address returns the
// existing one instead of claiming a new index.
func (s *AllocatorService) Allocate(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID, chain domain.Chain, seed []byte) (*domain.PaymentAddress, error) {
	existing, err := s.addrRepo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lookup payment address: %w", err))
	}
	if existing != nil {
		return existing, nil
	}

	index, err := s.addrRepo.NextDerivationIndex(ctx, tx, chain)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("next derivation index: %w", err))
	}

	km, err := wallet.Derive(seed, chain, index)
	if err != nil {
		return nil, err
	}
	defer km.Zero()

	ciphertext, err := s.vault.Encrypt(km.PrivateKey)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	addr := &domain.PaymentAddress{
		ID:              uuid.New(),
		PaymentID:       paymentID,
		Chain:           chain,
		Address:         km.Address,
		DerivationIndex: index,
		CreatedAt:       now,
	}
	key := &domain.EncryptedKeyRecord{
		ID:         uuid.New(),
		AddressID:  addr.ID,
		Chain:      chain,
		Ciphertext: ciphertext,
		CreatedAt:  now,
	}
	addr.KeyRecordID = key.ID

	if err := s.addrRepo.CreateWithKey(ctx, tx, addr, key); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("persist address: %w", err))
	}

	s.log.Info().
		Str("payment_id", paymentID.String()).
		Str("chain", string(chain)).
		Uint32("derivation_index", index).
		Str("address", km.Address).
		Msg("allocated payment address")

	return addr, nil
}
