package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/internal/wallet"
	"chainpay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	idempotencyTTL    = 24 * time.Hour
	defaultPaymentTTL = 30 * time.Minute
)

// PaymentServiceImpl implements ports.PaymentService.
type PaymentServiceImpl struct {
	paymentRepo  ports.PaymentRepository
	businessRepo ports.BusinessRepository
	allocator    ports.Allocator
	idempCache   ports.IdempotencyCache
	transactor   ports.DBTransactor
	seed         []byte
	ttls         map[domain.Chain]time.Duration
	log          zerolog.Logger
}

// NewPaymentService creates a new PaymentServiceImpl. seed is the gateway's
// master wallet seed; ttls carries the per-chain payment window.
func NewPaymentService(
	paymentRepo ports.PaymentRepository,
	businessRepo ports.BusinessRepository,
	allocator ports.Allocator,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	seed []byte,
	ttls map[domain.Chain]time.Duration,
	log zerolog.Logger,
) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		paymentRepo:  paymentRepo,
		businessRepo: businessRepo,
		allocator:    allocator,
		idempCache:   idempCache,
		transactor:   transactor,
		seed:         seed,
		ttls:         ttls,
		log:          log,
	}
}

// CreatePayment allocates a one-time address and opens a pending payment.
// Re-submitting the same (business, reference) pair within the idempotency
// window returns the original payment instead of allocating again.
func (s *PaymentServiceImpl) CreatePayment(ctx context.Context, req ports.CreatePaymentRequest) (*domain.Payment, error) {
	if _, ok := domain.ParseChain(string(req.Chain)); !ok {
		return nil, apperror.ErrUnsupportedChain(string(req.Chain))
	}
	smallest, err := wallet.ToSmallestUnit(req.Amount, req.Chain.Decimals())
	if err != nil || smallest.Sign() <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.ReferenceID == "" {
		return nil, apperror.Validation("reference_id is required")
	}

	idempKey := domain.BuildIdempotencyKey(req.BusinessID, req.ReferenceID)

	cached, err := s.idempCache.Get(ctx, idempKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency check failed, falling through")
	}
	if cached != nil {
		payment, err := s.unmarshalCachedPayment(cached)
		if err != nil {
			return nil, err
		}
		// Reusing a reference with different parameters is a conflict, not a replay.
		if payment.ExpectedAmount != req.Amount || payment.Chain != req.Chain {
			return nil, apperror.ErrDuplicatePayment()
		}
		return payment, nil
	}

	business, err := s.businessRepo.GetByID(ctx, req.BusinessID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load business: %w", err))
	}
	if business == nil {
		return nil, apperror.ErrNotFound("business")
	}
	destination, ok := business.DestinationWallet(req.Chain)
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("business has no %s destination wallet", req.Chain))
	}

	seed := req.Seed
	if seed == nil {
		seed = s.seed
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	paymentID := uuid.New()
	addr, err := s.allocator.Allocate(ctx, dbTx, paymentID, req.Chain, seed)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:                paymentID,
		BusinessID:        req.BusinessID,
		Chain:             req.Chain,
		ExpectedAmount:    req.Amount,
		AddressID:         addr.ID,
		Address:           addr.Address,
		Status:            domain.PaymentStatusPending,
		DestinationWallet: destination,
		Description:       req.Description,
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.paymentTTL(req.Chain)),
	}

	if err := s.paymentRepo.Create(ctx, dbTx, payment); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create payment: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if respJSON, err := json.Marshal(payment); err == nil {
		if err := s.idempCache.Set(ctx, idempKey, respJSON, idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", idempKey).Msg("caching idempotency response failed")
		}
	}

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("business_id", req.BusinessID.String()).
		Str("chain", string(req.Chain)).
		Str("address", payment.Address).
		Str("expected_amount", payment.ExpectedAmount).
		Msg("payment created")

	return payment, nil
}

// GetPayment returns a payment by ID.
func (s *PaymentServiceImpl) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get payment: %w", err))
	}
	if payment == nil {
		return nil, apperror.ErrNotFound("payment")
	}
	return payment, nil
}

func (s *PaymentServiceImpl) paymentTTL(chain domain.Chain) time.Duration {
	if ttl, ok := s.ttls[chain]; ok && ttl > 0 {
		return ttl
	}
	return defaultPaymentTTL
}

func (s *PaymentServiceImpl) unmarshalCachedPayment(data []byte) (*domain.Payment, error) {
	var payment domain.Payment
	if err := json.Unmarshal(data, &payment); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached payment: %w", err))
	}
	return &payment, nil
}
