package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/internal/core/ports/mocks"
	"chainpay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type paymentTestDeps struct {
	svc          *PaymentServiceImpl
	paymentRepo  *mocks.MockPaymentRepository
	businessRepo *mocks.MockBusinessRepository
	allocator    *mocks.MockAllocator
	idempCache   *mocks.MockIdempotencyCache
	transactor   *mocks.MockDBTransactor
	ctrl         *gomock.Controller
}

func setupPaymentService(t *testing.T) *paymentTestDeps {
	ctrl := gomock.NewController(t)
	d := &paymentTestDeps{
		paymentRepo:  mocks.NewMockPaymentRepository(ctrl),
		businessRepo: mocks.NewMockBusinessRepository(ctrl),
		allocator:    mocks.NewMockAllocator(ctrl),
		idempCache:   mocks.NewMockIdempotencyCache(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewPaymentService(
		d.paymentRepo, d.businessRepo, d.allocator, d.idempCache, d.transactor,
		allocatorSeed,
		map[domain.Chain]time.Duration{domain.ChainEthereum: 15 * time.Minute},
		zerolog.Nop(),
	)
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func testBusiness(id uuid.UUID) *domain.Business {
	return &domain.Business{
		ID:   id,
		Name: "Acme Store",
		Tier: domain.TierFree,
		Wallets: map[domain.Chain]string{
			domain.ChainEthereum: "0x000000000000000000000000000000000000dEaD",
			domain.ChainBitcoin:  "1BoatSLRHtKNngkdXEeobR76b53LETtpyT",
		},
	}
}

func TestPaymentService_CreatePayment_Success(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	businessID := uuid.New()
	tx := &mockTx{}

	req := ports.CreatePaymentRequest{
		BusinessID:  businessID,
		ReferenceID: "ORDER-001",
		Amount:      "1.5",
		Chain:       domain.ChainEthereum,
		Description: "test order",
	}

	idempKey := domain.BuildIdempotencyKey(businessID, "ORDER-001")

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.businessRepo.EXPECT().GetByID(ctx, businessID).Return(testBusiness(businessID), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.allocator.EXPECT().Allocate(ctx, tx, gomock.Any(), domain.ChainEthereum, allocatorSeed).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, paymentID uuid.UUID, chain domain.Chain, _ []byte) (*domain.PaymentAddress, error) {
			return &domain.PaymentAddress{
				ID:        uuid.New(),
				PaymentID: paymentID,
				Chain:     chain,
				Address:   "0x1111111111111111111111111111111111111111",
			}, nil
		})
	d.paymentRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, idempKey, gomock.Any(), idempotencyTTL).Return(nil)

	payment, err := d.svc.CreatePayment(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", payment.Address)
	assert.Equal(t, "1.5", payment.ExpectedAmount)
	assert.Equal(t, "0x000000000000000000000000000000000000dEaD", payment.DestinationWallet)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), payment.ExpiresAt, 5*time.Second)
}

func TestPaymentService_CreatePayment_IdempotentReplay(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	businessID := uuid.New()
	existing := &domain.Payment{
		ID:             uuid.New(),
		BusinessID:     businessID,
		Chain:          domain.ChainEthereum,
		ExpectedAmount: "1.5",
		Status:         domain.PaymentStatusPending,
		Address:        "0x2222222222222222222222222222222222222222",
	}
	cached, err := json.Marshal(existing)
	require.NoError(t, err)

	idempKey := domain.BuildIdempotencyKey(businessID, "ORDER-001")
	d.idempCache.EXPECT().Get(ctx, idempKey).Return(cached, nil)

	payment, err := d.svc.CreatePayment(ctx, ports.CreatePaymentRequest{
		BusinessID:  businessID,
		ReferenceID: "ORDER-001",
		Amount:      "1.5",
		Chain:       domain.ChainEthereum,
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, payment.ID)
	assert.Equal(t, existing.Address, payment.Address, "replay must not allocate a new address")
}

func TestPaymentService_CreatePayment_ReferenceReuseConflict(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	businessID := uuid.New()
	existing := &domain.Payment{
		ID:             uuid.New(),
		BusinessID:     businessID,
		Chain:          domain.ChainEthereum,
		ExpectedAmount: "1.5",
		Status:         domain.PaymentStatusPending,
	}
	cached, err := json.Marshal(existing)
	require.NoError(t, err)

	idempKey := domain.BuildIdempotencyKey(businessID, "ORDER-001")
	d.idempCache.EXPECT().Get(ctx, idempKey).Return(cached, nil).Times(2)

	// Same reference, different amount.
	_, err = d.svc.CreatePayment(ctx, ports.CreatePaymentRequest{
		BusinessID:  businessID,
		ReferenceID: "ORDER-001",
		Amount:      "2.0",
		Chain:       domain.ChainEthereum,
	})
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PAY_003", appErr.Code)

	// Same reference, different chain.
	_, err = d.svc.CreatePayment(ctx, ports.CreatePaymentRequest{
		BusinessID:  businessID,
		ReferenceID: "ORDER-001",
		Amount:      "1.5",
		Chain:       domain.ChainPolygon,
	})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PAY_003", appErr.Code)
}

func TestPaymentService_CreatePayment_Validation(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	cases := []struct {
		name string
		req  ports.CreatePaymentRequest
		code string
	}{
		{"unsupported chain", ports.CreatePaymentRequest{Chain: "ripple", Amount: "1", ReferenceID: "r"}, "CHAIN_001"},
		{"zero amount", ports.CreatePaymentRequest{Chain: domain.ChainEthereum, Amount: "0", ReferenceID: "r"}, "PAY_001"},
		{"negative amount", ports.CreatePaymentRequest{Chain: domain.ChainEthereum, Amount: "-1", ReferenceID: "r"}, "PAY_001"},
		{"malformed amount", ports.CreatePaymentRequest{Chain: domain.ChainEthereum, Amount: "1.2.3", ReferenceID: "r"}, "PAY_001"},
		{"missing reference", ports.CreatePaymentRequest{Chain: domain.ChainEthereum, Amount: "1"}, "PAY_001"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.svc.CreatePayment(context.Background(), tc.req)
			require.Error(t, err)
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tc.code, appErr.Code)
		})
	}
}

func TestPaymentService_CreatePayment_NoDestinationWallet(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	businessID := uuid.New()

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.businessRepo.EXPECT().GetByID(ctx, businessID).Return(testBusiness(businessID), nil)

	// testBusiness has no solana wallet configured.
	_, err := d.svc.CreatePayment(ctx, ports.CreatePaymentRequest{
		BusinessID:  businessID,
		ReferenceID: "ORDER-002",
		Amount:      "5",
		Chain:       domain.ChainSolana,
	})
	require.Error(t, err)
}

func TestPaymentService_CreatePayment_AllocatorFailureRollsBack(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	businessID := uuid.New()
	tx := &mockTx{}

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.businessRepo.EXPECT().GetByID(ctx, businessID).Return(testBusiness(businessID), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.allocator.EXPECT().Allocate(ctx, tx, gomock.Any(), domain.ChainBitcoin, gomock.Any()).
		Return(nil, errors.New("index exhausted"))

	_, err := d.svc.CreatePayment(ctx, ports.CreatePaymentRequest{
		BusinessID:  businessID,
		ReferenceID: "ORDER-003",
		Amount:      "0.01",
		Chain:       domain.ChainBitcoin,
	})
	assert.Error(t, err)
}

func TestPaymentService_CreatePayment_RedisOutageFallsThrough(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	businessID := uuid.New()
	tx := &mockTx{}

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(nil, errors.New("redis down"))
	d.businessRepo.EXPECT().GetByID(ctx, businessID).Return(testBusiness(businessID), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.allocator.EXPECT().Allocate(ctx, tx, gomock.Any(), domain.ChainEthereum, gomock.Any()).
		Return(&domain.PaymentAddress{ID: uuid.New(), Address: "0x3333333333333333333333333333333333333333"}, nil)
	d.paymentRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), idempotencyTTL).Return(errors.New("redis down"))

	payment, err := d.svc.CreatePayment(ctx, ports.CreatePaymentRequest{
		BusinessID:  businessID,
		ReferenceID: "ORDER-004",
		Amount:      "2",
		Chain:       domain.ChainEthereum,
	})
	require.NoError(t, err, "cache outage must not block payment creation")
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)
}

func TestPaymentService_GetPayment(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	d.paymentRepo.EXPECT().GetByID(ctx, id).Return(&domain.Payment{ID: id}, nil)

	payment, err := d.svc.GetPayment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, payment.ID)

	missing := uuid.New()
	d.paymentRepo.EXPECT().GetByID(ctx, missing).Return(nil, nil)
	_, err = d.svc.GetPayment(ctx, missing)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAY_002", appErr.Code)
}
