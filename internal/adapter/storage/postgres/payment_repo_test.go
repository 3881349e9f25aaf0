package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment() *domain.Payment {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Payment{
		ID:                uuid.New(),
		BusinessID:        uuid.New(),
		Chain:             domain.ChainEthereum,
		ExpectedAmount:    "1.5",
		AddressID:         uuid.New(),
		Address:           "0x1111111111111111111111111111111111111111",
		Status:            domain.PaymentStatusPending,
		DestinationWallet: "0x000000000000000000000000000000000000dEaD",
		CreatedAt:         now,
		ExpiresAt:         now.Add(30 * time.Minute),
	}
}

func paymentColumnNames() []string {
	return []string{"id", "business_id", "blockchain", "expected_amount", "address_id", "address", "status",
		"confirmations", "received_amount", "tx_hash", "detected_block", "forward_tx_hash",
		"commission_amount", "merchant_amount", "destination_wallet", "failure_reason",
		"description", "created_at", "expires_at", "forwarded_at"}
}

func paymentRow(p *domain.Payment) *pgxmock.Rows {
	return pgxmock.NewRows(paymentColumnNames()).AddRow(
		p.ID, p.BusinessID, p.Chain, p.ExpectedAmount, p.AddressID, p.Address, p.Status,
		p.Confirmations, p.ReceivedAmount, p.TxHash, p.DetectedBlock, p.ForwardTxHash,
		p.CommissionAmount, p.MerchantAmount, p.DestinationWallet, p.FailureReason,
		p.Description, p.CreatedAt, p.ExpiresAt, p.ForwardedAt,
	)
}

func TestPaymentRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").
		WithArgs(p.ID, p.BusinessID, p.Chain, p.ExpectedAmount, p.AddressID, p.Address, p.Status,
			p.Confirmations, p.ReceivedAmount, p.TxHash, p.DetectedBlock, p.ForwardTxHash,
			p.CommissionAmount, p.MerchantAmount, p.DestinationWallet, p.FailureReason,
			p.Description, p.CreatedAt, p.ExpiresAt, p.ForwardedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment()

	mock.ExpectQuery("SELECT (.+) FROM payments WHERE id").
		WithArgs(p.ID).
		WillReturnRows(paymentRow(p))

	got, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Address, got.Address)
	assert.Equal(t, domain.PaymentStatusPending, got.Status)
}

func TestPaymentRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM payments WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(paymentColumnNames()))

	got, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPaymentRepo_ListInFlight(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	a, b := newTestPayment(), newTestPayment()

	rows := pgxmock.NewRows(paymentColumnNames()).
		AddRow(a.ID, a.BusinessID, a.Chain, a.ExpectedAmount, a.AddressID, a.Address, a.Status,
			a.Confirmations, a.ReceivedAmount, a.TxHash, a.DetectedBlock, a.ForwardTxHash,
			a.CommissionAmount, a.MerchantAmount, a.DestinationWallet, a.FailureReason,
			a.Description, a.CreatedAt, a.ExpiresAt, a.ForwardedAt).
		AddRow(b.ID, b.BusinessID, b.Chain, b.ExpectedAmount, b.AddressID, b.Address, b.Status,
			b.Confirmations, b.ReceivedAmount, b.TxHash, b.DetectedBlock, b.ForwardTxHash,
			b.CommissionAmount, b.MerchantAmount, b.DestinationWallet, b.FailureReason,
			b.Description, b.CreatedAt, b.ExpiresAt, b.ForwardedAt)

	mock.ExpectQuery("SELECT (.+) FROM payments").
		WithArgs(domain.ChainEthereum, 50).
		WillReturnRows(rows)

	got, err := repo.ListInFlight(context.Background(), domain.ChainEthereum, 50)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestPaymentRepo_TransitionStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(domain.PaymentStatusForwarding, id, domain.PaymentStatusConfirmed).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := repo.TransitionStatus(context.Background(), id, domain.PaymentStatusConfirmed, domain.PaymentStatusForwarding)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_TransitionStatus_LostRace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(domain.PaymentStatusForwarding, id, domain.PaymentStatusConfirmed).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.TransitionStatus(context.Background(), id, domain.PaymentStatusConfirmed, domain.PaymentStatusForwarding)
	require.NoError(t, err)
	assert.False(t, ok, "zero rows affected means another worker won the claim")
}

func TestPaymentRepo_TransitionStatus_IllegalMove(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)

	_, err = repo.TransitionStatus(context.Background(), uuid.New(), domain.PaymentStatusForwarded, domain.PaymentStatusPending)
	require.Error(t, err, "backward transitions never reach the database")

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "STATE_001", appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_RecordForwardResult_GuardsForwardingState(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(domain.PaymentStatusForwarded, "0xtx", "100", "9900", nil, now, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.RecordForwardResult(context.Background(), id, domain.PaymentStatusForwarded, "0xtx", "100", "9900", nil, now)
	assert.Error(t, err, "a payment outside forwarding must not accept a result")
}
