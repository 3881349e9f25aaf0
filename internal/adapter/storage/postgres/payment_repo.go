package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `id, business_id, blockchain, expected_amount, address_id, address, status,
	confirmations, received_amount, tx_hash, detected_block, forward_tx_hash,
	commission_amount, merchant_amount, destination_wallet, failure_reason,
	description, created_at, expires_at, forwarded_at`

// Create inserts a new payment within a database transaction.
func (r *PaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.BusinessID, p.Chain, p.ExpectedAmount, p.AddressID, p.Address, p.Status,
		p.Confirmations, p.ReceivedAmount, p.TxHash, p.DetectedBlock, p.ForwardTxHash,
		p.CommissionAmount, p.MerchantAmount, p.DestinationWallet, p.FailureReason,
		p.Description, p.CreatedAt, p.ExpiresAt, p.ForwardedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID fetches a payment by UUID.
func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.scanPayment(r.pool.QueryRow(ctx, query, id))
}

// ListInFlight returns payments on the chain in a non-terminal pre-forwarding
// state, oldest first.
func (r *PaymentRepo) ListInFlight(ctx context.Context, chain domain.Chain, limit int) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE blockchain = $1 AND status IN ('pending', 'detected', 'confirming')
		ORDER BY created_at ASC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, chain, limit)
	if err != nil {
		return nil, fmt.Errorf("list in-flight payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := r.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// TransitionStatus performs the compare-and-set status move. The WHERE guard
// on the current status is what makes lifecycle transitions race-free across
// workers and instances.
func (r *PaymentRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus) (bool, error) {
	if !domain.CanTransition(from, to) {
		return false, apperror.ErrInvalidStateTransition(string(from), string(to))
	}

	query := `UPDATE payments SET status = $1 WHERE id = $2 AND status = $3`
	tag, err := r.pool.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("transition payment status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateDeposit records the inbound deposit observation.
func (r *PaymentRepo) UpdateDeposit(ctx context.Context, id uuid.UUID, receivedAmount, txHash string, detectedBlock *uint64, confirmations uint64) error {
	query := `UPDATE payments SET received_amount = $1, tx_hash = $2, detected_block = $3, confirmations = $4
		WHERE id = $5`

	tag, err := r.pool.Exec(ctx, query, receivedAmount, txHash, detectedBlock, confirmations, id)
	if err != nil {
		return fmt.Errorf("update deposit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment not found: %s", id)
	}
	return nil
}

// UpdateConfirmations refreshes only the confirmation counter.
func (r *PaymentRepo) UpdateConfirmations(ctx context.Context, id uuid.UUID, confirmations uint64) error {
	query := `UPDATE payments SET confirmations = $1 WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, confirmations, id)
	if err != nil {
		return fmt.Errorf("update confirmations: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment not found: %s", id)
	}
	return nil
}

// RecordForwardResult stores the split and terminal status atomically. Only a
// payment still in forwarding can receive a result.
func (r *PaymentRepo) RecordForwardResult(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, forwardTxHash, commission, merchant string, failureReason *string, forwardedAt time.Time) error {
	query := `UPDATE payments SET status = $1, forward_tx_hash = $2, commission_amount = $3,
		merchant_amount = $4, failure_reason = $5, forwarded_at = $6
		WHERE id = $7 AND status = 'forwarding'`

	tag, err := r.pool.Exec(ctx, query, status, forwardTxHash, commission, merchant, failureReason, forwardedAt, id)
	if err != nil {
		return fmt.Errorf("record forward result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment %s is not in forwarding state", id)
	}
	return nil
}

// scanPayment is a helper to scan a single row into a Payment.
func (r *PaymentRepo) scanPayment(row pgx.Row) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(
		&p.ID, &p.BusinessID, &p.Chain, &p.ExpectedAmount, &p.AddressID, &p.Address, &p.Status,
		&p.Confirmations, &p.ReceivedAmount, &p.TxHash, &p.DetectedBlock, &p.ForwardTxHash,
		&p.CommissionAmount, &p.MerchantAmount, &p.DestinationWallet, &p.FailureReason,
		&p.Description, &p.CreatedAt, &p.ExpiresAt, &p.ForwardedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return p, nil
}
