package postgres

import (
	"context"
	"fmt"

	"chainpay-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// WebhookAttemptRepo implements ports.WebhookAttemptRepository. The table is
// append-only.
type WebhookAttemptRepo struct {
	pool Pool
}

// NewWebhookAttemptRepo creates a new WebhookAttemptRepo.
func NewWebhookAttemptRepo(pool Pool) *WebhookAttemptRepo {
	return &WebhookAttemptRepo{pool: pool}
}

// Append inserts one delivery attempt record.
func (r *WebhookAttemptRepo) Append(ctx context.Context, a *domain.WebhookAttempt) error {
	query := `INSERT INTO webhook_attempts (id, payment_id, event_type, url, attempt_number, success, status_code, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.PaymentID, a.EventType, a.URL, a.AttemptNumber, a.Success, a.StatusCode, a.ErrorMessage, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook attempt: %w", err)
	}
	return nil
}

// ListByPaymentID returns a payment's delivery attempts in send order.
func (r *WebhookAttemptRepo) ListByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]domain.WebhookAttempt, error) {
	query := `SELECT id, payment_id, event_type, url, attempt_number, success, status_code, error_message, created_at
		FROM webhook_attempts WHERE payment_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list webhook attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.WebhookAttempt
	for rows.Next() {
		var a domain.WebhookAttempt
		if err := rows.Scan(
			&a.ID, &a.PaymentID, &a.EventType, &a.URL, &a.AttemptNumber, &a.Success, &a.StatusCode, &a.ErrorMessage, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan webhook attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
