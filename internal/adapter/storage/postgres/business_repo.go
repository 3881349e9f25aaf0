package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"chainpay-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BusinessRepo implements ports.BusinessRepository. The gateway only reads
// businesses; account management writes live in the dashboard service.
type BusinessRepo struct {
	pool Pool
}

// NewBusinessRepo creates a new BusinessRepo.
func NewBusinessRepo(pool Pool) *BusinessRepo {
	return &BusinessRepo{pool: pool}
}

// GetByID fetches a business by UUID. Destination wallets are stored as a
// chain -> address JSON document.
func (r *BusinessRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Business, error) {
	query := `SELECT id, name, tier, wallets, webhook_url, webhook_secret_enc, created_at
		FROM businesses WHERE id = $1`

	b := &domain.Business{}
	var walletsJSON []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.Name, &b.Tier, &walletsJSON, &b.WebhookURL, &b.WebhookSecretEnc, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan business: %w", err)
	}

	if len(walletsJSON) > 0 {
		if err := json.Unmarshal(walletsJSON, &b.Wallets); err != nil {
			return nil, fmt.Errorf("decode business wallets: %w", err)
		}
	}
	return b, nil
}
