package service

import (
	"context"
	"fmt"

	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/pkg/apperror"

	"github.com/google/uuid"
)

// EntitlementsService implements ports.Entitlements by reading the business
// subscription tier. Subscription management itself lives in the dashboard
// layer; the gateway only needs the answer to one question.
type EntitlementsService struct {
	businessRepo ports.BusinessRepository
}

// NewEntitlementsService creates a new EntitlementsService.
func NewEntitlementsService(businessRepo ports.BusinessRepository) *EntitlementsService {
	return &EntitlementsService{businessRepo: businessRepo}
}

// IsPaidTier reports whether the business qualifies for the reduced
// commission rate.
func (s *EntitlementsService) IsPaidTier(ctx context.Context, businessID uuid.UUID) (bool, error) {
	business, err := s.businessRepo.GetByID(ctx, businessID)
	if err != nil {
		return false, apperror.ErrDatabaseError(fmt.Errorf("load business: %w", err))
	}
	if business == nil {
		return false, apperror.ErrNotFound("business")
	}
	return business.IsPaidTier(), nil
}
