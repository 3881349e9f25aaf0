package service

import (
	"context"
	"errors"
	"testing"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEntitlementsService_IsPaidTier(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockBusinessRepository(ctrl)
	svc := NewEntitlementsService(repo)
	ctx := context.Background()

	paidID := uuid.New()
	repo.EXPECT().GetByID(ctx, paidID).Return(&domain.Business{ID: paidID, Tier: domain.TierPaid}, nil)
	paid, err := svc.IsPaidTier(ctx, paidID)
	require.NoError(t, err)
	assert.True(t, paid)

	freeID := uuid.New()
	repo.EXPECT().GetByID(ctx, freeID).Return(&domain.Business{ID: freeID, Tier: domain.TierFree}, nil)
	paid, err = svc.IsPaidTier(ctx, freeID)
	require.NoError(t, err)
	assert.False(t, paid)

	missingID := uuid.New()
	repo.EXPECT().GetByID(ctx, missingID).Return(nil, nil)
	_, err = svc.IsPaidTier(ctx, missingID)
	assert.Error(t, err)

	downID := uuid.New()
	repo.EXPECT().GetByID(ctx, downID).Return(nil, errors.New("db down"))
	_, err = svc.IsPaidTier(ctx, downID)
	assert.Error(t, err)
}
