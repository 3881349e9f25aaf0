package handler

import (
	"time"

	"chainpay-gateway/internal/adapter/http/dto"
	"chainpay-gateway/internal/adapter/http/middleware"
	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/internal/wallet"
	"chainpay-gateway/pkg/apperror"
	"chainpay-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles payment-related endpoints.
type PaymentHandler struct {
	paymentSvc  ports.PaymentService
	attemptRepo ports.WebhookAttemptRepository
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService, attemptRepo ports.WebhookAttemptRepository) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc, attemptRepo: attemptRepo}
}

// CreatePayment handles POST /api/v1/payments.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	businessID, ok := c.Get(middleware.CtxBusinessID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	payment, err := h.paymentSvc.CreatePayment(c.Request.Context(), ports.CreatePaymentRequest{
		BusinessID:  businessID.(uuid.UUID),
		ReferenceID: req.ReferenceID,
		Amount:      req.Amount,
		Chain:       domain.Chain(req.Blockchain),
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toPaymentResponse(payment))
}

// GetPayment handles GET /api/v1/payments/:id.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payment id"))
		return
	}

	payment, err := h.paymentSvc.GetPayment(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPaymentResponse(payment))
}

// ListAttempts handles GET /api/v1/payments/:id/attempts.
func (h *PaymentHandler) ListAttempts(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payment id"))
		return
	}

	attempts, err := h.attemptRepo.ListByPaymentID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}

	items := make([]dto.AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		items = append(items, dto.AttemptResponse{
			ID:            a.ID.String(),
			EventType:     a.EventType,
			URL:           a.URL,
			AttemptNumber: a.AttemptNumber,
			Success:       a.Success,
			StatusCode:    a.StatusCode,
			ErrorMessage:  a.ErrorMessage,
			CreatedAt:     a.CreatedAt.Format(time.RFC3339),
		})
	}

	response.OK(c, items)
}

// toPaymentResponse converts domain.Payment to the public projection.
// The destination wallet and the business ID stay server-side.
func toPaymentResponse(p *domain.Payment) dto.PaymentResponse {
	resp := dto.PaymentResponse{
		ID:               p.ID.String(),
		Blockchain:       string(p.Chain),
		ExpectedAmount:   p.ExpectedAmount,
		Address:          p.Address,
		Status:           string(p.Status),
		Confirmations:    p.Confirmations,
		ReceivedAmount:   p.ReceivedAmount,
		TxHash:           p.TxHash,
		ForwardTxHash:    p.ForwardTxHash,
		CommissionAmount: p.CommissionAmount,
		MerchantAmount:   p.MerchantAmount,
		FailureReason:    p.FailureReason,
		Description:      p.Description,
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
		ExpiresAt:        p.ExpiresAt.Format(time.RFC3339),
	}
	if p.Chain.IsEVM() {
		if value, err := wallet.ToSmallestUnit(p.ExpectedAmount, p.Chain.Decimals()); err == nil {
			resp.PaymentURI = wallet.NativeTransferURI(p.Address, p.Chain.EVMChainID(), value)
		}
	}
	if p.ForwardedAt != nil {
		s := p.ForwardedAt.Format(time.RFC3339)
		resp.ForwardedAt = &s
	}
	return resp
}
