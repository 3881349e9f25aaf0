package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/internal/wallet"
	"chainpay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// webhookRetryIntervals is the delay before each retry, in order.
var webhookRetryIntervals = []time.Duration{
	15 * time.Second,
	60 * time.Second,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookService implements ports.WebhookNotifier. Every delivery attempt is
// appended to the audit log; delivery failure never changes payment state.
type WebhookService struct {
	businessRepo ports.BusinessRepository
	attemptRepo  ports.WebhookAttemptRepository
	vault        ports.KeyVault
	sigSvc       ports.SignatureService
	httpClient   HTTPClient
	maxAttempts  int
	backoff      []time.Duration
	log          zerolog.Logger
}

// NewWebhookService creates a new webhook notifier.
func NewWebhookService(
	businessRepo ports.BusinessRepository,
	attemptRepo ports.WebhookAttemptRepository,
	vault ports.KeyVault,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	maxAttempts int,
	log zerolog.Logger,
) *WebhookService {
	if maxAttempts <= 0 {
		maxAttempts = len(webhookRetryIntervals) + 1
	}
	return &WebhookService{
		businessRepo: businessRepo,
		attemptRepo:  attemptRepo,
		vault:        vault,
		sigSvc:       sigSvc,
		httpClient:   httpClient,
		maxAttempts:  maxAttempts,
		backoff:      webhookRetryIntervals,
		log:          log,
	}
}

// WithBackoff overrides the retry schedule, for deployments that tune
// delivery pacing.
func (s *WebhookService) WithBackoff(intervals []time.Duration) *WebhookService {
	if len(intervals) > 0 {
		s.backoff = intervals
	}
	return s
}

// Notify delivers a terminal-state event to the business webhook URL with
// bounded retries. A business without a webhook URL is a no-op, not an error.
func (s *WebhookService) Notify(ctx context.Context, payment *domain.Payment, eventType string) error {
	business, err := s.businessRepo.GetByID(ctx, payment.BusinessID)
	if err != nil {
		s.log.Error().Err(err).Str("business_id", payment.BusinessID.String()).Msg("webhook: failed to fetch business")
		return apperror.ErrDatabaseError(err)
	}
	if business == nil || business.WebhookURL == nil || *business.WebhookURL == "" {
		s.log.Debug().Str("business_id", payment.BusinessID.String()).Msg("webhook: no webhook URL configured, skipping")
		return nil
	}

	secret, err := s.vault.Decrypt(business.WebhookSecretEnc)
	if err != nil {
		s.log.Error().Err(err).Str("business_id", business.ID.String()).Msg("webhook: failed to decrypt signing secret")
		return err
	}
	defer zeroBytes(secret)

	// An expiry before any deposit has no received amount; report the
	// expected amount in smallest units instead.
	amount := payment.ReceivedAmount
	if amount == "" {
		if v, convErr := wallet.ToSmallestUnit(payment.ExpectedAmount, payment.Chain.Decimals()); convErr == nil {
			amount = v.String()
		} else {
			amount = payment.ExpectedAmount
		}
	}

	event := domain.WebhookEvent{
		Event:      eventType,
		PaymentID:  payment.ID.String(),
		BusinessID: payment.BusinessID.String(),
		Amount:     amount,
		Currency:   payment.Chain.Ticker(),
		Blockchain: string(payment.Chain),
		TxHash:     payment.ForwardTxHash,
	}

	url := *business.WebhookURL

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := s.backoff[min(attempt-2, len(s.backoff)-1)]
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		// Signed per attempt so a retried delivery carries a current
		// timestamp in both the body and the signature header.
		event.Timestamp = time.Now().Unix()
		body, err := json.Marshal(event)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("marshal webhook event: %w", err))
		}
		signature := s.sigSvc.Sign(string(secret), event.Timestamp, body)

		statusCode, err := s.deliver(ctx, url, body, signature)
		s.recordAttempt(ctx, payment.ID, eventType, url, attempt, statusCode, err)

		if err == nil && statusCode >= 200 && statusCode < 300 {
			s.log.Info().
				Str("payment_id", payment.ID.String()).
				Str("event", eventType).
				Int("attempt", attempt).
				Int("status", statusCode).
				Msg("webhook delivered")
			return nil
		}

		if err != nil {
			lastErr = err
			s.log.Warn().Err(err).Str("payment_id", payment.ID.String()).Int("attempt", attempt).Msg("webhook delivery failed")
		} else {
			lastErr = fmt.Errorf("endpoint returned %d", statusCode)
			s.log.Warn().Str("payment_id", payment.ID.String()).Int("attempt", attempt).Int("status", statusCode).Msg("webhook non-2xx response")
		}
	}

	s.log.Error().
		Str("payment_id", payment.ID.String()).
		Str("event", eventType).
		Int("max_attempts", s.maxAttempts).
		Msg("webhook retry attempts exhausted")
	return apperror.ErrDeliveryFailure(lastErr)
}

func (s *WebhookService) deliver(ctx context.Context, url string, body []byte, signature string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signature)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func (s *WebhookService) recordAttempt(ctx context.Context, paymentID uuid.UUID, eventType, url string, attempt, statusCode int, deliverErr error) {
	row := &domain.WebhookAttempt{
		ID:            uuid.New(),
		PaymentID:     paymentID,
		EventType:     eventType,
		URL:           url,
		AttemptNumber: attempt,
		Success:       deliverErr == nil && statusCode >= 200 && statusCode < 300,
		CreatedAt:     time.Now().UTC(),
	}
	if statusCode != 0 {
		row.StatusCode = &statusCode
	}
	if deliverErr != nil {
		msg := deliverErr.Error()
		row.ErrorMessage = &msg
	}
	if err := s.attemptRepo.Append(ctx, row); err != nil {
		s.log.Error().Err(err).Str("payment_id", paymentID.String()).Msg("webhook: failed to record delivery attempt")
	}
}
