package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// MonitorService polls each chain for deposits at open payment addresses and
// drives the payment lifecycle: pending -> detected -> confirming ->
// confirmed, expiry of stale payments, and handoff to the forwarder once the
// confirmation threshold is met. A distributed poll lock keeps concurrent
// gateway instances from scanning the same chain at once.
type MonitorService struct {
	paymentRepo   ports.PaymentRepository
	registry      ports.ProviderRegistry
	forwarder     ports.Forwarder
	notifier      ports.WebhookNotifier
	lock          ports.PollLock
	confirmations map[domain.Chain]uint64
	pollInterval  time.Duration
	batchSize     int
	lockTTL       time.Duration
	log           zerolog.Logger
}

// NewMonitorService creates a new MonitorService. confirmations carries the
// per-chain threshold for confirmed.
func NewMonitorService(
	paymentRepo ports.PaymentRepository,
	registry ports.ProviderRegistry,
	forwarder ports.Forwarder,
	notifier ports.WebhookNotifier,
	lock ports.PollLock,
	confirmations map[domain.Chain]uint64,
	pollInterval time.Duration,
	batchSize int,
	lockTTL time.Duration,
	log zerolog.Logger,
) *MonitorService {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &MonitorService{
		paymentRepo:   paymentRepo,
		registry:      registry,
		forwarder:     forwarder,
		notifier:      notifier,
		lock:          lock,
		confirmations: confirmations,
		pollInterval:  pollInterval,
		batchSize:     batchSize,
		lockTTL:       lockTTL,
		log:           log,
	}
}

// Run polls the given chains until ctx is cancelled.
func (s *MonitorService) Run(ctx context.Context, chains []domain.Chain) {
	var wg sync.WaitGroup
	for _, chain := range chains {
		wg.Add(1)
		go func(chain domain.Chain) {
			defer wg.Done()
			s.runChain(ctx, chain)
		}(chain)
	}
	wg.Wait()
}

func (s *MonitorService) runChain(ctx context.Context, chain domain.Chain) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.log.Info().Str("chain", string(chain)).Dur("interval", s.pollInterval).Msg("chain monitor started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Str("chain", string(chain)).Msg("chain monitor stopped")
			return
		case <-ticker.C:
			if err := s.ScanChain(ctx, chain); err != nil {
				s.log.Error().Err(err).Str("chain", string(chain)).Msg("chain scan failed")
			}
		}
	}
}

// ScanChain runs one poll cycle for a chain: acquire the scan slot, load the
// in-flight batch and advance each payment.
func (s *MonitorService) ScanChain(ctx context.Context, chain domain.Chain) error {
	acquired, err := s.lock.TryAcquire(ctx, chain, s.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire poll lock: %w", err)
	}
	if !acquired {
		return nil
	}
	defer func() {
		if err := s.lock.Release(ctx, chain); err != nil {
			s.log.Warn().Err(err).Str("chain", string(chain)).Msg("releasing poll lock failed")
		}
	}()

	payments, err := s.paymentRepo.ListInFlight(ctx, chain, s.batchSize)
	if err != nil {
		return fmt.Errorf("list in-flight payments: %w", err)
	}
	if len(payments) == 0 {
		return nil
	}

	provider, err := s.registry.Provider(chain)
	if err != nil {
		return err
	}

	for i := range payments {
		s.processPayment(ctx, provider, &payments[i])
	}
	return nil
}

func (s *MonitorService) processPayment(ctx context.Context, provider ports.ChainProvider, payment *domain.Payment) {
	if payment.IsExpired(time.Now().UTC()) {
		s.expire(ctx, payment)
		return
	}

	switch payment.Status {
	case domain.PaymentStatusPending:
		s.detect(ctx, provider, payment)
	case domain.PaymentStatusDetected, domain.PaymentStatusConfirming:
		s.confirmProgress(ctx, provider, payment)
	}
}

// expire moves a stale pre-confirmation payment to expired. Deposits landing
// after expiry are deliberately ignored: the terminal state is frozen.
func (s *MonitorService) expire(ctx context.Context, payment *domain.Payment) {
	ok, err := s.paymentRepo.TransitionStatus(ctx, payment.ID, payment.Status, domain.PaymentStatusExpired)
	if err != nil {
		s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("expiring payment failed")
		return
	}
	if !ok {
		return
	}
	payment.Status = domain.PaymentStatusExpired

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("chain", string(payment.Chain)).
		Time("expires_at", payment.ExpiresAt).
		Msg("payment expired")

	if err := s.notifier.Notify(ctx, payment, domain.EventPaymentExpired); err != nil {
		s.log.Warn().Err(err).Str("payment_id", payment.ID.String()).Msg("expired webhook delivery failed")
	}
}

// detect looks for an inbound deposit at the payment address.
func (s *MonitorService) detect(ctx context.Context, provider ports.ChainProvider, payment *domain.Payment) {
	deposit, err := provider.FindDeposit(ctx, payment.Address)
	if err != nil {
		s.log.Warn().Err(err).
			Str("payment_id", payment.ID.String()).
			Str("chain", string(payment.Chain)).
			Msg("deposit lookup failed")
		return
	}
	if deposit == nil || deposit.Amount == nil || deposit.Amount.Sign() <= 0 {
		return
	}

	confirmations := deposit.Confirmations
	var detectedBlock *uint64
	if deposit.TxHash == "" {
		// Balance-observed deposit: remember the head block as the
		// confirmation baseline.
		head, err := provider.HeadBlock(ctx)
		if err != nil {
			s.log.Warn().Err(err).Str("payment_id", payment.ID.String()).Msg("head block lookup failed")
			return
		}
		detectedBlock = &head
		confirmations = 1
	}

	if err := s.paymentRepo.UpdateDeposit(ctx, payment.ID, deposit.Amount.String(), deposit.TxHash, detectedBlock, confirmations); err != nil {
		s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("recording deposit failed")
		return
	}

	ok, err := s.paymentRepo.TransitionStatus(ctx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusDetected)
	if err != nil || !ok {
		return
	}
	payment.Status = domain.PaymentStatusDetected
	payment.ReceivedAmount = deposit.Amount.String()
	payment.TxHash = deposit.TxHash
	payment.DetectedBlock = detectedBlock
	payment.Confirmations = confirmations

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("chain", string(payment.Chain)).
		Str("amount", deposit.Amount.String()).
		Uint64("confirmations", confirmations).
		Msg("deposit detected")

	s.advance(ctx, payment, confirmations)
}

// confirmProgress refreshes the confirmation count of a detected deposit.
func (s *MonitorService) confirmProgress(ctx context.Context, provider ports.ChainProvider, payment *domain.Payment) {
	confirmations, err := s.currentConfirmations(ctx, provider, payment)
	if err != nil {
		s.log.Warn().Err(err).
			Str("payment_id", payment.ID.String()).
			Str("chain", string(payment.Chain)).
			Msg("confirmation lookup failed")
		return
	}

	if confirmations != payment.Confirmations {
		if err := s.paymentRepo.UpdateConfirmations(ctx, payment.ID, confirmations); err != nil {
			s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("updating confirmations failed")
			return
		}
		payment.Confirmations = confirmations
	}

	s.advance(ctx, payment, confirmations)
}

// advance moves the payment forward when the confirmation threshold allows:
// straight to confirmed (a detected payment may skip confirming when the
// threshold is already met), or into confirming on the first confirmation.
func (s *MonitorService) advance(ctx context.Context, payment *domain.Payment, confirmations uint64) {
	required := s.requiredConfirmations(payment.Chain)

	if confirmations >= required {
		ok, err := s.paymentRepo.TransitionStatus(ctx, payment.ID, payment.Status, domain.PaymentStatusConfirmed)
		if err != nil || !ok {
			return
		}
		payment.Status = domain.PaymentStatusConfirmed

		s.log.Info().
			Str("payment_id", payment.ID.String()).
			Str("chain", string(payment.Chain)).
			Uint64("confirmations", confirmations).
			Msg("payment confirmed")

		if _, err := s.forwarder.Forward(ctx, payment.ID); err != nil {
			s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("forwarding failed")
		}
		return
	}

	if payment.Status == domain.PaymentStatusDetected && confirmations >= 1 {
		ok, err := s.paymentRepo.TransitionStatus(ctx, payment.ID, domain.PaymentStatusDetected, domain.PaymentStatusConfirming)
		if err != nil || !ok {
			return
		}
		payment.Status = domain.PaymentStatusConfirming
	}
}

func (s *MonitorService) currentConfirmations(ctx context.Context, provider ports.ChainProvider, payment *domain.Payment) (uint64, error) {
	if payment.TxHash != "" {
		return provider.GetConfirmations(ctx, payment.TxHash)
	}
	if payment.DetectedBlock == nil {
		return 0, fmt.Errorf("payment %s has neither tx hash nor detection baseline", payment.ID)
	}
	head, err := provider.HeadBlock(ctx)
	if err != nil {
		return 0, err
	}
	if head < *payment.DetectedBlock {
		return 0, nil
	}
	return head - *payment.DetectedBlock + 1, nil
}

func (s *MonitorService) requiredConfirmations(chain domain.Chain) uint64 {
	if n, ok := s.confirmations[chain]; ok && n > 0 {
		return n
	}
	return 1
}
