package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const bpsDenominator = 10_000

// ForwarderService implements ports.Forwarder. The persisted
// confirmed -> forwarding compare-and-set is the at-most-once guard: a
// payment that loses the CAS race (or that crashed mid-forward) is never
// forwarded a second time.
type ForwarderService struct {
	paymentRepo     ports.PaymentRepository
	addrRepo        ports.AddressRepository
	businessRepo    ports.BusinessRepository
	registry        ports.ProviderRegistry
	vault           ports.KeyVault
	entitlements    ports.Entitlements
	notifier        ports.WebhookNotifier
	commissionBps   int64
	reducedBps      int64
	platformWallets map[domain.Chain]string
	log             zerolog.Logger
}

// NewForwarderService creates a new ForwarderService.
func NewForwarderService(
	paymentRepo ports.PaymentRepository,
	addrRepo ports.AddressRepository,
	businessRepo ports.BusinessRepository,
	registry ports.ProviderRegistry,
	vault ports.KeyVault,
	entitlements ports.Entitlements,
	notifier ports.WebhookNotifier,
	commissionBps, reducedBps int64,
	platformWallets map[domain.Chain]string,
	log zerolog.Logger,
) *ForwarderService {
	return &ForwarderService{
		paymentRepo:     paymentRepo,
		addrRepo:        addrRepo,
		businessRepo:    businessRepo,
		registry:        registry,
		vault:           vault,
		entitlements:    entitlements,
		notifier:        notifier,
		commissionBps:   commissionBps,
		reducedBps:      reducedBps,
		platformWallets: platformWallets,
		log:             log,
	}
}

// Forward splits a confirmed payment and moves the funds on-chain.
func (s *ForwarderService) Forward(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get payment: %w", err))
	}
	if payment == nil {
		return nil, apperror.ErrNotFound("payment")
	}

	ok, err := s.paymentRepo.TransitionStatus(ctx, paymentID, domain.PaymentStatusConfirmed, domain.PaymentStatusForwarding)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("claim forwarding: %w", err))
	}
	if !ok {
		return nil, apperror.ErrPaymentNotForwardable(string(payment.Status))
	}
	payment.Status = domain.PaymentStatusForwarding

	received, parsed := new(big.Int).SetString(payment.ReceivedAmount, 10)
	if !parsed || received.Sign() <= 0 {
		return s.fail(ctx, payment, fmt.Sprintf("unparseable received amount %q", payment.ReceivedAmount))
	}

	commission, merchant := s.split(ctx, payment.BusinessID, received)

	addr, err := s.addrRepo.GetByPaymentID(ctx, paymentID)
	if err != nil || addr == nil {
		return s.fail(ctx, payment, "payment address record missing")
	}
	keyRec, err := s.addrRepo.GetKeyRecord(ctx, addr.ID)
	if err != nil || keyRec == nil {
		return s.fail(ctx, payment, "encrypted key record missing")
	}

	privateKey, err := s.vault.Decrypt(keyRec.Ciphertext)
	if err != nil {
		return s.fail(ctx, payment, "key decryption failed")
	}
	defer zeroBytes(privateKey)

	provider, err := s.registry.Provider(payment.Chain)
	if err != nil {
		return s.fail(ctx, payment, fmt.Sprintf("no provider for chain %s", payment.Chain))
	}

	merchantTx, err := provider.SendTransaction(ctx, addr.Address, payment.DestinationWallet, merchant, privateKey)
	if err != nil {
		s.log.Error().Err(err).
			Str("payment_id", paymentID.String()).
			Str("chain", string(payment.Chain)).
			Msg("merchant transfer failed")
		return s.fail(ctx, payment, fmt.Sprintf("merchant transfer: %v", err))
	}

	// The commission leg is best effort once the merchant is paid: a failure
	// here is an internal collection problem, not the merchant's.
	if commission.Sign() > 0 && merchantTx != ports.ManualProcessingMarker {
		if platformWallet, ok := s.platformWallets[payment.Chain]; ok && platformWallet != "" {
			if _, err := provider.SendTransaction(ctx, addr.Address, platformWallet, commission, privateKey); err != nil {
				s.log.Warn().Err(err).
					Str("payment_id", paymentID.String()).
					Str("chain", string(payment.Chain)).
					Str("commission", commission.String()).
					Msg("commission transfer failed, funds remain at payment address")
			}
		}
	}

	now := time.Now().UTC()
	if err := s.paymentRepo.RecordForwardResult(ctx, paymentID, domain.PaymentStatusForwarded,
		merchantTx, commission.String(), merchant.String(), nil, now); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("record forward result: %w", err))
	}

	payment.Status = domain.PaymentStatusForwarded
	payment.ForwardTxHash = merchantTx
	payment.CommissionAmount = commission.String()
	payment.MerchantAmount = merchant.String()
	payment.ForwardedAt = &now

	s.log.Info().
		Str("payment_id", paymentID.String()).
		Str("chain", string(payment.Chain)).
		Str("forward_tx", merchantTx).
		Str("commission", commission.String()).
		Str("merchant", merchant.String()).
		Msg("payment forwarded")

	if err := s.notifier.Notify(ctx, payment, domain.EventPaymentForwarded); err != nil {
		s.log.Warn().Err(err).Str("payment_id", paymentID.String()).Msg("forwarded webhook delivery failed")
	}

	return payment, nil
}

// split computes (commission, merchant). The commission is truncated integer
// arithmetic; the merchant share is the exact remainder so the two always
// sum to the received amount.
func (s *ForwarderService) split(ctx context.Context, businessID uuid.UUID, received *big.Int) (*big.Int, *big.Int) {
	bps := s.commissionBps
	paid, err := s.entitlements.IsPaidTier(ctx, businessID)
	if err != nil {
		s.log.Warn().Err(err).Str("business_id", businessID.String()).Msg("tier lookup failed, charging standard rate")
	} else if paid {
		bps = s.reducedBps
	}

	commission := new(big.Int).Mul(received, big.NewInt(bps))
	commission.Quo(commission, big.NewInt(bpsDenominator))
	merchant := new(big.Int).Sub(received, commission)
	return commission, merchant
}

// fail parks the payment in forwarding_failed with the reason and emits the
// failure webhook. The funds stay at the payment address for operator
// intervention.
func (s *ForwarderService) fail(ctx context.Context, payment *domain.Payment, reason string) (*domain.Payment, error) {
	now := time.Now().UTC()
	if err := s.paymentRepo.RecordForwardResult(ctx, payment.ID, domain.PaymentStatusForwardingFailed,
		"", "", "", &reason, now); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("record forward failure: %w", err))
	}

	payment.Status = domain.PaymentStatusForwardingFailed
	payment.FailureReason = &reason

	s.log.Error().
		Str("payment_id", payment.ID.String()).
		Str("chain", string(payment.Chain)).
		Str("reason", reason).
		Msg("payment forwarding failed")

	if err := s.notifier.Notify(ctx, payment, domain.EventPaymentForwardingFailed); err != nil {
		s.log.Warn().Err(err).Str("payment_id", payment.ID.String()).Msg("failure webhook delivery failed")
	}

	return payment, apperror.New("STATE_002", "Payment forwarding failed: "+reason, 409)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
