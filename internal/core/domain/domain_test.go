package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition_HappyPath(t *testing.T) {
	path := []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusDetected,
		PaymentStatusConfirming,
		PaymentStatusConfirmed,
		PaymentStatusForwarding,
		PaymentStatusForwarded,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, CanTransition(path[i], path[i+1]),
			"%s -> %s should be legal", path[i], path[i+1])
	}
}

func TestCanTransition_TerminalStatesAreFrozen(t *testing.T) {
	terminals := []PaymentStatus{
		PaymentStatusForwarded,
		PaymentStatusForwardingFailed,
		PaymentStatusExpired,
	}
	all := []PaymentStatus{
		PaymentStatusPending, PaymentStatusDetected, PaymentStatusConfirming,
		PaymentStatusConfirmed, PaymentStatusForwarding, PaymentStatusForwarded,
		PaymentStatusForwardingFailed, PaymentStatusExpired,
	}
	for _, from := range terminals {
		assert.True(t, from.IsTerminal())
		for _, to := range all {
			assert.False(t, CanTransition(from, to),
				"terminal %s must not transition to %s", from, to)
		}
	}
}

func TestCanTransition_NoBackwardOrSkippedMoves(t *testing.T) {
	assert.False(t, CanTransition(PaymentStatusDetected, PaymentStatusPending))
	assert.False(t, CanTransition(PaymentStatusConfirmed, PaymentStatusForwarded), "must pass through forwarding")
	assert.False(t, CanTransition(PaymentStatusPending, PaymentStatusConfirmed))
	assert.False(t, CanTransition(PaymentStatusConfirmed, PaymentStatusExpired), "confirmed payments never expire")
	assert.False(t, CanTransition(PaymentStatusForwarding, PaymentStatusExpired), "in-flight forwarding runs to completion")
}

func TestCanTransition_DetectedMaySkipConfirming(t *testing.T) {
	// Single-confirmation chains can go straight to confirmed.
	assert.True(t, CanTransition(PaymentStatusDetected, PaymentStatusConfirmed))
}

func TestPayment_IsExpired(t *testing.T) {
	now := time.Now()
	p := &Payment{Status: PaymentStatusPending, ExpiresAt: now.Add(-time.Minute)}
	assert.True(t, p.IsExpired(now))

	p.Status = PaymentStatusConfirming
	assert.True(t, p.IsExpired(now))

	// Once confirmed, the deadline no longer applies.
	p.Status = PaymentStatusConfirmed
	assert.False(t, p.IsExpired(now))

	p.Status = PaymentStatusForwarding
	assert.False(t, p.IsExpired(now))

	p.Status = PaymentStatusPending
	p.ExpiresAt = now.Add(time.Minute)
	assert.False(t, p.IsExpired(now))
}

func TestChain_Parse(t *testing.T) {
	c, ok := ParseChain("ethereum")
	assert.True(t, ok)
	assert.Equal(t, ChainEthereum, c)

	_, ok = ParseChain("dogecoin")
	assert.False(t, ok)
}

func TestChain_Properties(t *testing.T) {
	assert.Equal(t, 8, ChainBitcoin.Decimals())
	assert.Equal(t, 18, ChainEthereum.Decimals())
	assert.Equal(t, 9, ChainSolana.Decimals())

	assert.True(t, ChainEthereum.IsEVM())
	assert.True(t, ChainPolygon.IsEVM())
	assert.False(t, ChainBitcoin.IsEVM())

	assert.Equal(t, int64(1), ChainEthereum.EVMChainID())
	assert.Equal(t, int64(137), ChainPolygon.EVMChainID())
}

func TestBusiness_DestinationWallet(t *testing.T) {
	b := &Business{
		ID:   uuid.New(),
		Tier: TierPaid,
		Wallets: map[Chain]string{
			ChainEthereum: "0xabc",
			ChainBitcoin:  "",
		},
	}

	addr, ok := b.DestinationWallet(ChainEthereum)
	assert.True(t, ok)
	assert.Equal(t, "0xabc", addr)

	_, ok = b.DestinationWallet(ChainBitcoin)
	assert.False(t, ok, "empty wallet entry is treated as missing")

	_, ok = b.DestinationWallet(ChainSolana)
	assert.False(t, ok)

	assert.True(t, b.IsPaidTier())
}
