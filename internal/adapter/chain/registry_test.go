package chain

import (
	"testing"

	"chainpay-gateway/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Provider(t *testing.T) {
	btc := NewUTXOProvider(domain.ChainBitcoin, "http://blockbook", zerolog.Nop())
	sol := NewSolanaProvider("http://solana", zerolog.Nop())
	r := NewRegistry(btc, sol)

	p, err := r.Provider(domain.ChainBitcoin)
	require.NoError(t, err)
	assert.Equal(t, domain.ChainBitcoin, p.Chain())

	p, err = r.Provider(domain.ChainSolana)
	require.NoError(t, err)
	assert.Equal(t, domain.ChainSolana, p.Chain())

	_, err = r.Provider(domain.ChainEthereum)
	assert.Error(t, err, "unconfigured chain has no provider")

	assert.ElementsMatch(t, []domain.Chain{domain.ChainBitcoin, domain.ChainSolana}, r.Chains())
}
