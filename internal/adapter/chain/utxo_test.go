package chain

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blockbookServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestUTXOProvider_FindDeposit(t *testing.T) {
	srv := blockbookServer(t, map[string]string{
		"/api/v2/utxo/1addr": `[
			{"txid":"tx-a","value":"150000","confirmations":3},
			{"txid":"tx-b","value":"50000","confirmations":1}
		]`,
	})
	defer srv.Close()

	p := NewUTXOProvider(domain.ChainBitcoin, srv.URL, zerolog.Nop())
	deposit, err := p.FindDeposit(context.Background(), "1addr")
	require.NoError(t, err)
	require.NotNil(t, deposit)
	assert.Equal(t, "tx-a", deposit.TxHash)
	assert.Equal(t, "200000", deposit.Amount.String())
	assert.Equal(t, uint64(1), deposit.Confirmations, "shallowest output bounds the deposit depth")
}

func TestUTXOProvider_FindDeposit_Empty(t *testing.T) {
	srv := blockbookServer(t, map[string]string{"/api/v2/utxo/1addr": `[]`})
	defer srv.Close()

	p := NewUTXOProvider(domain.ChainBitcoin, srv.URL, zerolog.Nop())
	deposit, err := p.FindDeposit(context.Background(), "1addr")
	require.NoError(t, err)
	assert.Nil(t, deposit)
}

func TestUTXOProvider_GetBalance(t *testing.T) {
	srv := blockbookServer(t, map[string]string{
		"/api/v2/utxo/qqaddr": `[{"txid":"t","value":"12345","confirmations":10}]`,
	})
	defer srv.Close()

	p := NewUTXOProvider(domain.ChainBitcoinCash, srv.URL, zerolog.Nop())
	balance, err := p.GetBalance(context.Background(), "qqaddr")
	require.NoError(t, err)
	assert.Equal(t, "12345", balance.String())
}

func TestUTXOProvider_GetConfirmations(t *testing.T) {
	srv := blockbookServer(t, map[string]string{
		"/api/v2/tx/tx-a": `{"txid":"tx-a","confirmations":6}`,
	})
	defer srv.Close()

	p := NewUTXOProvider(domain.ChainBitcoin, srv.URL, zerolog.Nop())
	confs, err := p.GetConfirmations(context.Background(), "tx-a")
	require.NoError(t, err)
	assert.Equal(t, uint64(6), confs)
}

func TestUTXOProvider_HeadBlock(t *testing.T) {
	srv := blockbookServer(t, map[string]string{
		"/api/v2": `{"blockbook":{"bestHeight":850000}}`,
	})
	defer srv.Close()

	p := NewUTXOProvider(domain.ChainBitcoin, srv.URL, zerolog.Nop())
	head, err := p.HeadBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(850000), head)
}

func TestUTXOProvider_ServerError(t *testing.T) {
	srv := blockbookServer(t, map[string]string{})
	defer srv.Close()

	p := NewUTXOProvider(domain.ChainBitcoin, srv.URL, zerolog.Nop())
	_, err := p.GetBalance(context.Background(), "1addr")
	assert.Error(t, err)
}

func TestUTXOProvider_SendTransaction_Manual(t *testing.T) {
	p := NewUTXOProvider(domain.ChainBitcoin, "http://unused", zerolog.Nop())
	hash, err := p.SendTransaction(context.Background(), "1src", "1dst", big.NewInt(100), nil)
	require.NoError(t, err)
	assert.Equal(t, ports.ManualProcessingMarker, hash)
}
