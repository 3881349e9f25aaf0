package chain

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"chainpay-gateway/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solanaServer(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req solanaRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, ok := results[req.Method]
		if !ok {
			w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
	}))
}

func TestSolanaProvider_GetBalance(t *testing.T) {
	srv := solanaServer(t, map[string]string{
		"getBalance": `{"context":{"slot":100},"value":2500000000}`,
	})
	defer srv.Close()

	p := NewSolanaProvider(srv.URL, zerolog.Nop())
	balance, err := p.GetBalance(context.Background(), "addr")
	require.NoError(t, err)
	assert.Equal(t, "2500000000", balance.String())
}

func TestSolanaProvider_FindDeposit(t *testing.T) {
	srv := solanaServer(t, map[string]string{
		"getBalance": `{"context":{"slot":100},"value":0}`,
	})
	defer srv.Close()

	p := NewSolanaProvider(srv.URL, zerolog.Nop())
	deposit, err := p.FindDeposit(context.Background(), "addr")
	require.NoError(t, err)
	assert.Nil(t, deposit)
}

func TestSolanaProvider_GetConfirmations(t *testing.T) {
	srv := solanaServer(t, map[string]string{
		"getSignatureStatuses": `{"context":{"slot":100},"value":[{"confirmations":5,"confirmationStatus":"confirmed"}]}`,
	})
	defer srv.Close()

	p := NewSolanaProvider(srv.URL, zerolog.Nop())
	confs, err := p.GetConfirmations(context.Background(), "sig")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), confs)
}

func TestSolanaProvider_GetConfirmations_Finalized(t *testing.T) {
	srv := solanaServer(t, map[string]string{
		"getSignatureStatuses": `{"context":{"slot":100},"value":[{"confirmations":null,"confirmationStatus":"finalized"}]}`,
	})
	defer srv.Close()

	p := NewSolanaProvider(srv.URL, zerolog.Nop())
	confs, err := p.GetConfirmations(context.Background(), "sig")
	require.NoError(t, err)
	assert.Equal(t, uint64(32), confs)
}

func TestSolanaProvider_GetConfirmations_Unknown(t *testing.T) {
	srv := solanaServer(t, map[string]string{
		"getSignatureStatuses": `{"context":{"slot":100},"value":[null]}`,
	})
	defer srv.Close()

	p := NewSolanaProvider(srv.URL, zerolog.Nop())
	confs, err := p.GetConfirmations(context.Background(), "sig")
	require.NoError(t, err)
	assert.Zero(t, confs)
}

func TestSolanaProvider_HeadBlock(t *testing.T) {
	srv := solanaServer(t, map[string]string{"getSlot": `254000000`})
	defer srv.Close()

	p := NewSolanaProvider(srv.URL, zerolog.Nop())
	slot, err := p.HeadBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(254000000), slot)
}

func TestSolanaProvider_RPCError(t *testing.T) {
	srv := solanaServer(t, map[string]string{})
	defer srv.Close()

	p := NewSolanaProvider(srv.URL, zerolog.Nop())
	_, err := p.GetBalance(context.Background(), "addr")
	assert.Error(t, err)
}

func TestSolanaProvider_SendTransaction_Manual(t *testing.T) {
	p := NewSolanaProvider("http://unused", zerolog.Nop())
	hash, err := p.SendTransaction(context.Background(), "src", "dst", big.NewInt(1), nil)
	require.NoError(t, err)
	assert.Equal(t, ports.ManualProcessingMarker, hash)
}
