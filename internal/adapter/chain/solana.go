package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

// SolanaProvider implements ports.ChainProvider over the Solana JSON-RPC
// API. Deposits are observed through the account balance; transfer execution
// is handed to operator tooling via the manual processing marker.
type SolanaProvider struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewSolanaProvider builds a provider talking to a Solana RPC node.
func NewSolanaProvider(baseURL string, log zerolog.Logger) *SolanaProvider {
	return &SolanaProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log.With().Str("chain", string(domain.ChainSolana)).Logger(),
	}
}

func (p *SolanaProvider) Chain() domain.Chain { return domain.ChainSolana }

type solanaRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type solanaRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// GetBalance returns the account balance in lamports.
func (p *SolanaProvider) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	if err := p.call(ctx, "getBalance", []any{address}, &result); err != nil {
		return nil, err
	}
	return new(big.Int).SetUint64(result.Value), nil
}

// FindDeposit observes the account balance; a nonzero balance at a one-time
// address is the deposit. Confirmations are counted from the slot recorded
// at detection.
func (p *SolanaProvider) FindDeposit(ctx context.Context, address string) (*ports.Deposit, error) {
	balance, err := p.GetBalance(ctx, address)
	if err != nil {
		return nil, err
	}
	if balance.Sign() <= 0 {
		return nil, nil
	}
	return &ports.Deposit{Amount: balance}, nil
}

// GetConfirmations resolves a transaction signature's confirmation count.
// Finalized signatures report null confirmations in the RPC response; they
// map to the finalization depth of 32 slots.
func (p *SolanaProvider) GetConfirmations(ctx context.Context, txHash string) (uint64, error) {
	var result struct {
		Value []*struct {
			Confirmations      *uint64 `json:"confirmations"`
			ConfirmationStatus string  `json:"confirmationStatus"`
		} `json:"value"`
	}
	params := []any{[]string{txHash}, map[string]bool{"searchTransactionHistory": true}}
	if err := p.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return 0, err
	}
	if len(result.Value) == 0 || result.Value[0] == nil {
		return 0, nil
	}
	status := result.Value[0]
	if status.Confirmations == nil {
		return 32, nil
	}
	return *status.Confirmations, nil
}

// HeadBlock returns the current slot.
func (p *SolanaProvider) HeadBlock(ctx context.Context) (uint64, error) {
	var slot uint64
	if err := p.call(ctx, "getSlot", nil, &slot); err != nil {
		return 0, err
	}
	return slot, nil
}

// SendTransaction reports the manual processing marker: solana sweeps are
// executed by operator tooling, not by this process.
func (p *SolanaProvider) SendTransaction(ctx context.Context, from, to string, amount *big.Int, privateKey []byte) (string, error) {
	p.log.Info().
		Str("from", from).
		Str("to", to).
		Str("amount", amount.String()).
		Msg("solana transfer queued for manual processing")
	return ports.ManualProcessingMarker, nil
}

func (p *SolanaProvider) call(ctx context.Context, method string, params []any, result any) error {
	reqBody, err := json.Marshal(solanaRPCRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperror.ErrProviderUnavailable(string(domain.ChainSolana), fmt.Errorf("%s: %w", method, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperror.ErrProviderUnavailable(string(domain.ChainSolana), fmt.Errorf("%s: status %d", method, resp.StatusCode))
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *solanaRPCError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return apperror.ErrProviderUnavailable(string(domain.ChainSolana), fmt.Errorf("%s: decode: %w", method, err))
	}
	if envelope.Error != nil {
		return apperror.ErrProviderUnavailable(string(domain.ChainSolana), fmt.Errorf("%s: rpc error %d: %s", method, envelope.Error.Code, envelope.Error.Message))
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return apperror.ErrProviderUnavailable(string(domain.ChainSolana), fmt.Errorf("%s: decode result: %w", method, err))
		}
	}
	return nil
}
