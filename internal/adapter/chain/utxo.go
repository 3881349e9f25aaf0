package chain

import (
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

// UTXOProvider implements ports.ChainProvider for bitcoin and bitcoincash
// against a Blockbook index REST API. The gateway does not assemble UTXO
// transactions itself: SendTransaction reports the manual processing marker
// and operators sweep the address out of band.
type UTXOProvider struct {
	chain      domain.Chain
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewUTXOProvider builds a provider talking to a Blockbook instance.
func NewUTXOProvider(chain domain.Chain, baseURL string, log zerolog.Logger) *UTXOProvider {
	return &UTXOProvider{
		chain:      chain,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log.With().Str("chain", string(chain)).Logger(),
	}
}

func (p *UTXOProvider) Chain() domain.Chain { return p.chain }

type blockbookUTXO struct {
	Txid          string `json:"txid"`
	Value         string `json:"value"` // satoshis
	Confirmations uint64 `json:"confirmations"`
}

type blockbookTx struct {
	Txid          string `json:"txid"`
	Confirmations uint64 `json:"confirmations"`
}

type blockbookStatus struct {
	Blockbook struct {
		BestHeight uint64 `json:"bestHeight"`
	} `json:"blockbook"`
}

// GetBalance sums the unspent outputs at the address.
func (p *UTXOProvider) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	utxos, err := p.utxos(ctx, address)
	if err != nil {
		return nil, err
	}
	total := new(big.Int)
	for _, u := range utxos {
		v, ok := new(big.Int).SetString(u.Value, 10)
		if !ok {
			return nil, fmt.Errorf("malformed utxo value %q for %s", u.Value, address)
		}
		total.Add(total, v)
	}
	return total, nil
}

// FindDeposit reports the unspent funds at the address. The deposit carries
// the funding txid and the shallowest confirmation depth across outputs.
func (p *UTXOProvider) FindDeposit(ctx context.Context, address string) (*ports.Deposit, error) {
	utxos, err := p.utxos(ctx, address)
	if err != nil {
		return nil, err
	}
	if len(utxos) == 0 {
		return nil, nil
	}

	total := new(big.Int)
	confirmations := utxos[0].Confirmations
	for _, u := range utxos {
		v, ok := new(big.Int).SetString(u.Value, 10)
		if !ok {
			return nil, fmt.Errorf("malformed utxo value %q for %s", u.Value, address)
		}
		total.Add(total, v)
		if u.Confirmations < confirmations {
			confirmations = u.Confirmations
		}
	}

	return &ports.Deposit{
		TxHash:        utxos[0].Txid,
		Amount:        total,
		Confirmations: confirmations,
	}, nil
}

// GetConfirmations returns the confirmation depth of a transaction.
func (p *UTXOProvider) GetConfirmations(ctx context.Context, txHash string) (uint64, error) {
	var tx blockbookTx
	if err := p.get(ctx, "/api/v2/tx/"+txHash, &tx); err != nil {
		return 0, err
	}
	return tx.Confirmations, nil
}

// HeadBlock returns the index's best block height.
func (p *UTXOProvider) HeadBlock(ctx context.Context) (uint64, error) {
	var status blockbookStatus
	if err := p.get(ctx, "/api/v2", &status); err != nil {
		return 0, err
	}
	return status.Blockbook.BestHeight, nil
}

// SendTransaction reports the manual processing marker: UTXO sweeps are
// executed by operator tooling, not by this process.
func (p *UTXOProvider) SendTransaction(ctx context.Context, from, to string, amount *big.Int, privateKey []byte) (string, error) {
	p.log.Info().
		Str("from", from).
		Str("to", to).
		Str("amount", amount.String()).
		Msg("utxo transfer queued for manual processing")
	return ports.ManualProcessingMarker, nil
}

func (p *UTXOProvider) utxos(ctx context.Context, address string) ([]blockbookUTXO, error) {
	var utxos []blockbookUTXO
	if err := p.get(ctx, "/api/v2/utxo/"+address, &utxos); err != nil {
		return nil, err
	}
	return utxos, nil
}

func (p *UTXOProvider) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperror.ErrProviderUnavailable(string(p.chain), fmt.Errorf("GET %s: %w", path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperror.ErrProviderUnavailable(string(p.chain), fmt.Errorf("GET %s: status %d", path, resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.ErrProviderUnavailable(string(p.chain), fmt.Errorf("GET %s: decode: %w", path, err))
	}
	return nil
}
