package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/pkg/apperror"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

// nativeTransferGas is the fixed gas of a plain value transfer.
const nativeTransferGas = 21_000

// evmClient is the slice of ethclient.Client the provider needs. Tests
// substitute a fake.
type evmClient interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// EVMProvider implements ports.ChainProvider against an EVM JSON-RPC node.
// One instance per chain; ethereum and polygon differ only in chain id.
type EVMProvider struct {
	chain   domain.Chain
	client  evmClient
	chainID *big.Int
	log     zerolog.Logger
}

// NewEVMProvider dials the RPC endpoint and builds a provider for the chain.
func NewEVMProvider(ctx context.Context, chain domain.Chain, rpcURL string, log zerolog.Logger) (*EVMProvider, error) {
	if !chain.IsEVM() {
		return nil, fmt.Errorf("chain %s is not an EVM chain", chain)
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, apperror.ErrProviderUnavailable(string(chain), fmt.Errorf("dial %s: %w", rpcURL, err))
	}
	return newEVMProvider(chain, client, log), nil
}

func newEVMProvider(chain domain.Chain, client evmClient, log zerolog.Logger) *EVMProvider {
	return &EVMProvider{
		chain:   chain,
		client:  client,
		chainID: big.NewInt(chain.EVMChainID()),
		log:     log.With().Str("chain", string(chain)).Logger(),
	}
}

func (p *EVMProvider) Chain() domain.Chain { return p.chain }

// GetBalance returns the latest native balance of an address in wei.
func (p *EVMProvider) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	balance, err := p.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, apperror.ErrProviderUnavailable(string(p.chain), fmt.Errorf("balance of %s: %w", address, err))
	}
	return balance, nil
}

// HeadBlock returns the latest block number.
func (p *EVMProvider) HeadBlock(ctx context.Context) (uint64, error) {
	head, err := p.client.BlockNumber(ctx)
	if err != nil {
		return 0, apperror.ErrProviderUnavailable(string(p.chain), fmt.Errorf("block number: %w", err))
	}
	return head, nil
}

// FindDeposit observes the address balance. Payment addresses are one-time,
// so any nonzero balance is the inbound deposit. The transaction hash is not
// resolved here; confirmations are counted from the block height at
// detection.
func (p *EVMProvider) FindDeposit(ctx context.Context, address string) (*ports.Deposit, error) {
	balance, err := p.GetBalance(ctx, address)
	if err != nil {
		return nil, err
	}
	if balance.Sign() <= 0 {
		return nil, nil
	}
	return &ports.Deposit{Amount: balance}, nil
}

// GetConfirmations returns the confirmation depth of a mined transaction, or
// 0 while it is still pending.
func (p *EVMProvider) GetConfirmations(ctx context.Context, txHash string) (uint64, error) {
	receipt, err := p.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return 0, nil
		}
		return 0, apperror.ErrProviderUnavailable(string(p.chain), fmt.Errorf("receipt %s: %w", txHash, err))
	}
	head, err := p.HeadBlock(ctx)
	if err != nil {
		return 0, err
	}
	mined := receipt.BlockNumber.Uint64()
	if head < mined {
		return 0, nil
	}
	return head - mined + 1, nil
}

// SendTransaction signs and broadcasts a native transfer. The 21000-gas fee
// is deducted from the transfer value so the send clears from an address
// holding exactly the deposited amount.
func (p *EVMProvider) SendTransaction(ctx context.Context, from, to string, amount *big.Int, privateKey []byte) (string, error) {
	priv, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return "", fmt.Errorf("parse private key: %w", err)
	}

	fromAddr := common.HexToAddress(from)
	nonce, err := p.client.PendingNonceAt(ctx, fromAddr)
	if err != nil {
		return "", apperror.ErrProviderUnavailable(string(p.chain), fmt.Errorf("pending nonce: %w", err))
	}
	gasPrice, err := p.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", apperror.ErrProviderUnavailable(string(p.chain), fmt.Errorf("gas price: %w", err))
	}

	fee := new(big.Int).Mul(gasPrice, big.NewInt(nativeTransferGas))
	value := new(big.Int).Sub(amount, fee)
	if value.Sign() <= 0 {
		return "", fmt.Errorf("amount %s does not cover the %s gas fee", amount, fee)
	}

	tx := types.NewTransaction(nonce, common.HexToAddress(to), value, nativeTransferGas, gasPrice, nil)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(p.chainID), priv)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	if err := p.client.SendTransaction(ctx, signed); err != nil {
		return "", apperror.ErrProviderUnavailable(string(p.chain), fmt.Errorf("broadcast: %w", err))
	}

	hash := signed.Hash().Hex()
	p.log.Info().
		Str("from", from).
		Str("to", to).
		Str("value", value.String()).
		Str("tx_hash", hash).
		Msg("transaction broadcast")
	return hash, nil
}
