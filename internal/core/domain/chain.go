package domain

// Chain identifies a supported blockchain. The set is closed: chain behavior
// is dispatched through typed variants, never by ad hoc string comparison.
type Chain string

const (
	ChainBitcoin     Chain = "bitcoin"
	ChainBitcoinCash Chain = "bitcoincash"
	ChainEthereum    Chain = "ethereum"
	ChainPolygon     Chain = "polygon"
	ChainSolana      Chain = "solana"
)

// SupportedChains lists every chain the gateway can allocate addresses for.
var SupportedChains = []Chain{
	ChainBitcoin,
	ChainBitcoinCash,
	ChainEthereum,
	ChainPolygon,
	ChainSolana,
}

// ParseChain validates a chain identifier string.
func ParseChain(s string) (Chain, bool) {
	c := Chain(s)
	for _, sc := range SupportedChains {
		if c == sc {
			return c, true
		}
	}
	return "", false
}

// Decimals returns the number of decimal places of the chain's native unit.
func (c Chain) Decimals() int {
	switch c {
	case ChainBitcoin, ChainBitcoinCash:
		return 8
	case ChainSolana:
		return 9
	case ChainEthereum, ChainPolygon:
		return 18
	default:
		return 0
	}
}

// Ticker returns the display currency code for the chain's native asset.
func (c Chain) Ticker() string {
	switch c {
	case ChainBitcoin:
		return "BTC"
	case ChainBitcoinCash:
		return "BCH"
	case ChainEthereum:
		return "ETH"
	case ChainPolygon:
		return "POL"
	case ChainSolana:
		return "SOL"
	default:
		return ""
	}
}

// EVMChainID returns the EIP-155 chain id for account-model chains, or 0.
func (c Chain) EVMChainID() int64 {
	switch c {
	case ChainEthereum:
		return 1
	case ChainPolygon:
		return 137
	default:
		return 0
	}
}

// IsEVM reports whether the chain uses the Ethereum execution environment.
// EVM chains share one derivation path and differ only in chain id.
func (c Chain) IsEVM() bool {
	return c.EVMChainID() != 0
}
