package chain

import (
	"context"
	"fmt"

	"chainpay-gateway/config"
	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

// Registry implements ports.ProviderRegistry over a fixed provider set built
// at startup.
type Registry struct {
	providers map[domain.Chain]ports.ChainProvider
}

// NewRegistry builds a registry from the given providers.
func NewRegistry(providers ...ports.ChainProvider) *Registry {
	m := make(map[domain.Chain]ports.ChainProvider, len(providers))
	for _, p := range providers {
		m[p.Chain()] = p
	}
	return &Registry{providers: m}
}

// Provider returns the provider for a chain.
func (r *Registry) Provider(chain domain.Chain) (ports.ChainProvider, error) {
	p, ok := r.providers[chain]
	if !ok {
		return nil, apperror.ErrProviderUnavailable(string(chain), fmt.Errorf("no provider configured"))
	}
	return p, nil
}

// Chains lists the chains with a configured provider.
func (r *Registry) Chains() []domain.Chain {
	chains := make([]domain.Chain, 0, len(r.providers))
	for c := range r.providers {
		chains = append(chains, c)
	}
	return chains
}

// BuildRegistry constructs one provider per configured chain.
func BuildRegistry(ctx context.Context, chains map[string]config.ChainConfig, log zerolog.Logger) (*Registry, error) {
	var providers []ports.ChainProvider
	for name, cc := range chains {
		chain, ok := domain.ParseChain(name)
		if !ok {
			return nil, apperror.ErrUnsupportedChain(name)
		}
		switch {
		case chain.IsEVM():
			p, err := NewEVMProvider(ctx, chain, cc.RPCURL, log)
			if err != nil {
				return nil, err
			}
			providers = append(providers, p)
		case chain == domain.ChainSolana:
			providers = append(providers, NewSolanaProvider(cc.RPCURL, log))
		default:
			providers = append(providers, NewUTXOProvider(chain, cc.RPCURL, log))
		}
	}
	return NewRegistry(providers...), nil
}
