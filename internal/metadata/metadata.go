// Package metadata resolves token metadata and pool weights from external sources.
//
// All lookups are best-effort: a failed lookup yields ok=false and callers
// fall back to defaults instead of failing event processing.
package metadata

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// DefaultDecimals is used when a token's decimals cannot be fetched.
const DefaultDecimals int32 = 18

// Metadata describes a token. Decimals is nil when unknown.
type Metadata struct {
	Symbol   string
	Name     string
	Decimals *int32
}

// DecimalsOr returns the fetched decimals or def.
func (m Metadata) DecimalsOr(def int32) int32 {
	if m.Decimals == nil {
		return def
	}
	return *m.Decimals
}

// Source fetches token metadata.
type Source interface {
	TryFetch(ctx context.Context, asset common.Address) (Metadata, bool)
}

// WeightSource fetches the normalized weights of a pool as of a block.
// Implementations must answer for that block, not the chain head, so that
// replaying the same events yields the same weights.
type WeightSource interface {
	TryWeights(ctx context.Context, pool common.Address, block uint64) ([]decimal.Decimal, bool)
}

// Nop never resolves anything.
type Nop struct{}

// TryFetch implements Source.
func (Nop) TryFetch(context.Context, common.Address) (Metadata, bool) { return Metadata{}, false }

// TryWeights implements WeightSource.
func (Nop) TryWeights(context.Context, common.Address, uint64) ([]decimal.Decimal, bool) {
	return nil, false
}

// Static serves metadata and weights from fixed maps. Safe for concurrent reads.
type Static struct {
	Tokens  map[common.Address]Metadata
	Weights map[common.Address][]decimal.Decimal
}

// TryFetch implements Source.
func (s *Static) TryFetch(_ context.Context, asset common.Address) (Metadata, bool) {
	if s == nil || s.Tokens == nil {
		return Metadata{}, false
	}
	m, ok := s.Tokens[asset]
	return m, ok
}

// TryWeights implements WeightSource. Static weights hold at every block.
func (s *Static) TryWeights(_ context.Context, pool common.Address, _ uint64) ([]decimal.Decimal, bool) {
	if s == nil || s.Weights == nil {
		return nil, false
	}
	w, ok := s.Weights[pool]
	if !ok {
		return nil, false
	}
	out := make([]decimal.Decimal, len(w))
	copy(out, w)
	return out, true
}

// Chain tries each source in order. Token fields missing from an earlier
// source are filled from later ones.
type Chain []Source

// TryFetch implements Source.
func (c Chain) TryFetch(ctx context.Context, asset common.Address) (Metadata, bool) {
	var (
		out   Metadata
		found bool
	)
	for _, src := range c {
		m, ok := src.TryFetch(ctx, asset)
		if !ok {
			continue
		}
		found = true
		if out.Symbol == "" {
			out.Symbol = m.Symbol
		}
		if out.Name == "" {
			out.Name = m.Name
		}
		if out.Decimals == nil {
			out.Decimals = m.Decimals
		}
		if out.Symbol != "" && out.Name != "" && out.Decimals != nil {
			break
		}
	}
	return out, found
}

// WeightChain returns the weights of the first source that knows the pool.
type WeightChain []WeightSource

// TryWeights implements WeightSource.
func (c WeightChain) TryWeights(ctx context.Context, pool common.Address, block uint64) ([]decimal.Decimal, bool) {
	for _, src := range c {
		if w, ok := src.TryWeights(ctx, pool, block); ok {
			return w, true
		}
	}
	return nil, false
}

// Int32 returns a pointer to v.
func Int32(v int32) *int32 { return &v }
