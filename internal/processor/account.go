package processor

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/registry"
)

// handleInternalBalanceChange adjusts a user's vault balance. Pools, prices
// and totals are untouched, and a balance may go negative when the index
// starts after the user's first deposit.
func (p *Processor) handleInternalBalanceChange(ctx context.Context, tx *registry.Tx, ev *domain.Event) (string, error) {
	ib := ev.InternalBalanceChange

	decimals, err := p.tokenDecimals(ctx, tx, ib.Token)
	if err != nil {
		return "", err
	}

	bal, _, err := registry.GetOrCreate(ctx, tx, domain.InternalBalanceID(ib.User, ib.Token), func() *domain.InternalBalance {
		return &domain.InternalBalance{User: ib.User, Token: ib.Token}
	})
	if err != nil {
		return "", err
	}

	bal.BalanceRaw = bal.BalanceRaw.Add(ib.Delta)
	bal.Balance = bal.Balance.Add(domain.ScaleAmount(ib.Delta, decimals))
	if bal.BalanceRaw.IsNegative() {
		p.logger.Debug("internal balance below zero",
			zap.String("user", domain.AddrID(ib.User)),
			zap.String("token", domain.AddrID(ib.Token)),
			zap.String("balance_raw", bal.BalanceRaw.String()),
		)
	}
	return "", tx.Upsert(bal)
}

// tokenDecimals reads decimals from a registered asset, falling back to a
// metadata lookup without registering the token.
func (p *Processor) tokenDecimals(ctx context.Context, tx *registry.Tx, token common.Address) (int32, error) {
	asset, err := registry.Load[domain.Asset](ctx, tx, domain.AddrID(token))
	if err != nil {
		return 0, err
	}
	if asset != nil {
		return asset.Decimals, nil
	}
	md, _ := p.meta.TryFetch(ctx, token)
	return md.DecimalsOr(p.cfg.DefaultDecimals), nil
}
