package processor

import (
	"fmt"

	"pool-analytics-lab/internal/domain"
)

func (p *Processor) validateEvent(ev *domain.Event) error {
	if ev == nil {
		return fmt.Errorf("nil event: %w", ErrInvalidEvent)
	}
	if err := p.validate.Struct(ev); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	var present int
	for _, set := range []bool{
		ev.PoolRegistered != nil,
		ev.Swap != nil,
		ev.BalanceChange != nil,
		ev.ShareTransfer != nil,
		ev.SwapFeeChange != nil,
		ev.InternalBalanceChange != nil,
		ev.AmpUpdateStarted != nil,
		ev.AmpUpdateStopped != nil,
	} {
		if set {
			present++
		}
	}
	if present != 1 {
		return fmt.Errorf("%w: %d payloads set", ErrInvalidEvent, present)
	}

	switch ev.Type {
	case domain.EventTypePoolRegistered:
		pr := ev.PoolRegistered
		if pr == nil {
			return payloadMismatch(ev)
		}
		if pr.SwapFee.IsNegative() {
			return fmt.Errorf("%w: negative swap fee", ErrInvalidEvent)
		}
	case domain.EventTypeSwap:
		s := ev.Swap
		if s == nil {
			return payloadMismatch(ev)
		}
		if s.AssetIn == s.AssetOut {
			return fmt.Errorf("%w: swap of %s into itself", ErrInvalidEvent, domain.AddrID(s.AssetIn))
		}
		if s.AmountIn.IsNegative() || s.AmountOut.IsNegative() {
			return fmt.Errorf("%w: negative swap amount", ErrInvalidEvent)
		}
	case domain.EventTypeBalanceChange:
		if ev.BalanceChange == nil {
			return payloadMismatch(ev)
		}
		seen := make(map[string]struct{}, len(ev.BalanceChange.Deltas))
		for _, d := range ev.BalanceChange.Deltas {
			id := domain.AddrID(d.Asset)
			if _, dup := seen[id]; dup {
				return fmt.Errorf("%w: duplicate delta for %s", ErrInvalidEvent, id)
			}
			seen[id] = struct{}{}
		}
	case domain.EventTypeShareTransfer:
		st := ev.ShareTransfer
		if st == nil {
			return payloadMismatch(ev)
		}
		if st.Value.IsNegative() {
			return fmt.Errorf("%w: negative share value", ErrInvalidEvent)
		}
	case domain.EventTypeSwapFeeChange:
		sf := ev.SwapFeeChange
		if sf == nil {
			return payloadMismatch(ev)
		}
		if sf.SwapFee.IsNegative() {
			return fmt.Errorf("%w: negative swap fee", ErrInvalidEvent)
		}
	case domain.EventTypeInternalBalanceChange:
		if ev.InternalBalanceChange == nil {
			return payloadMismatch(ev)
		}
	case domain.EventTypeAmpUpdateStarted:
		au := ev.AmpUpdateStarted
		if au == nil {
			return payloadMismatch(ev)
		}
		if !au.StartValue.IsPositive() || !au.EndValue.IsPositive() {
			return fmt.Errorf("%w: non-positive amplification", ErrInvalidEvent)
		}
	case domain.EventTypeAmpUpdateStopped:
		as := ev.AmpUpdateStopped
		if as == nil {
			return payloadMismatch(ev)
		}
		if !as.CurrentValue.IsPositive() {
			return fmt.Errorf("%w: non-positive amplification", ErrInvalidEvent)
		}
	}
	return nil
}

func payloadMismatch(ev *domain.Event) error {
	return fmt.Errorf("%w: payload does not match type %s", ErrInvalidEvent, ev.Type)
}
