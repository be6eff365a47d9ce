package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/storage"
)

// HistoryStore is an in-memory implementation of storage.HistoryStore.
type HistoryStore struct {
	mu        sync.RWMutex
	prices    map[string]*domain.PriceObservation
	snapshots map[string]*domain.LiquiditySnapshot
}

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		prices:    make(map[string]*domain.PriceObservation),
		snapshots: make(map[string]*domain.LiquiditySnapshot),
	}
}

// InsertPriceObservations adds observations. Fails entire batch on duplicate id.
func (s *HistoryStore) InsertPriceObservations(_ context.Context, obs []*domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(obs))
	for _, o := range obs {
		if o == nil {
			return storage.ErrInvalidInput
		}
		key := o.EntityID()
		if _, exists := s.prices[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, o := range obs {
		copy := *o
		s.prices[o.EntityID()] = &copy
	}
	return nil
}

// InsertLiquiditySnapshots adds snapshots. Fails entire batch on duplicate id.
func (s *HistoryStore) InsertLiquiditySnapshots(_ context.Context, snaps []*domain.LiquiditySnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(snaps))
	for _, sn := range snaps {
		if sn == nil {
			return storage.ErrInvalidInput
		}
		key := sn.EntityID()
		if _, exists := s.snapshots[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, sn := range snaps {
		copy := *sn
		s.snapshots[sn.EntityID()] = &copy
	}
	return nil
}

// GetPriceObservations retrieves observations of asset in pricingAsset, ordered by block ASC.
func (s *HistoryStore) GetPriceObservations(_ context.Context, asset, pricingAsset common.Address) ([]*domain.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceObservation
	for _, o := range s.prices {
		if o.Asset == asset && o.PricingAsset == pricingAsset {
			copy := *o
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Block != result[j].Block {
			return result[i].Block < result[j].Block
		}
		return domain.AddrID(result[i].Pool) < domain.AddrID(result[j].Pool)
	})
	return result, nil
}

// GetLiquiditySnapshots retrieves a pool's snapshots ordered by block ASC.
func (s *HistoryStore) GetLiquiditySnapshots(_ context.Context, pool common.Address) ([]*domain.LiquiditySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LiquiditySnapshot
	for _, sn := range s.snapshots {
		if sn.Pool == pool {
			copy := *sn
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Block != result[j].Block {
			return result[i].Block < result[j].Block
		}
		return domain.AddrID(result[i].PricingAsset) < domain.AddrID(result[j].PricingAsset)
	})
	return result, nil
}

var _ storage.HistoryStore = (*HistoryStore)(nil)
