package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/storage"
	"pool-analytics-lab/internal/storage/memory"
)

var testAsset = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func newAsset() *domain.Asset {
	return &domain.Asset{Address: testAsset, Symbol: "AAA", Decimals: 18}
}

func TestLoad_Absent(t *testing.T) {
	reg := New(memory.NewEntityStore())

	got, err := Load[domain.Asset](context.Background(), reg.Reader(), domain.AddrID(testAsset))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	store := memory.NewEntityStore()
	reg := New(store)
	ctx := context.Background()
	id := domain.AddrID(testAsset)

	tx := reg.Begin()
	a, created, err := GetOrCreate(ctx, tx, id, newAsset)
	require.NoError(t, err)
	assert.True(t, created)
	a.TotalSwapCount = 3
	require.NoError(t, tx.Upsert(a))
	require.NoError(t, tx.Commit(ctx))

	tx = reg.Begin()
	again, created, err := GetOrCreate(ctx, tx, id, newAsset)
	require.NoError(t, err)
	assert.False(t, created, "second get-or-create must load, not re-initialize")
	assert.Equal(t, uint64(3), again.TotalSwapCount)
	assert.Equal(t, 0, tx.Pending())
}

func TestGetOrCreate_RejectsMismatchedID(t *testing.T) {
	reg := New(memory.NewEntityStore())

	_, _, err := GetOrCreate(context.Background(), reg.Begin(), "other", newAsset)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestTx_ReadYourWrites(t *testing.T) {
	store := memory.NewEntityStore()
	reg := New(store)
	ctx := context.Background()

	tx := reg.Begin()
	require.NoError(t, tx.Upsert(newAsset()))

	got, err := Load[domain.Asset](ctx, tx, domain.AddrID(testAsset))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "AAA", got.Symbol)

	// Not visible outside the Tx until commit
	outside, err := Load[domain.Asset](ctx, reg.Reader(), domain.AddrID(testAsset))
	require.NoError(t, err)
	assert.Nil(t, outside)
}

func TestTx_DiscardWritesNothing(t *testing.T) {
	store := memory.NewEntityStore()
	reg := New(store)

	tx := reg.Begin()
	require.NoError(t, tx.Upsert(newAsset()))
	tx.Discard()
	require.NoError(t, tx.Commit(context.Background()))

	assert.Equal(t, 0, store.Len(domain.KindAsset))
}

type failingStore struct {
	storage.EntityStore
}

func (failingStore) Commit(context.Context, []storage.Record) error {
	return errors.New("boom")
}

func TestTx_CommitFailureKeepsPending(t *testing.T) {
	reg := New(failingStore{EntityStore: memory.NewEntityStore()})

	tx := reg.Begin()
	require.NoError(t, tx.Upsert(newAsset()))
	assert.Error(t, tx.Commit(context.Background()))
	assert.Equal(t, 1, tx.Pending())
}

func TestTx_RecordsSorted(t *testing.T) {
	reg := New(memory.NewEntityStore())
	tx := reg.Begin()

	require.NoError(t, tx.Upsert(&domain.Pool{Address: common.HexToAddress("0x02")}))
	require.NoError(t, tx.Upsert(&domain.Asset{Address: common.HexToAddress("0x03")}))
	require.NoError(t, tx.Upsert(&domain.Asset{Address: common.HexToAddress("0x01")}))

	records := tx.Records()
	require.Len(t, records, 3)
	assert.Equal(t, domain.KindAsset, records[0].Kind)
	assert.True(t, records[0].ID < records[1].ID)
	assert.Equal(t, domain.KindPool, records[2].Kind)
}

func TestEncoding_Deterministic(t *testing.T) {
	ctx := context.Background()
	encode := func() []byte {
		store := memory.NewEntityStore()
		tx := New(store).Begin()
		require.NoError(t, tx.Upsert(&domain.Pool{
			Address:  common.HexToAddress("0x02"),
			Assets:   []common.Address{testAsset},
			Weights:  []decimal.Decimal{decimal.RequireFromString("0.5")},
			SwapFee:  decimal.RequireFromString("0.003"),
			PoolType: domain.PoolTypeWeighted,
		}))
		require.NoError(t, tx.Commit(ctx))
		data, err := store.Get(ctx, domain.KindPool, domain.AddrID(common.HexToAddress("0x02")))
		require.NoError(t, err)
		return data
	}

	assert.Equal(t, encode(), encode())
}

func TestList_Decodes(t *testing.T) {
	store := memory.NewEntityStore()
	reg := New(store)
	ctx := context.Background()

	tx := reg.Begin()
	require.NoError(t, tx.Upsert(&domain.Asset{Address: common.HexToAddress("0x02"), Symbol: "B"}))
	require.NoError(t, tx.Upsert(&domain.Asset{Address: common.HexToAddress("0x01"), Symbol: "A"}))
	require.NoError(t, tx.Commit(ctx))

	assets, err := List[domain.Asset](ctx, store)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "A", assets[0].Symbol)
	assert.Equal(t, "B", assets[1].Symbol)
}
