package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/storage"
)

func TestEntityStore_CommitGetList(t *testing.T) {
	pool := newTestPool(t)

	store := NewEntityStore(pool)
	ctx := context.Background()

	_, err := store.Get(ctx, domain.KindPool, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.Commit(ctx, []storage.Record{
		{Kind: domain.KindPool, ID: "b", Data: []byte(`{"swaps_count": 2}`)},
		{Kind: domain.KindPool, ID: "a", Data: []byte(`{"swaps_count": 1}`)},
		{Kind: domain.KindAsset, ID: "x", Data: []byte(`{"symbol": "USDC"}`)},
	})
	require.NoError(t, err)

	data, err := store.Get(ctx, domain.KindPool, "a")
	require.NoError(t, err)

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 1, decoded["swaps_count"])

	records, err := store.List(ctx, domain.KindPool)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
}

func TestEntityStore_Upsert(t *testing.T) {
	pool := newTestPool(t)

	store := NewEntityStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Commit(ctx, []storage.Record{{Kind: domain.KindAsset, ID: "x", Data: []byte(`{"v": 1}`)}}))
	require.NoError(t, store.Commit(ctx, []storage.Record{{Kind: domain.KindAsset, ID: "x", Data: []byte(`{"v": 2}`)}}))

	data, err := store.Get(ctx, domain.KindAsset, "x")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v": 2}`, string(data))

	records, err := store.List(ctx, domain.KindAsset)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestEntityStore_CommitRollsBackOnInvalidJSON(t *testing.T) {
	pool := newTestPool(t)

	store := NewEntityStore(pool)
	ctx := context.Background()

	err := store.Commit(ctx, []storage.Record{
		{Kind: domain.KindAsset, ID: "ok", Data: []byte(`{"v": 1}`)},
		{Kind: domain.KindAsset, ID: "bad", Data: []byte(`not json`)},
	})
	require.Error(t, err)

	_, err = store.Get(ctx, domain.KindAsset, "ok")
	assert.ErrorIs(t, err, storage.ErrNotFound, "first record must be rolled back")
}
