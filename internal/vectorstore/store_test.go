package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := OpenSQLite(context.Background(), t.TempDir(), "")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestStoreQueryRanking(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.Upsert(ctx, []Item{
				{ID: "a", Vector: []float32{1, 0}, Metadata: map[string]string{"url": "http://a"}},
				{ID: "b", Vector: []float32{0, 1}, Metadata: map[string]string{"url": "http://b"}},
				{ID: "c", Vector: []float32{1, 0}, Metadata: map[string]string{"url": "http://c"}},
				{ID: "d", Vector: []float32{1, 1}, Metadata: map[string]string{"url": "http://d"}},
			}))

			hits, err := store.Query(ctx, []float32{1, 0}, 3)
			require.NoError(t, err)
			require.Len(t, hits, 3)

			assert.Equal(t, "a", hits[0].ID, "ties keep insertion order")
			assert.Equal(t, "c", hits[1].ID)
			assert.Equal(t, "d", hits[2].ID)
			assert.Equal(t, "http://a", hits[0].Metadata["url"])
			for i := 1; i < len(hits); i++ {
				assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
			}

			all, err := store.Query(ctx, []float32{1, 0}, 0)
			require.NoError(t, err)
			assert.Len(t, all, 4)
		})
	}
}

func TestStoreUpsertCountReset(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			count, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, count)

			hits, err := store.Query(ctx, []float32{1}, 2)
			require.NoError(t, err)
			assert.Empty(t, hits)

			require.NoError(t, store.Upsert(ctx, []Item{{ID: "x", Vector: []float32{1, 0}}}))
			require.NoError(t, store.Upsert(ctx, []Item{{ID: "x", Vector: []float32{0, 1}, Metadata: map[string]string{"v": "2"}}}))

			count, err = store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, count, "upsert of an existing id must not duplicate")

			hits, err = store.Query(ctx, []float32{0, 1}, 1)
			require.NoError(t, err)
			require.Len(t, hits, 1)
			assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
			assert.Equal(t, "2", hits[0].Metadata["v"])

			require.Error(t, store.Upsert(ctx, []Item{{Vector: []float32{1}}}))

			require.NoError(t, store.Reset(ctx))
			count, err = store.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestStoreRejectsMismatchedDimensions(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Upsert(ctx, []Item{
				{ID: "short", Vector: []float32{1}},
				{ID: "long", Vector: []float32{1, 0, 0}},
			}))

			hits, err := store.Query(ctx, []float32{1, 0, 0}, 5)
			require.ErrorIs(t, err, ErrDimensionMismatch)
			assert.Contains(t, err.Error(), "short")
			assert.Nil(t, hits)
		})
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := OpenSQLite(ctx, dir, "portfolio")
	require.NoError(t, err)
	require.NoError(t, first.Upsert(ctx, []Item{{ID: "a", Vector: []float32{0.5, -0.25}, Metadata: map[string]string{"url": "http://a"}}}))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(ctx, dir, "portfolio")
	require.NoError(t, err)
	defer second.Close()

	count, err := second.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	other, err := OpenSQLite(ctx, dir, "other")
	require.NoError(t, err)
	defer other.Close()

	count, err = other.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "collections are isolated")
}

func TestSQLiteRequiresDirectory(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "  ", "portfolio")
	require.Error(t, err)
}

func TestVectorEncodingRoundTrip(t *testing.T) {
	vector := []float32{0, 1.5, -2.25, 3.4028235e38}
	decoded, err := decodeVector(encodeVector(vector))
	require.NoError(t, err)
	assert.Equal(t, vector, decoded)

	_, err = decodeVector([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	score, ok := CosineSimilarity([]float32{1, 0}, []float32{0, 0})
	assert.True(t, ok)
	assert.Zero(t, score)

	_, ok = CosineSimilarity([]float32{1}, []float32{1, 0})
	assert.False(t, ok)

	score, ok = CosineSimilarity([]float32{3, 4}, []float32{6, 8})
	assert.True(t, ok)
	assert.InDelta(t, 1.0, score, 1e-12)
}
