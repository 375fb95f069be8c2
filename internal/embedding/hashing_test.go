package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestHashingEmbedIsNormalizedAndDeterministic(t *testing.T) {
	h := NewHashing(0)
	require.Equal(t, DefaultDimensions, h.Dimensions())

	first, err := h.Embed(context.Background(), []string{"Python, ML", "Python ML"})
	require.NoError(t, err)
	require.Len(t, first, 2)

	assert.InDelta(t, 1.0, math.Sqrt(dot(first[0], first[0])), 1e-6)
	assert.Equal(t, first[0], first[1], "punctuation must not change the embedding")

	second, err := h.Embed(context.Background(), []string{"python ml"})
	require.NoError(t, err)
	assert.Equal(t, first[0], second[0], "embedding must be case-insensitive and deterministic")
}

func TestHashingSharedTokensRankHigher(t *testing.T) {
	h := NewHashing(256)

	vectors, err := h.Embed(context.Background(), []string{"Python", "ML, Python", "Java"})
	require.NoError(t, err)

	query, pythonML, java := vectors[0], vectors[1], vectors[2]
	assert.Greater(t, dot(query, pythonML), dot(query, java))
	assert.InDelta(t, 0.0, dot(query, java), 1e-9)
}

func TestHashingEmptyText(t *testing.T) {
	vectors, err := NewHashing(8).Embed(context.Background(), []string{"  --  "})
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), vectors[0])
}

func TestHashingHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHashing(8).Embed(ctx, []string{"go"})
	require.ErrorIs(t, err, context.Canceled)
}
