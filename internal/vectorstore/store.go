// Package vectorstore keeps embedding vectors and answers nearest-neighbor queries over them.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "portfolio"

// ErrDimensionMismatch is returned by Query when a stored vector cannot be compared with the
// query vector, typically after the embedding model changed without reloading the collection.
var ErrDimensionMismatch = errors.New("vectorstore: vector dimension mismatch")

// Item is a vector stored under a unique id together with free-form metadata.
type Item struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// Hit is a stored item scored against a query vector. Seq reflects insertion order.
type Hit struct {
	ID       string
	Score    float64
	Metadata map[string]string
	Seq      int64
}

// Store is a similarity backend.
type Store interface {
	// Upsert inserts items, replacing vectors and metadata of ids that already exist.
	Upsert(ctx context.Context, items []Item) error
	// Query returns up to k hits ranked by descending cosine similarity, ties broken by
	// insertion order. A non-positive k returns every stored item. A stored vector whose
	// dimension differs from the query fails the whole query with ErrDimensionMismatch.
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)
	Count(ctx context.Context) (int, error)
	// Reset removes every item of the collection.
	Reset(ctx context.Context) error
	Close() error
}

// rank sorts hits by score and insertion order and keeps the first k.
func rank(hits []Hit, k int) []Hit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Seq < hits[j].Seq
	})

	if k > 0 && k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when either is
// a zero vector. The second return value is false when the dimensions differ.
func CosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) != len(b) {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, true
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}

func mismatch(id string, stored, query int) error {
	return fmt.Errorf("%w: item %s has %d dimensions, query has %d", ErrDimensionMismatch, id, stored, query)
}

func copyMetadata(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
