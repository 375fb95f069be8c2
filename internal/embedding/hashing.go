// Package embedding provides a local embedder that needs no network access.
package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultDimensions is used when a non-positive dimension count is requested.
const DefaultDimensions = 512

// Hashing is a deterministic bag-of-words embedder. Every lower-cased token is hashed
// into one of a fixed number of buckets and the resulting count vector is L2-normalized,
// so texts sharing more tokens end up with a higher cosine similarity.
type Hashing struct {
	dims int
}

func NewHashing(dims int) *Hashing {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Hashing{dims: dims}
}

// Embed returns one vector per text. Texts without tokens map to the zero vector.
func (h *Hashing) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors = append(vectors, h.embed(text))
	}
	return vectors, nil
}

func (h *Hashing) Dimensions() int {
	return h.dims
}

func (h *Hashing) embed(text string) []float32 {
	vector := make([]float32, h.dims)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, token := range tokens {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(token))
		vector[hasher.Sum32()%uint32(h.dims)]++
	}

	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vector
	}

	norm := float32(math.Sqrt(sum))
	for i := range vector {
		vector[i] /= norm
	}
	return vector
}
