package portfolio

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/outreach-composer/internal/ai"
	"github.com/spigell/outreach-composer/internal/vectorstore"
)

// DefaultTopK is the number of references returned when no k is given.
const DefaultTopK = 2

const (
	metaReferenceURL = "reference_url"
	metaSkills       = "skills"
)

// Match is a retrieved reference with its similarity score.
type Match struct {
	ReferenceURL string  `json:"reference_url" yaml:"reference_url"`
	Score        float64 `json:"score" yaml:"score"`
}

// Index embeds portfolio entries into a vector store and answers skill queries.
type Index struct {
	store    vectorstore.Store
	embedder ai.Embedder
	topK     int
	logger   *zap.Logger

	loadMu sync.Mutex
}

// NewIndex wires an index on top of the given store and embedder. A non-positive topK
// falls back to DefaultTopK.
func NewIndex(store vectorstore.Store, embedder ai.Embedder, topK int, logger *zap.Logger) *Index {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Index{
		store:    store,
		embedder: embedder,
		topK:     topK,
		logger:   logger,
	}
}

// Load embeds and stores entries unless the index already holds at least one entry.
// Concurrent callers are serialized, so racing first loads never duplicate entries.
func (i *Index) Load(ctx context.Context, entries []Entry) error {
	i.loadMu.Lock()
	defer i.loadMu.Unlock()

	count, err := i.store.Count(ctx)
	if err != nil {
		return ai.NewError(ai.BackendUnavailable, "count portfolio entries", err)
	}
	if count > 0 {
		i.logger.Debug("portfolio already loaded", zap.Int("entries", count))
		return nil
	}
	if len(entries) == 0 {
		return nil
	}

	documents := make([]string, 0, len(entries))
	for _, entry := range entries {
		documents = append(documents, entry.CanonicalSkills())
	}

	vectors, err := i.embedder.Embed(ctx, documents)
	if err != nil {
		return ai.NewError(ai.BackendUnavailable, "embed portfolio entries", err)
	}
	if len(vectors) != len(entries) {
		return ai.NewError(ai.BackendUnavailable, "embedder returned unexpected number of vectors", nil)
	}

	items := make([]vectorstore.Item, 0, len(entries))
	for n, entry := range entries {
		items = append(items, vectorstore.Item{
			ID:     uuid.NewString(),
			Vector: vectors[n],
			Metadata: map[string]string{
				metaReferenceURL: entry.ReferenceURL,
				metaSkills:       documents[n],
			},
		})
	}

	if err := i.store.Upsert(ctx, items); err != nil {
		return ai.NewError(ai.BackendUnavailable, "store portfolio entries", err)
	}

	i.logger.Info("portfolio loaded", zap.Int("entries", len(items)))
	return nil
}

// Query returns up to k references whose skill sets are most similar to skills, sorted by
// descending score with ties kept in insertion order. Each skill is embedded separately and
// an entry's score is its mean similarity over all skills, so entries covering more of the
// requested skills rank higher. A negative k uses the index default and k == 0 yields no
// matches. Stored vectors that cannot be compared with the query embeddings surface as
// BackendUnavailable.
func (i *Index) Query(ctx context.Context, skills []string, k int) ([]Match, error) {
	if k < 0 {
		k = i.topK
	}
	if k == 0 {
		return []Match{}, nil
	}

	terms := make([]string, 0, len(skills))
	for _, skill := range skills {
		if skill = strings.TrimSpace(skill); skill != "" {
			terms = append(terms, skill)
		}
	}
	if len(terms) == 0 {
		return []Match{}, nil
	}

	count, err := i.store.Count(ctx)
	if err != nil {
		return nil, ai.NewError(ai.BackendUnavailable, "count portfolio entries", err)
	}
	if count == 0 {
		return []Match{}, nil
	}

	vectors, err := i.embedder.Embed(ctx, terms)
	if err != nil {
		return nil, ai.NewError(ai.BackendUnavailable, "embed query skills", err)
	}
	if len(vectors) != len(terms) {
		return nil, ai.NewError(ai.BackendUnavailable, "embedder returned unexpected number of vectors", nil)
	}

	type aggregate struct {
		url   string
		seq   int64
		total float64
	}
	byID := make(map[string]*aggregate, count)

	for _, vector := range vectors {
		hits, err := i.store.Query(ctx, vector, 0)
		if err != nil {
			return nil, ai.NewError(ai.BackendUnavailable, "query portfolio store", err)
		}
		for _, hit := range hits {
			agg, ok := byID[hit.ID]
			if !ok {
				agg = &aggregate{url: hit.Metadata[metaReferenceURL], seq: hit.Seq}
				byID[hit.ID] = agg
			}
			agg.total += hit.Score
		}
	}

	ranked := make([]*aggregate, 0, len(byID))
	for _, agg := range byID {
		ranked = append(ranked, agg)
	}
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].total != ranked[b].total {
			return ranked[a].total > ranked[b].total
		}
		return ranked[a].seq < ranked[b].seq
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}

	matches := make([]Match, 0, len(ranked))
	for _, agg := range ranked {
		matches = append(matches, Match{
			ReferenceURL: agg.url,
			Score:        agg.total / float64(len(vectors)),
		})
	}

	return matches, nil
}

// Count returns the number of stored entries.
func (i *Index) Count(ctx context.Context) (int, error) {
	count, err := i.store.Count(ctx)
	if err != nil {
		return 0, ai.NewError(ai.BackendUnavailable, "count portfolio entries", err)
	}
	return count, nil
}

// Reset drops every stored entry so the next Load repopulates the index.
func (i *Index) Reset(ctx context.Context) error {
	i.loadMu.Lock()
	defer i.loadMu.Unlock()

	if err := i.store.Reset(ctx); err != nil {
		return ai.NewError(ai.BackendUnavailable, "reset portfolio store", err)
	}
	return nil
}

// References returns the reference URLs of matches in rank order.
func References(matches []Match) []string {
	urls := make([]string, 0, len(matches))
	for _, match := range matches {
		urls = append(urls, match.ReferenceURL)
	}
	return urls
}
