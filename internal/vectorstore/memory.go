package vectorstore

import (
	"context"
	"errors"
	"sync"
)

type memoryRecord struct {
	item Item
	seq  int64
}

// Memory is a process-local Store. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	records []memoryRecord
	byID    map[string]int
	nextSeq int64
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[string]int)}
}

func (m *Memory) Upsert(_ context.Context, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range items {
		if item.ID == "" {
			return errors.New("item id is required")
		}

		stored := Item{
			ID:       item.ID,
			Vector:   append([]float32(nil), item.Vector...),
			Metadata: copyMetadata(item.Metadata),
		}

		if pos, ok := m.byID[item.ID]; ok {
			m.records[pos].item = stored
			continue
		}

		m.nextSeq++
		m.byID[item.ID] = len(m.records)
		m.records = append(m.records, memoryRecord{item: stored, seq: m.nextSeq})
	}

	return nil
}

func (m *Memory) Query(_ context.Context, vector []float32, k int) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]Hit, 0, len(m.records))
	for _, record := range m.records {
		score, ok := CosineSimilarity(vector, record.item.Vector)
		if !ok {
			return nil, mismatch(record.item.ID, len(record.item.Vector), len(vector))
		}
		hits = append(hits, Hit{
			ID:       record.item.ID,
			Score:    score,
			Metadata: copyMetadata(record.item.Metadata),
			Seq:      record.seq,
		})
	}

	return rank(hits, k), nil
}

func (m *Memory) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

func (m *Memory) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	m.byID = make(map[string]int)
	return nil
}

func (m *Memory) Close() error { return nil }
