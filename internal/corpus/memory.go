package corpus

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory keeps the whole corpus in process. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	sources map[string]Source
	index   map[uint64][]string
}

func NewMemory() *Memory {
	return &Memory{
		sources: make(map[string]Source),
		index:   make(map[uint64][]string),
	}
}

func (m *Memory) Add(ctx context.Context, src Source) error {
	if src.ID == "" {
		return fmt.Errorf("source id is required")
	}
	hashes, err := Fingerprints(ctx, src)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sources[src.ID]; exists {
		m.removeLocked(src.ID)
	}
	m.sources[src.ID] = src
	for _, h := range hashes {
		m.index[h] = append(m.index[h], src.ID)
	}
	return nil
}

func (m *Memory) removeLocked(id string) {
	delete(m.sources, id)
	for h, ids := range m.index {
		kept := ids[:0]
		for _, other := range ids {
			if other != id {
				kept = append(kept, other)
			}
		}
		if len(kept) == 0 {
			delete(m.index, h)
		} else {
			m.index[h] = kept
		}
	}
}

func (m *Memory) Lookup(_ context.Context, hash uint64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.index[hash]
	if len(ids) == 0 {
		return nil, nil
	}
	return append([]string(nil), ids...), nil
}

func (m *Memory) LookupBatch(ctx context.Context, hashes []uint64) (map[uint64][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[uint64][]string)
	for _, h := range hashes {
		if ids := m.index[h]; len(ids) > 0 {
			out[h] = append([]string(nil), ids...)
		}
	}
	return out, nil
}

func (m *Memory) Source(_ context.Context, id string) (*Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src, ok := m.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &src, nil
}

func (m *Memory) Stats(context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{Sources: len(m.sources), Fingerprints: len(m.index)}, nil
}

// IDs lists source IDs in sorted order.
func (m *Memory) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sources))
	for id := range m.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
