package kvstore

import (
	"context"
	"sync"

	"github.com/devbush/tabr/internal/ports"
)

// MemoryStore is a process-local KVStore, used by tests and ephemeral runs
type MemoryStore struct {
	mu    sync.Mutex
	tiers map[ports.Tier]map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tiers: make(map[ports.Tier]map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, tier ports.Tier, keys []string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := m.tiers[tier][k]; ok {
			result[k] = append([]byte(nil), v...)
		}
	}
	return result, nil
}

func (m *MemoryStore) Set(ctx context.Context, tier ports.Tier, values map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.tiers[tier]
	if !ok {
		bucket = make(map[string][]byte)
		m.tiers[tier] = bucket
	}
	for k, v := range values {
		bucket[k] = append([]byte(nil), v...)
	}
	return nil
}

func (m *MemoryStore) Remove(ctx context.Context, tier ports.Tier, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.tiers[tier], k)
	}
	return nil
}

var _ ports.KVStore = (*MemoryStore)(nil)
