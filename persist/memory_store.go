package persist

import (
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore implements Store in process memory. Documents survive only for
// the lifetime of the store; intended for tests and ephemeral runs.
type MemoryStore struct {
	documents map[string][]byte
	mu        sync.RWMutex
	closed    bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string][]byte),
	}
}

func (ms *MemoryStore) Load(name string, into interface{}) (bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return false, fmt.Errorf("store is closed")
	}

	data, ok := ms.documents[name]
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(data, into); err != nil {
		return false, nil
	}

	return true, nil
}

func (ms *MemoryStore) Save(name string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", name, err)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return fmt.Errorf("store is closed")
	}

	ms.documents[name] = data
	return nil
}

func (ms *MemoryStore) Exists(name string) (bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	_, ok := ms.documents[name]
	return ok, nil
}

func (ms *MemoryStore) Ping() error {
	return nil
}

func (ms *MemoryStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.closed = true
	return nil
}

func (ms *MemoryStore) GetType() string {
	return string(StoreTypeMemory)
}
