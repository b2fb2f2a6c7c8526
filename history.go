package rotor

import (
	"fmt"
	"sync"
	"time"

	"southwinds.dev/rotor/internal/misc"
	"southwinds.dev/rotor/persist"
)

// historyDocument is the store document holding rotation history.
const historyDocument = "rotation-history"

// historyDoc is the persisted shape, newest rotation first.
type historyDoc struct {
	Rotations    []SecretKeyRotationEntry `json:"rotations"`
	LastRotation time.Time                `json:"last_rotation"`
}

// RotationHistoryStore keeps an append-only record of rotation attempts,
// capped at misc.MaxLogEntries with the oldest entries evicted first.
type RotationHistoryStore struct {
	store persist.Store
	mu    sync.Mutex
}

// NewRotationHistoryStore creates a history store over the given backend.
func NewRotationHistoryStore(store persist.Store) *RotationHistoryStore {
	return &RotationHistoryStore{store: store}
}

// Append records a rotation attempt. A zero RotationDate is stamped with the
// current UTC time.
func (hs *RotationHistoryStore) Append(entry SecretKeyRotationEntry) error {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if entry.RotationDate.IsZero() {
		entry.RotationDate = time.Now().UTC()
	}

	var doc historyDoc
	if _, err := hs.store.Load(historyDocument, &doc); err != nil {
		return fmt.Errorf("failed to load rotation history: %w", err)
	}

	doc.Rotations = append([]SecretKeyRotationEntry{entry}, doc.Rotations...)
	if len(doc.Rotations) > misc.MaxLogEntries {
		doc.Rotations = doc.Rotations[:misc.MaxLogEntries]
	}
	doc.LastRotation = entry.RotationDate

	if err := hs.store.Save(historyDocument, &doc); err != nil {
		return fmt.Errorf("failed to save rotation history: %w", err)
	}
	return nil
}

// History returns rotation entries for a key, newest first. An empty key
// name matches all keys; a limit of zero means no limit.
func (hs *RotationHistoryStore) History(keyName string, limit int) ([]SecretKeyRotationEntry, error) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	var doc historyDoc
	if _, err := hs.store.Load(historyDocument, &doc); err != nil {
		return nil, fmt.Errorf("failed to load rotation history: %w", err)
	}

	var result []SecretKeyRotationEntry
	for _, entry := range doc.Rotations {
		if keyName != "" && entry.KeyName != keyName {
			continue
		}
		result = append(result, entry)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}
