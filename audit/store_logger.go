package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"southwinds.dev/rotor/internal/misc"
	"southwinds.dev/rotor/persist"
)

// documentName is the store document holding the audit trail.
const documentName = "audit"

// StoreLogger persists the audit trail as a single document in a
// persist.Store. Entries are inserted at the head and the document is
// truncated to misc.MaxLogEntries, so the newest records survive and the
// oldest are evicted.
type StoreLogger struct {
	store persist.Store
	mu    sync.Mutex
}

// NewStoreLogger creates a logger backed by the given store.
func NewStoreLogger(store persist.Store) *StoreLogger {
	return &StoreLogger{store: store}
}

// Log stamps the entry with the current UTC time and a request id, inserts
// it at the head of the trail and writes the document back.
func (sl *StoreLogger) Log(entry Entry) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	entry.Timestamp = time.Now().UTC()
	if entry.RequestID == "" {
		entry.RequestID = uuid.NewString()
	}

	var doc Document
	if _, err := sl.store.Load(documentName, &doc); err != nil {
		return fmt.Errorf("failed to load audit trail: %w", err)
	}

	doc.Logs = append([]Entry{entry}, doc.Logs...)
	if len(doc.Logs) > misc.MaxLogEntries {
		doc.Logs = doc.Logs[:misc.MaxLogEntries]
	}
	doc.TotalEntries = len(doc.Logs)
	doc.LastAudit = entry.Timestamp

	if err := sl.store.Save(documentName, &doc); err != nil {
		return fmt.Errorf("failed to save audit trail: %w", err)
	}
	return nil
}

// Query returns entries matching the options, newest first. Filters are
// applied before the limit.
func (sl *StoreLogger) Query(options QueryOptions) ([]Entry, error) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	var doc Document
	if _, err := sl.store.Load(documentName, &doc); err != nil {
		return nil, fmt.Errorf("failed to load audit trail: %w", err)
	}

	var matched []Entry
	for _, entry := range doc.Logs {
		if matchesFilter(entry, options) {
			matched = append(matched, entry)
		}
	}

	if options.Limit > 0 && len(matched) > options.Limit {
		matched = matched[:options.Limit]
	}
	return matched, nil
}

func matchesFilter(entry Entry, options QueryOptions) bool {
	if options.Action != "" && entry.Action != options.Action {
		return false
	}
	if options.KeyName != "" && entry.KeyName != options.KeyName {
		return false
	}
	if options.Status != "" && entry.Status != options.Status {
		return false
	}
	return true
}

// Close releases the underlying store.
func (sl *StoreLogger) Close() error {
	return sl.store.Close()
}
