package rotor

import (
	"fmt"
	"sync"
	"time"

	"southwinds.dev/rotor/audit"
	"southwinds.dev/rotor/internal/misc"
	"southwinds.dev/rotor/persist"
)

// trackingDocument is the store document holding encryption events.
const trackingDocument = "encryption-tracking"

// trackingDoc is the persisted shape, newest event first.
type trackingDoc struct {
	Encryptions      []EncryptionEntry `json:"encryptions"`
	TotalEncryptions int               `json:"total_encryptions"`
	LastEncryption   time.Time         `json:"last_encryption"`
}

// EncryptionTrackingStore records encrypt-all passes over variable files.
// Every recorded event also emits a best-effort audit entry with the
// encrypt action, so the audit trail and the tracking document stay in step.
type EncryptionTrackingStore struct {
	store  persist.Store
	logger audit.Logger
	mu     sync.Mutex
}

// NewEncryptionTrackingStore creates a tracking store over the given
// backends.
func NewEncryptionTrackingStore(store persist.Store, logger audit.Logger) *EncryptionTrackingStore {
	return &EncryptionTrackingStore{store: store, logger: audit.NewBestEffort(logger)}
}

// Record appends an encryption event and mirrors it into the audit trail.
func (ts *EncryptionTrackingStore) Record(entry EncryptionEntry) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	var doc trackingDoc
	if _, err := ts.store.Load(trackingDocument, &doc); err != nil {
		return fmt.Errorf("failed to load encryption tracking: %w", err)
	}

	doc.Encryptions = append([]EncryptionEntry{entry}, doc.Encryptions...)
	if len(doc.Encryptions) > misc.MaxLogEntries {
		doc.Encryptions = doc.Encryptions[:misc.MaxLogEntries]
	}
	doc.TotalEncryptions = len(doc.Encryptions)
	doc.LastEncryption = entry.Timestamp

	if err := ts.store.Save(trackingDocument, &doc); err != nil {
		return fmt.Errorf("failed to save encryption tracking: %w", err)
	}

	ts.logger.Log(audit.Entry{
		Action:      audit.ActionEncrypt,
		KeyName:     entry.KeyName,
		Environment: string(entry.Environment),
		Status:      audit.StatusSuccess,
		PerformedBy: entry.PerformedBy,
		Details: fmt.Sprintf("encrypted %d of %d variables (%d skipped, %d already encrypted, %d empty) in %dms",
			len(entry.VariablesEncrypted), entry.TotalVariables,
			len(entry.SkippedVariables), len(entry.AlreadyEncrypted),
			len(entry.EmptyVariables), entry.DurationMs),
	})
	return nil
}

// Events returns recorded encryption events, newest first. A limit of zero
// means no limit.
func (ts *EncryptionTrackingStore) Events(limit int) ([]EncryptionEntry, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	var doc trackingDoc
	if _, err := ts.store.Load(trackingDocument, &doc); err != nil {
		return nil, fmt.Errorf("failed to load encryption tracking: %w", err)
	}
	if limit > 0 && len(doc.Encryptions) > limit {
		return doc.Encryptions[:limit], nil
	}
	return doc.Encryptions, nil
}
