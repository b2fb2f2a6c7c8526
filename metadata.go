package rotor

import (
	"fmt"
	"sync"
	"time"

	"southwinds.dev/rotor/audit"
	"southwinds.dev/rotor/internal/misc"
	"southwinds.dev/rotor/persist"
)

// metadataDocument is the store document holding all key metadata.
const metadataDocument = "key-metadata"

// metadataDoc is the persisted shape: one entry per key name.
type metadataDoc struct {
	Keys        map[string]SecretKeyMetadata `json:"keys"`
	LastUpdated time.Time                    `json:"last_updated"`
}

// TrackOptions configures a Track call.
type TrackOptions struct {
	// RotationDays is the key lifetime; the expiry is reset this many days
	// into the future. Defaults to misc.DefaultRotationDays.
	RotationDays int

	// IsRotation marks the call as a rotation, bumping the rotation count
	// and stamping LastRotatedAt.
	IsRotation bool

	Algorithm   string
	KeyLength   int
	PerformedBy string
}

// MetadataStore tracks per-key lifecycle metadata in a persisted document.
// Mutations are write-through: every change is persisted before returning.
type MetadataStore struct {
	store  persist.Store
	logger audit.Logger
	mu     sync.Mutex
}

// NewMetadataStore creates a metadata store over the given backends. The
// audit logger is wrapped so its failures never surface through store
// operations.
func NewMetadataStore(store persist.Store, logger audit.Logger) *MetadataStore {
	return &MetadataStore{store: store, logger: audit.NewBestEffort(logger)}
}

func (ms *MetadataStore) load() (metadataDoc, error) {
	var doc metadataDoc
	if _, err := ms.store.Load(metadataDocument, &doc); err != nil {
		return metadataDoc{}, fmt.Errorf("failed to load key metadata: %w", err)
	}
	if doc.Keys == nil {
		doc.Keys = make(map[string]SecretKeyMetadata)
	}
	return doc, nil
}

func (ms *MetadataStore) save(doc metadataDoc) error {
	doc.LastUpdated = time.Now().UTC()
	if err := ms.store.Save(metadataDocument, &doc); err != nil {
		return fmt.Errorf("failed to save key metadata: %w", err)
	}
	return nil
}

// Track creates or updates the metadata for a key. On first sight the entry
// is created with CreatedAt set to now; on later calls CreatedAt is
// preserved. When opts.IsRotation is set the rotation count is incremented
// by one and LastRotatedAt is stamped. The expiry is always reset to
// RotationDays from now.
func (ms *MetadataStore) Track(keyName string, env Stage, opts TrackOptions) (SecretKeyMetadata, error) {
	if keyName == "" {
		return SecretKeyMetadata{}, &ValidationError{Msg: "key name must not be empty"}
	}
	if opts.RotationDays <= 0 {
		opts.RotationDays = misc.DefaultRotationDays
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	doc, err := ms.load()
	if err != nil {
		return SecretKeyMetadata{}, err
	}

	now := time.Now().UTC()
	meta, known := doc.Keys[keyName]
	if !known {
		meta = SecretKeyMetadata{
			KeyName:   keyName,
			CreatedAt: now,
		}
	}

	meta.Environment = env
	meta.RotationDays = opts.RotationDays
	meta.ExpiresAt = ExpirationDate(now, opts.RotationDays)
	if opts.Algorithm != "" {
		meta.Algorithm = opts.Algorithm
	}
	if opts.KeyLength > 0 {
		meta.KeyLength = opts.KeyLength
	}
	if opts.PerformedBy != "" {
		meta.PerformedBy = opts.PerformedBy
	}
	if opts.IsRotation {
		meta.RotationCount++
		rotated := now
		meta.LastRotatedAt = &rotated
	}
	meta.Status, _ = StatusAt(meta.ExpiresAt, now, misc.ExpiryThresholdDays)

	doc.Keys[keyName] = meta
	if err = ms.save(doc); err != nil {
		return SecretKeyMetadata{}, err
	}
	return meta, nil
}

// GetStatus returns the metadata for a key with its status freshly derived
// from the expiry date. found is false when the key has never been tracked.
func (ms *MetadataStore) GetStatus(keyName string) (meta SecretKeyMetadata, found bool, err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	doc, err := ms.load()
	if err != nil {
		return SecretKeyMetadata{}, false, err
	}
	meta, found = doc.Keys[keyName]
	if !found {
		return SecretKeyMetadata{}, false, nil
	}
	status, err := Status(meta.ExpiresAt)
	if err != nil {
		return SecretKeyMetadata{}, false, err
	}
	meta.Status = status
	return meta, true, nil
}

// All returns every tracked key with freshly derived status.
func (ms *MetadataStore) All() ([]SecretKeyMetadata, error) {
	return ms.withStatus(func(KeyStatus) bool { return true })
}

// KeysNeedingRotation returns all keys whose expiry has passed.
func (ms *MetadataStore) KeysNeedingRotation() ([]SecretKeyMetadata, error) {
	return ms.withStatus(func(s KeyStatus) bool { return s == KeyStatusExpired })
}

// KeysExpiringSoon returns all keys inside the expiring-soon window.
func (ms *MetadataStore) KeysExpiringSoon() ([]SecretKeyMetadata, error) {
	return ms.withStatus(func(s KeyStatus) bool { return s == KeyStatusExpiringSoon })
}

func (ms *MetadataStore) withStatus(match func(KeyStatus) bool) ([]SecretKeyMetadata, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	doc, err := ms.load()
	if err != nil {
		return nil, err
	}

	var result []SecretKeyMetadata
	for _, meta := range doc.Keys {
		status, err := Status(meta.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", meta.KeyName, err)
		}
		meta.Status = status
		if match(status) {
			result = append(result, meta)
		}
	}
	return result, nil
}

// Untrack removes a key's metadata. An audit record is always emitted:
// success when the entry existed, warning when it did not.
func (ms *MetadataStore) Untrack(keyName string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	doc, err := ms.load()
	if err != nil {
		return err
	}

	meta, known := doc.Keys[keyName]
	if !known {
		ms.logger.Log(audit.Entry{
			Action:  audit.ActionDelete,
			KeyName: keyName,
			Status:  audit.StatusWarning,
			Details: "untrack requested for unknown key",
		})
		return nil
	}

	delete(doc.Keys, keyName)
	if err = ms.save(doc); err != nil {
		return err
	}

	ms.logger.Log(audit.Entry{
		Action:      audit.ActionDelete,
		KeyName:     keyName,
		Environment: string(meta.Environment),
		Status:      audit.StatusSuccess,
		Details:     "key metadata removed",
	})
	return nil
}
