package persist

import "fmt"

// Store defines the interface for persisting lifecycle documents: key
// metadata, the audit trail, rotation history and encryption tracking.
// Each document is read and written whole — there is no field-level access
// and no optimistic concurrency control; the engine assumes a single writer
// process (see DESIGN.md).
type Store interface {

	// Load reads the named document into the given value. A missing or
	// unparseable document is not an error: Load reports found=false and the
	// caller proceeds with its empty default.
	Load(name string, into interface{}) (found bool, err error)

	// Save writes the named document, replacing any previous content.
	Save(name string, doc interface{}) error

	// Exists checks whether the named document is present.
	Exists(name string) (bool, error)

	// Ping tests connectivity for remote backends.
	Ping() error

	// Close closes the store and releases any resources it holds.
	Close() error

	// GetType retrieves the type of store being used ("filesystem", "s3",
	// "memory").
	GetType() string
}

// StoreConfig provides configuration for different storage backends.
type StoreConfig struct {
	// Type specifies the storage backend to be used.
	Type StoreType `json:"type"`

	// Config contains backend-specific settings, e.g. "base_path" for the
	// filesystem store or "endpoint"/"bucket" for S3.
	Config map[string]interface{} `json:"config"`
}

// StoreType represents the different types of storage backends that can be used.
type StoreType string

// Supported storage types.
const (
	StoreTypeFileSystem StoreType = "filesystem"
	StoreTypeS3         StoreType = "s3"
	StoreTypeMemory     StoreType = "memory"
)

// NewStore creates a store from configuration.
func NewStore(config StoreConfig) (Store, error) {
	switch config.Type {
	case StoreTypeFileSystem:
		return NewFileSystemStoreFromConfig(config)
	case StoreTypeS3:
		return NewS3StoreFromConfig(config)
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", config.Type)
	}
}
