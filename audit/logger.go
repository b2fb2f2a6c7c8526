package audit

import (
	"fmt"
	"time"

	"southwinds.dev/rotor/persist"
)

// Action identifies the kind of operation an audit entry records.
type Action string

const (
	ActionCreate      Action = "create"
	ActionRotate      Action = "rotate"
	ActionRead        Action = "read"
	ActionDelete      Action = "delete"
	ActionVerify      Action = "verify"
	ActionExpireCheck Action = "expire_check"
	ActionEncrypt     Action = "encrypt"
)

// Status is the outcome recorded with an entry.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusWarning Status = "warning"
)

// Entry is a single audit record. Entries are append-only: once logged they
// are never mutated or individually deleted.
type Entry struct {
	RequestID   string                 `json:"request_id,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	Action      Action                 `json:"action"`
	KeyName     string                 `json:"key_name"`
	Environment string                 `json:"environment,omitempty"`
	Status      Status                 `json:"status"`
	Details     string                 `json:"details,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	PerformedBy string                 `json:"performed_by,omitempty"`
}

// QueryOptions filters the audit trail. Zero values match everything;
// filters are applied before Limit.
type QueryOptions struct {
	Action  Action
	KeyName string
	Status  Status
	Limit   int
}

// Document is the persisted shape of the audit trail, newest entry first.
type Document struct {
	Logs         []Entry   `json:"logs"`
	TotalEntries int       `json:"total_entries"`
	LastAudit    time.Time `json:"last_audit"`
}

// Logger is the pluggable audit interface.
type Logger interface {
	Log(entry Entry) error
	Query(options QueryOptions) ([]Entry, error)
	Close() error
}

// Config selects and configures an audit backend.
type Config struct {
	Enabled bool                `json:"enabled"`
	Store   persist.StoreConfig `json:"store"`
}

// NewLogger creates a logger from configuration. A nil or disabled config
// yields a no-op logger.
func NewLogger(config *Config) (Logger, error) {
	if config == nil || !config.Enabled {
		return &NoOpLogger{}, nil
	}
	store, err := persist.NewStore(config.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit store: %w", err)
	}
	return NewStoreLogger(store), nil
}
