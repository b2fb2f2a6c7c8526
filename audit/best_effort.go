package audit

import (
	"fmt"
	"os"
)

// BestEffort wraps a Logger so that write failures never propagate to the
// caller. Bookkeeping must not block or fail the operation it records; a
// failed write is reported on stderr and otherwise dropped. Queries and
// Close still return their errors because they are caller-initiated.
type BestEffort struct {
	inner Logger
}

// NewBestEffort wraps the given logger. A nil logger is treated as no-op.
func NewBestEffort(inner Logger) *BestEffort {
	if inner == nil {
		inner = &NoOpLogger{}
	}
	return &BestEffort{inner: inner}
}

func (b *BestEffort) Log(entry Entry) error {
	if err := b.inner.Log(entry); err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit write failed: %v\n", err)
	}
	return nil
}

func (b *BestEffort) Query(options QueryOptions) ([]Entry, error) {
	return b.inner.Query(options)
}

func (b *BestEffort) Close() error {
	return b.inner.Close()
}
