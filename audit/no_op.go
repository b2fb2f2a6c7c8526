package audit

// NoOpLogger discards every entry. Used when auditing is disabled.
type NoOpLogger struct{}

func (n *NoOpLogger) Log(Entry) error                     { return nil }
func (n *NoOpLogger) Query(QueryOptions) ([]Entry, error) { return nil, nil }
func (n *NoOpLogger) Close() error                        { return nil }
