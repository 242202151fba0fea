package backend

import (
	"context"

	"cashback/internal/cache"
	"cashback/internal/sheets"
	"cashback/internal/sheets/google"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// ChangeNotifier is the optional publisher of table change events.
type ChangeNotifier interface {
	PublishTableChanged(ctx context.Context, table, version string) error
}

// BackendResult contains the store, its optional notifier and the caches
// that need periodic cleanup.
type BackendResult struct {
	Store    sheets.TabularStore
	Notifier ChangeNotifier
	Caches   []cache.Cleaner
	Cleanup  CleanupFunc
}

// Close runs Cleanup when set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	BoltDBPath   string

	// AMQP is optional for every backend; empty URL disables it.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Sheets google.Config
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
	BoltBackend   BackendType = "bolt"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend, BoltBackend:
		return true
	default:
		return false
	}
}
