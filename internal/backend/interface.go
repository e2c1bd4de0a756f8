package backend

import (
	"context"
	"time"

	"pagamentos/internal/cache"
	"pagamentos/internal/sheets"
)

// Backend is the persistence surface the ledger service needs
type Backend interface {
	sheets.LedgerReader
	sheets.LedgerWriter
	sheets.SettingsWriter
}

// CleanupFunc releases resources held by a backend
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
	// Cache is set when the backend keeps an expiring cache that should be swept.
	Cache cache.Cleaner
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	CacheSize    int
	CacheTTL     time.Duration

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
