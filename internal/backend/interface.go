package backend

import (
	"context"

	"bilancio/internal/sheets"
	"bilancio/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// StoreResult is a ready key-value store plus the hooks the server needs.
type StoreResult struct {
	Store storage.KeyValueStore
	// Ping reports whether the store can serve requests; used by /readyz.
	Ping    func(context.Context) error
	Cleanup CleanupFunc
}

// Factory creates the storage and mirror backends named by configuration.
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
	CreateMirror(ctx context.Context, config Config) (sheets.TransactionMirror, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	PostgresDSN  string

	Mirror MirrorType

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// MirrorType selects where ledger events are mirrored.
type MirrorType string

const (
	MemoryMirror MirrorType = "memory"
	SheetsMirror MirrorType = "sheets"
)

func (mt MirrorType) IsValid() bool {
	return mt == MemoryMirror || mt == SheetsMirror
}
