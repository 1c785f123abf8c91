// Package storage persists string entries under fixed keys. The ledger
// keeps its serialised transaction list here and the settings service keeps
// the advisory credential.
package storage

import (
	"context"
	"errors"
)

// Keys used by the application.
const (
	KeyTransactions  = "transactions"
	KeyAPICredential = "api_credential"
)

var (
	ErrClosed         = errors.New("storage closed")
	ErrUnknownDialect = errors.New("unknown sql dialect")
)

// KeyValueStore reads and writes string entries. Get reports ok=false for a
// key that was never written.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}
