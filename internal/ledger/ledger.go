// Package ledger holds the ordered list of transactions. It is the single
// source of truth for the rest of the application and persists the whole
// list to a key-value store after every mutation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

var ErrCorruptLedger = errors.New("corrupt ledger")

// Store keeps transactions most-recent-first.
type Store struct {
	mu     sync.RWMutex
	txns   []core.Transaction
	kv     storage.KeyValueStore
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

type Option func(*Store)

// WithClock sets the source of transaction dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the source of transaction IDs.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func New(kv storage.KeyValueStore, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory list with the persisted one. A missing entry
// yields an empty ledger. A malformed entry returns ErrCorruptLedger and is
// left untouched in storage.
func (s *Store) Load(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, storage.KeyTransactions)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	var txns []core.Transaction
	if ok {
		if txns, err = decode(raw); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.txns = txns
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Ledger loaded", "transactions", len(txns), "found", ok)
	return nil
}

// Add validates d, stamps it with a fresh ID and the current time, and
// inserts it at the front of the list. On any error the ledger is unchanged.
func (s *Store) Add(ctx context.Context, d core.Draft) (core.Transaction, error) {
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		ID:       s.newID(),
		Title:    strings.TrimSpace(d.Title),
		Amount:   d.Amount,
		Type:     d.Type,
		Category: d.Category,
		Date:     s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.txns
	next := make([]core.Transaction, 0, len(prev)+1)
	next = append(next, tx)
	next = append(next, prev...)
	s.txns = next

	if err := s.persistLocked(ctx); err != nil {
		s.txns = prev
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction added",
		"transaction_id", tx.ID,
		"tx_type", tx.Type,
		"category", tx.Category.String(),
		"amount_cents", tx.Amount.Cents)
	return tx, nil
}

// All returns a copy of the list in store order.
func (s *Store) All() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, len(s.txns))
	copy(out, s.txns)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txns)
}

// Clear empties the ledger. It cannot be undone.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.ClearWith(ctx, nil)
	return err
}

// ClearWith hands the current list to before and, if it returns nil, empties
// the ledger. Both steps run under the same lock, so nothing added
// concurrently can slip between the snapshot and the clear. It returns the
// number of removed transactions.
func (s *Store) ClearWith(ctx context.Context, before func([]core.Transaction) error) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.txns
	if before != nil {
		snapshot := make([]core.Transaction, len(prev))
		copy(snapshot, prev)
		if err := before(snapshot); err != nil {
			return 0, err
		}
	}

	s.txns = nil
	if err := s.persistLocked(ctx); err != nil {
		s.txns = prev
		return 0, fmt.Errorf("clear ledger: %w", err)
	}

	s.logger.InfoContext(ctx, "Ledger cleared", "removed", len(prev))
	return len(prev), nil
}

func (s *Store) persistLocked(ctx context.Context) error {
	raw, err := encode(s.txns)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, storage.KeyTransactions, raw); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}
