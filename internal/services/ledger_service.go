package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/export"
	"bilancio/internal/ledger"
	applog "bilancio/internal/log"
	"bilancio/internal/metrics"
)

// EventPublisher hands ledger events to a broker. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, msg *amqp.LedgerEvent) error
}

// DraftInput is a transaction draft as it arrives from a client, before
// its type and category are resolved.
type DraftInput struct {
	Title    string     `json:"title"`
	Amount   core.Money `json:"amount"`
	Type     string     `json:"type"`
	Category string     `json:"category"`
}

// Draft resolves the type and category names. Remaining rules are checked
// by the ledger when the draft is added.
func (in DraftInput) Draft() (core.Draft, error) {
	typ, err := core.ParseTxType(in.Type)
	if err != nil {
		return core.Draft{}, err
	}
	cat, err := core.ParseCategory(typ, in.Category)
	if err != nil {
		return core.Draft{}, err
	}
	return core.Draft{
		Title:    strings.TrimSpace(in.Title),
		Amount:   in.Amount,
		Type:     typ,
		Category: cat,
	}, nil
}

// ResetResult reports what a reset removed and where the backup went.
type ResetResult struct {
	Cleared int    `json:"cleared"`
	Backup  string `json:"backup,omitempty"`
}

// LedgerService orchestrates ledger mutations with their side effects:
// metrics, backups and broker events.
type LedgerService struct {
	store     *ledger.Store
	publisher EventPublisher
	metrics   *metrics.Metrics
	backupDir string
	now       func() time.Time
	log       *applog.StructuredLogger
}

// NewLedgerService wires a service. publisher and m may be nil.
func NewLedgerService(store *ledger.Store, publisher EventPublisher, m *metrics.Metrics, backupDir string) *LedgerService {
	s := &LedgerService{
		store:     store,
		publisher: publisher,
		metrics:   m,
		backupDir: backupDir,
		now:       time.Now,
		log:       componentLogger(applog.ComponentLedger),
	}
	if m != nil {
		m.LedgerSize.Set(float64(store.Len()))
	}
	return s
}

// WithClock replaces the clock used to name backups.
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

// Transactions returns a snapshot of the ledger, most recent first.
func (s *LedgerService) Transactions() []core.Transaction {
	return s.store.All()
}

// AddTransaction stores the draft and announces it. Publishing is best
// effort: the transaction is already persisted when it runs.
func (s *LedgerService) AddTransaction(ctx context.Context, in DraftInput) (core.Transaction, error) {
	d, err := in.Draft()
	if err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.store.Add(ctx, d)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	s.log.LogTransactionAdded(ctx, tx)
	if s.metrics != nil {
		s.metrics.TransactionsAdded.WithLabelValues(string(tx.Type)).Inc()
		s.metrics.LedgerSize.Set(float64(s.store.Len()))
	}
	s.publish(ctx, amqp.NewTransactionAdded(tx))
	return tx, nil
}

// Reset writes a CSV backup of the ledger to the backup directory and then
// clears it. If the backup cannot be written nothing is cleared. An empty
// ledger is cleared without a backup.
func (s *LedgerService) Reset(ctx context.Context) (ResetResult, error) {
	var res ResetResult
	removed, err := s.store.ClearWith(ctx, func(snapshot []core.Transaction) error {
		if len(snapshot) == 0 || s.backupDir == "" {
			return nil
		}
		path, err := export.WriteBackup(s.backupDir, snapshot, s.now())
		if err != nil {
			return fmt.Errorf("backup: %w", err)
		}
		res.Backup = path
		return nil
	})
	if err != nil {
		return ResetResult{}, fmt.Errorf("reset ledger: %w", err)
	}
	res.Cleared = removed

	s.log.LogLedgerCleared(ctx, removed, res.Backup)
	if s.metrics != nil {
		s.metrics.LedgerResets.Inc()
		s.metrics.LedgerSize.Set(0)
	}
	s.publish(ctx, amqp.NewLedgerCleared(removed))
	return res, nil
}

func (s *LedgerService) publish(ctx context.Context, msg *amqp.LedgerEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping ledger event", applog.FieldEventKind, msg.Kind)
		return
	}
	err := s.publisher.PublishEvent(ctx, msg)
	if s.metrics != nil {
		s.metrics.EventsPublished.WithLabelValues(string(msg.Kind), metrics.Outcome(err)).Inc()
	}
	if err != nil {
		// The mutation already succeeded; the mirror worker can resync.
		s.log.LogError(ctx, "Failed to publish ledger event", err, applog.OpPublish,
			applog.LogFields{applog.FieldEventKind: string(msg.Kind)})
	}
}

// Close releases the publisher when it holds a connection.
func (s *LedgerService) Close() error {
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close publisher: %w", err)
		}
	}
	return nil
}

func componentLogger(component string) *applog.StructuredLogger {
	return applog.NewStructuredLogger(applog.New(applog.Config{
		Handler:   slog.Default().Handler(),
		Component: component,
	}))
}
