// Package worker applies ledger events to a transaction mirror.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/metrics"
	"bilancio/internal/sheets"
)

// MirrorWorker replays ledger events onto a TransactionMirror.
type MirrorWorker struct {
	mirror  sheets.TransactionMirror
	metrics *metrics.Metrics
}

// NewMirrorWorker builds a worker. m may be nil.
func NewMirrorWorker(mirror sheets.TransactionMirror, m *metrics.Metrics) *MirrorWorker {
	return &MirrorWorker{mirror: mirror, metrics: m}
}

// HandleEvent is the AMQP consumer callback. A returned error requeues the
// delivery.
func (w *MirrorWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEvent) error {
	switch msg.Kind {
	case amqp.EventTransactionAdded:
		if msg.Transaction == nil {
			return fmt.Errorf("%w: missing transaction", amqp.ErrInvalidEvent)
		}
		return w.append(ctx, *msg.Transaction)
	case amqp.EventLedgerCleared:
		return w.clear(ctx, msg.Cleared)
	}
	return fmt.Errorf("%w: unknown kind %q", amqp.ErrInvalidEvent, msg.Kind)
}

// Resync replaces the mirror contents with txns. txns is in ledger order
// (most recent first) and is written oldest first so the sheet reads
// chronologically. Used at startup in case events were lost.
func (w *MirrorWorker) Resync(ctx context.Context, txns []core.Transaction) error {
	if err := w.clear(ctx, len(txns)); err != nil {
		return err
	}
	for i := len(txns) - 1; i >= 0; i-- {
		if err := w.append(ctx, txns[i]); err != nil {
			return fmt.Errorf("resync: %w", err)
		}
	}
	slog.InfoContext(ctx, "Mirror resynced", "transactions", len(txns))
	return nil
}

func (w *MirrorWorker) append(ctx context.Context, tx core.Transaction) error {
	ref, err := w.mirror.Append(ctx, tx)
	w.observe("append", err)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to mirror transaction", "transaction_id", tx.ID, "error", err)
		return fmt.Errorf("mirror transaction %s: %w", tx.ID, err)
	}
	slog.InfoContext(ctx, "Transaction mirrored", "transaction_id", tx.ID, "ref", ref)
	return nil
}

func (w *MirrorWorker) clear(ctx context.Context, removed int) error {
	err := w.mirror.Clear(ctx)
	w.observe("clear", err)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to clear mirror", "error", err)
		return fmt.Errorf("clear mirror: %w", err)
	}
	slog.InfoContext(ctx, "Mirror cleared", "removed", removed)
	return nil
}

func (w *MirrorWorker) observe(op string, err error) {
	if w.metrics == nil {
		return
	}
	w.metrics.MirrorOperations.WithLabelValues(op, metrics.Outcome(err)).Inc()
}
