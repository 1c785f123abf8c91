package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bilancio/internal/core"
)

type EventKind string

const (
	EventTransactionAdded EventKind = "transaction_added"
	EventLedgerCleared    EventKind = "ledger_cleared"
)

var ErrInvalidEvent = errors.New("invalid ledger event")

// LedgerEvent announces a completed ledger mutation. Transaction is set for
// transaction_added; Cleared carries the number of removed records for
// ledger_cleared.
type LedgerEvent struct {
	Kind        EventKind         `json:"kind"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Cleared     int               `json:"cleared,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

func NewTransactionAdded(tx core.Transaction) *LedgerEvent {
	return &LedgerEvent{Kind: EventTransactionAdded, Transaction: &tx, Timestamp: time.Now()}
}

func NewLedgerCleared(removed int) *LedgerEvent {
	return &LedgerEvent{Kind: EventLedgerCleared, Cleared: removed, Timestamp: time.Now()}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and checks an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case EventTransactionAdded:
		if msg.Transaction == nil {
			return nil, fmt.Errorf("%w: %s without transaction", ErrInvalidEvent, msg.Kind)
		}
	case EventLedgerCleared:
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, msg.Kind)
	}
	return &msg, nil
}
