// Package memory is an in-process TransactionMirror for development and
// tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"bilancio/internal/core"
	"bilancio/internal/sheets"
)

var _ sheets.TransactionMirror = (*Mirror)(nil)

type Mirror struct {
	mu   sync.Mutex
	rows [][]any
	seq  int
}

func New() *Mirror {
	return &Mirror{}
}

// Append validates tx and stores its row. References are "mem:<n>" with n
// counting every append since creation.
func (m *Mirror) Append(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, sheets.Row(tx))
	m.seq++
	return fmt.Sprintf("mem:%d", m.seq), nil
}

func (m *Mirror) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = nil
	return nil
}

// Rows returns a copy of the mirrored rows, oldest first.
func (m *Mirror) Rows() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]any, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
