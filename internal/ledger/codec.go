package ledger

import (
	"encoding/json"
	"fmt"
	"strings"

	"bilancio/internal/core"
)

// encode serialises txns as a JSON array. An empty ledger encodes as "[]".
func encode(txns []core.Transaction) (string, error) {
	if txns == nil {
		txns = []core.Transaction{}
	}
	b, err := json.Marshal(txns)
	if err != nil {
		return "", fmt.Errorf("encode ledger: %w", err)
	}
	return string(b), nil
}

// decode parses a persisted list. Every record must validate and IDs must
// be unique; anything else is reported as ErrCorruptLedger.
func decode(raw string) ([]core.Transaction, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var txns []core.Transaction
	if err := json.Unmarshal([]byte(raw), &txns); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptLedger, err)
	}
	seen := make(map[string]struct{}, len(txns))
	for i, tx := range txns {
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrCorruptLedger, i, err)
		}
		if _, dup := seen[tx.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrCorruptLedger, tx.ID)
		}
		seen[tx.ID] = struct{}{}
	}
	return txns, nil
}
