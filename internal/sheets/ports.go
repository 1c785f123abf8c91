package sheets

import (
	"context"
	"time"

	"bilancio/internal/core"
)

// Header is the first row of a mirrored sheet.
var Header = []string{"ID", "Date", "Title", "Type", "Category", "Amount"}

// TransactionMirror keeps an external copy of the ledger. It is fed from
// ledger events and is never read back.
type TransactionMirror interface {
	// Append adds one row and returns a backend-specific reference to it.
	Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	// Clear removes every data row, keeping the header.
	Clear(ctx context.Context) error
}

// Row renders tx in Header order. Amount stays numeric so the sheet can sum
// it.
func Row(tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.Date.Format(time.RFC3339),
		tx.Title,
		string(tx.Type),
		tx.Category.String(),
		tx.Amount.Float64(),
	}
}
