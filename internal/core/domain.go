package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TxType = "Income"
	Expense TxType = "Expense"
)

// MaxTitleLength bounds the free-text label of a transaction.
const MaxTitleLength = 200

type (
	TxType string

	Money struct {
		Cents int64
	}

	// Transaction is one recorded income or expense event. Records are
	// immutable once created.
	Transaction struct {
		ID       string
		Title    string
		Amount   Money
		Type     TxType
		Category Category
		Date     time.Time
	}

	// Draft is the user-supplied part of a transaction; ID and Date are
	// assigned by the ledger.
	Draft struct {
		Title    string
		Amount   Money
		Type     TxType
		Category Category
	}
)

var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrEmptyTitle       = errors.New("empty title")
	ErrTitleTooLong     = errors.New("title too long (max 200 characters)")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyCategory    = errors.New("empty category")
	ErrCategoryMismatch = errors.New("category does not belong to transaction type")
	ErrUnknownCategory  = errors.New("unknown category")
)

// ValidationError reports bad user input. It wraps one of the sentinel
// errors above so callers can match with errors.Is.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValid reports whether t is one of Income or Expense.
func (t TxType) IsValid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

// ParseTxType accepts the canonical names case-insensitively.
func ParseTxType(s string) (TxType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return Income, nil
	case "expense":
		return Expense, nil
	}
	return "", invalid("type", ErrInvalidType)
}

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

func (d Draft) Validate() error {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return invalid("title", ErrEmptyTitle)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return invalid("title", ErrTitleTooLong)
	}
	if err := d.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if !d.Type.IsValid() {
		return invalid("type", ErrInvalidType)
	}
	if d.Category.IsZero() {
		return invalid("category", ErrEmptyCategory)
	}
	if d.Category.Type() != d.Type {
		return invalid("category", ErrCategoryMismatch)
	}
	return nil
}

// Validate checks a stored record: the draft rules plus identity fields.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return invalid("id", errors.New("empty id"))
	}
	if t.Date.IsZero() {
		return invalid("date", errors.New("date cannot be zero"))
	}
	return Draft{Title: t.Title, Amount: t.Amount, Type: t.Type, Category: t.Category}.Validate()
}
