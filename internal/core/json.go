package core

import (
	"encoding/json"
	"time"
)

// transactionJSON is the persisted and wire shape of a Transaction.
type transactionJSON struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Amount   Money  `json:"amount"`
	Type     TxType `json:"type"`
	Category string `json:"category"`
	Date     string `json:"date"`
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		ID:       t.ID,
		Title:    t.Title,
		Amount:   t.Amount,
		Type:     t.Type,
		Category: t.Category.String(),
		Date:     t.Date.Format(time.RFC3339Nano),
	})
}

// UnmarshalJSON decodes a transaction and resolves its category against its
// type. Amount and title are not validated here; see Transaction.Validate.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw transactionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	typ, err := ParseTxType(string(raw.Type))
	if err != nil {
		return err
	}
	cat, err := ParseCategory(typ, raw.Category)
	if err != nil {
		return err
	}
	date, err := time.Parse(time.RFC3339Nano, raw.Date)
	if err != nil {
		return invalid("date", err)
	}
	*t = Transaction{
		ID:       raw.ID,
		Title:    raw.Title,
		Amount:   raw.Amount,
		Type:     typ,
		Category: cat,
		Date:     date,
	}
	return nil
}
