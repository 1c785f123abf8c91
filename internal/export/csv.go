// Package export renders the ledger as CSV for download and for the backup
// written before a reset.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"bilancio/internal/core"
)

// Header is the first line of every export.
const Header = "ID,Date,Title,Type,Category,Amount"

// Row is one parsed CSV line, fields in Header order.
type Row struct {
	ID       string
	Date     string
	Title    string
	Type     string
	Category string
	Amount   string
}

// WriteCSV writes Header and one line per transaction in the given order.
// Fields are joined with commas and never quoted, so a title containing a
// comma produces a line with extra fields.
func WriteCSV(w io.Writer, txns []core.Transaction) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header + "\n"); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range txns {
		line := strings.Join([]string{
			tx.ID,
			tx.Date.Format(time.RFC3339),
			tx.Title,
			string(tx.Type),
			tx.Category.String(),
			tx.Amount.String(),
		}, ",")
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("write csv row %s: %w", tx.ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ParseCSV reads an export back. The header line is skipped and blank lines
// are ignored. Each line is split on every comma; a line that does not yield
// exactly six fields is an error.
func ParseCSV(r io.Reader) ([]Row, error) {
	sc := bufio.NewScanner(r)
	var rows []Row
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if line == 1 && text == Header {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		f := strings.Split(text, ",")
		if len(f) != 6 {
			return nil, fmt.Errorf("line %d: expected 6 fields, got %d", line, len(f))
		}
		rows = append(rows, Row{ID: f[0], Date: f[1], Title: f[2], Type: f[3], Category: f[4], Amount: f[5]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

// BackupFileName names a backup taken at now, e.g.
// transactions_20261019_142501.csv.
func BackupFileName(now time.Time) string {
	return "transactions_" + now.Format("20060102_150405") + ".csv"
}
