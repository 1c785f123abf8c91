// Package google mirrors ledger rows into a Google Sheets spreadsheet using a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"bilancio/internal/core"
	ports "bilancio/internal/sheets"
)

var _ ports.TransactionMirror = (*Client)(nil)

var (
	ErrMissingSpreadsheetID = errors.New("missing GOOGLE_SPREADSHEET_ID")
	ErrMissingCredentials   = errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	ErrNotInitialized       = errors.New("sheets service not initialized")
)

const DefaultSheetName = "Transactions"

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// New authenticates with the configured service account. Extra options are
// appended after the credentials; when no credentials are configured the
// options must supply authentication themselves.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, ErrMissingSpreadsheetID
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	base, err := credentialOptions(ctx, cfg)
	if err != nil && !(errors.Is(err, ErrMissingCredentials) && len(opts) > 0) {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets mirror ready", "spreadsheet_id", spreadsheetID, "sheet", sheetName)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

func credentialOptions(ctx context.Context, cfg Config) ([]goption.ClientOption, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)

	var credentialsJSON []byte
	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(inline)
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account file", "path", file, "size", len(b))
		credentialsJSON = b
	default:
		return nil, ErrMissingCredentials
	}
	return []goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, nil
}

// EnsureHeader writes the header row into A1:F1.
func (c *Client) EnsureHeader(ctx context.Context) error {
	if c.svc == nil {
		return ErrNotInitialized
	}
	header := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		header[i] = h
	}
	rng := fmt.Sprintf("%s!A1:F1", c.sheetName)
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header %s: %w", rng, err)
	}
	return nil
}

// Append adds tx as a new row after the last one. Values are written RAW so
// titles are never evaluated as formulas.
func (c *Client) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", ErrNotInitialized
	}

	rng := fmt.Sprintf("%s!A:F", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{ports.Row(tx)}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", c.sheetName, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// Clear empties every row below the header.
func (c *Client) Clear(ctx context.Context) error {
	if c.svc == nil {
		return ErrNotInitialized
	}
	rng := fmt.Sprintf("%s!A2:F", c.sheetName)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}
