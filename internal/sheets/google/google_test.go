package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"

	"bilancio/internal/core"
)

type recordedCall struct {
	method string
	path   string
	query  string
	body   string
}

func fakeSheets(t *testing.T) (*httptest.Server, *[]recordedCall) {
	t.Helper()
	var mu sync.Mutex
	calls := []recordedCall{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, recordedCall{r.Method, r.URL.Path, r.URL.RawQuery, string(body)})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, ":append"):
			_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updates":{"updatedRange":"Transactions!A2:F2","updatedRows":1}}`))
		case strings.HasSuffix(r.URL.Path, ":clear"):
			_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","clearedRange":"Transactions!A2:F100"}`))
		default:
			_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updatedRange":"Transactions!A1:F1"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-1"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func sample() core.Transaction {
	return core.Transaction{
		ID:       "tx-1",
		Title:    "=SUM(A1)",
		Amount:   core.Money{Cents: 1250},
		Type:     core.Expense,
		Category: core.MustParseCategory(core.Expense, "Social/Leisure"),
		Date:     time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC),
	}
}

func TestAppend(t *testing.T) {
	srv, calls := fakeSheets(t)
	c := newTestClient(t, srv)

	ref, err := c.Append(context.Background(), sample())
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "Transactions!A2:F2" {
		t.Fatalf("ref = %q", ref)
	}
	if len(*calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(*calls))
	}
	call := (*calls)[0]
	if call.method != http.MethodPost || !strings.Contains(call.path, "/v4/spreadsheets/sheet-1/values/") {
		t.Fatalf("unexpected call %+v", call)
	}
	if !strings.Contains(call.query, "valueInputOption=RAW") {
		t.Fatalf("values must be written RAW, query %q", call.query)
	}

	var body struct {
		Values [][]any `json:"values"`
	}
	if err := json.Unmarshal([]byte(call.body), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	row := body.Values[0]
	if row[0] != "tx-1" || row[2] != "=SUM(A1)" || row[4] != "Social/Leisure" || row[5] != 12.5 {
		t.Fatalf("unexpected row %v", row)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	srv, calls := fakeSheets(t)
	c := newTestClient(t, srv)

	bad := sample()
	bad.Title = " "
	_, err := c.Append(context.Background(), bad)
	if !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("err = %v, want ErrEmptyTitle", err)
	}
	if len(*calls) != 0 {
		t.Fatal("invalid rows must not reach the API")
	}
}

func TestClearAndHeader(t *testing.T) {
	srv, calls := fakeSheets(t)
	c := newTestClient(t, srv)

	if err := c.EnsureHeader(context.Background()); err != nil {
		t.Fatalf("EnsureHeader() error = %v", err)
	}
	if err := c.Clear(context.Background()); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if len(*calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(*calls))
	}
	if (*calls)[0].method != http.MethodPut || !strings.Contains((*calls)[0].body, `"ID","Date","Title","Type","Category","Amount"`) {
		t.Fatalf("unexpected header call %+v", (*calls)[0])
	}
	if !strings.HasSuffix((*calls)[1].path, ":clear") || !strings.Contains((*calls)[1].path, "A2:F") {
		t.Fatalf("unexpected clear call %+v", (*calls)[1])
	}
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(context.Background(), Config{}); !errors.Is(err, ErrMissingSpreadsheetID) {
		t.Fatalf("err = %v, want ErrMissingSpreadsheetID", err)
	}
	if _, err := New(context.Background(), Config{SpreadsheetID: "x"}); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("err = %v, want ErrMissingCredentials", err)
	}
	if _, err := New(context.Background(), Config{SpreadsheetID: "x", CredentialsFile: "/does/not/exist.json"}); err == nil {
		t.Fatal("expected error for unreadable credentials file")
	}
}

func TestNilServiceIsReported(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheetName: "T"}
	if _, err := c.Append(context.Background(), sample()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("err = %v", err)
	}
	if err := c.Clear(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("err = %v", err)
	}
}
