package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/advisor"
	"bilancio/internal/app"
	"bilancio/internal/export"
	"bilancio/internal/ledger"
	applog "bilancio/internal/log"
	"bilancio/internal/metrics"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

var refNow = time.Date(2026, 10, 21, 15, 0, 0, 0, time.UTC)

// stubAdvisor answers from a function so tests can block or fail.
type stubAdvisor struct {
	fn func(ctx context.Context, prompt string) (string, error)
}

func (a *stubAdvisor) RequestAdvice(ctx context.Context, prompt, credential string) (string, error) {
	if strings.TrimSpace(credential) == "" {
		return "", advisor.ErrMissingCredential
	}
	return a.fn(ctx, prompt)
}

type fixture struct {
	srv      *Server
	kv       *storage.MemoryStore
	session  *app.Session
	settings *services.SettingsService
	advisor  *stubAdvisor
}

func newFixture(t *testing.T, limit int) *fixture {
	t.Helper()
	kv := storage.NewMemoryStore()
	store := ledger.New(kv, ledger.WithClock(func() time.Time { return refNow }))
	require.NoError(t, store.Load(context.Background()))

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	ledgerSvc := services.NewLedgerService(store, nil, m, t.TempDir()).WithClock(func() time.Time { return refNow })
	settings := services.NewSettingsService(kv, "", advisor.ProviderGemini)
	adv := &stubAdvisor{fn: func(context.Context, string) (string, error) { return "Spend less on coffee.", nil }}
	session := app.NewSession()

	srv := NewServer(":0", Deps{
		Ledger:   ledgerSvc,
		Advice:   services.NewAdviceService(ledgerSvc, adv, settings, m),
		Settings: settings,
		Session:  session,
		Registry: reg,
		Logger:   applog.New(applog.Config{Output: &strings.Builder{}}),
		Limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: limit}),
		Now:      func() time.Time { return refNow },
	})
	return &fixture{srv: srv, kv: kv, session: session, settings: settings, advisor: adv}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthReadyAndMetrics(t *testing.T) {
	f := newFixture(t, 100)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := f.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	f.do(t, http.MethodGet, "/api/summary", "")
	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `handler="/api/summary"`)
	assert.Contains(t, rec.Body.String(), "bilancio_ledger_transactions")
}

func TestReadyReportsFailure(t *testing.T) {
	srv := NewServer(":0", Deps{
		Ready:  func(context.Context) error { return errors.New("db down") },
		Logger: applog.New(applog.Config{Output: &strings.Builder{}}),
	})
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCategories(t *testing.T) {
	f := newFixture(t, 100)
	rec := f.do(t, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[categoriesResponse](t, rec)
	assert.Contains(t, body.Income, "Scholarship")
	assert.Contains(t, body.Expense, "Food/Groceries")
	assert.NotContains(t, body.Income, "Food/Groceries")
}

func TestCreateAndListTransactions(t *testing.T) {
	f := newFixture(t, 100)

	rec := f.do(t, http.MethodPost, "/api/transactions",
		`{"title":"Grant","amount":1000,"type":"Income","category":"Scholarship"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = f.do(t, http.MethodPost, "/api/transactions",
		`{"title":"Groceries","amount":"200.00","type":"Expense","category":"Food/Groceries"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[map[string]any](t, rec)
	assert.Equal(t, "Groceries", created["title"])
	assert.Equal(t, 200.0, created["amount"])
	assert.Equal(t, refNow.Format(time.RFC3339Nano), created["date"])
	assert.Equal(t, "Added Groceries", f.session.State().Notice)

	rec = f.do(t, http.MethodGet, "/api/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Transactions []map[string]any `json:"transactions"`
		Count        int              `json:"count"`
	}](t, rec)
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "Groceries", list.Transactions[0]["title"], "most recent first")
}

func TestCreateTransactionValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		code  int
		field string
	}{
		{"zero amount", `{"title":"x","amount":0,"type":"Expense","category":"Reload"}`, http.StatusUnprocessableEntity, "amount"},
		{"negative amount", `{"title":"x","amount":-5,"type":"Expense","category":"Reload"}`, http.StatusUnprocessableEntity, "amount"},
		{"amount beyond int64", `{"title":"x","amount":184467440737095516.17,"type":"Expense","category":"Reload"}`, http.StatusUnprocessableEntity, "amount"},
		{"amount above cap", `{"title":"x","amount":100000000000.01,"type":"Expense","category":"Reload"}`, http.StatusUnprocessableEntity, "amount"},
		{"non-numeric amount", `{"title":"x","amount":"lots","type":"Expense","category":"Reload"}`, http.StatusUnprocessableEntity, "amount"},
		{"empty title", `{"title":"  ","amount":5,"type":"Expense","category":"Reload"}`, http.StatusUnprocessableEntity, "title"},
		{"wrong category for type", `{"title":"x","amount":5,"type":"Income","category":"Reload"}`, http.StatusUnprocessableEntity, "category"},
		{"unknown type", `{"title":"x","amount":5,"type":"Gift","category":"Reload"}`, http.StatusUnprocessableEntity, "type"},
		{"unknown field", `{"title":"x","amount":5,"type":"Expense","category":"Reload","note":"?"}`, http.StatusBadRequest, ""},
		{"not json", `title=x`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 100)
			rec := f.do(t, http.MethodPost, "/api/transactions", tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			body := decode[errorResponse](t, rec)
			assert.Equal(t, tt.field, body.Field)

			list := decode[transactionsResponse](t, f.do(t, http.MethodGet, "/api/transactions", ""))
			assert.Zero(t, list.Count, "rejected input must not be stored")
			_, ok, _ := f.kv.Get(context.Background(), storage.KeyTransactions)
			assert.False(t, ok)
			assert.NotEmpty(t, f.session.State().Notice)
		})
	}
}

func TestSummaryAndSeries(t *testing.T) {
	f := newFixture(t, 100)

	rec := f.do(t, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[map[string]any](t, rec)
	assert.Equal(t, false, empty["has_expense_data"])
	assert.Equal(t, []any{}, empty["shares"])

	for _, body := range []string{
		`{"title":"Grant","amount":1000,"type":"Income","category":"Scholarship"}`,
		`{"title":"Shop","amount":200,"type":"Expense","category":"Food/Groceries"}`,
		`{"title":"Shop","amount":50,"type":"Expense","category":"Food/Groceries"}`,
	} {
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/transactions", body).Code)
	}

	sum := decode[map[string]any](t, f.do(t, http.MethodGet, "/api/summary", ""))
	assert.Equal(t, 1000.0, sum["total_income"])
	assert.Equal(t, 250.0, sum["total_expense"])
	assert.Equal(t, 750.0, sum["net_balance"])
	assert.Equal(t, true, sum["has_expense_data"])

	for g, want := range map[string]int{"daily": 7, "weekly": 4, "monthly": 6} {
		rec := f.do(t, http.MethodGet, "/api/series?granularity="+g, "")
		require.Equal(t, http.StatusOK, rec.Code)
		series := decode[struct {
			Window  int              `json:"window"`
			Buckets []map[string]any `json:"buckets"`
		}](t, rec)
		assert.Equal(t, want, series.Window)
		assert.Len(t, series.Buckets, want)
		assert.Equal(t, 250.0, series.Buckets[want-1]["expense"])
	}

	rec = f.do(t, http.MethodGet, "/api/series?granularity=daily&window=30", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[seriesResponse](t, rec).Buckets, 30)

	for _, q := range []string{"granularity=hourly", "window=0", "window=abc", "window=367", "window=500000000", "granularity=monthly&window=1125899906842624"} {
		rec := f.do(t, http.MethodGet, "/api/series?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestExportAndClear(t *testing.T) {
	f := newFixture(t, 100)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/transactions",
		`{"title":"Shop","amount":12.5,"type":"Expense","category":"Reload"}`).Code)

	rec := f.do(t, http.MethodGet, "/api/export.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "transactions_20261021_150000.csv")
	rows, err := export.ParseCSV(rec.Body)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "12.50", rows[0].Amount)

	rec = f.do(t, http.MethodDelete, "/api/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[services.ResetResult](t, rec)
	assert.Equal(t, 1, res.Cleared)
	assert.True(t, strings.HasSuffix(res.Backup, "transactions_20261021_150000.csv"))

	list := decode[transactionsResponse](t, f.do(t, http.MethodGet, "/api/transactions", ""))
	assert.Zero(t, list.Count)
	stored, _, _ := f.kv.Get(context.Background(), storage.KeyTransactions)
	assert.Equal(t, "[]", stored)
}

func TestAdviceErrors(t *testing.T) {
	f := newFixture(t, 100)

	rec := f.do(t, http.MethodPost, "/api/advice", `{"question":"How can I save more?"}`)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.False(t, f.session.State().Advice.InFlight)

	rec = f.do(t, http.MethodPost, "/api/advice", `{"question":"   "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	require.NoError(t, f.settings.SetCredential(context.Background(), "secret"))
	f.advisor.fn = func(context.Context, string) (string, error) {
		return "", &advisor.TransportError{StatusCode: 429, Body: "quota"}
	}
	rec = f.do(t, http.MethodPost, "/api/advice", `{"question":"How can I save more?"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode[errorResponse](t, rec)
	require.NotNil(t, body.StatusCode)
	assert.Equal(t, 429, *body.StatusCode)
	st := f.session.State().Advice
	assert.False(t, st.InFlight)
	assert.Contains(t, st.Error, "429")

	f.advisor.fn = func(context.Context, string) (string, error) {
		return "", &advisor.TransportError{Err: errors.New("connection refused")}
	}
	rec = f.do(t, http.MethodPost, "/api/advice", `{"question":"again"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	body = decode[errorResponse](t, rec)
	require.NotNil(t, body.StatusCode)
	assert.Zero(t, *body.StatusCode)
}

func TestAdviceSuccessAndBusy(t *testing.T) {
	f := newFixture(t, 100)
	require.NoError(t, f.settings.SetCredential(context.Background(), "secret"))

	started := make(chan struct{})
	release := make(chan struct{})
	f.advisor.fn = func(ctx context.Context, prompt string) (string, error) {
		close(started)
		<-release
		return "Cook at home.", nil
	}

	var wg sync.WaitGroup
	var first *httptest.ResponseRecorder
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = f.do(t, http.MethodPost, "/api/advice", `{"question":"How can I save more?"}`)
	}()
	<-started

	busy := f.do(t, http.MethodPost, "/api/advice", `{"question":"Me too?"}`)
	assert.Equal(t, http.StatusConflict, busy.Code)
	assert.True(t, f.session.State().Advice.InFlight)

	close(release)
	wg.Wait()
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "Cook at home.", decode[adviceResponse](t, first).Advice)

	st := f.session.State()
	assert.False(t, st.Advice.InFlight)
	assert.Equal(t, "Cook at home.", st.Advice.Answer)
	assert.Equal(t, "How can I save more?", st.Advice.Question)
}

func TestAdvicePanicSettlesSession(t *testing.T) {
	f := newFixture(t, 100)
	require.NoError(t, f.settings.SetCredential(context.Background(), "secret"))
	f.advisor.fn = func(context.Context, string) (string, error) { panic("provider bug") }

	rec := f.do(t, http.MethodPost, "/api/advice", `{"question":"How can I save more?"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	st := f.session.State().Advice
	assert.False(t, st.InFlight)
	assert.NotEmpty(t, st.Error)

	f.advisor.fn = func(context.Context, string) (string, error) { return "Cook at home.", nil }
	rec = f.do(t, http.MethodPost, "/api/advice", `{"question":"And now?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cook at home.", decode[adviceResponse](t, rec).Advice)
}

func TestSettings(t *testing.T) {
	f := newFixture(t, 100)

	view := decode[services.SettingsView](t, f.do(t, http.MethodGet, "/api/settings", ""))
	assert.False(t, view.CredentialConfigured)
	assert.Equal(t, advisor.ProviderGemini, view.Provider)

	rec := f.do(t, http.MethodPut, "/api/settings/credential", `{"credential":"AIza-very-secret-1234"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "very-secret")
	view = decode[services.SettingsView](t, rec)
	assert.True(t, view.CredentialConfigured)
	assert.Equal(t, "****1234", view.CredentialHint)

	stored, ok, _ := f.kv.Get(context.Background(), storage.KeyAPICredential)
	assert.True(t, ok)
	assert.Equal(t, "AIza-very-secret-1234", stored)
}

func TestStateTabs(t *testing.T) {
	f := newFixture(t, 100)

	st := decode[app.State](t, f.do(t, http.MethodGet, "/api/state", ""))
	assert.Equal(t, app.TabDashboard, st.Tab)

	rec := f.do(t, http.MethodPost, "/api/state/tab", `{"tab":"history"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, app.TabHistory, decode[app.State](t, rec).Tab)

	rec = f.do(t, http.MethodPost, "/api/state/tab", `{"tab":"reports"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, app.TabHistory, f.session.State().Tab)
}

func TestRateLimitOnMutations(t *testing.T) {
	f := newFixture(t, 1)
	body := `{"title":"x","amount":1,"type":"Expense","category":"Reload"}`

	assert.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/transactions", body).Code)
	rec := f.do(t, http.MethodPost, "/api/transactions", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	metricsBody := f.do(t, http.MethodGet, "/metrics", "").Body.String()
	assert.Contains(t, metricsBody, "bilancio_rate_limit_clients 1")
	assert.Contains(t, metricsBody, "bilancio_rate_limit_rejected_total 1")

	// Reads are not limited.
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/transactions", "").Code)
	}
}

func TestMiddlewareStack(t *testing.T) {
	f := newFixture(t, 100)

	rec := f.do(t, http.MethodGet, "/api/summary", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = f.do(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/transactions", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecovery(t *testing.T) {
	h := recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTrustedProxyForwardedFor(t *testing.T) {
	clientIP := security.NewClientIP()
	require.NoError(t, clientIP.AddTrustedProxy("203.0.113.0/24"))
	srv := NewServer(":0", Deps{
		Ledger:   services.NewLedgerService(ledger.New(storage.NewMemoryStore()), nil, nil, ""),
		Logger:   applog.New(applog.Config{Output: &strings.Builder{}}),
		Limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1}),
		ClientIP: clientIP,
	})
	body := `{"title":"x","amount":1,"type":"Expense","category":"Reload"}`
	post := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
		req.RemoteAddr = "203.0.113.9:4000"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// Behind the trusted proxy each forwarded client gets its own budget.
	assert.Equal(t, http.StatusCreated, post("198.51.100.1"))
	assert.Equal(t, http.StatusCreated, post("198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, post("198.51.100.1"))
}
