package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"bilancio/internal/app"
	"bilancio/internal/core"
	"bilancio/internal/export"
	"bilancio/internal/report"
	"bilancio/internal/services"
)

type (
	categoriesResponse struct {
		Income  []string `json:"income"`
		Expense []string `json:"expense"`
	}

	transactionsResponse struct {
		Transactions []core.Transaction `json:"transactions"`
		Count        int                `json:"count"`
	}

	seriesResponse struct {
		Granularity core.Granularity `json:"granularity"`
		Window      int              `json:"window"`
		Buckets     []core.Bucket    `json:"buckets"`
	}
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, categoriesResponse{
		Income:  core.IncomeCategories(),
		Expense: core.ExpenseCategories(),
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txns := s.deps.Ledger.Transactions()
	if txns == nil {
		txns = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactionsResponse{Transactions: txns, Count: len(txns)})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in services.DraftInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.rejectForm(in, err)
		writeError(w, r, err)
		return
	}

	tx, err := s.deps.Ledger.AddTransaction(r.Context(), in)
	if err != nil {
		s.rejectForm(in, err)
		writeError(w, r, err)
		return
	}
	s.deps.Session.Dispatch(app.FormAccepted{Title: tx.Title})
	writeJSON(w, http.StatusCreated, tx)
}

// rejectForm keeps the submitted form in the session so it can be
// corrected.
func (s *Server) rejectForm(in services.DraftInput, err error) {
	form := app.Form{Title: in.Title, Type: in.Type, Category: in.Category}
	if in.Amount.Cents != 0 {
		form.Amount = in.Amount.String()
	}
	s.deps.Session.Dispatch(app.FormRejected{Form: form, Reason: err.Error()})
}

func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Ledger.Reset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.deps.Session.Dispatch(app.LedgerCleared{Removed: res.Cleared})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum := report.Summarize(s.deps.Ledger.Transactions())
	if sum.ByCategory == nil {
		sum.ByCategory = []core.CategoryAmount{}
	}
	if sum.Shares == nil {
		sum.Shares = []core.CategoryShare{}
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := strings.TrimSpace(q.Get("granularity"))
	if raw == "" {
		raw = string(core.Daily)
	}
	g, err := report.ParseGranularity(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}

	window := report.Default(g)
	if v := strings.TrimSpace(q.Get("window")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: window %q", errInvalidQuery, v))
			return
		}
		window = n
	}

	buckets, err := report.BucketBy(s.deps.Ledger.Transactions(), g, window, s.deps.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, seriesResponse{Granularity: g, Window: window, Buckets: buckets})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, s.deps.Ledger.Transactions()); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.BackupFileName(s.deps.Now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
