package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"bilancio/internal/advisor"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/report"
)

var (
	errBadRequest   = errors.New("malformed request body")
	errAdviceBusy   = errors.New("an advice request is already in flight")
	errUnknownTab   = errors.New("unknown tab")
	errInvalidQuery = errors.New("invalid query parameter")
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	// StatusCode is the upstream status of a failed advice request; 0 for
	// network failures.
	StatusCode *int `json:"status_code,omitempty"`
}

// writeError maps err onto a status code and JSON body. Unknown errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *core.ValidationError
		te *advisor.TransportError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: ve.Error(), Field: ve.Field})
	case errors.Is(err, advisor.ErrMissingCredential):
		writeJSON(w, http.StatusPreconditionFailed, errorResponse{
			Error: "no advisory API credential configured; set one with PUT /api/settings/credential",
		})
	case errors.As(err, &te):
		code := te.StatusCode
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: te.Error(), StatusCode: &code})
	case errors.Is(err, errAdviceBusy):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, errBadRequest), errors.Is(err, errInvalidQuery),
		errors.Is(err, report.ErrInvalidGranularity), errors.Is(err, report.ErrInvalidWindow):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldPath, r.URL.Path, applog.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads one JSON object from the body into v. Unknown fields
// and trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, core.ErrInvalidAmount) {
			return &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unexpected data after JSON object", errBadRequest)
	}
	return nil
}
