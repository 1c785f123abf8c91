package http

import (
	"net/http"
	"strings"

	"bilancio/internal/app"
	"bilancio/internal/core"
	"bilancio/internal/services"
)

type (
	adviceRequest struct {
		Question string `json:"question"`
	}

	adviceResponse struct {
		Advice string `json:"advice"`
	}

	credentialRequest struct {
		Credential string `json:"credential"`
	}

	tabRequest struct {
		Tab string `json:"tab"`
	}
)

// handleAdvice allows one advice request at a time per session. The
// session is always settled with a received or failed action, even when
// the provider panics.
func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	var req adviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, r, &core.ValidationError{Field: "question", Err: services.ErrEmptyQuestion})
		return
	}

	prev, _ := s.deps.Session.Dispatch(app.AdviceRequested{Question: req.Question})
	if prev.Advice.InFlight {
		s.deps.Advice.RecordBusy()
		writeError(w, r, errAdviceBusy)
		return
	}

	settled := false
	defer func() {
		// Reached only when Ask panics; recovery answers the request.
		if !settled {
			s.deps.Session.Dispatch(app.AdviceFailed{Reason: "advice request aborted"})
		}
	}()

	answer, err := s.deps.Advice.Ask(r.Context(), req.Question)
	settled = true
	if err != nil {
		s.deps.Session.Dispatch(app.AdviceFailed{Reason: err.Error()})
		writeError(w, r, err)
		return
	}
	s.deps.Session.Dispatch(app.AdviceReceived{Answer: answer})
	writeJSON(w, http.StatusOK, adviceResponse{Advice: answer})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Settings.View(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handlePutCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Settings.SetCredential(r.Context(), req.Credential); err != nil {
		writeError(w, r, err)
		return
	}
	s.handleGetSettings(w, r)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Session.State())
}

func (s *Server) handleSelectTab(w http.ResponseWriter, r *http.Request) {
	var req tabRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tab, ok := app.ParseTab(strings.TrimSpace(req.Tab))
	if !ok {
		writeError(w, r, &core.ValidationError{Field: "tab", Err: errUnknownTab})
		return
	}
	_, next := s.deps.Session.Dispatch(app.TabSelected{Tab: tab})
	writeJSON(w, http.StatusOK, next)
}
