// Package app holds per-session UI state as an explicit value updated by a
// reducer. Transports read the state and dispatch actions; nothing else
// mutates it.
package app

import "sync"

type Tab string

const (
	TabDashboard Tab = "dashboard"
	TabAdd       Tab = "add"
	TabHistory   Tab = "history"
	TabAdvisor   Tab = "advisor"
	TabSettings  Tab = "settings"
)

var tabs = []Tab{TabDashboard, TabAdd, TabHistory, TabAdvisor, TabSettings}

// ParseTab reports whether s names a known tab.
func ParseTab(s string) (Tab, bool) {
	for _, t := range tabs {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

type (
	// Form is the add-transaction form as last submitted.
	Form struct {
		Title    string `json:"title"`
		Amount   string `json:"amount"`
		Type     string `json:"type"`
		Category string `json:"category"`
	}

	Advice struct {
		Question string `json:"question"`
		InFlight bool   `json:"in_flight"`
		Answer   string `json:"answer,omitempty"`
		Error    string `json:"error,omitempty"`
	}

	State struct {
		Tab    Tab    `json:"tab"`
		Form   Form   `json:"form"`
		Loaded bool   `json:"loaded"`
		Notice string `json:"notice,omitempty"`
		Advice Advice `json:"advice"`
	}
)

// Initial is the state of a fresh session.
func Initial() State {
	return State{Tab: TabDashboard, Form: Form{Type: "Expense"}}
}

// Session guards one State for concurrent callers.
type Session struct {
	mu    sync.Mutex
	state State
}

func NewSession() *Session {
	return &Session{state: Initial()}
}

// Dispatch applies a under the session lock and returns the states before
// and after. Callers compare them to learn whether the action took effect.
func (s *Session) Dispatch(a Action) (prev, next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.state
	s.state = Reduce(prev, a)
	return prev, s.state
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
