package app

import "strings"

// Action is one of the types below.
type Action interface{ isAction() }

type (
	TabSelected  struct{ Tab Tab }
	LedgerLoaded struct{ Count int }
	FormEdited   struct{ Form Form }
	// FormRejected keeps the form so the user can correct it.
	FormRejected struct {
		Form   Form
		Reason string
	}
	FormAccepted    struct{ Title string }
	AdviceRequested struct{ Question string }
	AdviceReceived  struct{ Answer string }
	AdviceFailed    struct{ Reason string }
	LedgerCleared   struct{ Removed int }
)

func (TabSelected) isAction()     {}
func (LedgerLoaded) isAction()    {}
func (FormEdited) isAction()      {}
func (FormRejected) isAction()    {}
func (FormAccepted) isAction()    {}
func (AdviceRequested) isAction() {}
func (AdviceReceived) isAction()  {}
func (AdviceFailed) isAction()    {}
func (LedgerCleared) isAction()   {}

// Reduce returns the state that follows s after a. It never mutates s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case TabSelected:
		s.Tab = a.Tab
		s.Notice = ""
	case LedgerLoaded:
		s.Loaded = true
	case FormEdited:
		s.Form = a.Form
	case FormRejected:
		s.Form = a.Form
		s.Notice = a.Reason
	case FormAccepted:
		s.Form = Form{Type: s.Form.Type}
		s.Notice = "Added " + a.Title
	case AdviceRequested:
		if s.Advice.InFlight {
			return s
		}
		s.Advice = Advice{Question: strings.TrimSpace(a.Question), InFlight: true}
	case AdviceReceived:
		if !s.Advice.InFlight {
			return s
		}
		s.Advice.InFlight = false
		s.Advice.Answer = a.Answer
		s.Advice.Error = ""
	case AdviceFailed:
		if !s.Advice.InFlight {
			return s
		}
		s.Advice.InFlight = false
		s.Advice.Answer = ""
		s.Advice.Error = a.Reason
	case LedgerCleared:
		s.Notice = "Cleared all transactions"
	}
	return s
}
