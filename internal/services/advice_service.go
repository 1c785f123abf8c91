package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bilancio/internal/advisor"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/metrics"
)

// ErrEmptyQuestion is wrapped in a ValidationError for blank questions.
var ErrEmptyQuestion = errors.New("empty question")

// Advisor is the part of *advisor.Client the service needs.
type Advisor interface {
	RequestAdvice(ctx context.Context, prompt, credential string) (string, error)
}

// CredentialSource yields the current advisory credential.
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
}

// Snapshotter yields the transactions to summarise.
type Snapshotter interface {
	Transactions() []core.Transaction
}

// AdviceService builds a prompt from the current ledger and asks the
// advisor about it.
type AdviceService struct {
	ledger      Snapshotter
	advisor     Advisor
	credentials CredentialSource
	metrics     *metrics.Metrics
	log         *applog.StructuredLogger
}

func NewAdviceService(ledger Snapshotter, adv Advisor, credentials CredentialSource, m *metrics.Metrics) *AdviceService {
	return &AdviceService{
		ledger:      ledger,
		advisor:     adv,
		credentials: credentials,
		metrics:     m,
		log:         componentLogger(applog.ComponentAdvisor),
	}
}

// Ask returns the advisor's answer to question. A missing credential is
// reported before any request is made.
func (s *AdviceService) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", &core.ValidationError{Field: "question", Err: ErrEmptyQuestion}
	}

	credential, err := s.credentials.Credential(ctx)
	if err != nil {
		return "", err
	}

	prompt := advisor.BuildPrompt(s.ledger.Transactions(), question)
	answer, err := s.advisor.RequestAdvice(ctx, prompt, credential)
	s.observe(err)
	if err != nil {
		if !errors.Is(err, advisor.ErrMissingCredential) {
			s.log.LogError(ctx, "Advice request failed", err, applog.OpAdvise, nil)
		}
		return "", fmt.Errorf("request advice: %w", err)
	}
	return answer, nil
}

// RecordBusy counts a request refused because another one was in flight.
func (s *AdviceService) RecordBusy() {
	if s.metrics != nil {
		s.metrics.AdviceRequests.WithLabelValues(metrics.OutcomeBusy).Inc()
	}
}

func (s *AdviceService) observe(err error) {
	if s.metrics == nil {
		return
	}
	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, advisor.ErrMissingCredential):
		outcome = metrics.OutcomeMissingCredential
	case err != nil:
		outcome = metrics.OutcomeTransportError
	}
	s.metrics.AdviceRequests.WithLabelValues(outcome).Inc()
}
