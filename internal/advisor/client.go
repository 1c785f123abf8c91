// Package advisor asks a remote text-generation model for budgeting advice.
// Each request is a single round trip: no retries, no streaming, and no
// timeout beyond what the caller's context imposes.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel    = "gemini-2.0-flash"
	DefaultOpenAIModel    = "gpt-4o-mini"
)

// Provider performs the remote call. credential is never empty.
type Provider interface {
	Generate(ctx context.Context, system, prompt, credential string) (string, error)
	Name() string
}

type Config struct {
	Provider   string
	Endpoint   string
	Model      string
	HTTPClient *http.Client
}

type Client struct {
	provider Provider
}

// New builds a client for cfg.Provider, defaulting to Gemini.
func New(cfg Config) (*Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		return NewWithProvider(NewGemini(cfg.Endpoint, cfg.Model, httpClient)), nil
	case ProviderOpenAI:
		return NewWithProvider(NewOpenAI(cfg.Endpoint, cfg.Model, httpClient)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
}

func NewWithProvider(p Provider) *Client {
	return &Client{provider: p}
}

func (c *Client) Provider() string { return c.provider.Name() }

// RequestAdvice sends prompt with SystemInstruction and returns the first
// generated text. A blank credential fails with ErrMissingCredential before
// any network activity. Remote failures are *TransportError.
func (c *Client) RequestAdvice(ctx context.Context, prompt, credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", ErrMissingCredential
	}
	text, err := c.provider.Generate(ctx, SystemInstruction, prompt, credential)
	if err != nil {
		slog.WarnContext(ctx, "Advice request failed", "provider", c.provider.Name(), "error", err)
		return "", err
	}
	slog.InfoContext(ctx, "Advice received", "provider", c.provider.Name(), "chars", len(text))
	return text, nil
}
