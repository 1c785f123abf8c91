package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type (
	geminiPart struct {
		Text string `json:"text"`
	}

	geminiContent struct {
		Role  string       `json:"role,omitempty"`
		Parts []geminiPart `json:"parts"`
	}

	geminiRequest struct {
		SystemInstruction geminiContent   `json:"system_instruction"`
		Contents          []geminiContent `json:"contents"`
	}

	geminiResponse struct {
		Candidates []struct {
			Content geminiContent `json:"content"`
		} `json:"candidates"`
	}
)

// Gemini calls the generateContent endpoint with a JSON POST.
type Gemini struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

func NewGemini(endpoint, model string, httpClient *http.Client) *Gemini {
	if endpoint == "" {
		endpoint = DefaultGeminiEndpoint
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Gemini{endpoint: strings.TrimRight(endpoint, "/"), model: model, httpClient: httpClient}
}

func (g *Gemini) Name() string { return ProviderGemini }

func (g *Gemini) Generate(ctx context.Context, system, prompt, credential string) (string, error) {
	payload, err := json.Marshal(geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: system}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encode gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.endpoint, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", credential)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TransportError{StatusCode: resp.StatusCode, Body: excerpt(body)}
	}

	var decoded geminiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", &TransportError{StatusCode: resp.StatusCode, Body: excerpt(body), Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", &TransportError{StatusCode: resp.StatusCode, Body: excerpt(body), Err: ErrMalformedResponse}
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}
