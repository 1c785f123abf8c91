package advisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// OpenAI sends a chat completion through go-openai. Endpoint may point at
// any OpenAI-compatible server.
type OpenAI struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

func NewOpenAI(endpoint, model string, httpClient *http.Client) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenAI{endpoint: endpoint, model: model, httpClient: httpClient}
}

func (o *OpenAI) Name() string { return ProviderOpenAI }

func (o *OpenAI) Generate(ctx context.Context, system, prompt, credential string) (string, error) {
	cfg := openai.DefaultConfig(credential)
	if o.endpoint != "" {
		cfg.BaseURL = o.endpoint
	}
	cfg.HTTPClient = o.httpClient
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", openAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &TransportError{StatusCode: http.StatusOK, Err: ErrMalformedResponse}
	}
	return resp.Choices[0].Message.Content, nil
}

func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &TransportError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &TransportError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return &TransportError{Err: fmt.Errorf("openai: %w", err)}
}
