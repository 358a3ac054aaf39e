// Package openrouter sends classification requests to an OpenAI-compatible
// chat completions endpoint such as OpenRouter.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/okian/bingo/internal/domain/classify"
)

// DefaultBaseURL is the public OpenRouter API.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

// Errors returned by the transport.
var (
	ErrMissingAPIKey = errors.New("openrouter: api key is required")
	ErrStatus        = errors.New("openrouter: unexpected status")
	ErrNoChoices     = errors.New("openrouter: response has no choices")
)

// Option applies a configuration option to the Transport.
type Option func(*Transport)

// WithBaseURL points the transport at another compatible endpoint.
func WithBaseURL(u string) Option {
	return func(t *Transport) {
		if u != "" {
			t.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) {
		if c != nil {
			t.http = c
		}
	}
}

// WithReferer sets the attribution headers OpenRouter shows on its dashboard.
func WithReferer(referer, title string) Option {
	return func(t *Transport) {
		t.referer = referer
		t.title = title
	}
}

// Transport implements classify.Transport over HTTP.
type Transport struct {
	apiKey  string
	baseURL string
	referer string
	title   string
	http    *http.Client
}

var _ classify.Transport = (*Transport)(nil)

// New creates a transport authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Transport, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	t := &Transport{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []message      `json:"messages"`
	Temperature    float32        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Complete posts req to /chat/completions and returns the content of the
// first choice.
func (t *Transport) Complete(ctx context.Context, req classify.Request) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: req.Model,
		Messages: []message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchema{
				Name:   classify.SchemaName,
				Strict: true,
				Schema: req.Schema,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openrouter: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openrouter: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	if t.referer != "" {
		httpReq.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		httpReq.Header.Set("X-Title", t.title)
	}

	resp, err := t.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openrouter: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("openrouter: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrNoChoices
	}
	return out.Choices[0].Message.Content, nil
}
