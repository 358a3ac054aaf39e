// Package classify builds classifier requests for the bingo tiles and parses
// the structured answers back into matched tile ids.
package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/bingo/internal/domain/tile"
)

// Default request parameters.
const (
	defaultModel     = "google/gemini-2.0-flash-001"
	defaultMaxTokens = 1000
	defaultTimeout   = 30 * time.Second
)

// Limiter is the part of the rate limiter the client needs. TryAcquire
// must check and reserve atomically so concurrent callers cannot overshoot.
type Limiter interface {
	TryAcquire() (commit, cancel func(), ok bool)
	TimeUntilNextRequest() time.Duration
	RemainingRequests() int
}

// Transport sends a request to a remote model and returns the raw text of
// its answer. Any error is treated as a transport failure.
type Transport interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithModel sets the model identifier sent with every request.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(c *Client) {
		if t >= 0 {
			c.temperature = t
		}
	}
}

// WithMaxTokens caps the length of the answer.
func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithTimeout bounds a single outbound call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// Client classifies free text against the tile catalogue.
type Client struct {
	transport   Transport
	limiter     Limiter
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

// NewClient wires a transport and the shared limiter.
func NewClient(transport Transport, limiter Limiter, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		limiter:   limiter,
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Classify asks the remote model which tiles are present in text.
//
// A slot is reserved before the call, so concurrent callers never dispatch
// more than the limit allows. A rejected rate-limit check returns
// *RateLimitError without touching the network. A transport failure returns
// an error wrapping ErrTransport and releases the slot. Once the transport
// succeeds the request is logged exactly once and parse problems are
// reported in Result.Err only.
func (c *Client) Classify(ctx context.Context, text string, tiles []tile.Tile) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{Items: []MatchedItem{}}, ErrEmptyText
	}
	commit, release, ok := c.limiter.TryAcquire()
	if !ok {
		return Result{Items: []MatchedItem{}}, &RateLimitError{
			RetryAfter: c.limiter.TimeUntilNextRequest(),
			Remaining:  c.limiter.RemainingRequests(),
		}
	}

	req := c.BuildRequest(text, tiles)

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	raw, err := c.transport.Complete(callCtx, req)
	if err != nil {
		release()
		return Result{Items: []MatchedItem{}}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	commit()

	return ParseResponse(raw), nil
}

// BuildRequest assembles the provider-neutral request for text.
func (c *Client) BuildRequest(text string, tiles []tile.Tile) Request {
	return Request{
		Model:       c.model,
		System:      BuildSystemPrompt(tiles),
		User:        text,
		Schema:      ResponseSchema(),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
}
