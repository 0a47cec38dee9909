package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/davidbz/creditline/internal/domain"
	"github.com/davidbz/creditline/internal/observability"
)

const maxErrorBody = 64 << 10

var errTimedOut = errors.New("upstream deadline reached")

// Config contains completion API settings.
type Config struct {
	BaseURL      string        `env:"UPSTREAM_BASE_URL"`
	APIKey       string        `env:"UPSTREAM_API_KEY"`
	DefaultModel string        `env:"UPSTREAM_DEFAULT_MODEL"`
	Timeout      time.Duration `env:"UPSTREAM_TIMEOUT"       envDefault:"45s"`
}

// Client forwards chat conversations to an OpenAI-compatible API.
type Client struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a completion API client (DI constructor).
func NewClient(cfg *Config) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		// Deadlines are enforced per request in Forward.
		httpClient: &http.Client{},
	}
}

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []domain.Message `json:"messages"`
	Stream   bool             `json:"stream"`
	domain.GenerationParams
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// Forward posts the conversation to {BaseURL}/chat/completions.
//
// For buffered calls the timeout covers the whole exchange including the
// body read. For streams it only covers the wait for response headers.
// The returned body must be closed by the caller.
func (c *Client) Forward(ctx context.Context, req *domain.UpstreamRequest) (*domain.UpstreamResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	if c.baseURL == "" || c.apiKey == "" {
		return nil, fmt.Errorf("%w: upstream URL or key not set", domain.ErrConfiguration)
	}

	payload := chatRequest{
		Model:            req.Model,
		Messages:         req.Messages,
		Stream:           req.Stream,
		GenerationParams: req.Params,
	}
	if req.Stream {
		payload.StreamOptions = &streamOptions{IncludeUsage: true}
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithCancelCause(ctx)
	timer := time.AfterFunc(c.timeout, func() { cancel(errTimedOut) })

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/chat/completions",
		bytes.NewReader(reqBody),
	)
	if err != nil {
		timer.Stop()
		cancel(nil)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("forwarding to upstream",
		observability.String("model", req.Model),
		observability.Bool("stream", req.Stream),
		observability.Int("messages", len(req.Messages)))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		timer.Stop()
		timedOut := errors.Is(context.Cause(ctx), errTimedOut)
		cancel(nil)
		if timedOut {
			return nil, fmt.Errorf("%w after %s", domain.ErrUpstreamTimeout, c.timeout)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		timer.Stop()
		cancel(nil)

		logger.Warn("upstream returned error status",
			observability.Int("status", resp.StatusCode))

		return nil, &domain.UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	if req.Stream && !timer.Stop() {
		// Headers arrived just as the deadline fired.
		_ = resp.Body.Close()
		cancel(nil)
		return nil, fmt.Errorf("%w after %s", domain.ErrUpstreamTimeout, c.timeout)
	}

	return &domain.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body: &body{
			ReadCloser: resp.Body,
			ctx:        ctx,
			timer:      timer,
			cancel:     cancel,
		},
	}, nil
}

// body releases the request context on Close and reports reads cut short
// by the deadline as ErrUpstreamTimeout.
type body struct {
	io.ReadCloser
	ctx    context.Context
	timer  *time.Timer
	cancel context.CancelCauseFunc
}

func (b *body) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && errors.Is(context.Cause(b.ctx), errTimedOut) {
		return n, fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, err)
	}
	return n, err
}

func (b *body) Close() error {
	b.timer.Stop()
	err := b.ReadCloser.Close()
	b.cancel(nil)
	return err
}
