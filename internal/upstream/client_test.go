package upstream_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/davidbz/creditline/internal/domain"
	"github.com/davidbz/creditline/internal/upstream"
	"github.com/davidbz/creditline/internal/upstream/echo"
)

const testKey = "sk-test"

func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(echo.NewHandler(testKey).WithChunkDelay(0))
	t.Cleanup(server.Close)
	return server
}

func newClient(baseURL string, timeout time.Duration) *upstream.Client {
	return upstream.NewClient(&upstream.Config{
		BaseURL: baseURL,
		APIKey:  testKey,
		Timeout: timeout,
	})
}

func conversation() []domain.Message {
	return []domain.Message{{Role: "user", Content: "hello there"}}
}

func TestClient_Forward_Buffered(t *testing.T) {
	server := newEchoServer(t)
	client := newClient(server.URL, 5*time.Second)

	resp, err := client.Forward(context.Background(), &domain.UpstreamRequest{
		Model:    "gpt-4o-mini",
		Messages: conversation(),
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "[user]: hello there\n", gjson.GetBytes(body, "choices.0.message.content").String())

	usage := upstream.ExtractUsage(body)
	require.NotNil(t, usage)
	require.Equal(t, int64(3), usage.PromptTokens)
	require.Equal(t, int64(3), usage.CompletionTokens)
}

func TestClient_Forward_Stream(t *testing.T) {
	server := newEchoServer(t)
	client := newClient(server.URL, 5*time.Second)

	resp, err := client.Forward(context.Background(), &domain.UpstreamRequest{
		Model:    "gpt-4o-mini",
		Messages: conversation(),
		Stream:   true,
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	var out bytes.Buffer
	result, err := upstream.Relay(resp.Body, &out, func() {})
	require.NoError(t, err)
	require.True(t, result.Completed)
	require.NotNil(t, result.Usage)
	require.Equal(t, int64(3), result.Usage.PromptTokens)
	require.Equal(t, int64(out.Len()), result.Bytes)
	require.Contains(t, out.String(), "data: [DONE]\n\n")
}

func TestClient_Forward_RequestShape(t *testing.T) {
	var captured map[string]any
	var authHeader, acceptHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		acceptHeader = r.Header.Get("Accept")
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	temperature := 0.2
	maxTokens := 64
	client := newClient(server.URL+"/", 5*time.Second)

	resp, err := client.Forward(context.Background(), &domain.UpstreamRequest{
		Model:    "openai/gpt-4o",
		Messages: conversation(),
		Stream:   true,
		Params:   domain.GenerationParams{Temperature: &temperature, MaxTokens: &maxTokens},
	})
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.Equal(t, "Bearer "+testKey, authHeader)
	require.Equal(t, "text/event-stream", acceptHeader)
	require.Equal(t, "openai/gpt-4o", captured["model"])
	require.Equal(t, true, captured["stream"])
	require.Equal(t, 0.2, captured["temperature"])
	require.InDelta(t, 64, captured["max_tokens"], 0)
	require.Equal(t, map[string]any{"include_usage": true}, captured["stream_options"])
	require.NotContains(t, captured, "top_p")
}

func TestClient_Forward_Errors(t *testing.T) {
	ctx := context.Background()
	req := &domain.UpstreamRequest{Model: "gpt-4o-mini", Messages: conversation()}

	t.Run("should require configuration", func(t *testing.T) {
		client := upstream.NewClient(&upstream.Config{Timeout: time.Second})

		_, err := client.Forward(ctx, req)
		require.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("should surface non-success status with body", func(t *testing.T) {
		server := newEchoServer(t)
		client := upstream.NewClient(&upstream.Config{BaseURL: server.URL, APIKey: "wrong", Timeout: time.Second})

		_, err := client.Forward(ctx, req)
		require.ErrorIs(t, err, domain.ErrUpstream)

		var upstreamErr *domain.UpstreamError
		require.True(t, errors.As(err, &upstreamErr))
		require.Equal(t, http.StatusUnauthorized, upstreamErr.Status)
		require.Contains(t, upstreamErr.Body, "invalid api key")
	})

	t.Run("should time out waiting for headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			// Reading the body lets the server notice the client hanging up.
			_, _ = io.Copy(io.Discard, r.Body)
			<-r.Context().Done()
		}))
		defer server.Close()

		client := newClient(server.URL, 30*time.Millisecond)

		_, err := client.Forward(ctx, req)
		require.ErrorIs(t, err, domain.ErrUpstreamTimeout)
	})

	t.Run("should time out reading a buffered body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, `{"choices":[`)
			w.(http.Flusher).Flush()
			<-r.Context().Done()
		}))
		defer server.Close()

		client := newClient(server.URL, 50*time.Millisecond)

		resp, err := client.Forward(ctx, req)
		require.NoError(t, err)
		defer resp.Body.Close()

		_, err = io.ReadAll(resp.Body)
		require.ErrorIs(t, err, domain.ErrUpstreamTimeout)
	})

	t.Run("should not limit a stream once headers arrived", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			w.(http.Flusher).Flush()
			time.Sleep(100 * time.Millisecond)
			_, _ = io.WriteString(w, "data: [DONE]\n\n")
		}))
		defer server.Close()

		client := newClient(server.URL, 30*time.Millisecond)

		resp, err := client.Forward(ctx, &domain.UpstreamRequest{
			Model:    "gpt-4o-mini",
			Messages: conversation(),
			Stream:   true,
		})
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, "data: [DONE]\n\n", string(body))
	})
}
