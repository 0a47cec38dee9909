// Package echo provides a local OpenAI-compatible completion endpoint that
// echoes the conversation back. It makes no external calls and reports
// deterministic word-count usage, which makes it usable as an upstream in
// tests and development.
package echo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/davidbz/creditline/internal/domain"
	"github.com/davidbz/creditline/internal/observability"
)

const defaultChunkDelay = 10 * time.Millisecond

// Handler serves POST {prefix}/chat/completions.
type Handler struct {
	apiKey     string
	chunkDelay time.Duration
}

// NewHandler creates an echo upstream. An empty apiKey accepts any bearer token.
func NewHandler(apiKey string) *Handler {
	return &Handler{
		apiKey:     apiKey,
		chunkDelay: defaultChunkDelay,
	}
}

// WithChunkDelay sets the pause between streamed words.
func (h *Handler) WithChunkDelay(d time.Duration) *Handler {
	h.chunkDelay = d
	return h
}

type completionRequest struct {
	Model         string           `json:"model"`
	Messages      []domain.Message `json:"messages"`
	Stream        bool             `json:"stream"`
	StreamOptions *struct {
		IncludeUsage bool `json:"include_usage"`
	} `json:"stream_options"`
}

type message struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

type choice struct {
	Index        int      `json:"index"`
	Message      *message `json:"message,omitempty"`
	Delta        *message `json:"delta,omitempty"`
	FinishReason *string  `json:"finish_reason"`
}

type completion struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []choice      `json:"choices"`
	Usage   *domain.Usage `json:"usage,omitempty"`
}

// ServeHTTP answers a chat completion request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if h.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+h.apiKey {
		writeError(w, http.StatusUnauthorized, "invalid api key")
		return
	}

	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}

	content := buildEchoContent(req.Messages)
	promptTokens := countTokens(content)
	usage := &domain.Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: promptTokens,
		TotalTokens:      2 * promptTokens,
	}

	observability.FromContext(r.Context()).Debug("echo completion",
		observability.String("model", req.Model),
		observability.Bool("stream", req.Stream),
		observability.Int64("prompt_tokens", promptTokens))

	base := completion{
		ID:      fmt.Sprintf("echo-%d", time.Now().UnixNano()),
		Created: time.Now().Unix(),
		Model:   req.Model,
	}

	if !req.Stream {
		stop := "stop"
		base.Object = "chat.completion"
		base.Choices = []choice{{Message: &message{Role: "assistant", Content: content}, FinishReason: &stop}}
		base.Usage = usage

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(base)
		return
	}

	h.stream(w, r, base, content, req.StreamOptions != nil && req.StreamOptions.IncludeUsage, usage)
}

func (h *Handler) stream(
	w http.ResponseWriter,
	r *http.Request,
	base completion,
	content string,
	includeUsage bool,
	usage *domain.Usage,
) {
	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	base.Object = "chat.completion.chunk"
	send := func(chunk completion) bool {
		data, err := json.Marshal(chunk)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		if flusher != nil {
			flusher.Flush()
		}
		return true
	}

	words := strings.Fields(content)
	for i, word := range words {
		delta := word
		if i < len(words)-1 {
			delta += " "
		}

		chunk := base
		chunk.Choices = []choice{{Delta: &message{Content: delta}}}
		if !send(chunk) {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-time.After(h.chunkDelay):
		}
	}

	stop := "stop"
	final := base
	final.Choices = []choice{{Delta: &message{}, FinishReason: &stop}}
	if !send(final) {
		return
	}

	if includeUsage {
		tail := base
		tail.Choices = []choice{}
		tail.Usage = usage
		if !send(tail) {
			return
		}
	}

	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"message": msg, "type": "echo_error"},
	})
}

// buildEchoContent constructs the echo response from request messages.
func buildEchoContent(messages []domain.Message) string {
	var builder strings.Builder
	for _, msg := range messages {
		builder.WriteString(fmt.Sprintf("[%s]: %s\n", msg.Role, msg.Content))
	}
	return builder.String()
}

// countTokens performs simple word-based token counting.
func countTokens(content string) int64 {
	return int64(len(strings.Fields(content)))
}
