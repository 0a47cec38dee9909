package echo_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/davidbz/creditline/internal/upstream/echo"
)

func post(h http.Handler, path, authorization, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandler_Completion(t *testing.T) {
	handler := echo.NewHandler("")

	w := post(handler, "/chat/completions", "",
		`{"model":"echo4","messages":[{"role":"user","content":"Hello world"}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Equal(t, "echo4", gjson.Get(body, "model").String())
	require.Equal(t, "chat.completion", gjson.Get(body, "object").String())
	require.Equal(t, "[user]: Hello world\n", gjson.Get(body, "choices.0.message.content").String())
	require.Equal(t, int64(3), gjson.Get(body, "usage.prompt_tokens").Int()) // "[user]:" "Hello" "world" = 3 words
	require.Equal(t, int64(3), gjson.Get(body, "usage.completion_tokens").Int())
	require.Equal(t, int64(6), gjson.Get(body, "usage.total_tokens").Int())
	require.NotEmpty(t, gjson.Get(body, "id").String())
}

func TestHandler_Stream(t *testing.T) {
	handler := echo.NewHandler("").WithChunkDelay(0)

	t.Run("should stream words and a usage chunk", func(t *testing.T) {
		w := post(handler, "/v1/chat/completions", "",
			`{"model":"echo4","stream":true,"stream_options":{"include_usage":true},`+
				`"messages":[{"role":"user","content":"Hello world"}]}`)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

		frames := strings.Split(strings.TrimSuffix(w.Body.String(), "\n\n"), "\n\n")
		// Three words, the stop chunk, the usage chunk and the sentinel.
		require.Len(t, frames, 6)
		require.Equal(t, "[user]: ", gjson.Get(strings.TrimPrefix(frames[0], "data: "), "choices.0.delta.content").String())
		require.Equal(t, "stop", gjson.Get(strings.TrimPrefix(frames[3], "data: "), "choices.0.finish_reason").String())
		require.Equal(t, int64(3), gjson.Get(strings.TrimPrefix(frames[4], "data: "), "usage.prompt_tokens").Int())
		require.Equal(t, "data: [DONE]", frames[5])
	})

	t.Run("should omit usage unless asked", func(t *testing.T) {
		w := post(handler, "/chat/completions", "",
			`{"model":"echo4","stream":true,"messages":[{"role":"user","content":"Hello"}]}`)

		require.Equal(t, http.StatusOK, w.Code)
		require.NotContains(t, w.Body.String(), `"usage"`)
		require.True(t, strings.HasSuffix(w.Body.String(), "data: [DONE]\n\n"))
	})
}

func TestHandler_Errors(t *testing.T) {
	tests := []struct {
		name           string
		handler        *echo.Handler
		path           string
		authorization  string
		body           string
		expectedStatus int
	}{
		{
			name:           "wrong path",
			handler:        echo.NewHandler(""),
			path:           "/embeddings",
			body:           `{}`,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "missing key",
			handler:        echo.NewHandler("sk-echo"),
			path:           "/chat/completions",
			body:           `{"messages":[{"role":"user","content":"hi"}]}`,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid JSON",
			handler:        echo.NewHandler("sk-echo"),
			path:           "/chat/completions",
			authorization:  "Bearer sk-echo",
			body:           `{`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "empty messages",
			handler:        echo.NewHandler(""),
			path:           "/chat/completions",
			body:           `{"messages":[]}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(tt.handler, tt.path, tt.authorization, tt.body)

			require.Equal(t, tt.expectedStatus, w.Code)
			require.Equal(t, "echo_error", gjson.Get(w.Body.String(), "error.type").String())
		})
	}
}
