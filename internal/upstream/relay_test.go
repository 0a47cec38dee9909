package upstream_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/creditline/internal/upstream"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

type failingReader struct {
	data io.Reader
}

func (r *failingReader) Read(p []byte) (int, error) {
	n, err := r.data.Read(p)
	if errors.Is(err, io.EOF) {
		return n, errors.New("connection reset")
	}
	return n, err
}

func TestRelay(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		completed     bool
		expectUsage   bool
		prompt        int64
		completion    int64
		expectFlushes int
	}{
		{
			name: "copies frames and captures trailing usage",
			input: "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\n" +
				": keep-alive comment\n\n" +
				"data: {\"choices\":[],\"usage\":{\"prompt_tokens\":12,\"completion_tokens\":7,\"total_tokens\":19}}\n\n" +
				"data: [DONE]\n\n",
			completed:     true,
			expectUsage:   true,
			prompt:        12,
			completion:    7,
			expectFlushes: 5,
		},
		{
			name: "ignores usage with negative counts",
			input: "data: {\"choices\":[],\"usage\":{\"prompt_tokens\":-5,\"completion_tokens\":2,\"total_tokens\":-3}}\n\n" +
				"data: [DONE]\n\n",
			completed:     true,
			expectFlushes: 3,
		},
		{
			name:          "clean EOF without sentinel still completes",
			input:         "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\n",
			completed:     true,
			expectFlushes: 2,
		},
		{
			name:          "keeps a trailing partial line",
			input:         "data: {\"choices\":[]}\n\ndata: partial",
			completed:     true,
			expectFlushes: 2,
		},
		{
			name:          "ignores malformed payloads",
			input:         "data: {not json\n\ndata: [DONE]\n\n",
			completed:     true,
			expectFlushes: 3,
		},
		{
			name: "keeps the last usage seen",
			input: "data: {\"usage\":{\"prompt_tokens\":1,\"completion_tokens\":1}}\n\n" +
				"data: {\"usage\":{\"prompt_tokens\":5,\"completion_tokens\":9}}\n\n",
			completed:     true,
			expectUsage:   true,
			prompt:        5,
			completion:    9,
			expectFlushes: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			flushes := 0

			result, err := upstream.Relay(strings.NewReader(tt.input), &out, func() { flushes++ })
			require.NoError(t, err)

			require.Equal(t, tt.input, out.String())
			require.Equal(t, int64(len(tt.input)), result.Bytes)
			require.Equal(t, tt.completed, result.Completed)
			require.Equal(t, tt.expectFlushes, flushes)

			if !tt.expectUsage {
				require.Nil(t, result.Usage)
				return
			}
			require.NotNil(t, result.Usage)
			require.Equal(t, tt.prompt, result.Usage.PromptTokens)
			require.Equal(t, tt.completion, result.Usage.CompletionTokens)
		})
	}
}

func TestRelay_Failures(t *testing.T) {
	t.Run("should stop on client write failure", func(t *testing.T) {
		result, err := upstream.Relay(strings.NewReader("data: [DONE]\n\n"), failingWriter{}, func() {})
		require.Error(t, err)
		require.False(t, result.Completed)
	})

	t.Run("should report sentinel seen before an upstream read failure", func(t *testing.T) {
		src := &failingReader{data: strings.NewReader("data: [DONE]\n\n")}

		var out bytes.Buffer
		result, err := upstream.Relay(src, &out, func() {})
		require.Error(t, err)
		require.True(t, result.Completed)
	})

	t.Run("should not complete when the upstream breaks mid-stream", func(t *testing.T) {
		src := &failingReader{data: strings.NewReader("data: {\"choices\":[]}\n\n")}

		var out bytes.Buffer
		result, err := upstream.Relay(src, &out, func() {})
		require.Error(t, err)
		require.False(t, result.Completed)
		require.Equal(t, "data: {\"choices\":[]}\n\n", out.String())
	})
}

func TestExtractUsage(t *testing.T) {
	usage := upstream.ExtractUsage([]byte(`{"id":"x","usage":{"prompt_tokens":1000,"completion_tokens":2000,"total_tokens":3000}}`))
	require.NotNil(t, usage)
	require.Equal(t, int64(1000), usage.PromptTokens)
	require.Equal(t, int64(2000), usage.CompletionTokens)
	require.Equal(t, int64(3000), usage.TotalTokens)

	require.Nil(t, upstream.ExtractUsage([]byte(`{"id":"x"}`)))
	require.Nil(t, upstream.ExtractUsage([]byte(`{"usage":null}`)))
	require.Nil(t, upstream.ExtractUsage([]byte(`not json`)))
	require.Nil(t, upstream.ExtractUsage([]byte(`{"usage":{"prompt_tokens":-5,"completion_tokens":2,"total_tokens":-3}}`)))
	require.Nil(t, upstream.ExtractUsage([]byte(`{"usage":{"prompt_tokens":1,"completion_tokens":-1,"total_tokens":0}}`)))
}
