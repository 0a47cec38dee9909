package upstream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/tidwall/gjson"

	"github.com/davidbz/creditline/internal/domain"
)

const doneSentinel = "[DONE]"

var dataPrefix = []byte("data:")

// RelayResult describes what the relay saw on the stream.
type RelayResult struct {
	// Usage is the last usage object found in a data frame, or nil.
	Usage *domain.Usage
	// Completed is true once [DONE] or a clean EOF was observed.
	Completed bool
	Bytes     int64
}

// Relay copies an SSE stream from src to dst byte for byte, calling flush
// after every frame boundary. It taps data frames for usage on the way.
//
// A write error means the client went away; the result still reports
// whether the end of the stream had already been seen.
func Relay(src io.Reader, dst io.Writer, flush func()) (RelayResult, error) {
	var result RelayResult
	reader := bufio.NewReader(src)

	for {
		line, readErr := reader.ReadBytes('\n')

		if len(line) > 0 {
			n, err := dst.Write(line)
			result.Bytes += int64(n)
			if err != nil {
				return result, fmt.Errorf("client write failed: %w", err)
			}

			trimmed := bytes.TrimSpace(line)
			if len(trimmed) == 0 {
				flush()
			} else if payload, ok := bytes.CutPrefix(trimmed, dataPrefix); ok {
				payload = bytes.TrimSpace(payload)
				if string(payload) == doneSentinel {
					result.Completed = true
				} else if usage := usageFrom(payload); usage != nil {
					result.Usage = usage
				}
			}
		}

		if errors.Is(readErr, io.EOF) {
			flush()
			result.Completed = true
			return result, nil
		}
		if readErr != nil {
			flush()
			return result, fmt.Errorf("upstream read failed: %w", readErr)
		}
	}
}

// ExtractUsage returns the usage object of a buffered completion, if any.
// Usage with negative counts is treated as absent.
func ExtractUsage(body []byte) *domain.Usage {
	return usageFrom(body)
}

func usageFrom(payload []byte) *domain.Usage {
	if !gjson.ValidBytes(payload) {
		return nil
	}

	raw := gjson.GetBytes(payload, "usage")
	if !raw.IsObject() {
		return nil
	}

	var usage openai.CompletionUsage
	if err := json.Unmarshal([]byte(raw.Raw), &usage); err != nil {
		return nil
	}

	if usage.PromptTokens < 0 || usage.CompletionTokens < 0 || usage.TotalTokens < 0 {
		return nil
	}

	return &domain.Usage{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	}
}
