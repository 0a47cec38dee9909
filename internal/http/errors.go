package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/davidbz/creditline/internal/domain"
	"github.com/davidbz/creditline/internal/observability"
)

// Error codes returned in the error envelope.
const (
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	CodeUpstreamTimeout     = "UPSTREAM_TIMEOUT"
	CodeUpstreamError       = "UPSTREAM_ERROR"
	CodeConfigurationError  = "CONFIGURATION_ERROR"
	CodeInternalError       = "INTERNAL_ERROR"
)

var errMethodNotAllowed = errors.New("method not allowed")

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// statusFor maps an error to its HTTP status and envelope.
func statusFor(err error) (int, ErrorResponse) {
	var upstreamErr *domain.UpstreamError

	switch {
	case errors.Is(err, errMethodNotAllowed):
		return http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed", Code: CodeMethodNotAllowed}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: CodeUnauthorized}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Error: "forbidden", Code: CodeForbidden}
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusBadRequest, ErrorResponse{
			Error: "insufficient balance, please top up",
			Code:  CodeInsufficientBalance,
		}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeInvalidInput}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "user not found", Code: CodeUserNotFound}
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, ErrorResponse{Error: "upstream request timed out", Code: CodeUpstreamTimeout}
	case errors.As(err, &upstreamErr):
		return http.StatusInternalServerError, ErrorResponse{
			Error:   fmt.Sprintf("upstream returned status %d", upstreamErr.Status),
			Code:    CodeUpstreamError,
			Details: upstreamErr.Body,
		}
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusInternalServerError, ErrorResponse{Error: "upstream request failed", Code: CodeUpstreamError}
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusInternalServerError, ErrorResponse{Error: "server configuration error", Code: CodeConfigurationError}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: CodeInternalError}
	}
}

// writeError sends err as a JSON envelope, or as a single SSE frame when the
// caller asked for a stream.
func writeError(ctx context.Context, w http.ResponseWriter, err error, stream bool) {
	status, body := statusFor(err)
	writeErrorResponse(ctx, w, status, body, err, stream)
}

func writeErrorResponse(
	ctx context.Context,
	w http.ResponseWriter,
	status int,
	body ErrorResponse,
	cause error,
	stream bool,
) {
	logger := observability.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			observability.Int("status", status),
			observability.String("code", body.Code),
			observability.Error(cause))
	} else {
		logger.Info("request rejected",
			observability.Int("status", status),
			observability.String("code", body.Code),
			observability.Error(cause))
	}

	if stream {
		data, _ := json.Marshal(body)
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
		return
	}

	writeJSON(ctx, w, status, body)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Status is already written; nothing left to do but log.
		observability.FromContext(ctx).Error("failed to encode response", observability.Error(err))
	}
}
