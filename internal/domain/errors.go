package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized indicates a missing, invalid or expired credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller lacks the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput indicates a malformed request.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientBalance indicates the user's balance cannot cover the request.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUserNotFound indicates no balance record exists for the user.
	ErrUserNotFound = errors.New("user not found")

	// ErrPricingUnknown indicates a cost cannot be computed for the model.
	ErrPricingUnknown = errors.New("pricing unknown")

	// ErrUpstreamTimeout indicates the completion API did not answer in time.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrUpstream indicates the completion API returned a non-success status.
	ErrUpstream = errors.New("upstream error")

	// ErrConfiguration indicates a required server setting is missing.
	ErrConfiguration = errors.New("configuration error")
)

// UpstreamError carries the upstream status and raw body for diagnostics.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}

// Is makes errors.Is(err, ErrUpstream) match.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// InvalidInput wraps ErrInvalidInput with a caller-facing reason.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
