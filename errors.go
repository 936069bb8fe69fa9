package engagekit

import (
	"errors"
	"fmt"
	"time"

	"github.com/engagekit/client-go/internal/apierrors"
)

// Sentinel errors for errors.Is() checks.
var (
	// ErrMissingAPIKey is returned when no API key is provided.
	ErrMissingAPIKey = apierrors.ErrMissingAPIKey

	// ErrClientClosed is returned when operations are attempted on a closed client.
	ErrClientClosed = apierrors.ErrClientClosed

	// ErrUnauthorized is returned when the API key is invalid or expired.
	ErrUnauthorized = apierrors.ErrUnauthorized

	// ErrRateLimited is returned when the API rate limit is exceeded.
	ErrRateLimited = apierrors.ErrRateLimited
)

// EngageKitError is implemented by all SDK errors.
type EngageKitError interface {
	error
	EngageKitError() // marker method
}

// APIError represents an HTTP error from the EngageKit API.
type APIError struct {
	StatusCode int
	Message    string
	Code       string        // machine-readable error code, if the server sent one
	RetryAfter time.Duration // server-directed retry delay, 429 responses only
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case 401:
		return target == ErrUnauthorized
	case 429:
		return target == ErrRateLimited
	}
	return false
}

// EngageKitError implements the EngageKitError interface.
func (e *APIError) EngageKitError() {}

// NetworkError represents a transport-level failure.
type NetworkError struct {
	Err error
	URL string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// EngageKitError implements the EngageKitError interface.
func (e *NetworkError) EngageKitError() {}

// ValidationError is a caller error caught before any network activity.
// It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// EngageKitError implements the EngageKitError interface.
func (e *ValidationError) EngageKitError() {}

// wrapError converts internal errors to public errors so that type
// assertions and errors.As checks work against the package's own types.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
			Code:       apiErr.Code,
			RetryAfter: apiErr.RetryAfter,
		}
	}

	var netErr *apierrors.NetworkError
	if errors.As(err, &netErr) {
		return &NetworkError{
			Err: netErr.Err,
			URL: netErr.URL,
		}
	}

	var valErr *apierrors.ValidationError
	if errors.As(err, &valErr) {
		return &ValidationError{
			Field:   valErr.Field,
			Message: valErr.Message,
		}
	}

	return err
}
