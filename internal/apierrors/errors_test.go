package apierrors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAPIError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "message only",
			err:  &APIError{StatusCode: 400, Message: "bad payload"},
			want: "API error 400: bad payload",
		},
		{
			name: "message and code",
			err:  &APIError{StatusCode: 422, Message: "bad field", Code: "invalid_field"},
			want: "API error 422 (invalid_field): bad field",
		},
		{
			name: "status only",
			err:  &APIError{StatusCode: 500},
			want: "API error 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIError_Is(t *testing.T) {
	if !errors.Is(&APIError{StatusCode: 401}, ErrUnauthorized) {
		t.Error("401 should match ErrUnauthorized")
	}
	if !errors.Is(&APIError{StatusCode: 429}, ErrRateLimited) {
		t.Error("429 should match ErrRateLimited")
	}
	if errors.Is(&APIError{StatusCode: 500}, ErrUnauthorized) {
		t.Error("500 should not match ErrUnauthorized")
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network error", &NetworkError{Err: errors.New("refused")}, true},
		{"rate limited", &APIError{StatusCode: 429}, true},
		{"server error", &APIError{StatusCode: 500}, true},
		{"bad gateway", &APIError{StatusCode: 502}, true},
		{"last 5xx", &APIError{StatusCode: 599}, true},
		{"bad request", &APIError{StatusCode: 400}, false},
		{"unauthorized", &APIError{StatusCode: 401}, false},
		{"not found", &APIError{StatusCode: 404}, false},
		{"validation", &ValidationError{Message: "empty"}, false},
		{"plain error", errors.New("boom"), false},
		{"wrapped network error", fmt.Errorf("send: %w", &NetworkError{Err: errors.New("timeout")}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryAfterHint(t *testing.T) {
	err := &APIError{StatusCode: 429, RetryAfter: 2 * time.Second}
	if got := RetryAfterHint(err); got != 2*time.Second {
		t.Errorf("RetryAfterHint() = %v, want 2s", got)
	}
	if got := RetryAfterHint(&NetworkError{Err: errors.New("x")}); got != 0 {
		t.Errorf("RetryAfterHint() = %v, want 0 for network error", got)
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &NetworkError{Err: inner, URL: "https://api.engagekit.io/api/events/batch"}
	if !errors.Is(err, inner) {
		t.Error("NetworkError should unwrap to inner error")
	}
}
