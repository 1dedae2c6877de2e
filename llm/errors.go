// ABOUTME: Error types for model provider calls, classified by HTTP status for retryability.
// ABOUTME: Wraps openai-go API errors so callers never import the SDK to inspect failures.
package llm

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
)

// ErrMissingAPIKey is returned when a client is built without credentials.
var ErrMissingAPIKey = errors.New("openai api key is not configured")

// ErrEmptyResponse is returned when the provider answers without content.
var ErrEmptyResponse = errors.New("provider returned an empty response")

// ProviderError is a failed call to the model provider.
type ProviderError struct {
	Op         string // "chat" or "image"
	StatusCode int    // 0 for transport failures
	Code       string
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed (%d %s): %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Op, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether repeating the call could succeed: rate limits,
// server errors, and transport failures are; client errors are not.
func (e *ProviderError) IsRetryable() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode == http.StatusRequestTimeout:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is a provider failure worth retrying.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.IsRetryable()
	}
	return false
}

// wrapError converts an SDK error into a ProviderError.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return &ProviderError{Op: op, StatusCode: apiErr.StatusCode, Code: apiErr.Code, Message: msg, Cause: err}
	}
	return &ProviderError{Op: op, Message: err.Error(), Cause: err}
}
