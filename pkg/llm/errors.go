package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a completion failure.
type Kind int

const (
	// KindTransient failures may succeed on a later attempt: timeouts,
	// connection failures, rate limits, 5xx, malformed responses.
	KindTransient Kind = iota

	// KindPermanent failures will not succeed without a configuration change:
	// bad credentials, unknown models, rejected requests.
	KindPermanent
)

func (k Kind) String() string {
	switch k {
	case KindPermanent:
		return "permanent"
	default:
		return "transient"
	}
}

// ErrEmptyReply is returned when a provider answers without any content.
var ErrEmptyReply = errors.New("empty reply")

// Error is the error type returned by Client implementations.
type Error struct {
	Kind     Kind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient wraps err as a transient failure of provider.
func Transient(provider string, err error) *Error {
	return &Error{Kind: KindTransient, Provider: provider, Err: err}
}

// Permanent wraps err as a permanent failure of provider.
func Permanent(provider string, err error) *Error {
	return &Error{Kind: KindPermanent, Provider: provider, Err: err}
}

// StatusError wraps an unexpected HTTP status from provider, classifying 429
// and 5xx as transient and every other status as permanent.
func StatusError(provider string, status int, body []byte) *Error {
	err := fmt.Errorf("API error (status %d): %s", status, truncate(string(body), 512))
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return Transient(provider, err)
	}
	return Permanent(provider, err)
}

// KindOf classifies any error. *Error carries its own kind. Anything else,
// including context deadlines and network errors, is transient.
func KindOf(err error) Kind {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind
	}
	return KindTransient
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
