package invoker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Kind classifies an invocation failure. Transient failures are
// expected to succeed on retry; permanent failures never are.
type Kind int

const (
	KindTransient Kind = iota + 1
	KindPermanent
)

func (k Kind) String() string {
	if k == KindPermanent {
		return "permanent"
	}
	return "transient"
}

// Error is a classified invocation failure. Raw carries the last oracle
// response when parsing failed; it is for operator logs only.
type Error struct {
	Kind     Kind
	Attempts int
	Raw      string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s invocation error after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable failure.
func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Attempts: 1, Err: err}
}

// Permanent wraps err as a non-retryable failure.
func Permanent(err error) *Error {
	return &Error{Kind: KindPermanent, Attempts: 1, Err: err}
}

// IsTransient reports whether err is classified as transient.
func IsTransient(err error) bool {
	var invErr *Error
	return errors.As(err, &invErr) && invErr.Kind == KindTransient
}

// IsPermanent reports whether err is classified as permanent.
func IsPermanent(err error) bool {
	var invErr *Error
	return errors.As(err, &invErr) && invErr.Kind == KindPermanent
}

// classify maps an oracle error onto a retry class. API codes follow
// the Gemini conventions: 429 and 5xx retry, 4xx client errors do not.
// A deadline on the per-attempt context counts as a timeout and retries.
func classify(err error) Kind {
	var invErr *Error
	if errors.As(err, &invErr) {
		return invErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	if code, ok := apiErrorCode(err); ok {
		switch code {
		case 408, 429, 500, 502, 503, 504:
			return KindTransient
		default:
			return KindPermanent
		}
	}

	msg := err.Error()
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "temporary failure") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "EOF") {
		return KindTransient
	}

	return KindPermanent
}

func apiErrorCode(err error) (int, bool) {
	var ptr *genai.APIError
	if errors.As(err, &ptr) {
		return ptr.Code, true
	}
	var val genai.APIError
	if errors.As(err, &val) {
		return val.Code, true
	}
	return 0, false
}
