// Package upstream drives completion attempts against a remote model:
// classification of each attempt, linear backoff between retryable
// failures, and process-wide pacing of outbound calls.
package upstream

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yourusername/llm-relay-bot/internal/domain/entity"
)

// ErrMalformedResponse marks a response body without the expected fields.
var ErrMalformedResponse = errors.New("malformed completion response")

type verdict int

const (
	verdictSuccess verdict = iota
	verdictRetryable
	verdictTerminal
)

// Outcome is the result of a single attempt.
type Outcome struct {
	verdict verdict
	Text    string
	// Kind is the failure kind reported to the caller. For a retryable
	// outcome it is the kind reported once attempts run out.
	Kind entity.ErrorKind
	Err  error
}

// Success is a usable completion.
func Success(text string) Outcome {
	return Outcome{verdict: verdictSuccess, Text: text}
}

// Retryable is a failure worth another attempt.
func Retryable(kind entity.ErrorKind, err error) Outcome {
	return Outcome{verdict: verdictRetryable, Kind: kind, Err: err}
}

// Terminal is a failure that retrying cannot fix.
func Terminal(kind entity.ErrorKind, err error) Outcome {
	return Outcome{verdict: verdictTerminal, Kind: kind, Err: err}
}

// Transport is the retryable outcome for timeouts and connection errors.
func Transport(err error) Outcome {
	return Retryable(entity.KindExhausted, err)
}

// Malformed is the retryable outcome for a body missing expected fields.
func Malformed(err error) Outcome {
	if err == nil {
		err = ErrMalformedResponse
	} else if !errors.Is(err, ErrMalformedResponse) {
		err = fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return Retryable(entity.KindExhausted, err)
}

// FromStatus classifies a non-success HTTP status code.
func FromStatus(code int, detail string) Outcome {
	err := fmt.Errorf("upstream status %d", code)
	if detail != "" {
		err = fmt.Errorf("upstream status %d: %s", code, detail)
	}
	switch {
	case code == http.StatusUnauthorized:
		return Terminal(entity.KindAuthError, err)
	case code == http.StatusTooManyRequests:
		return Terminal(entity.KindUpstreamRateLimited, err)
	case code >= 500:
		return Retryable(entity.KindUpstreamError, err)
	default:
		return Terminal(entity.KindUpstreamError, err)
	}
}

// OK reports a successful attempt.
func (o Outcome) OK() bool { return o.verdict == verdictSuccess }

// ShouldRetry reports a retryable failure.
func (o Outcome) ShouldRetry() bool { return o.verdict == verdictRetryable }

func (o Outcome) String() string {
	switch o.verdict {
	case verdictSuccess:
		return "success"
	case verdictRetryable:
		return "retryable"
	default:
		return "terminal"
	}
}
