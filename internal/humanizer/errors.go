package humanizer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Kind classifies why a generation failed.
type Kind string

const (
	KindUnavailable Kind = "unavailable"
	KindTimeout     Kind = "timeout"
	KindMalformed   Kind = "malformed"
	KindUpstream    Kind = "upstream"
)

// LLMError is returned by every Humanizer operation that could not produce
// text. Callers always have a deterministic fallback.
type LLMError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *LLMError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("humanizer %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("humanizer %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }

// IsKind reports whether err is an *LLMError of the given kind.
func IsKind(err error, kind Kind) bool {
	var le *LLMError
	return errors.As(err, &le) && le.Kind == kind
}

// classify maps a backend error to a Kind.
func classify(err error) Kind {
	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		return KindUnavailable
	default:
		return KindUpstream
	}
}

// retryable reports whether another attempt may succeed.
func retryable(kind Kind) bool {
	return kind == KindTimeout || kind == KindUnavailable
}
