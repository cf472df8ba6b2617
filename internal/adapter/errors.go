// Package adapter implements the Adapter seam (spec.md §5): the pluggable
// boundary through which a feature producer — in-process Go code, a batched
// HTTP feature service, or a Feast-shaped online store — is asked to produce
// feature values for a set of input rows.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Kind classifies an adapter failure the way spec.md §5 requires: transport
// failures are retried, protocol and return-shape failures are not.
type Kind string

const (
	KindConfig      Kind = "config"       // bad adapter configuration, never retried
	KindTransport   Kind = "transport"    // network/timeout/any non-200 status, retried up to Retries times
	KindProtocol    Kind = "protocol"     // a 200 response whose body isn't a JSON array, or fails to parse; not retried
	KindReturnShape Kind = "return_shape" // well-formed response, wrong shape; not retried
)

// Error wraps an adapter failure with a Kind so callers (and the runner) can
// decide whether to retry without string-matching messages, mirroring the
// teacher's ai.ClassifiedError/ai.AIError pair.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("adapter: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("adapter: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the call that produced this error may be
// retried; the HTTP adapter consults it for its per-batch retries. Only
// transport failures are retryable.
func (e *Error) Retryable() bool { return e.Kind == KindTransport }

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// ClassifyTransportError decides whether err, raised while making a request,
// represents a transport failure (network unreachable, timeout, connection
// reset) as opposed to a logic error the caller introduced. Grounded on the
// teacher's ai.ClassifyError, narrowed to the transport/non-transport split
// the HTTP adapter needs.
func ClassifyTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return false
}
