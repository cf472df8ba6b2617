package explain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnavailable covers network errors, 5xx responses, and timeouts.
	ErrUnavailable = errors.New("explain: provider unavailable")
	// ErrRateLimited is returned for HTTP 429 responses.
	ErrRateLimited = errors.New("explain: rate limited")
	// ErrEmptyResponse is returned when the model returns no content.
	ErrEmptyResponse = errors.New("explain: empty response")
	// ErrRefused is returned when the model declines to answer.
	ErrRefused = errors.New("explain: model refused")
)

// category classifies an error for retry/circuit-breaker decisions, ported
// from the teacher's ai.ErrorCategory.
type category string

const (
	categoryTransient category = "transient"
	categoryPermanent category = "permanent"
)

// classifiedError wraps an error with retry metadata, ported from the
// teacher's ai.ClassifiedError.
type classifiedError struct {
	original   error
	category   category
	statusCode int
}

func (e *classifiedError) Error() string {
	return fmt.Sprintf("[%s] status=%d: %v", e.category, e.statusCode, e.original)
}

func (e *classifiedError) Unwrap() error { return e.original }

// classifyError categorizes an explainer call failure into transient
// (worth retrying / tripping the circuit breaker) or permanent, the same
// split the teacher's ai.ClassifyError makes for OpenAI API errors.
func classifyError(statusCode int, err error) *classifiedError {
	switch {
	case errors.Is(err, ErrRefused):
		return &classifiedError{original: err, category: categoryPermanent, statusCode: statusCode}
	case errors.Is(err, ErrEmptyResponse):
		return &classifiedError{original: err, category: categoryPermanent, statusCode: statusCode}
	case errors.Is(err, ErrRateLimited), statusCode == 429:
		return &classifiedError{original: err, category: categoryTransient, statusCode: 429}
	case errors.Is(err, ErrUnavailable), statusCode >= 500:
		return &classifiedError{original: err, category: categoryTransient, statusCode: statusCode}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &classifiedError{original: err, category: categoryTransient, statusCode: statusCode}
	case statusCode >= 400 && statusCode < 500:
		return &classifiedError{original: err, category: categoryPermanent, statusCode: statusCode}
	default:
		return &classifiedError{original: err, category: categoryTransient, statusCode: statusCode}
	}
}
