package llm

import (
	"errors"
	"fmt"
)

// RateLimitError marks a generation failure caused by provider throttling.
// Callers treat it as retryable; every other generation error is terminal.
type RateLimitError struct {
	Message string
	Cause   error
}

func (e *RateLimitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rate limited: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("rate limited: %s", e.Message)
}

func (e *RateLimitError) Unwrap() error {
	return e.Cause
}

// IsRateLimited reports whether err is (or wraps) a RateLimitError.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
