package generation

import (
	"context"
	"errors"
	"time"

	"github.com/jonathan/trendblog/internal/llm"
)

// ErrorClass buckets generation failures for the retry policy.
type ErrorClass int

const (
	// ClassRetryable covers provider throttling and call timeouts.
	ClassRetryable ErrorClass = iota
	// ClassTerminal covers everything else; the candidate is recorded as
	// failed without further attempts.
	ClassTerminal
)

// Classify maps a generation error to its retry class. Timeouts are not
// distinguished from throttling beyond sharing the same retry policy.
func Classify(err error) ErrorClass {
	if llm.IsRateLimited(err) || errors.Is(err, context.DeadlineExceeded) {
		return ClassRetryable
	}
	return ClassTerminal
}

// Policy is the retry/backoff policy around the generation call. It is a
// pure decision function: callers own the clock and the sleeping.
type Policy struct {
	// MaxAttempts is the total attempt budget, first attempt included.
	MaxAttempts int
	// BaseDelay is the wait after the first failed attempt; each further
	// wait doubles it (1, 2, 4, ... units).
	BaseDelay time.Duration
}

// DefaultPolicy mirrors the configured defaults: 3 attempts, 1s base delay.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Next decides what happens after a failed attempt (1-based). It returns
// the delay to wait before the next attempt, or ok=false to give up.
func (p Policy) Next(attempt int, class ErrorClass) (time.Duration, bool) {
	if class != ClassRetryable {
		return 0, false
	}
	if attempt >= p.MaxAttempts {
		return 0, false
	}
	return p.BaseDelay << (attempt - 1), true
}
