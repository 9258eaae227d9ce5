package publish

import "fmt"

// PublishError represents a rejected or failed dispatch to the blog API.
type PublishError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *PublishError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("publish error: %s: %v", e.Message, e.Cause)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("publish error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("publish error: %s", e.Message)
}

func (e *PublishError) Unwrap() error {
	return e.Cause
}

// retryable reports whether another attempt within the same dispatch may
// succeed: server errors and transport failures qualify, client errors
// do not.
func (e *PublishError) retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}
