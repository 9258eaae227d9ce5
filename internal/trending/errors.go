// Package trending scrapes the weekly GitHub trending page into a ranked
// repository list.
package trending

import "fmt"

// ScrapeError represents a failure to fetch or parse the trending page.
type ScrapeError struct {
	Message string
	Cause   error
}

func (e *ScrapeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("trending scrape error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("trending scrape error: %s", e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Cause
}
