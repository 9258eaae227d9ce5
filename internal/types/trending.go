// Package types defines the shared data structures passed between the
// fetch, generation, and posting stages.
package types

import (
	"fmt"
	"time"
)

// TrendingRepo identifies one repository scraped from the GitHub trending
// page. Ranking order is the slice order produced by the scraper.
type TrendingRepo struct {
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	FullName string `json:"full_name"`
}

// Candidate is a trending repository enriched with README content and
// metadata, ready for article generation. ReadmeSHA is the revision
// fingerprint used for deduplication: two candidates with the same
// (owner, repo, readme_sha) describe identical source content.
type Candidate struct {
	Owner         string     `json:"owner"`
	Repo          string     `json:"repo"`
	FullName      string     `json:"full_name"`
	ReadmeSHA     string     `json:"sha"`
	ReadmeContent string     `json:"readme_content"`
	Stars         *int       `json:"stars"`
	License       *string    `json:"license"`
	LastPush      *time.Time `json:"last_push"`
}

// URL returns the repository's GitHub URL.
func (c Candidate) URL() string {
	return fmt.Sprintf("https://github.com/%s/%s", c.Owner, c.Repo)
}

// LicenseLabel returns the license name, or "Unknown" when absent.
func (c Candidate) LicenseLabel() string {
	if c.License == nil || *c.License == "" {
		return "Unknown"
	}
	return *c.License
}

// WeekKey returns the ISO year-week identifier for t, e.g. "2025-W41".
// Generation runs are grouped under this key.
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
