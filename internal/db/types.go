package db

import (
	"time"

	"github.com/google/uuid"
)

// ArticleStatus enumerates the article lifecycle states.
type ArticleStatus string

// Lifecycle states. An article is created as pending (or failed, when
// generation itself failed) and transitions at most once thereafter.
const (
	StatusPending ArticleStatus = "pending"
	StatusSuccess ArticleStatus = "success"
	StatusFailed  ArticleStatus = "failed"
)

// IsTerminal reports whether the status never changes again.
func (s ArticleStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Article is the persistent record of one generated (or failed) article
// for a specific README revision of a repository.
type Article struct {
	ID            uuid.UUID
	WeekKey       string
	Owner         string
	Repo          string
	ReadmeSHA     string
	Stars         *int
	License       *string
	LastPush      *time.Time
	ReadmeContent string
	Markdown      string
	Status        ArticleStatus
	ErrorMessage  *string
	CreatedAt     time.Time
	PostedAt      *time.Time
}

// FullName returns the owner/repo identifier.
func (a *Article) FullName() string {
	return a.Owner + "/" + a.Repo
}

// LicenseLabel returns the license name, or "Unknown" when absent.
func (a *Article) LicenseLabel() string {
	if a.License == nil || *a.License == "" {
		return "Unknown"
	}
	return *a.License
}
