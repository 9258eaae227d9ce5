// Package publish dispatches finished articles to the blog API.
package publish

import (
	"strings"
	"time"

	"github.com/jonathan/trendblog/internal/db"
)

// Post is the publishing endpoint's payload shape.
type Post struct {
	Slug           string   `json:"slug"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	Category       string   `json:"category"`
	Tags           []string `json:"tags"`
	Status         string   `json:"status"`
	PublishAt      string   `json:"publishAt"`
	HeaderImageURL string   `json:"headerImageUrl,omitempty"`
}

// postCategory is the fixed blog category for trend articles.
const postCategory = "テクノロジー"

// BuildPost assembles the payload for an article. now determines both the
// slug date and the publishAt timestamp, so one dispatch uses one clock
// reading throughout.
func BuildPost(article *db.Article, headerImageURL string, now time.Time) Post {
	return Post{
		Slug:           Slug(article.Repo, now),
		Title:          Title(article.Owner, article.Repo),
		Body:           article.Markdown,
		Category:       postCategory,
		Tags:           Tags(article.License),
		Status:         "published",
		PublishAt:      now.UTC().Format(time.RFC3339),
		HeaderImageURL: headerImageURL,
	}
}

// Slug returns the URL-friendly identifier for a post, e.g.
// "github-trend-anthropic-sdk-python-2025-10-06". Repo names may contain
// runs of separators or end in one ("repo_", "repo.."), so hyphen runs
// are collapsed and edge hyphens trimmed to keep the slug well-formed.
func Slug(repo string, date time.Time) string {
	slugRepo := strings.ToLower(repo)
	slugRepo = strings.ReplaceAll(slugRepo, "_", "-")
	slugRepo = strings.ReplaceAll(slugRepo, ".", "-")
	for strings.Contains(slugRepo, "--") {
		slugRepo = strings.ReplaceAll(slugRepo, "--", "-")
	}
	slugRepo = strings.Trim(slugRepo, "-")

	parts := []string{"github-trend"}
	if slugRepo != "" {
		parts = append(parts, slugRepo)
	}
	parts = append(parts, date.UTC().Format("2006-01-02"))
	return strings.Join(parts, "-")
}

// Title returns the post title for a repository.
func Title(owner, repo string) string {
	return "GitHubトレンド解説：" + owner + "/" + repo
}

// Tags returns the fixed tag set, plus an MIT tag for MIT-licensed repos.
func Tags(license *string) []string {
	tags := []string{"GitHub", "Tech", "OpenSource"}
	if license != nil && strings.Contains(*license, "MIT") {
		tags = append(tags, "MIT")
	}
	return tags
}
