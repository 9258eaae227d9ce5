package generation

import (
	"strconv"
	"time"

	"github.com/jonathan/trendblog/internal/prompts"
	"github.com/jonathan/trendblog/internal/types"
)

const promptFile = "article.json"

// SystemInstruction returns the writing-style instruction for the model.
func SystemInstruction() string {
	return prompts.MustGet(promptFile, "system")
}

// BuildPrompt renders the user prompt for a candidate. The README is
// redacted and truncated before insertion, so the same candidate always
// produces the same prompt.
func BuildPrompt(c types.Candidate, maxReadmeLength int) string {
	readme := Truncate(Redact(c.ReadmeContent), maxReadmeLength)

	return prompts.Format(prompts.MustGet(promptFile, "user"), map[string]string{
		"Owner":    c.Owner,
		"Repo":     c.Repo,
		"Stars":    formatStars(c.Stars),
		"License":  c.LicenseLabel(),
		"LastPush": formatLastPush(c.LastPush),
		"URL":      c.URL(),
		"Readme":   readme,
	})
}

// Footer renders the attribution block appended to every generated article.
func Footer(c types.Candidate) string {
	return prompts.Format(prompts.MustGet(promptFile, "footer"), map[string]string{
		"Owner":   c.Owner,
		"Repo":    c.Repo,
		"URL":     c.URL(),
		"License": c.LicenseLabel(),
	})
}

// formatStars renders a star count with thousands separators, or "Unknown"
// when the metadata is absent.
func formatStars(stars *int) string {
	if stars == nil {
		return "Unknown"
	}
	s := strconv.Itoa(*stars)
	if *stars < 0 {
		return s
	}
	var out []byte
	for i, d := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, d)
	}
	return string(out)
}

func formatLastPush(t *time.Time) string {
	if t == nil {
		return "Unknown"
	}
	return t.UTC().Format("2006-01-02")
}
