package generation

import "regexp"

// TruncationMarker is appended to README text cut at the length bound.
const TruncationMarker = "\n\n... (truncated)"

// sensitivePatterns match credential-looking strings that must never reach
// the generation service or the stored prompt input.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9]{32,}`),            // API keys
	regexp.MustCompile(`(?i)ghp_[a-zA-Z0-9]{36,}`),           // GitHub PATs
	regexp.MustCompile(`(?i)password\s*[:=]\s*\S+`),          // passwords
	regexp.MustCompile(`(?i)Bearer\s+[a-zA-Z0-9_\-.]+`),      // bearer tokens
}

// Redact replaces credential-looking substrings with a fixed placeholder.
func Redact(content string) string {
	for _, pattern := range sensitivePatterns {
		content = pattern.ReplaceAllString(content, "[REDACTED]")
	}
	return content
}

// Truncate cuts text to at most maxLength characters and appends the
// truncation marker. It counts runes, not bytes, so multibyte READMEs are
// never cut mid-character. Output is deterministic for a given input.
func Truncate(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	return string(runes[:maxLength]) + TruncationMarker
}
