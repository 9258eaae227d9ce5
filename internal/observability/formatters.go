// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/trendblog/internal/db"
	"github.com/jonathan/trendblog/internal/generation"
	"github.com/jonathan/trendblog/internal/scheduler"
	"github.com/jonathan/trendblog/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintTrendingRepos outputs the scraped trending list in page order.
func (p *Printer) PrintTrendingRepos(repos []types.TrendingRepo) {
	if len(repos) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d trending repositories:\n\n", len(repos)))

	count := min(len(repos), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, repos[i].FullName))
	}
	if len(repos) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more", len(repos)-maxItemsToShow))
	}

	p.printBox("TRENDING REPOSITORIES", sb.String())
}

// PrintCandidates outputs the fetched candidates with their metadata.
func (p *Printer) PrintCandidates(candidates []types.Candidate) {
	if len(candidates) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Fetched %d candidates:\n\n", len(candidates)))

	count := min(len(candidates), maxItemsToShow)
	for i := 0; i < count; i++ {
		c := candidates[i]
		sb.WriteString(fmt.Sprintf("• %s\n", c.FullName))
		stars := "?"
		if c.Stars != nil {
			stars = fmt.Sprintf("%d", *c.Stars)
		}
		sb.WriteString(fmt.Sprintf("  ★ %s  %s\n", stars, c.LicenseLabel()))
	}
	if len(candidates) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more", len(candidates)-maxItemsToShow))
	}

	p.printBox("FETCHED CANDIDATES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintGenerationSummary outputs the per-run generation counters.
func (p *Printer) PrintGenerationSummary(weekKey string, s generation.Summary) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Week:       %s\n\n", weekKey))
	sb.WriteString(fmt.Sprintf("Processed:  %d\n", s.Processed))
	sb.WriteString(fmt.Sprintf("Skipped:    %d\n", s.Skipped))
	sb.WriteString(fmt.Sprintf("Generated:  %d\n", s.Generated))
	sb.WriteString(fmt.Sprintf("Failed:     %d", s.Failed))

	p.printBox("GENERATION SUMMARY", sb.String())
}

// PrintPostSummary outputs the per-run publishing counters.
func (p *Printer) PrintPostSummary(mode scheduler.Mode, s scheduler.Summary) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Mode:       %s\n\n", mode))
	sb.WriteString(fmt.Sprintf("Attempted:  %d\n", s.Attempted))
	sb.WriteString(fmt.Sprintf("Succeeded:  %d\n", s.Succeeded))
	sb.WriteString(fmt.Sprintf("Failed:     %d", s.Failed))

	p.printBox("POST SUMMARY", sb.String())
}

// PrintStatusCounts outputs the article backlog broken down by status.
func (p *Printer) PrintStatusCounts(counts map[db.ArticleStatus]int) {
	var sb strings.Builder
	total := 0
	for _, status := range []db.ArticleStatus{db.StatusPending, db.StatusSuccess, db.StatusFailed} {
		sb.WriteString(fmt.Sprintf("%-10s %d\n", string(status)+":", counts[status]))
		total += counts[status]
	}
	sb.WriteString(fmt.Sprintf("\nTotal:     %d", total))

	p.printBox("ARTICLE BACKLOG", sb.String())
}
