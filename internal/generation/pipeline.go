// Package generation implements the article generation pipeline: dedup
// check, prompt construction, the retried generation call, and persisting
// the outcome as a pending or failed article.
package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/trendblog/internal/db"
	"github.com/jonathan/trendblog/internal/types"
)

// ArticleStore is the slice of the database the pipeline needs.
type ArticleStore interface {
	ArticleExists(ctx context.Context, owner, repo, readmeSHA string) (bool, error)
	InsertArticle(ctx context.Context, a *db.Article) (uuid.UUID, bool, error)
}

// Generator produces article markdown from a system instruction and a
// user prompt. Implemented by llm.Client.
type Generator interface {
	GenerateArticle(ctx context.Context, system, prompt string) (string, error)
}

// Options holds the pipeline's tunables. Zero values are replaced with the
// documented defaults by NewPipeline.
type Options struct {
	// MaxReadmeLength bounds README text sent to the model.
	MaxReadmeLength int
	// CallTimeout bounds each generation call.
	CallTimeout time.Duration
	// Policy is the retry/backoff policy for retryable failures.
	Policy Policy
}

// Summary reports one pipeline run for operator-visible output.
type Summary struct {
	Processed int
	Skipped   int
	Generated int
	Failed    int
}

// Pipeline converts candidates into stored article records.
type Pipeline struct {
	store     ArticleStore
	generator Generator
	opts      Options
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewPipeline constructs a Pipeline.
func NewPipeline(store ArticleStore, generator Generator, opts Options) *Pipeline {
	if opts.MaxReadmeLength <= 0 {
		opts.MaxReadmeLength = 8000
	}
	if opts.Policy.MaxAttempts <= 0 {
		opts.Policy = DefaultPolicy()
	}
	return &Pipeline{
		store:     store,
		generator: generator,
		opts:      opts,
		sleep:     sleepCtx,
	}
}

// Run processes candidates in input order under the given week key. Each
// candidate yields at most one new article row: pending on success, failed
// on terminal generation error, nothing when the README revision is
// already recorded. Per-candidate failures never abort the run; only
// store errors and context cancellation do.
func (p *Pipeline) Run(ctx context.Context, weekKey string, candidates []types.Candidate) (Summary, error) {
	var summary Summary

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Processed++

		exists, err := p.store.ArticleExists(ctx, candidate.Owner, candidate.Repo, candidate.ReadmeSHA)
		if err != nil {
			return summary, fmt.Errorf("failed to check for existing article %s: %w", candidate.FullName, err)
		}
		if exists {
			summary.Skipped++
			continue
		}

		markdown, genErr := p.generate(ctx, candidate)
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		article := &db.Article{
			WeekKey:       weekKey,
			Owner:         candidate.Owner,
			Repo:          candidate.Repo,
			ReadmeSHA:     candidate.ReadmeSHA,
			Stars:         candidate.Stars,
			License:       candidate.License,
			LastPush:      candidate.LastPush,
			ReadmeContent: candidate.ReadmeContent,
		}
		if genErr != nil {
			message := genErr.Error()
			article.Status = db.StatusFailed
			article.ErrorMessage = &message
		} else {
			article.Status = db.StatusPending
			article.Markdown = markdown
		}

		_, inserted, err := p.store.InsertArticle(ctx, article)
		if err != nil {
			return summary, fmt.Errorf("failed to persist article %s: %w", candidate.FullName, err)
		}
		if !inserted {
			// Lost a race to a concurrent run; same outcome as the
			// dedup check above.
			summary.Skipped++
			continue
		}

		if genErr != nil {
			summary.Failed++
		} else {
			summary.Generated++
		}
	}

	return summary, nil
}

// generate runs the remote call under the retry policy and appends the
// attribution footer on success.
func (p *Pipeline) generate(ctx context.Context, candidate types.Candidate) (string, error) {
	system := SystemInstruction()
	prompt := BuildPrompt(candidate, p.opts.MaxReadmeLength)

	var lastErr error
	for attempt := 1; ; attempt++ {
		text, err := p.callOnce(ctx, system, prompt)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				return "", fmt.Errorf("generation returned an empty article")
			}
			return text + Footer(candidate), nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err

		delay, retry := p.opts.Policy.Next(attempt, Classify(err))
		if !retry {
			return "", fmt.Errorf("generation failed after %d attempt(s): %w", attempt, lastErr)
		}
		if err := p.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
}

func (p *Pipeline) callOnce(ctx context.Context, system, prompt string) (string, error) {
	if p.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.CallTimeout)
		defer cancel()
	}
	return p.generator.GenerateArticle(ctx, system, prompt)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
