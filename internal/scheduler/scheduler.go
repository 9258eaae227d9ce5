// Package scheduler implements the release scheduler: it drains pending
// articles oldest-first and transitions each to a terminal state after one
// publish dispatch.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/trendblog/internal/db"
)

// Mode selects how many pending articles one run may publish.
type Mode int

const (
	// ModeLimited publishes up to the configured batch size.
	ModeLimited Mode = iota
	// ModeBulk publishes every pending article.
	ModeBulk
)

func (m Mode) String() string {
	if m == ModeBulk {
		return "bulk"
	}
	return "limited"
}

// ArticleStore is the slice of the database the scheduler needs.
type ArticleStore interface {
	GetPendingArticles(ctx context.Context, limit int) ([]*db.Article, error)
	MarkPosted(ctx context.Context, id uuid.UUID, status db.ArticleStatus, errorMessage *string, postedAt time.Time) (bool, error)
}

// Publisher dispatches one article to the blog API. Implemented by
// publish.Client.
type Publisher interface {
	Publish(ctx context.Context, article *db.Article) error
}

// Options holds the scheduler's tunables.
type Options struct {
	// BatchSize caps limited-mode runs. Defaults to 2.
	BatchSize int
	// Interval is the pause between consecutive dispatches, pacing the
	// blog API. Defaults to 2s.
	Interval time.Duration
}

// Summary reports one scheduler run for operator-visible output.
type Summary struct {
	Attempted int
	Succeeded int
	Failed    int
}

// Scheduler drains pending articles.
type Scheduler struct {
	store     ArticleStore
	publisher Publisher
	opts      Options

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New constructs a Scheduler.
func New(store ArticleStore, publisher Publisher, opts Options) *Scheduler {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 2
	}
	if opts.Interval < 0 {
		opts.Interval = 0
	} else if opts.Interval == 0 {
		opts.Interval = 2 * time.Second
	}
	return &Scheduler{
		store:     store,
		publisher: publisher,
		opts:      opts,
		sleep:     sleepCtx,
		now:       time.Now,
	}
}

// Run selects pending articles oldest-first (capped in limited mode) and
// dispatches each one. A failed dispatch marks that article failed and
// moves on; only store errors and cancellation abort the run.
func (s *Scheduler) Run(ctx context.Context, mode Mode) (Summary, error) {
	limit := 0
	if mode == ModeLimited {
		limit = s.opts.BatchSize
	}

	articles, err := s.store.GetPendingArticles(ctx, limit)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to select pending articles: %w", err)
	}

	var summary Summary
	for i, article := range articles {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Attempted++

		status := db.StatusSuccess
		var message *string
		if err := s.publisher.Publish(ctx, article); err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			status = db.StatusFailed
			msg := err.Error()
			message = &msg
		}

		claimed, err := s.store.MarkPosted(ctx, article.ID, status, message, s.now().UTC())
		if err != nil {
			return summary, fmt.Errorf("failed to record outcome for %s: %w", article.FullName(), err)
		}
		if !claimed {
			// The row left pending since selection. Only possible under
			// an unsupported overlapping run; the other claim stands.
			continue
		}

		if status == db.StatusSuccess {
			summary.Succeeded++
		} else {
			summary.Failed++
		}

		if s.opts.Interval > 0 && i < len(articles)-1 {
			if err := s.sleep(ctx, s.opts.Interval); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
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
