package generation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/trendblog/internal/db"
	"github.com/jonathan/trendblog/internal/llm"
	"github.com/jonathan/trendblog/internal/types"
)

// fakeStore is an in-memory ArticleStore keyed by the dedup triple.
type fakeStore struct {
	existing map[string]bool
	inserted []*db.Article
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{existing: make(map[string]bool)}
}

func dedupKey(owner, repo, sha string) string {
	return owner + "/" + repo + "@" + sha
}

func (s *fakeStore) ArticleExists(_ context.Context, owner, repo, sha string) (bool, error) {
	if s.failWith != nil {
		return false, s.failWith
	}
	return s.existing[dedupKey(owner, repo, sha)], nil
}

func (s *fakeStore) InsertArticle(_ context.Context, a *db.Article) (uuid.UUID, bool, error) {
	if s.failWith != nil {
		return uuid.Nil, false, s.failWith
	}
	key := dedupKey(a.Owner, a.Repo, a.ReadmeSHA)
	if s.existing[key] {
		return uuid.Nil, false, nil
	}
	s.existing[key] = true
	s.inserted = append(s.inserted, a)
	return uuid.New(), true, nil
}

// fakeGenerator returns queued errors before succeeding, counting attempts.
type fakeGenerator struct {
	errs     []error
	response string
	calls    int
}

func (g *fakeGenerator) GenerateArticle(context.Context, string, string) (string, error) {
	g.calls++
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		return "", err
	}
	return g.response, nil
}

func newTestPipeline(store ArticleStore, gen Generator) *Pipeline {
	p := NewPipeline(store, gen, Options{
		MaxReadmeLength: 8000,
		Policy:          Policy{MaxAttempts: 3, BaseDelay: time.Second},
	})
	p.sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func candidate(owner, repo, sha string) types.Candidate {
	return types.Candidate{
		Owner:         owner,
		Repo:          repo,
		FullName:      owner + "/" + repo,
		ReadmeSHA:     sha,
		ReadmeContent: "# " + repo,
	}
}

func TestRun_GeneratesPendingArticle(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{response: "## 記事本文"}
	p := newTestPipeline(store, gen)

	summary, err := p.Run(context.Background(), "2025-W41", []types.Candidate{
		candidate("golang", "go", "sha1"),
	})
	require.NoError(t, err)

	assert.Equal(t, Summary{Processed: 1, Generated: 1}, summary)
	require.Len(t, store.inserted, 1)

	a := store.inserted[0]
	assert.Equal(t, db.StatusPending, a.Status)
	assert.Equal(t, "2025-W41", a.WeekKey)
	assert.Contains(t, a.Markdown, "## 記事本文")
	assert.Contains(t, a.Markdown, "https://github.com/golang/go", "footer must be appended")
	assert.Nil(t, a.ErrorMessage)
	assert.Equal(t, 1, gen.calls)
}

func TestRun_SkipsExistingRevision(t *testing.T) {
	store := newFakeStore()
	store.existing[dedupKey("golang", "go", "sha1")] = true
	gen := &fakeGenerator{response: "article"}
	p := newTestPipeline(store, gen)

	summary, err := p.Run(context.Background(), "2025-W41", []types.Candidate{
		candidate("golang", "go", "sha1"),
	})
	require.NoError(t, err)

	assert.Equal(t, Summary{Processed: 1, Skipped: 1}, summary)
	assert.Zero(t, gen.calls, "duplicate must not reach the generation service")
	assert.Empty(t, store.inserted)
}

func TestRun_RateLimitRetriesThenFails(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{errs: []error{
		&llm.RateLimitError{Message: "attempt 1"},
		&llm.RateLimitError{Message: "attempt 2"},
		&llm.RateLimitError{Message: "attempt 3"},
	}}
	p := newTestPipeline(store, gen)

	var delays []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	summary, err := p.Run(context.Background(), "2025-W41", []types.Candidate{
		candidate("golang", "go", "sha1"),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, gen.calls, "exactly the attempt budget")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
	assert.Equal(t, Summary{Processed: 1, Failed: 1}, summary)

	require.Len(t, store.inserted, 1)
	a := store.inserted[0]
	assert.Equal(t, db.StatusFailed, a.Status)
	require.NotNil(t, a.ErrorMessage)
	assert.Contains(t, *a.ErrorMessage, "3 attempt(s)")
	assert.Empty(t, a.Markdown)
}

func TestRun_RateLimitSucceedsOnSecondAttempt(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{
		errs:     []error{&llm.RateLimitError{Message: "attempt 1"}},
		response: "article body",
	}
	p := newTestPipeline(store, gen)

	summary, err := p.Run(context.Background(), "2025-W41", []types.Candidate{
		candidate("golang", "go", "sha1"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, Summary{Processed: 1, Generated: 1}, summary)
	assert.Equal(t, db.StatusPending, store.inserted[0].Status)
}

func TestRun_NonRetryableFailsImmediately(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{errs: []error{errors.New("invalid request")}}
	p := newTestPipeline(store, gen)

	summary, err := p.Run(context.Background(), "2025-W41", []types.Candidate{
		candidate("golang", "go", "sha1"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, Summary{Processed: 1, Failed: 1}, summary)
}

func TestRun_TimeoutIsRetryable(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{
		errs:     []error{fmt.Errorf("call: %w", context.DeadlineExceeded)},
		response: "article body",
	}
	p := newTestPipeline(store, gen)

	summary, err := p.Run(context.Background(), "2025-W41", []types.Candidate{
		candidate("golang", "go", "sha1"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, Summary{Processed: 1, Generated: 1}, summary)
}

func TestRun_EmptyArticleIsFailure(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{response: "   \n  "}
	p := newTestPipeline(store, gen)

	summary, err := p.Run(context.Background(), "2025-W41", []types.Candidate{
		candidate("golang", "go", "sha1"),
	})
	require.NoError(t, err)

	assert.Equal(t, Summary{Processed: 1, Failed: 1}, summary)
	require.NotNil(t, store.inserted[0].ErrorMessage)
	assert.Contains(t, *store.inserted[0].ErrorMessage, "empty article")
}

func TestRun_FailureDoesNotBlockLaterCandidates(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{
		errs:     []error{errors.New("model refused")},
		response: "article body",
	}
	p := newTestPipeline(store, gen)

	summary, err := p.Run(context.Background(), "2025-W41", []types.Candidate{
		candidate("golang", "go", "sha1"),
		candidate("rust-lang", "rust", "sha2"),
	})
	require.NoError(t, err)

	assert.Equal(t, Summary{Processed: 2, Generated: 1, Failed: 1}, summary)
	require.Len(t, store.inserted, 2)
	assert.Equal(t, db.StatusFailed, store.inserted[0].Status)
	assert.Equal(t, db.StatusPending, store.inserted[1].Status)
}

func TestRun_RerunIsIdempotent(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{response: "article body"}
	p := newTestPipeline(store, gen)

	candidates := []types.Candidate{candidate("golang", "go", "sha1")}

	_, err := p.Run(context.Background(), "2025-W41", candidates)
	require.NoError(t, err)

	summary, err := p.Run(context.Background(), "2025-W41", candidates)
	require.NoError(t, err)

	assert.Equal(t, Summary{Processed: 1, Skipped: 1}, summary)
	assert.Equal(t, 1, gen.calls, "re-run must not call the generation service")
	assert.Len(t, store.inserted, 1)
}

func TestRun_FailedRecordConsumesDedupSlot(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{errs: []error{errors.New("model refused")}}
	p := newTestPipeline(store, gen)

	candidates := []types.Candidate{candidate("golang", "go", "sha1")}

	_, err := p.Run(context.Background(), "2025-W41", candidates)
	require.NoError(t, err)

	summary, err := p.Run(context.Background(), "2025-W41", candidates)
	require.NoError(t, err)

	assert.Equal(t, Summary{Processed: 1, Skipped: 1}, summary)
	assert.Equal(t, 1, gen.calls, "failed revision must not be regenerated")
}

func TestRun_StoreErrorIsFatal(t *testing.T) {
	store := newFakeStore()
	store.failWith = errors.New("connection refused")
	gen := &fakeGenerator{response: "article body"}
	p := newTestPipeline(store, gen)

	_, err := p.Run(context.Background(), "2025-W41", []types.Candidate{
		candidate("golang", "go", "sha1"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRun_CancelledContextAborts(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{response: "article body"}
	p := newTestPipeline(store, gen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, "2025-W41", []types.Candidate{
		candidate("golang", "go", "sha1"),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, gen.calls)
}
