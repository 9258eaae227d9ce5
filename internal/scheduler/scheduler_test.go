package scheduler

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/trendblog/internal/db"
)

// fakeStore keeps articles in memory and enforces the claim semantics.
type fakeStore struct {
	articles map[uuid.UUID]*db.Article
	selErr   error
	markErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{articles: make(map[uuid.UUID]*db.Article)}
}

func (s *fakeStore) add(createdAt time.Time) *db.Article {
	a := &db.Article{
		ID:        uuid.New(),
		Owner:     "owner",
		Repo:      "repo-" + createdAt.Format("150405.000"),
		Markdown:  "## body",
		Status:    db.StatusPending,
		CreatedAt: createdAt,
	}
	s.articles[a.ID] = a
	return a
}

func (s *fakeStore) GetPendingArticles(_ context.Context, limit int) ([]*db.Article, error) {
	if s.selErr != nil {
		return nil, s.selErr
	}
	var pending []*db.Article
	for _, a := range s.articles {
		if a.Status == db.StatusPending {
			pending = append(pending, a)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *fakeStore) MarkPosted(_ context.Context, id uuid.UUID, status db.ArticleStatus, errorMessage *string, postedAt time.Time) (bool, error) {
	if s.markErr != nil {
		return false, s.markErr
	}
	a, ok := s.articles[id]
	if !ok || a.Status != db.StatusPending {
		return false, nil
	}
	a.Status = status
	a.ErrorMessage = errorMessage
	a.PostedAt = &postedAt
	return true, nil
}

func (s *fakeStore) pendingCount() int {
	n := 0
	for _, a := range s.articles {
		if a.Status == db.StatusPending {
			n++
		}
	}
	return n
}

// fakePublisher fails for the IDs in failIDs and records dispatch order.
type fakePublisher struct {
	failIDs map[uuid.UUID]error
	order   []uuid.UUID
}

func (p *fakePublisher) Publish(_ context.Context, a *db.Article) error {
	p.order = append(p.order, a.ID)
	if err, ok := p.failIDs[a.ID]; ok {
		return err
	}
	return nil
}

func newTestScheduler(store ArticleStore, pub Publisher, batchSize int) *Scheduler {
	s := New(store, pub, Options{BatchSize: batchSize, Interval: -1})
	s.sleep = func(context.Context, time.Duration) error { return nil }
	s.now = func() time.Time { return time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestRun_LimitedPublishesOldestFirst(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	a1 := store.add(base)
	a2 := store.add(base.Add(time.Hour))
	a3 := store.add(base.Add(2 * time.Hour))

	pub := &fakePublisher{}
	s := newTestScheduler(store, pub, 2)

	summary, err := s.Run(context.Background(), ModeLimited)
	require.NoError(t, err)

	assert.Equal(t, Summary{Attempted: 2, Succeeded: 2}, summary)
	assert.Equal(t, []uuid.UUID{a1.ID, a2.ID}, pub.order)
	assert.Equal(t, db.StatusSuccess, store.articles[a1.ID].Status)
	assert.Equal(t, db.StatusSuccess, store.articles[a2.ID].Status)
	assert.Equal(t, db.StatusPending, store.articles[a3.ID].Status, "newest stays pending")
}

func TestRun_BulkDrainsAllPending(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		store.add(base.Add(time.Duration(i) * time.Minute))
	}

	s := newTestScheduler(store, &fakePublisher{}, 2)

	summary, err := s.Run(context.Background(), ModeBulk)
	require.NoError(t, err)

	assert.Equal(t, Summary{Attempted: 5, Succeeded: 5}, summary)
	assert.Zero(t, store.pendingCount(), "bulk run must leave no pending articles")
}

func TestRun_PublishFailureDoesNotAbortBatch(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	a1 := store.add(base)
	a2 := store.add(base.Add(time.Hour))

	pub := &fakePublisher{failIDs: map[uuid.UUID]error{
		a1.ID: errors.New("endpoint returned 502"),
	}}
	s := newTestScheduler(store, pub, 10)

	summary, err := s.Run(context.Background(), ModeLimited)
	require.NoError(t, err)

	assert.Equal(t, Summary{Attempted: 2, Succeeded: 1, Failed: 1}, summary)

	failed := store.articles[a1.ID]
	assert.Equal(t, db.StatusFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Contains(t, *failed.ErrorMessage, "502")
	require.NotNil(t, failed.PostedAt, "posted_at is stamped on terminal failure too")

	assert.Equal(t, db.StatusSuccess, store.articles[a2.ID].Status)
}

func TestRun_FailedArticleNotRetriedByNextRun(t *testing.T) {
	store := newFakeStore()
	a := store.add(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))

	pub := &fakePublisher{failIDs: map[uuid.UUID]error{a.ID: errors.New("boom")}}
	s := newTestScheduler(store, pub, 2)

	_, err := s.Run(context.Background(), ModeLimited)
	require.NoError(t, err)

	summary, err := s.Run(context.Background(), ModeLimited)
	require.NoError(t, err)

	assert.Equal(t, Summary{}, summary, "terminal records are never re-selected")
	assert.Len(t, pub.order, 1)
}

func TestRun_NoPendingArticles(t *testing.T) {
	s := newTestScheduler(newFakeStore(), &fakePublisher{}, 2)

	summary, err := s.Run(context.Background(), ModeBulk)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
}

func TestRun_StoreSelectionErrorIsFatal(t *testing.T) {
	store := newFakeStore()
	store.selErr = errors.New("connection refused")
	s := newTestScheduler(store, &fakePublisher{}, 2)

	_, err := s.Run(context.Background(), ModeLimited)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRun_MarkErrorIsFatal(t *testing.T) {
	store := newFakeStore()
	store.add(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))
	store.markErr = errors.New("deadlock detected")
	s := newTestScheduler(store, &fakePublisher{}, 2)

	_, err := s.Run(context.Background(), ModeLimited)
	require.Error(t, err)
}

func TestRun_CancelledContextAborts(t *testing.T) {
	store := newFakeStore()
	store.add(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))
	s := newTestScheduler(store, &fakePublisher{}, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, ModeLimited)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_Defaults(t *testing.T) {
	s := New(newFakeStore(), &fakePublisher{}, Options{})
	assert.Equal(t, 2, s.opts.BatchSize)
	assert.Equal(t, 2*time.Second, s.opts.Interval)
}
