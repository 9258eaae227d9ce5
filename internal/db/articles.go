package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations, used to treat duplicate inserts as the dedup case.
const uniqueViolation = "23505"

// ArticleExists reports whether an article for the given README revision
// is already recorded, regardless of its status.
func (db *DB) ArticleExists(ctx context.Context, owner, repo, readmeSHA string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (
		    SELECT 1 FROM articles WHERE owner = $1 AND repo = $2 AND readme_sha = $3
		 )`,
		owner, repo, readmeSHA,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check article existence: %w", err)
	}
	return exists, nil
}

// InsertArticle inserts a new article row. It returns the new row's ID,
// or uuid.Nil with inserted=false when the (owner, repo, readme_sha)
// revision is already recorded. A concurrent insert losing the race is
// reported the same way as a pre-existing row.
func (db *DB) InsertArticle(ctx context.Context, a *Article) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO articles (
		    week_key, owner, repo, readme_sha, stars, license, last_push,
		    readme_content, markdown, status, error_message
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		a.WeekKey, a.Owner, a.Repo, a.ReadmeSHA, a.Stars, a.License, a.LastPush,
		a.ReadmeContent, a.Markdown, a.Status, a.ErrorMessage,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("failed to insert article: %w", err)
	}
	return id, true, nil
}

// GetPendingArticles returns pending articles ordered oldest-first.
// A limit of 0 means no cap (bulk mode).
func (db *DB) GetPendingArticles(ctx context.Context, limit int) ([]*Article, error) {
	query := `SELECT id, week_key, owner, repo, readme_sha, stars, license, last_push,
	                 readme_content, markdown, status, error_message, created_at, posted_at
	          FROM articles WHERE status = 'pending' ORDER BY created_at ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending articles: %w", err)
	}
	defer rows.Close()

	var articles []*Article
	for rows.Next() {
		var a Article
		err := rows.Scan(&a.ID, &a.WeekKey, &a.Owner, &a.Repo, &a.ReadmeSHA,
			&a.Stars, &a.License, &a.LastPush, &a.ReadmeContent, &a.Markdown,
			&a.Status, &a.ErrorMessage, &a.CreatedAt, &a.PostedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending articles: %w", err)
	}
	return articles, nil
}

// GetArticle retrieves an article by ID, or nil when it does not exist.
func (db *DB) GetArticle(ctx context.Context, id uuid.UUID) (*Article, error) {
	var a Article
	err := db.pool.QueryRow(ctx,
		`SELECT id, week_key, owner, repo, readme_sha, stars, license, last_push,
		        readme_content, markdown, status, error_message, created_at, posted_at
		 FROM articles WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.WeekKey, &a.Owner, &a.Repo, &a.ReadmeSHA,
		&a.Stars, &a.License, &a.LastPush, &a.ReadmeContent, &a.Markdown,
		&a.Status, &a.ErrorMessage, &a.CreatedAt, &a.PostedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return &a, nil
}

// MarkPosted transitions a pending article to a terminal state and stamps
// posted_at. The WHERE status = 'pending' clause makes the claim atomic:
// the transition happens at most once, and claimed=false means another
// attempt (or an earlier run) already moved the row.
func (db *DB) MarkPosted(ctx context.Context, id uuid.UUID, status ArticleStatus, errorMessage *string, postedAt time.Time) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("cannot mark article with non-terminal status %q", status)
	}
	if status == StatusFailed && errorMessage == nil {
		return false, fmt.Errorf("failed status requires an error message")
	}
	if status == StatusSuccess {
		errorMessage = nil
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE articles SET status = $1, error_message = $2, posted_at = $3
		 WHERE id = $4 AND status = 'pending'`,
		status, errorMessage, postedAt, id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update article status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// StatusCounts returns the number of articles per status, for operator
// reporting.
func (db *DB) StatusCounts(ctx context.Context) (map[ArticleStatus]int, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM articles GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}
	defer rows.Close()

	counts := make(map[ArticleStatus]int)
	for rows.Next() {
		var status ArticleStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read status counts: %w", err)
	}
	return counts, nil
}
