package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dfryer1193/micropub/blog/domain"
	"github.com/dfryer1193/micropub/shared/db"
)

var _ domain.CommitJournal = (*SQLiteCommitJournal)(nil)

// SQLiteCommitJournal implements domain.CommitJournal using SQL database (SQLite).
// Every commit is appended to the commits log; the posts table tracks the
// latest known state of each path.
type SQLiteCommitJournal struct {
	db *sql.DB
}

// NewCommitJournal creates a SQLiteCommitJournal from a standard sql.DB
func NewCommitJournal(db *sql.DB) *SQLiteCommitJournal {
	return &SQLiteCommitJournal{
		db: db,
	}
}

const insertCommitQuery = `
	INSERT INTO commits (action, path, url, kind, revision, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
`

const upsertPostQuery = `
	INSERT INTO posts (path, url, kind, published, updated_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		url = excluded.url,
		kind = CASE WHEN excluded.kind = '' THEN posts.kind ELSE excluded.kind END,
		published = excluded.published,
		updated_at = excluded.updated_at
`

// Record appends c to the log and updates the post state in one transaction.
func (j *SQLiteCommitJournal) Record(ctx context.Context, c *domain.Commit) error {
	if c == nil {
		return fmt.Errorf("commit cannot be nil")
	}
	if c.Path == "" {
		return fmt.Errorf("commit path cannot be empty")
	}

	createdAt := c.CreatedAt.UTC()
	if c.CreatedAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return db.RunInTransaction(ctx, j.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, j.db)
		_, err := executor.ExecContext(txCtx, insertCommitQuery,
			c.Action,
			c.Path,
			c.URL,
			string(c.Kind),
			c.Revision,
			createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert commit: %w", err)
		}

		_, err = executor.ExecContext(txCtx, upsertPostQuery,
			c.Path,
			c.URL,
			string(c.Kind),
			c.Published,
			createdAt,
			createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert post state: %w", err)
		}
		return nil
	})
}

// PostState is the latest journalled state of a stored file.
type PostState struct {
	Path      string
	URL       string
	Kind      domain.PostKind
	Published bool
	UpdatedAt time.Time
	CreatedAt time.Time
}

const getPostStateQuery = `
	SELECT path, url, kind, published, updated_at, created_at
	FROM posts
	WHERE path = ?
`

// GetPostState returns the journalled state of path.
func (j *SQLiteCommitJournal) GetPostState(ctx context.Context, path string) (*PostState, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	var (
		state PostState
		kind  string
	)
	err := j.db.QueryRowContext(ctx, getPostStateQuery, path).Scan(
		&state.Path,
		&state.URL,
		&kind,
		&state.Published,
		&state.UpdatedAt,
		&state.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post state for %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post state: %w", err)
	}
	state.Kind = domain.PostKind(kind)
	return &state, nil
}

const listCommitsQuery = `
	SELECT action, path, url, kind, revision, created_at
	FROM commits
	ORDER BY created_at DESC, id DESC
	LIMIT ?
`

// ListRecentCommits returns up to limit commits, newest first.
func (j *SQLiteCommitJournal) ListRecentCommits(ctx context.Context, limit int) ([]*domain.Commit, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, listCommitsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list commits: %w", err)
	}
	defer rows.Close()

	commits := make([]*domain.Commit, 0)
	for rows.Next() {
		var (
			c    domain.Commit
			kind string
		)
		if err := rows.Scan(&c.Action, &c.Path, &c.URL, &kind, &c.Revision, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan commit row: %w", err)
		}
		c.Kind = domain.PostKind(kind)
		commits = append(commits, &c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commit rows: %w", err)
	}
	return commits, nil
}
