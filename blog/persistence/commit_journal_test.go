package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dfryer1193/micropub/blog/domain"
	"github.com/dfryer1193/micropub/shared/db/sqlite"
)

func setupTestJournal(t *testing.T) *SQLiteCommitJournal {
	t.Helper()
	database := sqlite.NewSQLiteDB(sqlite.NewSQLiteConfig(filepath.Join(t.TempDir(), "journal.db")))
	if err := database.Connect(); err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewCommitJournal(database.DB())
}

func TestSQLiteCommitJournal_Record(t *testing.T) {
	ctx := context.Background()
	journal := setupTestJournal(t)

	const (
		path = "_posts/2024-06-01-test-post.md"
		url  = "https://example.com/posts/2024/06/01/test-post"
	)
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	steps := []struct {
		name          string
		commit        *domain.Commit
		wantPublished bool
	}{
		{
			name: "create",
			commit: &domain.Commit{
				Action: "create", Path: path, URL: url, Kind: domain.KindArticle,
				Revision: "abc123", Published: true, CreatedAt: created,
			},
			wantPublished: true,
		},
		{
			name: "delete",
			commit: &domain.Commit{
				Action: "delete", Path: path, URL: url, Kind: domain.KindArticle,
				CreatedAt: created.Add(time.Hour),
			},
			wantPublished: false,
		},
		{
			name: "undelete",
			commit: &domain.Commit{
				Action: "undelete", Path: path, URL: url, Kind: domain.KindArticle,
				Published: true, CreatedAt: created.Add(2 * time.Hour),
			},
			wantPublished: true,
		},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			if err := journal.Record(ctx, step.commit); err != nil {
				t.Fatalf("Record() error = %v", err)
			}

			state, err := journal.GetPostState(ctx, path)
			if err != nil {
				t.Fatalf("GetPostState() error = %v", err)
			}
			if state.Published != step.wantPublished {
				t.Errorf("Published = %v, want %v", state.Published, step.wantPublished)
			}
			if state.Kind != domain.KindArticle {
				t.Errorf("Kind = %q, want %q", state.Kind, domain.KindArticle)
			}
			if !state.CreatedAt.Equal(created) {
				t.Errorf("CreatedAt = %v, want %v", state.CreatedAt, created)
			}
			if !state.UpdatedAt.Equal(step.commit.CreatedAt) {
				t.Errorf("UpdatedAt = %v, want %v", state.UpdatedAt, step.commit.CreatedAt)
			}
		})
	}

	commits, err := journal.ListRecentCommits(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentCommits() error = %v", err)
	}
	if len(commits) != 3 {
		t.Fatalf("got %d commits, want 3", len(commits))
	}
	for i, want := range []string{"undelete", "delete", "create"} {
		if commits[i].Action != want {
			t.Errorf("commits[%d].Action = %q, want %q", i, commits[i].Action, want)
		}
	}
	if commits[2].Revision != "abc123" {
		t.Errorf("create revision = %q, want %q", commits[2].Revision, "abc123")
	}
}

func TestSQLiteCommitJournal_RecordInvalid(t *testing.T) {
	journal := setupTestJournal(t)

	tests := []struct {
		name   string
		commit *domain.Commit
	}{
		{name: "nil commit"},
		{name: "empty path", commit: &domain.Commit{Action: "create"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := journal.Record(context.Background(), tt.commit); err == nil {
				t.Error("Record() expected error")
			}
		})
	}
}

func TestSQLiteCommitJournal_GetPostStateNotFound(t *testing.T) {
	journal := setupTestJournal(t)

	_, err := journal.GetPostState(context.Background(), "_notes/missing.md")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetPostState() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteCommitJournal_MediaKeepsEmptyKind(t *testing.T) {
	ctx := context.Background()
	journal := setupTestJournal(t)

	err := journal.Record(ctx, &domain.Commit{
		Action:    "media",
		Path:      "assets/images/1717243200_abcd1234.jpg",
		URL:       "https://example.com/assets/images/1717243200_abcd1234.jpg",
		Published: true,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	state, err := journal.GetPostState(ctx, "assets/images/1717243200_abcd1234.jpg")
	if err != nil {
		t.Fatalf("GetPostState() error = %v", err)
	}
	if state.Kind != "" {
		t.Errorf("Kind = %q, want empty", state.Kind)
	}
}
