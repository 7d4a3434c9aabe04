package domain

import (
	"context"
	"time"
)

// PostKind distinguishes titled articles from untitled notes.
type PostKind string

const (
	KindNote    PostKind = "note"
	KindArticle PostKind = "article"
)

// StoredFile is a file read from the content repository along with the
// revision it was read at.
type StoredFile struct {
	Path     string
	Content  []byte
	Revision string
}

// CommitResult describes a file written to the content repository.
type CommitResult struct {
	Path     string
	Revision string
}

// PostStore reads and writes files in the content repository.
// Read returns an error wrapping ErrNotFound when path does not exist.
// Update must fail rather than overwrite when revision is stale.
type PostStore interface {
	Create(ctx context.Context, path string, message string, content []byte) (*CommitResult, error)
	Read(ctx context.Context, path string) (*StoredFile, error)
	Update(ctx context.Context, path string, message string, content []byte, revision string) error
}

// KindDetector inspects a published post to decide whether it is an article or a note.
type KindDetector interface {
	DetectKind(ctx context.Context, url string) (PostKind, error)
}

// Commit is one write made to the content repository on behalf of a client.
type Commit struct {
	Action    string
	Path      string
	URL       string
	Kind      PostKind
	Revision  string
	Published bool
	CreatedAt time.Time
}

// CommitJournal records the writes made to the content repository.
type CommitJournal interface {
	Record(ctx context.Context, c *Commit) error
}
