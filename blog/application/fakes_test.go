package application

import (
	"context"
	"fmt"
	"time"

	"github.com/dfryer1193/micropub/blog/domain"
)

type fakeDetector struct {
	kinds map[string]domain.PostKind
	err   error
}

func (f *fakeDetector) DetectKind(ctx context.Context, url string) (domain.PostKind, error) {
	if f.err != nil {
		return "", f.err
	}
	kind, ok := f.kinds[url]
	if !ok {
		return "", domain.NewError(domain.KindNotFound, "no page at %s", url)
	}
	return kind, nil
}

type updateCall struct {
	path     string
	message  string
	content  string
	revision string
}

// fakeStore keeps files in memory and records every write.
type fakeStore struct {
	files     map[string]string
	revisions map[string]string
	creates   []updateCall
	updates   []updateCall
	createErr error
	updateErr error
	next      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: map[string]string{}, revisions: map[string]string{}}
}

func (f *fakeStore) put(path, content string) {
	f.next++
	f.files[path] = content
	f.revisions[path] = fmt.Sprintf("sha%d", f.next)
}

func (f *fakeStore) Create(ctx context.Context, path, message string, content []byte) (*domain.CommitResult, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.creates = append(f.creates, updateCall{path: path, message: message, content: string(content)})
	f.put(path, string(content))
	return &domain.CommitResult{Path: path, Revision: f.revisions[path]}, nil
}

func (f *fakeStore) Read(ctx context.Context, path string) (*domain.StoredFile, error) {
	content, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("reading %s: %w", path, domain.ErrNotFound)
	}
	return &domain.StoredFile{Path: path, Content: []byte(content), Revision: f.revisions[path]}, nil
}

func (f *fakeStore) Update(ctx context.Context, path, message string, content []byte, revision string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, updateCall{path: path, message: message, content: string(content), revision: revision})
	f.put(path, string(content))
	return nil
}

type fakeJournal struct {
	commits []*domain.Commit
}

func (f *fakeJournal) Record(ctx context.Context, c *domain.Commit) error {
	f.commits = append(f.commits, c)
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type fixedID string

func (id fixedID) New() string { return string(id) }

func testTemplates() (PostTemplates, PostTemplates) {
	article := PostTemplates{
		Path: MustParseTemplate("_posts/{date:%Y-%m-%d}-{slug}.md"),
		URL:  MustParseTemplate("{site_url}/posts/{date:%Y/%m/%d}/{slug}"),
	}
	note := PostTemplates{
		Path: MustParseTemplate("_notes/{date:%Y-%m-%d}-{slug}.md"),
		URL:  MustParseTemplate("{site_url}/notes/{date:%Y/%m/%d}/{slug}"),
	}
	return article, note
}
