package application

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dfryer1193/micropub/blog/domain"
)

const (
	articleURL  = "https://example.com/posts/2024/06/01/test-post"
	articlePath = "_posts/2024-06-01-test-post.md"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, store *fakeStore, journal *fakeJournal) *MicropubService {
	t.Helper()
	d := newTestDeriver(t, &fakeDetector{kinds: map[string]domain.PostKind{
		articleURL: domain.KindArticle,
	}})
	return NewMicropubService(store, d, testSiteURL+"/", "/assets/images/",
		WithClock(fixedClock{now: testNow}),
		WithIDGenerator(fixedID("abcd1234")),
		WithJournal(journal),
	)
}

func TestMicropubService_CreateNote(t *testing.T) {
	store := newFakeStore()
	journal := &fakeJournal{}
	s := newTestService(t, store, journal)

	req, err := NormalizeRequest("application/json", []byte(`{"type":["h-entry"],"properties":{"content":["hello"]}}`))
	if err != nil {
		t.Fatalf("NormalizeRequest() error = %v", err)
	}

	result, err := s.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if result.Outcome != OutcomeCreated {
		t.Errorf("Outcome = %q, want %q", result.Outcome, OutcomeCreated)
	}
	if result.URL != "https://example.com/notes/2024/06/01/1717243200" {
		t.Errorf("URL = %q", result.URL)
	}

	if len(store.creates) != 1 {
		t.Fatalf("got %d creates, want 1", len(store.creates))
	}
	created := store.creates[0]
	if created.path != "_notes/2024-06-01-1717243200.md" {
		t.Errorf("path = %q", created.path)
	}
	if created.message != "Add note: 1717243200" {
		t.Errorf("message = %q", created.message)
	}
	if created.content != "---\ntype: entry\n---\nhello" {
		t.Errorf("content = %q", created.content)
	}

	if len(journal.commits) != 1 || journal.commits[0].Action != "create" || !journal.commits[0].Published {
		t.Errorf("journal = %+v", journal.commits)
	}
}

func TestMicropubService_CreateArticle(t *testing.T) {
	store := newFakeStore()
	s := newTestService(t, store, &fakeJournal{})

	url, err := s.Create(context.Background(), entryFromJSON(t, `{"type":["h-entry"],"properties":{"name":["Test Post"],"content":["Body"]}}`))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if url != articleURL {
		t.Errorf("URL = %q, want %q", url, articleURL)
	}
	if store.creates[0].path != articlePath {
		t.Errorf("path = %q, want %q", store.creates[0].path, articlePath)
	}
	if store.creates[0].message != "Add article: test-post" {
		t.Errorf("message = %q", store.creates[0].message)
	}
}

func TestMicropubService_UnsluggableTitleRoundTrip(t *testing.T) {
	const url = "https://example.com/posts/2024/06/01/1717243200"
	store := newFakeStore()
	// The published page carries the name, so it reads back as an article.
	d := newTestDeriver(t, &fakeDetector{kinds: map[string]domain.PostKind{url: domain.KindArticle}})
	s := NewMicropubService(store, d, testSiteURL, "assets/images", WithClock(fixedClock{now: testNow}))

	req, err := NormalizeRequest("application/x-www-form-urlencoded", []byte("name=%3F%3F%3F&content=hi"))
	if err != nil {
		t.Fatalf("NormalizeRequest() error = %v", err)
	}
	result, err := s.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if result.URL != url {
		t.Fatalf("URL = %q, want %q", result.URL, url)
	}
	if got := store.creates[0].path; got != "_posts/2024-06-01-1717243200.md" {
		t.Errorf("path = %q", got)
	}

	if err := s.Delete(context.Background(), url); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(store.updates) != 1 {
		t.Fatalf("got %d updates, want 1", len(store.updates))
	}
	if !strings.Contains(store.updates[0].content, "published: false") {
		t.Errorf("content = %q", store.updates[0].content)
	}
}

func TestMicropubService_CreateStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.createErr = &domain.StoreError{Status: http.StatusUnprocessableEntity, Message: "sha wasn't supplied"}
	journal := &fakeJournal{}
	s := newTestService(t, store, journal)

	_, err := s.Create(context.Background(), entryFromJSON(t, `{"type":["h-entry"],"properties":{"content":["x"]}}`))
	var se *domain.StoreError
	if !errors.As(err, &se) {
		t.Fatalf("Create() error = %v, want StoreError", err)
	}
	if len(journal.commits) != 0 {
		t.Error("failed create must not be journalled")
	}
}

func TestMicropubService_DeleteAndUndelete(t *testing.T) {
	tests := []struct {
		name        string
		stored      string
		action      domain.Action
		wantKind    domain.ErrorKind
		wantContent string
		wantMessage string
	}{
		{
			name:        "delete published post",
			stored:      "---\ntype: entry\ntitle: Test Post\n---\nBody\n",
			action:      domain.ActionDelete,
			wantContent: "---\ntype: entry\ntitle: Test Post\npublished: false\n---\nBody\n",
			wantMessage: "Delete article: test-post",
		},
		{
			name:        "delete post marked published true",
			stored:      "---\ntype: entry\npublished: true\ntitle: Test Post\n---\nBody\n",
			action:      domain.ActionDelete,
			wantContent: "---\ntype: entry\npublished: false\ntitle: Test Post\n---\nBody\n",
			wantMessage: "Delete article: test-post",
		},
		{
			name:     "delete already deleted post",
			stored:   "---\ntype: entry\ntitle: Test Post\npublished: false\n---\nBody\n",
			action:   domain.ActionDelete,
			wantKind: domain.KindAlreadyDeleted,
		},
		{
			name:        "undelete removes the key",
			stored:      "---\ntype: entry\npublished: false\ntitle: Test Post\n---\nBody\n",
			action:      domain.ActionUndelete,
			wantContent: "---\ntype: entry\ntitle: Test Post\n---\nBody\n",
			wantMessage: "Undelete article: test-post",
		},
		{
			name:     "undelete published post",
			stored:   "---\ntype: entry\ntitle: Test Post\n---\nBody\n",
			action:   domain.ActionUndelete,
			wantKind: domain.KindNotDeleted,
		},
		{
			name:     "undelete post marked published true",
			stored:   "---\ntype: entry\npublished: true\n---\nBody\n",
			action:   domain.ActionUndelete,
			wantKind: domain.KindNotDeleted,
		},
		{
			name:        "crlf file keeps a single frontmatter block",
			stored:      "---\r\ntype: entry\r\ntitle: Test Post\r\n---\r\nBody\r\n",
			action:      domain.ActionDelete,
			wantContent: "---\ntype: entry\ntitle: Test Post\npublished: false\n---\nBody\r\n",
			wantMessage: "Delete article: test-post",
		},
		{
			name:        "file without frontmatter",
			stored:      "Body only\n",
			action:      domain.ActionDelete,
			wantContent: "---\npublished: false\n---\nBody only\n",
			wantMessage: "Delete article: test-post",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.put(articlePath, tt.stored)
			revision := store.revisions[articlePath]
			journal := &fakeJournal{}
			s := newTestService(t, store, journal)

			result, err := s.Handle(context.Background(), &MicropubRequest{
				Action: &domain.ActionRequest{Action: tt.action, URL: articleURL},
			})

			if tt.wantKind != "" {
				var e *domain.Error
				if !errors.As(err, &e) || e.Kind != tt.wantKind {
					t.Fatalf("Handle() error = %v, want kind %s", err, tt.wantKind)
				}
				if len(store.updates) != 0 {
					t.Errorf("got %d writes, want none", len(store.updates))
				}
				if len(journal.commits) != 0 {
					t.Errorf("got %d journal entries, want none", len(journal.commits))
				}
				return
			}

			if err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if result.URL != "" {
				t.Errorf("URL = %q, want empty", result.URL)
			}
			if len(store.updates) != 1 {
				t.Fatalf("got %d writes, want 1", len(store.updates))
			}
			update := store.updates[0]
			if update.content != tt.wantContent {
				t.Errorf("content =\n%s\nwant\n%s", update.content, tt.wantContent)
			}
			if update.revision != revision {
				t.Errorf("revision = %q, want the revision that was read (%q)", update.revision, revision)
			}
			if update.message != tt.wantMessage {
				t.Errorf("message = %q, want %q", update.message, tt.wantMessage)
			}
			if len(journal.commits) != 1 || journal.commits[0].Published != (tt.action == domain.ActionUndelete) {
				t.Errorf("journal = %+v", journal.commits)
			}
		})
	}
}

func TestMicropubService_DeleteErrors(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		setup    func(store *fakeStore)
		wantKind domain.ErrorKind
	}{
		{
			name:     "no file behind the url",
			url:      articleURL,
			wantKind: domain.KindNotFound,
		},
		{
			name:     "url on another site",
			url:      "https://evil.example/posts/2024/06/01/test-post",
			wantKind: domain.KindInvalidURL,
		},
		{
			name: "conflicting update",
			url:  articleURL,
			setup: func(store *fakeStore) {
				store.put(articlePath, "---\ntype: entry\n---\n")
				store.updateErr = &domain.StoreError{Status: http.StatusConflict, Message: "does not match"}
			},
			wantKind: domain.KindStoreError,
		},
		{
			name: "malformed frontmatter",
			url:  articleURL,
			setup: func(store *fakeStore) {
				store.put(articlePath, "---\n- a\n---\n")
			},
			wantKind: domain.KindStoreError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			if tt.setup != nil {
				tt.setup(store)
			}
			s := newTestService(t, store, &fakeJournal{})

			err := s.Delete(context.Background(), tt.url)
			if got := domain.AsError(err); err == nil || got.Kind != tt.wantKind {
				t.Errorf("Delete() error = %v, want kind %s", err, tt.wantKind)
			}
		})
	}
}

func TestMicropubService_HandleEmptyRequest(t *testing.T) {
	s := newTestService(t, newFakeStore(), &fakeJournal{})
	_, err := s.Handle(context.Background(), &MicropubRequest{})
	if got := domain.AsError(err); err == nil || got.Kind != domain.KindInvalidRequest {
		t.Errorf("Handle() error = %v, want invalid_request", err)
	}
}

func TestMediaFileName(t *testing.T) {
	tests := []struct {
		original string
		want     string
	}{
		{"cat.jpg", "1717243200_abcd1234.jpg"},
		{"archive.tar.gz", "1717243200_abcd1234.gz"},
		{"README", "1717243200_abcd1234"},
	}
	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			if got := MediaFileName(testNow.Unix(), "abcd1234", tt.original); got != tt.want {
				t.Errorf("MediaFileName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMicropubService_UploadMedia(t *testing.T) {
	store := newFakeStore()
	journal := &fakeJournal{}
	s := newTestService(t, store, journal)

	url, err := s.UploadMedia(context.Background(), "cat.JPG", []byte("\xff\xd8\xff"))
	if err != nil {
		t.Fatalf("UploadMedia() error = %v", err)
	}
	if url != "https://example.com/assets/images/1717243200_abcd1234.JPG" {
		t.Errorf("URL = %q", url)
	}
	if len(store.creates) != 1 {
		t.Fatalf("got %d creates, want 1", len(store.creates))
	}
	if got := store.creates[0]; got.path != "assets/images/1717243200_abcd1234.JPG" || !strings.HasPrefix(got.message, "Upload media: ") {
		t.Errorf("create = %+v", got)
	}
	if got := store.creates[0].content; got != "\xff\xd8\xff" {
		t.Errorf("content was altered: %q", got)
	}
	if len(journal.commits) != 1 || journal.commits[0].Action != "media" {
		t.Errorf("journal = %+v", journal.commits)
	}
}

func TestUUIDGenerator(t *testing.T) {
	id := UUIDGenerator{}.New()
	if len(id) != 8 {
		t.Errorf("len(New()) = %d, want 8", len(id))
	}
	if strings.Trim(id, "0123456789abcdef") != "" {
		t.Errorf("New() = %q, want lowercase hex", id)
	}
}
