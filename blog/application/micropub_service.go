package application

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dfryer1193/micropub/blog/domain"
	"github.com/rs/zerolog/log"
)

const publishedKey = "published"

// MicropubService serves the create, delete, undelete and media flows on top
// of a PostStore.
type MicropubService struct {
	store    domain.PostStore
	paths    *PathDeriver
	journal  domain.CommitJournal
	clock    Clock
	ids      IDGenerator
	siteURL  string
	mediaDir string
}

// ServiceOption configures optional MicropubService collaborators.
type ServiceOption func(*MicropubService)

// WithJournal records every successful commit in j.
func WithJournal(j domain.CommitJournal) ServiceOption {
	return func(s *MicropubService) {
		s.journal = j
	}
}

// WithClock replaces the wall clock used to date new posts and media.
func WithClock(c Clock) ServiceOption {
	return func(s *MicropubService) {
		s.clock = c
	}
}

// WithIDGenerator replaces the random id source used for media file names.
func WithIDGenerator(g IDGenerator) ServiceOption {
	return func(s *MicropubService) {
		s.ids = g
	}
}

// NewMicropubService creates a MicropubService. Media files are stored under
// mediaDir and served from siteURL.
func NewMicropubService(store domain.PostStore, paths *PathDeriver, siteURL string, mediaDir string, opts ...ServiceOption) *MicropubService {
	s := &MicropubService{
		store:    store,
		paths:    paths,
		clock:    RealClock{},
		ids:      UUIDGenerator{},
		siteURL:  strings.TrimSuffix(siteURL, "/"),
		mediaDir: strings.Trim(mediaDir, "/"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome is the terminal state of a handled Micropub request.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeDeleted   Outcome = "deleted"
	OutcomeUndeleted Outcome = "undeleted"
)

// Result reports what a Micropub request did. URL is set for created posts.
type Result struct {
	Outcome Outcome
	URL     string
}

// Handle dispatches a normalized request to the create, delete or undelete flow.
func (s *MicropubService) Handle(ctx context.Context, req *MicropubRequest) (*Result, error) {
	switch {
	case req.Entry != nil:
		url, err := s.Create(ctx, req.Entry)
		if err != nil {
			return nil, err
		}
		return &Result{Outcome: OutcomeCreated, URL: url}, nil
	case req.Action != nil:
		switch req.Action.Action {
		case domain.ActionDelete:
			if err := s.Delete(ctx, req.Action.URL); err != nil {
				return nil, err
			}
			return &Result{Outcome: OutcomeDeleted}, nil
		case domain.ActionUndelete:
			if err := s.Undelete(ctx, req.Action.URL); err != nil {
				return nil, err
			}
			return &Result{Outcome: OutcomeUndeleted}, nil
		}
		return nil, domain.NewError(domain.KindUnsupportedAction, "action %q is not supported", req.Action.Action)
	default:
		return nil, domain.NewError(domain.KindInvalidRequest, "request carries neither an entry nor an action")
	}
}

// Create commits a new post and returns its public URL.
func (s *MicropubService) Create(ctx context.Context, entry *domain.Entry) (string, error) {
	now := s.clock.Now()
	doc := ToDocument(entry)
	post := s.paths.Derive(doc.Frontmatter, now)

	content, err := doc.Serialize()
	if err != nil {
		return "", fmt.Errorf("serializing %s: %w", post.Path, err)
	}

	message := fmt.Sprintf("Add %s: %s", post.Kind, post.Slug)
	res, err := s.store.Create(ctx, post.Path, message, content)
	if err != nil {
		return "", err
	}

	log.Info().Str("path", res.Path).Str("url", post.URL).Str("kind", string(post.Kind)).Msg("Created post")
	s.record(ctx, &domain.Commit{
		Action:    "create",
		Path:      res.Path,
		URL:       post.URL,
		Kind:      post.Kind,
		Revision:  res.Revision,
		Published: true,
		CreatedAt: now,
	})
	return post.URL, nil
}

// Delete marks the post at url as unpublished.
func (s *MicropubService) Delete(ctx context.Context, url string) error {
	return s.setPublished(ctx, url, false)
}

// Undelete removes the unpublished mark from the post at url.
func (s *MicropubService) Undelete(ctx context.Context, url string) error {
	return s.setPublished(ctx, url, true)
}

func (s *MicropubService) setPublished(ctx context.Context, url string, published bool) error {
	post, err := s.paths.Resolve(ctx, url)
	if err != nil {
		return err
	}

	file, err := s.store.Read(ctx, post.Path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewError(domain.KindNotFound, "no post found for %s", url)
		}
		return err
	}

	doc, err := ParseDocument(file.Content)
	if err != nil {
		return domain.NewError(domain.KindStoreError, "%s has malformed frontmatter: %v", post.Path, err)
	}

	action := "delete"
	deleted := isUnpublished(doc.Frontmatter)
	if published {
		action = "undelete"
		if !deleted {
			return domain.NewError(domain.KindNotDeleted, "%s is not deleted", url)
		}
		doc.Frontmatter.Delete(publishedKey)
	} else {
		if deleted {
			return domain.NewError(domain.KindAlreadyDeleted, "%s is already deleted", url)
		}
		doc.Frontmatter.Set(publishedKey, false)
	}

	content, err := doc.Serialize()
	if err != nil {
		return fmt.Errorf("serializing %s: %w", post.Path, err)
	}

	message := fmt.Sprintf("%s %s: %s", strings.ToUpper(action[:1])+action[1:], post.Kind, post.Slug)
	if err := s.store.Update(ctx, post.Path, message, content, file.Revision); err != nil {
		return err
	}

	log.Info().Str("path", post.Path).Str("url", url).Str("action", action).Msg("Updated post")
	s.record(ctx, &domain.Commit{
		Action:    action,
		Path:      post.Path,
		URL:       url,
		Kind:      post.Kind,
		Published: published,
		CreatedAt: s.clock.Now(),
	})
	return nil
}

func isUnpublished(fm *Frontmatter) bool {
	v, ok := fm.Get(publishedKey)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && !b
}

// MediaFileName returns the stored name of an upload: the unix timestamp,
// an 8-character id and the original extension.
func MediaFileName(ts int64, id string, original string) string {
	return strconv.FormatInt(ts, 10) + "_" + id + filepath.Ext(original)
}

// UploadMedia commits an uploaded file under the media directory and returns its public URL.
func (s *MicropubService) UploadMedia(ctx context.Context, filename string, content []byte) (string, error) {
	now := s.clock.Now()
	name := MediaFileName(now.Unix(), s.ids.New(), filename)
	p := path.Join(s.mediaDir, name)

	res, err := s.store.Create(ctx, p, "Upload media: "+name, content)
	if err != nil {
		return "", err
	}

	url := s.siteURL + "/" + strings.TrimPrefix(res.Path, "/")
	log.Info().Str("path", res.Path).Str("original", filename).Msg("Uploaded media")
	s.record(ctx, &domain.Commit{
		Action:    "media",
		Path:      res.Path,
		URL:       url,
		Revision:  res.Revision,
		Published: true,
		CreatedAt: now,
	})
	return url, nil
}

func (s *MicropubService) record(ctx context.Context, c *domain.Commit) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, c); err != nil {
		log.Error().Err(err).Str("path", c.Path).Str("action", c.Action).Msg("Failed to record commit")
	}
}
