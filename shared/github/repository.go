package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dfryer1193/micropub/blog/domain"
	"github.com/google/go-github/v75/github"
)

var _ domain.PostStore = (*GithubPostStore)(nil)

// CommitAuthor is the identity recorded on commits made by the store.
type CommitAuthor struct {
	Name  string
	Email string
}

// GithubPostStore is an implementation of domain.PostStore that uses the GitHub contents API.
type GithubPostStore struct {
	client  *github.Client
	owner   string
	gitRepo string
	branch  string
	author  *CommitAuthor
}

// Option configures a GithubPostStore.
type Option func(*GithubPostStore)

// WithBranch makes every read and write target branch instead of the repository default.
func WithBranch(branch string) Option {
	return func(g *GithubPostStore) {
		g.branch = branch
	}
}

// WithCommitAuthor sets the committer on every write.
func WithCommitAuthor(name, email string) Option {
	return func(g *GithubPostStore) {
		if name != "" && email != "" {
			g.author = &CommitAuthor{Name: name, Email: email}
		}
	}
}

// NewGithubPostStore creates a new GithubPostStore.
func NewGithubPostStore(client *github.Client, owner string, gitRepo string, opts ...Option) *GithubPostStore {
	g := &GithubPostStore{
		client:  client,
		owner:   owner,
		gitRepo: gitRepo,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewClient builds a GitHub client authenticated with token.
func NewClient(httpClient *http.Client, token string) *github.Client {
	client := github.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return client
}

// Create commits a new file at path.
func (g *GithubPostStore) Create(ctx context.Context, path string, message string, content []byte) (*domain.CommitResult, error) {
	op := fmt.Sprintf("creating file %s", path)
	resp, _, err := g.client.Repositories.CreateFile(ctx, g.owner, g.gitRepo, path, g.fileOptions(message, content, ""))
	if err != nil {
		return nil, handleGithubError(op, err)
	}

	result := &domain.CommitResult{Path: path}
	if resp != nil {
		if resp.Content != nil && resp.Content.GetPath() != "" {
			result.Path = resp.Content.GetPath()
		}
		result.Revision = resp.Commit.GetSHA()
	}
	return result, nil
}

// Read fetches the contents of the file at path along with its blob SHA.
func (g *GithubPostStore) Read(ctx context.Context, path string) (*domain.StoredFile, error) {
	op := fmt.Sprintf("getting file %s", path)
	var opts *github.RepositoryContentGetOptions
	if g.branch != "" {
		opts = &github.RepositoryContentGetOptions{Ref: g.branch}
	}

	fileContent, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.gitRepo, path, opts)
	if err != nil {
		return nil, handleGithubError(op, err)
	}

	if fileContent == nil {
		return nil, &domain.StoreError{Status: http.StatusUnprocessableEntity, Message: fmt.Sprintf("%s is a directory", path)}
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("github: %s failed to decode content: %w", op, err)
	}

	return &domain.StoredFile{
		Path:     path,
		Content:  []byte(content),
		Revision: fileContent.GetSHA(),
	}, nil
}

// Update replaces the file at path. GitHub rejects the write when revision is
// no longer the file's current blob SHA.
func (g *GithubPostStore) Update(ctx context.Context, path string, message string, content []byte, revision string) error {
	op := fmt.Sprintf("updating file %s", path)
	_, _, err := g.client.Repositories.UpdateFile(ctx, g.owner, g.gitRepo, path, g.fileOptions(message, content, revision))
	if err != nil {
		return handleGithubError(op, err)
	}
	return nil
}

func (g *GithubPostStore) fileOptions(message string, content []byte, revision string) *github.RepositoryContentFileOptions {
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
	}
	if revision != "" {
		opts.SHA = github.Ptr(revision)
	}
	if g.branch != "" {
		opts.Branch = github.Ptr(g.branch)
	}
	if g.author != nil {
		opts.Committer = &github.CommitAuthor{
			Name:  github.Ptr(g.author.Name),
			Email: github.Ptr(g.author.Email),
		}
	}
	return opts
}

// GetRepoFullName returns the repository's full name (e.g., "owner/repo").
func (g *GithubPostStore) GetRepoFullName() string {
	return fmt.Sprintf("%s/%s", g.owner, g.gitRepo)
}

// handleGithubError translates an error from the go-github client into a
// domain.StoreError, wrapping domain.ErrNotFound for 404 responses.
func handleGithubError(op string, err error) error {
	if err == nil {
		return nil
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		status := errResp.Response.StatusCode
		if status == http.StatusNotFound {
			return fmt.Errorf("github: %s: %w", op, domain.ErrNotFound)
		}
		return &domain.StoreError{
			Status:  status,
			Message: fmt.Sprintf("github: %s: %s", op, errResp.Message),
		}
	}

	return &domain.StoreError{
		Status:  http.StatusBadGateway,
		Message: fmt.Sprintf("github: %s failed: %v", op, err),
	}
}
