package application

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dfryer1193/micropub/blog/domain"
)

// PostTemplates is the storage path and public URL template pair for one kind of post.
// Both must use the same {date} and {slug} placeholders so that a URL can be
// turned back into its path.
type PostTemplates struct {
	Path *PathTemplate
	URL  *PathTemplate
}

// DerivedPost is where a post lives in the repository and on the site.
type DerivedPost struct {
	Kind domain.PostKind
	Slug string
	Date time.Time
	Path string
	URL  string
}

// PathDeriver computes storage paths and public URLs for posts.
type PathDeriver struct {
	siteURL   string
	site      *url.URL
	location  *time.Location
	templates map[domain.PostKind]PostTemplates
	detector  domain.KindDetector
}

// NewPathDeriver creates a PathDeriver for the site at siteURL. Dates are
// rendered in loc.
func NewPathDeriver(siteURL string, loc *time.Location, article PostTemplates, note PostTemplates, detector domain.KindDetector) (*PathDeriver, error) {
	site, err := url.Parse(siteURL)
	if err != nil || site.Scheme == "" || site.Host == "" {
		return nil, fmt.Errorf("invalid site url %q", siteURL)
	}
	if loc == nil {
		loc = time.UTC
	}
	for kind, t := range map[domain.PostKind]PostTemplates{domain.KindArticle: article, domain.KindNote: note} {
		if t.Path == nil || t.URL == nil {
			return nil, fmt.Errorf("%s templates are not configured", kind)
		}
		if err := t.Check(); err != nil {
			return nil, fmt.Errorf("%s templates: %w", kind, err)
		}
	}

	return &PathDeriver{
		siteURL:  strings.TrimSuffix(siteURL, "/"),
		site:     site,
		location: loc,
		templates: map[domain.PostKind]PostTemplates{
			domain.KindArticle: article,
			domain.KindNote:    note,
		},
		detector: detector,
	}, nil
}

// Derive computes the path and URL of a new post created at ts. Posts with a
// title are articles, the rest are notes. Articles are slugged by title; notes
// and articles whose title has no sluggable characters use the creation
// timestamp.
func (d *PathDeriver) Derive(fm *Frontmatter, ts time.Time) DerivedPost {
	date := ts.In(d.location)

	post := DerivedPost{Kind: domain.KindNote, Date: date}
	if title := strings.TrimSpace(fm.GetString("title")); title != "" {
		post.Kind = domain.KindArticle
		post.Slug = Slugify(title)
	}
	if post.Slug == "" {
		post.Slug = Slugify(strconv.FormatInt(ts.Unix(), 10))
	}

	values := TemplateValues{SiteURL: d.siteURL, Date: date, Slug: post.Slug}
	t := d.templates[post.Kind]
	post.Path = t.Path.Render(values)
	post.URL = t.URL.Render(values)
	return post
}

// Resolve maps the public URL of an existing post back to its storage path.
// The kind is read from the published page, then the kind's URL template
// yields the date and slug that render the path template.
func (d *PathDeriver) Resolve(ctx context.Context, rawURL string) (*DerivedPost, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, domain.NewError(domain.KindInvalidURL, "%q is not an absolute URL", rawURL)
	}
	if u.Scheme != d.site.Scheme || !strings.EqualFold(u.Host, d.site.Host) {
		return nil, domain.NewError(domain.KindInvalidURL, "%q is not on %s", rawURL, d.siteURL)
	}

	kind, err := d.detector.DetectKind(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("detecting post kind of %s: %w", rawURL, err)
	}
	t, ok := d.templates[kind]
	if !ok {
		return nil, domain.NewError(domain.KindInvalidURL, "unknown post kind %q", kind)
	}

	u.RawQuery = ""
	u.Fragment = ""
	u.Host = d.site.Host
	target := strings.TrimSuffix(u.String(), "/")

	values, ok := t.URL.Match(target, d.siteURL)
	if !ok {
		return nil, domain.NewError(domain.KindInvalidURL, "%q does not match the %s URL template", rawURL, kind)
	}

	return &DerivedPost{
		Kind: kind,
		Slug: values.Slug,
		Date: values.Date,
		Path: t.Path.Render(values),
		URL:  rawURL,
	}, nil
}
