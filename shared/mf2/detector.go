package mf2

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dfryer1193/micropub/blog/domain"
	"willnorris.com/go/microformats"
)

const maxPageSize = 5 << 20

var _ domain.KindDetector = (*PageKindDetector)(nil)

// PageKindDetector fetches a published post and reads its h-entry to decide
// whether it is an article (has a name) or a note.
type PageKindDetector struct {
	client *http.Client
}

// NewPageKindDetector creates a detector. A nil client gets a 10 second timeout.
func NewPageKindDetector(client *http.Client) *PageKindDetector {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &PageKindDetector{client: client}
}

// DetectKind fetches rawURL and classifies its first h-entry.
func (d *PageKindDetector) DetectKind(ctx context.Context, rawURL string) (domain.PostKind, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return "", domain.NewError(domain.KindInvalidURL, "%q is not a valid URL", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", domain.NewError(domain.KindInvalidURL, "%q is not a valid URL", rawURL)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", &domain.StoreError{Status: http.StatusBadGateway, Message: fmt.Sprintf("fetching %s: %v", rawURL, err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return "", domain.NewError(domain.KindNotFound, "no post found at %s", rawURL)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", &domain.StoreError{Status: resp.StatusCode, Message: fmt.Sprintf("fetching %s returned status %d", rawURL, resp.StatusCode)}
	}

	data := microformats.Parse(io.LimitReader(resp.Body, maxPageSize), base)
	return ClassifyEntry(data)
}

// ClassifyEntry returns the kind of the first h-entry in data. An entry is an
// article when it has a name that is more than the implied name a parser
// derives from the entry's text.
func ClassifyEntry(data *microformats.Data) (domain.PostKind, error) {
	entry := findEntry(data.Items)
	if entry == nil {
		return "", domain.NewError(domain.KindNotFound, "page has no h-entry")
	}

	name := firstText(entry.Properties["name"])
	if name == "" {
		return domain.KindNote, nil
	}
	if content := firstText(entry.Properties["content"]); content != "" && collapse(content) == collapse(name) {
		return domain.KindNote, nil
	}
	return domain.KindArticle, nil
}

func findEntry(items []*microformats.Microformat) *microformats.Microformat {
	for _, item := range items {
		for _, t := range item.Type {
			if t == "h-entry" {
				return item
			}
		}
		if found := findEntry(item.Children); found != nil {
			return found
		}
	}
	return nil
}

func firstText(values []interface{}) string {
	if len(values) == 0 {
		return ""
	}
	switch v := values[0].(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]interface{}:
		if s, ok := v["value"].(string); ok {
			return strings.TrimSpace(s)
		}
	case map[string]string:
		return strings.TrimSpace(v["value"])
	case *microformats.Microformat:
		return strings.TrimSpace(v.Value)
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
