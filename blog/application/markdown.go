package application

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

const (
	maxDescriptionLength = 200
	defaultPageTitle     = "Micropub"
)

// RenderedPage is a markdown document rendered for the endpoint's homepage.
type RenderedPage struct {
	Title       string
	Description string
	HTML        []byte
}

// staticLinkTransformer points relative image sources at the static asset prefix.
type staticLinkTransformer struct {
	staticPrefix string
}

func (t *staticLinkTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		img, ok := n.(*ast.Image)
		if !ok {
			return ast.WalkContinue, nil
		}
		dest := string(img.Destination)
		if isRelativeLink(dest) {
			img.Destination = []byte(t.staticPrefix + "/" + path.Base(dest))
		}
		return ast.WalkContinue, nil
	})
}

func isRelativeLink(dest string) bool {
	if strings.HasPrefix(dest, "/") {
		return false
	}
	if strings.HasPrefix(dest, "./") || strings.HasPrefix(dest, "../") {
		return true
	}
	if strings.Contains(dest, ":") || strings.HasPrefix(dest, "#") {
		return false
	}
	return dest != ""
}

// PageRenderer converts markdown to HTML.
type PageRenderer interface {
	Render(markdown []byte) (*RenderedPage, error)
}

type goldmarkPageRenderer struct {
	renderer goldmark.Markdown
}

// NewPageRenderer returns a GFM renderer whose relative images resolve under staticPrefix.
func NewPageRenderer(staticPrefix string) PageRenderer {
	renderer := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(&staticLinkTransformer{staticPrefix: strings.TrimSuffix(staticPrefix, "/")}, 100),
			),
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
			html.WithUnsafe(),
		),
	)

	return &goldmarkPageRenderer{renderer: renderer}
}

func (r *goldmarkPageRenderer) Render(markdown []byte) (*RenderedPage, error) {
	var buf bytes.Buffer
	if err := r.renderer.Convert(markdown, &buf); err != nil {
		return nil, fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	return &RenderedPage{
		Title:       extractTitle(markdown),
		Description: extractDescription(markdown),
		HTML:        buf.Bytes(),
	}, nil
}

func extractTitle(markdown []byte) string {
	lines := strings.SplitN(string(markdown), "\n", 2)
	firstLine := strings.TrimSpace(lines[0])
	title, found := strings.CutPrefix(firstLine, "# ")
	if !found {
		return defaultPageTitle
	}
	return strings.TrimSpace(title)
}

// extractDescription returns the first paragraph of prose, truncated at a
// word boundary.
func extractDescription(markdown []byte) string {
	lines := strings.Split(string(markdown), "\n")
	var paragraphLines []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "#") {
			if len(paragraphLines) > 0 {
				break
			}
			continue
		}

		if trimmed == "" {
			if len(paragraphLines) > 0 {
				break
			}
			continue
		}

		// Code fences, rules, lists and tables are not prose.
		if strings.HasPrefix(trimmed, "```") ||
			strings.HasPrefix(trimmed, "---") ||
			strings.HasPrefix(trimmed, "***") ||
			strings.HasPrefix(trimmed, "- ") ||
			strings.HasPrefix(trimmed, "* ") ||
			strings.HasPrefix(trimmed, "+ ") ||
			strings.HasPrefix(trimmed, "|") {
			if len(paragraphLines) > 0 {
				break
			}
			continue
		}

		paragraphLines = append(paragraphLines, trimmed)
	}

	if len(paragraphLines) == 0 {
		return ""
	}

	description := strings.Join(paragraphLines, " ")
	if len(description) > maxDescriptionLength {
		description = description[:maxDescriptionLength]
		if lastSpace := strings.LastIndexAny(description, " \t"); lastSpace > 0 {
			description = description[:lastSpace]
		}
		description += "..."
	}
	return description
}
