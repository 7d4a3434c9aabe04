package application

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

// PathTemplate is a path or URL template using placeholders {site_url},
// {slug} and {date:<strftime format>}, e.g. "{site_url}/posts/{date:%Y/%m/%d}/{slug}".
// The same template renders values into a string and recovers them from one.
type PathTemplate struct {
	raw      string
	segments []segment
	groups   []segment
	pattern  *regexp.Regexp
}

// TemplateValues are the values a PathTemplate is rendered from.
type TemplateValues struct {
	SiteURL string
	Date    time.Time
	Slug    string
}

type segmentKind int

const (
	segmentLiteral segmentKind = iota
	segmentSiteURL
	segmentSlug
	segmentDate
)

type segment struct {
	kind   segmentKind
	text   string
	format string
}

// directivePatterns are the strftime directives a date placeholder may use,
// with the text each one matches.
var directivePatterns = map[byte]string{
	'Y': `\d{4}`,
	'y': `\d{2}`,
	'm': `\d{2}`,
	'd': `\d{2}`,
	'H': `\d{2}`,
	'M': `\d{2}`,
	'S': `\d{2}`,
	'j': `\d{3}`,
	'b': `[A-Za-z]{3}`,
	'B': `[A-Za-z]+`,
	'F': `\d{4}-\d{2}-\d{2}`,
	'%': `%`,
}

type dateField uint8

const (
	fieldYear dateField = 1 << iota
	fieldMonth
	fieldDay
	fieldHour
	fieldMinute
	fieldSecond
)

var fieldNames = []struct {
	field dateField
	name  string
}{
	{fieldYear, "year"},
	{fieldMonth, "month"},
	{fieldDay, "day"},
	{fieldHour, "hour"},
	{fieldMinute, "minute"},
	{fieldSecond, "second"},
}

// directiveFields are the parts of a date each directive renders.
var directiveFields = map[byte]dateField{
	'Y': fieldYear,
	'y': fieldYear,
	'm': fieldMonth,
	'b': fieldMonth,
	'B': fieldMonth,
	'd': fieldDay,
	'j': fieldYear | fieldMonth | fieldDay,
	'F': fieldYear | fieldMonth | fieldDay,
	'H': fieldHour,
	'M': fieldMinute,
	'S': fieldSecond,
}

// formatFields returns the date parts format renders, or with recovered set,
// the parts parsing it gives back. A day of year alone does not give back a date.
func formatFields(format string, recovered bool) dateField {
	var f dateField
	for i := 0; i+1 < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		if recovered && format[i] == 'j' {
			continue
		}
		f |= directiveFields[format[i]]
	}
	return f
}

// Check reports values the path template renders that cannot be recovered by
// matching a URL against the URL template. Resolve depends on this.
func (p PostTemplates) Check() error {
	if p.Path == nil || p.URL == nil {
		return fmt.Errorf("path and URL templates are both required")
	}

	var needSlug, haveSlug, haveDate bool
	var need, have dateField
	for _, s := range p.Path.groups {
		switch s.kind {
		case segmentSlug:
			needSlug = true
		case segmentDate:
			need |= formatFields(s.format, false)
		}
	}
	for _, s := range p.URL.groups {
		switch s.kind {
		case segmentSlug:
			haveSlug = true
		case segmentDate:
			// Match keeps only the first date.
			if !haveDate {
				have, haveDate = formatFields(s.format, true), true
			}
		}
	}

	var missing []string
	if needSlug && !haveSlug {
		missing = append(missing, "slug")
	}
	for _, fn := range fieldNames {
		if need&fn.field != 0 && have&fn.field == 0 {
			missing = append(missing, fn.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("path template %q uses %s, which URL template %q does not recover",
			p.Path, strings.Join(missing, ", "), p.URL)
	}
	return nil
}

// ParseTemplate compiles a template string.
func ParseTemplate(raw string) (*PathTemplate, error) {
	t := &PathTemplate{raw: raw}

	var pattern strings.Builder
	pattern.WriteString("^")
	rest := raw
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			t.addLiteral(rest, &pattern)
			break
		}
		if open > 0 {
			t.addLiteral(rest[:open], &pattern)
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return nil, fmt.Errorf("template %q: unclosed placeholder", raw)
		}
		name := rest[open+1 : open+end]
		rest = rest[open+end+1:]

		var seg segment
		var group string
		switch {
		case name == "site_url":
			seg, group = segment{kind: segmentSiteURL}, `.+?`
		case name == "slug":
			seg, group = segment{kind: segmentSlug}, `[^/]+`
		case strings.HasPrefix(name, "date:"):
			format := strings.TrimPrefix(name, "date:")
			datePattern, err := dateRegexp(format)
			if err != nil {
				return nil, fmt.Errorf("template %q: %w", raw, err)
			}
			seg, group = segment{kind: segmentDate, format: format}, datePattern
		default:
			return nil, fmt.Errorf("template %q: unknown placeholder {%s}", raw, name)
		}
		t.segments = append(t.segments, seg)
		t.groups = append(t.groups, seg)
		pattern.WriteString("(" + group + ")")
	}
	pattern.WriteString("$")

	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", raw, err)
	}
	t.pattern = re
	return t, nil
}

// MustParseTemplate is like ParseTemplate but panics on error.
func MustParseTemplate(raw string) *PathTemplate {
	t, err := ParseTemplate(raw)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *PathTemplate) addLiteral(text string, pattern *strings.Builder) {
	t.segments = append(t.segments, segment{kind: segmentLiteral, text: text})
	pattern.WriteString(regexp.QuoteMeta(text))
}

func dateRegexp(format string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteString(regexp.QuoteMeta(string(c)))
			continue
		}
		if i+1 >= len(format) {
			return "", fmt.Errorf("date format %q ends with a bare %%", format)
		}
		i++
		p, ok := directivePatterns[format[i]]
		if !ok {
			return "", fmt.Errorf("date format %q: unsupported directive %%%c", format, format[i])
		}
		b.WriteString(p)
	}
	return b.String(), nil
}

// Render substitutes values into the template.
func (t *PathTemplate) Render(v TemplateValues) string {
	var b strings.Builder
	for _, s := range t.segments {
		switch s.kind {
		case segmentLiteral:
			b.WriteString(s.text)
		case segmentSiteURL:
			b.WriteString(strings.TrimSuffix(v.SiteURL, "/"))
		case segmentSlug:
			b.WriteString(v.Slug)
		case segmentDate:
			b.WriteString(strftime.Format(s.format, v.Date))
		}
	}
	return b.String()
}

// Match recovers the date and slug from s. The site URL captured by the
// template, if any, must equal siteURL. When a placeholder appears more than
// once, the first occurrence wins.
func (t *PathTemplate) Match(s string, siteURL string) (TemplateValues, bool) {
	m := t.pattern.FindStringSubmatch(s)
	if m == nil {
		return TemplateValues{}, false
	}

	values := TemplateValues{SiteURL: strings.TrimSuffix(siteURL, "/")}
	var slugSeen, dateSeen bool
	for i, g := range t.groups {
		captured := m[i+1]
		switch g.kind {
		case segmentSiteURL:
			if strings.TrimSuffix(captured, "/") != values.SiteURL {
				return TemplateValues{}, false
			}
		case segmentSlug:
			if !slugSeen {
				values.Slug, slugSeen = captured, true
			}
		case segmentDate:
			if dateSeen {
				continue
			}
			d, err := strftime.Parse(g.format, captured)
			if err != nil {
				return TemplateValues{}, false
			}
			values.Date, dateSeen = d, true
		}
	}
	return values, true
}

// String returns the template as written.
func (t *PathTemplate) String() string {
	return t.raw
}
