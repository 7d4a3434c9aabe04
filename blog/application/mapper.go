package application

import (
	"encoding/json"

	"github.com/dfryer1193/micropub/blog/domain"
)

// frontmatterKeys renames microformats-2 property names to the field names
// the static site generator expects.
var frontmatterKeys = map[string]string{
	"name":            "title",
	"category":        "tags",
	"mp-syndicate-to": "syndicate_to",
	"syndicate-to":    "syndicate_to",
	"value":           "url",
}

func frontmatterKey(name string) string {
	if renamed, ok := frontmatterKeys[name]; ok {
		return renamed
	}
	return name
}

// ToDocument maps a Micropub entry onto a frontmatter document. The content
// property becomes the body; single-element property lists become scalars.
func ToDocument(entry *domain.Entry) *Document {
	fm := NewFrontmatter()
	fm.Set("type", entry.Kind())

	var body string
	props := entry.Properties
	for _, name := range props.Names() {
		values, _ := props.Get(name)
		if name == "content" {
			body = contentBody(values)
			continue
		}
		fm.Set(frontmatterKey(name), unwrapValues(values))
	}

	return &Document{Frontmatter: fm, Body: body}
}

func contentBody(values []domain.PropertyValue) string {
	if len(values) == 0 {
		return ""
	}
	switch v := values[0].(type) {
	case domain.Text:
		return string(v)
	case domain.Object:
		if html, ok := v.GetString("html"); ok {
			return html
		}
		if text, ok := v.GetString("value"); ok {
			return text
		}
	}
	return ""
}

func unwrapValues(values []domain.PropertyValue) any {
	if len(values) == 1 {
		return propertyValue(values[0])
	}
	list := make([]any, 0, len(values))
	for _, v := range values {
		list = append(list, propertyValue(v))
	}
	return list
}

func propertyValue(v domain.PropertyValue) any {
	switch val := v.(type) {
	case domain.Text:
		return string(val)
	case domain.Object:
		return objectFrontmatter(val)
	default:
		return nil
	}
}

func objectFrontmatter(obj domain.Object) *Frontmatter {
	fm := NewFrontmatter()
	for _, f := range obj.Fields {
		fm.Set(frontmatterKey(f.Key), jsonValue(f.Value))
	}
	return fm
}

func jsonValue(v any) any {
	switch val := v.(type) {
	case domain.Object:
		return objectFrontmatter(val)
	case []any:
		list := make([]any, 0, len(val))
		for _, item := range val {
			list = append(list, jsonValue(item))
		}
		return list
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return val
	}
}
