package application

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterDelimiter = "---"

// Frontmatter is an ordered mapping of frontmatter keys to values. Values are
// strings, bools, numbers, []any, nested *Frontmatter mappings, or *yaml.Node
// for scalars that are carried through untouched.
type Frontmatter struct {
	keys   []string
	values map[string]any
}

// NewFrontmatter returns an empty frontmatter mapping.
func NewFrontmatter() *Frontmatter {
	return &Frontmatter{values: make(map[string]any)}
}

// Set stores value under key. New keys are appended; existing keys keep their position.
func (f *Frontmatter) Set(key string, value any) {
	if f.values == nil {
		f.values = make(map[string]any)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Get returns the value stored under key.
func (f *Frontmatter) Get(key string) (any, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.values[key]
	return v, ok
}

// GetString returns the value under key when it is a string.
func (f *Frontmatter) GetString(key string) string {
	v, _ := f.Get(key)
	s, _ := v.(string)
	return s
}

// Delete removes key, reporting whether it was present.
func (f *Frontmatter) Delete(key string) bool {
	if _, ok := f.values[key]; !ok {
		return false
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order.
func (f *Frontmatter) Keys() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.keys...)
}

// Len returns the number of keys.
func (f *Frontmatter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// MarshalYAML encodes the mapping as a YAML node so key order is preserved.
func (f *Frontmatter) MarshalYAML() (any, error) {
	return f.toNode()
}

func (f *Frontmatter) toNode() (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range f.keys {
		valueNode, err := valueToNode(f.values[k])
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", k, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			valueNode,
		)
	}
	return node, nil
}

func valueToNode(v any) (*yaml.Node, error) {
	switch val := v.(type) {
	case *Frontmatter:
		return val.toNode()
	case *yaml.Node:
		return val, nil
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range val {
			child, err := valueToNode(item)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	default:
		node := &yaml.Node{}
		if err := node.Encode(val); err != nil {
			return nil, err
		}
		return node, nil
	}
}

// UnmarshalYAML decodes a YAML mapping, keeping the document's key order.
func (f *Frontmatter) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("frontmatter must be a mapping, got %s", nodeKindName(node.Kind))
	}

	*f = Frontmatter{values: make(map[string]any)}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value, err := nodeToValue(node.Content[i+1])
		if err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		f.Set(key, value)
	}
	return nil
}

func nodeToValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.MappingNode:
		nested := NewFrontmatter()
		if err := nested.UnmarshalYAML(node); err != nil {
			return nil, err
		}
		return nested, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			v, err := nodeToValue(child)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case yaml.AliasNode:
		return nodeToValue(node.Alias)
	default:
		if node.ShortTag() == "!!timestamp" {
			// Keep dates verbatim; decoding to time.Time would rewrite them as RFC 3339.
			scalar := *node
			return &scalar, nil
		}
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func nodeKindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}

// Document is a frontmatter block followed by body text.
type Document struct {
	Frontmatter *Frontmatter
	Body        string
}

// Serialize renders the document as "---\n<yaml>---\n<body>".
func (d *Document) Serialize() ([]byte, error) {
	fm := d.Frontmatter
	if fm == nil {
		fm = NewFrontmatter()
	}

	var buf bytes.Buffer
	buf.WriteString(frontmatterDelimiter + "\n")
	if fm.Len() > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(fm); err != nil {
			return nil, fmt.Errorf("encode frontmatter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode frontmatter: %w", err)
		}
	}
	buf.WriteString(frontmatterDelimiter + "\n")
	buf.WriteString(d.Body)
	return buf.Bytes(), nil
}

// ParseDocument splits content into frontmatter and body. Content without a
// complete frontmatter block is returned as body with an empty mapping.
func ParseDocument(content []byte) (*Document, error) {
	text := string(content)
	block, body, ok := splitFrontmatter(text)
	if !ok {
		return &Document{Frontmatter: NewFrontmatter(), Body: text}, nil
	}

	fm := NewFrontmatter()
	if strings.TrimSpace(block) != "" {
		if err := yaml.Unmarshal([]byte(block), fm); err != nil {
			return nil, fmt.Errorf("parse frontmatter: %w", err)
		}
	}
	return &Document{Frontmatter: fm, Body: body}, nil
}

// splitFrontmatter locates the first closing delimiter line after the
// opening one. Delimiter lines may end in CRLF; the line ending of the
// closing delimiter is not part of the body.
func splitFrontmatter(text string) (block string, body string, ok bool) {
	first, rest, found := strings.Cut(text, "\n")
	if !found || !isDelimiterLine(first) {
		return "", "", false
	}

	for offset := 0; ; {
		line, after, more := strings.Cut(rest[offset:], "\n")
		if isDelimiterLine(line) {
			return rest[:offset], after, true
		}
		if !more {
			return "", "", false
		}
		offset += len(line) + 1
	}
}

func isDelimiterLine(line string) bool {
	return strings.TrimSuffix(line, "\r") == frontmatterDelimiter
}
