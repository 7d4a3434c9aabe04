package application

import (
	"reflect"
	"testing"
)

func TestDocument_Serialize(t *testing.T) {
	fm := NewFrontmatter()
	fm.Set("type", "entry")
	fm.Set("title", "Test Post")
	fm.Set("tags", []any{"go", "indieweb"})
	photo := NewFrontmatter()
	photo.Set("url", "https://example.com/a.jpg")
	photo.Set("alt", "A cat")
	fm.Set("photo", photo)
	fm.Set("published", false)

	got, err := (&Document{Frontmatter: fm, Body: "Hello world\n"}).Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	want := `---
type: entry
title: Test Post
tags:
  - go
  - indieweb
photo:
  url: https://example.com/a.jpg
  alt: A cat
published: false
---
Hello world
`
	if string(got) != want {
		t.Errorf("Serialize() =\n%s\nwant\n%s", got, want)
	}
}

func TestDocument_SerializeEmptyFrontmatter(t *testing.T) {
	got, err := (&Document{Body: "just text"}).Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if string(got) != "---\n---\njust text" {
		t.Errorf("Serialize() = %q", got)
	}
}

func TestParseDocument(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantKeys []string
		wantBody string
	}{
		{
			name:     "keys keep file order",
			content:  "---\ntype: entry\ntitle: Zebra\nauthor: me\n---\nBody\n",
			wantKeys: []string{"type", "title", "author"},
			wantBody: "Body\n",
		},
		{
			name:     "no frontmatter",
			content:  "Just a body\n---\nwith a rule",
			wantKeys: nil,
			wantBody: "Just a body\n---\nwith a rule",
		},
		{
			name:     "unterminated frontmatter",
			content:  "---\ntype: entry\nbody",
			wantKeys: nil,
			wantBody: "---\ntype: entry\nbody",
		},
		{
			name:     "empty block",
			content:  "---\n---\nBody",
			wantKeys: nil,
			wantBody: "Body",
		},
		{
			name:     "crlf after closing delimiter",
			content:  "---\ntype: note\n---\r\nBody",
			wantKeys: []string{"type"},
			wantBody: "Body",
		},
		{
			name:     "crlf document",
			content:  "---\r\ntype: entry\r\ntitle: Zebra\r\n---\r\nBody\r\n",
			wantKeys: []string{"type", "title"},
			wantBody: "Body\r\n",
		},
		{
			name:     "closing delimiter at end of file",
			content:  "---\ntype: note\n---",
			wantKeys: []string{"type"},
			wantBody: "",
		},
		{
			name:     "rule in the body is not a delimiter",
			content:  "---\ntitle: a\n---\nbody\n---\nmore",
			wantKeys: []string{"title"},
			wantBody: "body\n---\nmore",
		},
		{
			name:     "longer dash line does not close",
			content:  "---\ntype: note\n----\n",
			wantKeys: nil,
			wantBody: "---\ntype: note\n----\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.content))
			if err != nil {
				t.Fatalf("ParseDocument() error = %v", err)
			}
			if !reflect.DeepEqual(doc.Frontmatter.Keys(), tt.wantKeys) {
				t.Errorf("Keys() = %v, want %v", doc.Frontmatter.Keys(), tt.wantKeys)
			}
			if doc.Body != tt.wantBody {
				t.Errorf("Body = %q, want %q", doc.Body, tt.wantBody)
			}
		})
	}
}

func TestParseDocument_MalformedYAML(t *testing.T) {
	if _, err := ParseDocument([]byte("---\n- a\n- b\n---\nbody")); err == nil {
		t.Error("expected error for a non-mapping frontmatter block")
	}
}

func TestDocument_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "post with nested values",
			content: "---\ntype: entry\ntitle: Test Post\ntags:\n  - go\n  - yaml\nphoto:\n  url: https://example.com/a.jpg\n  alt: A cat\n---\n<p>Hello</p>\n",
		},
		{
			name:    "dates stay verbatim",
			content: "---\ntype: entry\ndate: 2024-06-01\nupdated: 2024-06-01T10:00:00Z\n---\nbody",
		},
		{
			name:    "soft deleted note",
			content: "---\ntype: entry\npublished: false\ncount: 3\nratio: 0.5\n---\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.content))
			if err != nil {
				t.Fatalf("ParseDocument() error = %v", err)
			}
			out, err := doc.Serialize()
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			if string(out) != tt.content {
				t.Errorf("round trip changed document\ngot:\n%s\nwant:\n%s", out, tt.content)
			}
		})
	}
}

func TestFrontmatter_SetAndDelete(t *testing.T) {
	fm := NewFrontmatter()
	fm.Set("type", "entry")
	fm.Set("title", "First")
	fm.Set("tags", "go")
	fm.Set("title", "Second")

	if got := fm.Keys(); !reflect.DeepEqual(got, []string{"type", "title", "tags"}) {
		t.Errorf("Keys() = %v", got)
	}
	if got := fm.GetString("title"); got != "Second" {
		t.Errorf("title = %q, want %q", got, "Second")
	}
	if !fm.Delete("title") {
		t.Error("Delete(title) = false, want true")
	}
	if fm.Delete("title") {
		t.Error("second Delete(title) = true, want false")
	}
	if got := fm.Keys(); !reflect.DeepEqual(got, []string{"type", "tags"}) {
		t.Errorf("Keys() after delete = %v", got)
	}
}
