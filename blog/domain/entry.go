package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// PropertyValue is a single microformats-2 property value: either a plain
// string (Text) or a structured value (Object) such as a photo with alt text
// or rich content with html.
type PropertyValue interface {
	propertyValue()
}

// Text is a plain string property value.
type Text string

func (Text) propertyValue() {}

// Field is one key/value pair of an Object. Value holds a decoded JSON value:
// string, json.Number, bool, nil, []any or Object.
type Field struct {
	Key   string
	Value any
}

// Object is a structured property value with its keys kept in request order.
type Object struct {
	Fields []Field
}

func (Object) propertyValue() {}

// Get returns the value stored under key.
func (o Object) Get(key string) (any, bool) {
	for _, f := range o.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// GetString returns the value stored under key if it is a string.
func (o Object) GetString(key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Properties maps property names to their values. Every property is a list,
// even when a single value was submitted. Names keep first-seen order.
type Properties struct {
	names  []string
	values map[string][]PropertyValue
}

// NewProperties returns an empty property set.
func NewProperties() *Properties {
	return &Properties{values: make(map[string][]PropertyValue)}
}

// Add appends values to the named property, creating it on first use.
func (p *Properties) Add(name string, values ...PropertyValue) {
	if p.values == nil {
		p.values = make(map[string][]PropertyValue)
	}
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
		p.values[name] = []PropertyValue{}
	}
	p.values[name] = append(p.values[name], values...)
}

// Get returns the values of the named property.
func (p *Properties) Get(name string) ([]PropertyValue, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.values[name]
	return v, ok
}

// Names returns the property names in first-seen order.
func (p *Properties) Names() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.names...)
}

// Len returns the number of distinct properties.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.names)
}

// UnmarshalJSON decodes a JSON object of properties, preserving key order.
// Bare (non-list) values are wrapped into a single-element list.
func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeOrdered(dec)
	if err != nil {
		return err
	}
	obj, ok := v.(Object)
	if !ok {
		return fmt.Errorf("properties must be a JSON object")
	}

	*p = Properties{values: make(map[string][]PropertyValue)}
	for _, f := range obj.Fields {
		items, isList := f.Value.([]any)
		if !isList {
			items = []any{f.Value}
		}
		values := make([]PropertyValue, 0, len(items))
		for _, item := range items {
			pv, err := toPropertyValue(item)
			if err != nil {
				return fmt.Errorf("property %q: %w", f.Key, err)
			}
			values = append(values, pv)
		}
		p.Add(f.Key, values...)
	}
	return nil
}

func toPropertyValue(v any) (PropertyValue, error) {
	switch val := v.(type) {
	case string:
		return Text(val), nil
	case json.Number:
		return Text(val.String()), nil
	case bool:
		return Text(fmt.Sprint(val)), nil
	case Object:
		return val, nil
	case nil:
		return nil, fmt.Errorf("null is not a valid property value")
	default:
		return nil, fmt.Errorf("nested lists are not valid property values")
	}
}

// decodeOrdered reads the next JSON value from dec, returning objects as
// Object so that key order survives decoding.
func decodeOrdered(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := Object{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := decodeOrdered(dec)
				if err != nil {
					return nil, err
				}
				obj.Fields = append(obj.Fields, Field{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			list := []any{}
			for dec.More() {
				val, err := decodeOrdered(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	default:
		return t, nil
	}
}

// Entry is the canonical form of a post submission.
type Entry struct {
	Type       []string
	Properties *Properties
}

// Kind returns the entry type without its "h-" prefix, e.g. "entry".
func (e *Entry) Kind() string {
	if len(e.Type) == 0 {
		return ""
	}
	return strings.TrimPrefix(e.Type[0], "h-")
}

// Action is a Micropub action verb.
type Action string

const (
	ActionDelete   Action = "delete"
	ActionUndelete Action = "undelete"
)

// ActionRequest is the canonical form of a delete/undelete command.
type ActionRequest struct {
	Action Action
	URL    string
}
