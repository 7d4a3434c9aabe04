package application

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"strings"

	"github.com/dfryer1193/micropub/blog/domain"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// MicropubRequest is the result of normalizing a POST body. Exactly one of
// Entry and Action is set.
type MicropubRequest struct {
	Entry  *domain.Entry
	Action *domain.ActionRequest
}

// NormalizeRequest decodes a Micropub POST body in either JSON or
// form-encoded form into its canonical representation.
func NormalizeRequest(contentType string, body []byte) (*MicropubRequest, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, domain.NewError(domain.KindUnsupportedMediaType, "unsupported content type %q", contentType)
	}

	switch mediaType {
	case contentTypeJSON:
		return normalizeJSON(body)
	case contentTypeForm:
		return normalizeForm(string(body))
	default:
		return nil, domain.NewError(domain.KindUnsupportedMediaType, "unsupported content type %q", mediaType)
	}
}

func normalizeJSON(body []byte) (*MicropubRequest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, domain.NewError(domain.KindInvalidRequest, "invalid JSON body: %v", err)
	}
	if raw == nil {
		return nil, domain.NewError(domain.KindInvalidRequest, "JSON body must be an object")
	}

	if rawAction, ok := raw["action"]; ok {
		var action, target string
		if err := json.Unmarshal(rawAction, &action); err != nil {
			return nil, domain.NewError(domain.KindInvalidRequest, "action must be a string")
		}
		if rawURL, ok := raw["url"]; ok {
			if err := json.Unmarshal(rawURL, &target); err != nil {
				return nil, domain.NewError(domain.KindInvalidRequest, "url must be a string")
			}
		}
		return actionRequest(action, target)
	}

	entry := &domain.Entry{Properties: domain.NewProperties()}
	if rawType, ok := raw["type"]; ok {
		if err := json.Unmarshal(rawType, &entry.Type); err != nil {
			return nil, domain.NewError(domain.KindInvalidRequest, "type must be a list of strings")
		}
	}
	if rawProps, ok := raw["properties"]; ok {
		if err := json.Unmarshal(rawProps, entry.Properties); err != nil {
			return nil, domain.NewError(domain.KindInvalidRequest, "invalid properties: %v", err)
		}
	}
	return &MicropubRequest{Entry: entry}, nil
}

type formField struct {
	key   string
	value string
}

// parseOrderedForm decodes an urlencoded body keeping field order, which
// url.ParseQuery discards.
func parseOrderedForm(body string) ([]formField, error) {
	var fields []formField
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("invalid form key %q: %w", rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("invalid form value for %q: %w", key, err)
		}
		fields = append(fields, formField{key: strings.TrimSuffix(key, "[]"), value: value})
	}
	return fields, nil
}

func normalizeForm(body string) (*MicropubRequest, error) {
	fields, err := parseOrderedForm(body)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidRequest, "%v", err)
	}

	var action, target string
	hasAction := false
	for _, f := range fields {
		switch f.key {
		case "action":
			action, hasAction = f.value, true
		case "url":
			target = f.value
		}
	}
	if hasAction {
		return actionRequest(action, target)
	}

	h := "entry"
	props := domain.NewProperties()
	for _, f := range fields {
		if f.key == "h" {
			h = f.value
			continue
		}
		if f.key == "access_token" {
			continue
		}
		props.Add(f.key, domain.Text(f.value))
	}

	return &MicropubRequest{Entry: &domain.Entry{
		Type:       []string{"h-" + h},
		Properties: props,
	}}, nil
}

func actionRequest(action string, target string) (*MicropubRequest, error) {
	switch domain.Action(action) {
	case domain.ActionDelete, domain.ActionUndelete:
	default:
		return nil, domain.NewError(domain.KindUnsupportedAction, "action %q is not supported", action)
	}
	if target == "" {
		return nil, domain.NewError(domain.KindInvalidURL, "a url is required for action %q", action)
	}
	return &MicropubRequest{Action: &domain.ActionRequest{Action: domain.Action(action), URL: target}}, nil
}
