package domain

import (
	"fmt"
	"strings"
)

// LinkValue is the stored shape of a link setting. When PageUUID is set, Href
// is a cached copy of the target page URL and is re-derived at render time.
type LinkValue struct {
	Href     string `json:"href"`
	Text     string `json:"text"`
	Target   string `json:"target,omitempty"`
	PageUUID string `json:"pageUuid,omitempty"`
}

// IsEmpty reports whether the link renders to nothing.
func (l LinkValue) IsEmpty() bool {
	return strings.TrimSpace(l.Href) == "" && strings.TrimSpace(l.Text) == ""
}

// Map returns the template-facing representation of the link.
func (l LinkValue) Map() map[string]any {
	return map[string]any{
		"href":     l.Href,
		"text":     l.Text,
		"target":   l.Target,
		"pageUuid": l.PageUUID,
	}
}

// LinkFromValue decodes a loosely typed setting value into a LinkValue. Plain
// strings are treated as an href.
func LinkFromValue(value any) (LinkValue, bool) {
	switch v := value.(type) {
	case nil:
		return LinkValue{}, false
	case LinkValue:
		return v, true
	case *LinkValue:
		if v == nil {
			return LinkValue{}, false
		}
		return *v, true
	case string:
		return LinkValue{Href: v}, true
	case map[string]any:
		return LinkValue{
			Href:     stringField(v, "href"),
			Text:     stringField(v, "text"),
			Target:   stringField(v, "target"),
			PageUUID: firstString(v, "pageUuid", "page_uuid"),
		}, true
	case map[string]string:
		return LinkValue{
			Href:     v["href"],
			Text:     v["text"],
			Target:   v["target"],
			PageUUID: v["pageUuid"],
		}, true
	default:
		return LinkValue{}, false
	}
}

func firstString(values map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := stringField(values, key); s != "" {
			return s
		}
	}
	return ""
}

func stringField(values map[string]any, key string) string {
	raw, ok := values[key]
	if !ok || raw == nil {
		return ""
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprint(raw)
}
