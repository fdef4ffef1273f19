package references

import (
	"sort"
	"strings"

	"github.com/goliatone/go-pagekit/internal/domain"
	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

// Visitor receives every string leaf reachable from a settings tree.
type Visitor func(value string)

// Walk traverses maps, slices, links, widgets and blocks depth first and calls
// visit for each string it finds.
func Walk(tree any, visit Visitor) {
	if visit == nil {
		return
	}
	walk(tree, visit)
}

func walk(node any, visit Visitor) {
	switch v := node.(type) {
	case nil:
	case string:
		visit(v)
	case interfaces.HTML:
		visit(string(v))
	case map[string]any:
		for _, key := range sortedKeys(v) {
			walk(v[key], visit)
		}
	case map[string]string:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			visit(v[key])
		}
	case []any:
		for _, item := range v {
			walk(item, visit)
		}
	case []string:
		for _, item := range v {
			visit(item)
		}
	case []map[string]any:
		for _, item := range v {
			walk(item, visit)
		}
	case domain.ThemeSettings:
		walk(map[string]any(v), visit)
	case domain.LinkValue:
		visit(v.Href)
	case *domain.LinkValue:
		if v != nil {
			visit(v.Href)
		}
	case domain.WidgetInstance:
		walk(v.Settings, visit)
		for _, id := range v.OrderedBlockIDs() {
			walk(v.Blocks[id].Settings, visit)
		}
	case domain.BlockInstance:
		walk(v.Settings, visit)
	}
}

// CollectStrings returns, in first-seen order and without duplicates, the
// values accepted by match. match may rewrite the value it accepts.
func CollectStrings(tree any, match func(string) (string, bool)) []string {
	seen := map[string]struct{}{}
	var out []string
	Walk(tree, func(value string) {
		key, ok := match(value)
		if !ok {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, key)
	})
	return out
}

// MediaMatcher reports whether a string is the path of a known media record,
// comparing paths after leading-slash normalisation.
type MediaMatcher struct {
	paths map[string]struct{}
}

// NewMediaMatcher indexes the paths of records.
func NewMediaMatcher(records []domain.MediaRecord) MediaMatcher {
	paths := make(map[string]struct{}, len(records))
	for _, record := range records {
		if normalized := domain.NormalizeMediaPath(record.Path); normalized != "" {
			paths[normalized] = struct{}{}
		}
	}
	return MediaMatcher{paths: paths}
}

// Match returns the normalised path when value references a known record.
func (m MediaMatcher) Match(value string) (string, bool) {
	normalized := domain.NormalizeMediaPath(value)
	if normalized == "" {
		return "", false
	}
	_, ok := m.paths[normalized]
	return normalized, ok
}

// Len returns the number of indexed paths.
func (m MediaMatcher) Len() int {
	return len(m.paths)
}

// MediaInPage extracts the media paths referenced by every widget and block of
// page plus its SEO image.
func (m MediaMatcher) MediaInPage(page *domain.Page) []string {
	if page == nil {
		return nil
	}
	tree := make([]any, 0, len(page.Widgets)+1)
	for _, id := range sortedWidgetIDs(page) {
		tree = append(tree, page.Widgets[id])
	}
	tree = append(tree, page.SEO.OGImage)
	return CollectStrings(tree, m.Match)
}

// MediaInWidget extracts the media paths referenced by a single widget.
func (m MediaMatcher) MediaInWidget(widget domain.WidgetInstance) []string {
	return CollectStrings(widget, m.Match)
}

// MediaInTree extracts the media paths referenced anywhere in tree.
func (m MediaMatcher) MediaInTree(tree any) []string {
	return CollectStrings(tree, m.Match)
}

func sortedWidgetIDs(page *domain.Page) []string {
	ids := make([]string, 0, len(page.Widgets))
	seen := make(map[string]struct{}, len(page.Widgets))
	for _, id := range page.WidgetsOrder {
		if _, ok := page.Widgets[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	var rest []string
	for id := range page.Widgets {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// IsExternalURL reports whether value points outside the project.
func IsExternalURL(value string) bool {
	lower := strings.ToLower(strings.TrimSpace(value))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "//")
}
