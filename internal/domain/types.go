package domain

import (
	"fmt"
	"sort"
	"strings"
)

// RenderMode selects between editor previews and published output.
type RenderMode string

const (
	RenderModePreview RenderMode = "preview"
	RenderModePublish RenderMode = "publish"
)

// ParseRenderMode normalises the supplied mode, defaulting to preview.
func ParseRenderMode(value string) (RenderMode, error) {
	switch RenderMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", RenderModePreview:
		return RenderModePreview, nil
	case RenderModePublish:
		return RenderModePublish, nil
	default:
		return "", fmt.Errorf("domain: unknown render mode %q", value)
	}
}

// WidgetInstance is an authored widget placed on a page or in a global slot.
type WidgetInstance struct {
	ID          string                   `json:"id"`
	Type        string                   `json:"type"`
	Settings    map[string]any           `json:"settings"`
	Blocks      map[string]BlockInstance `json:"blocks,omitempty"`
	BlocksOrder []string                 `json:"blocksOrder,omitempty"`
}

// BlockInstance is a repeatable sub-unit nested inside a widget.
type BlockInstance struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Settings map[string]any `json:"settings"`
}

// OrderedBlockIDs returns BlocksOrder filtered to existing blocks, followed by
// any unordered blocks sorted by id.
func (w WidgetInstance) OrderedBlockIDs() []string {
	if len(w.Blocks) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(w.Blocks))
	out := make([]string, 0, len(w.Blocks))
	for _, id := range w.BlocksOrder {
		if _, ok := w.Blocks[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	rest := make([]string, 0)
	for id := range w.Blocks {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Page is a persisted page document.
type Page struct {
	ID           string                    `json:"id"`
	UUID         string                    `json:"uuid"`
	Name         string                    `json:"name"`
	Slug         string                    `json:"slug"`
	Widgets      map[string]WidgetInstance `json:"widgets"`
	WidgetsOrder []string                  `json:"widgetsOrder"`
	SEO          PageSEO                   `json:"seo"`
}

// PageSEO holds search and social metadata authored for a page.
type PageSEO struct {
	Description  string `json:"description,omitempty"`
	OGTitle      string `json:"og_title,omitempty"`
	OGImage      string `json:"og_image,omitempty"`
	CanonicalURL string `json:"canonical_url,omitempty"`
	Robots       string `json:"robots,omitempty"`
}

// OrderedWidgets returns the page widgets following WidgetsOrder. Ids that do
// not resolve to a widget are skipped.
func (p *Page) OrderedWidgets() []WidgetInstance {
	if p == nil || len(p.Widgets) == 0 {
		return nil
	}
	out := make([]WidgetInstance, 0, len(p.WidgetsOrder))
	for _, id := range p.WidgetsOrder {
		widget, ok := p.Widgets[id]
		if !ok {
			continue
		}
		if widget.ID == "" {
			widget.ID = id
		}
		out = append(out, widget)
	}
	return out
}

// Menu is a navigation tree addressable by uuid or slug.
type Menu struct {
	ID    string     `json:"id"`
	UUID  string     `json:"uuid"`
	Name  string     `json:"name"`
	Slug  string     `json:"slug"`
	Items []MenuItem `json:"items"`
}

// MenuItem is a single navigation entry.
type MenuItem struct {
	ID    string     `json:"id"`
	Label string     `json:"label"`
	Link  LinkValue  `json:"link"`
	Items []MenuItem `json:"items,omitempty"`
}

// ThemeSettings is the raw theme settings document of a project.
type ThemeSettings map[string]any

// MediaRecord describes an uploaded file and the entities referencing it.
type MediaRecord struct {
	ID       string   `json:"id"`
	Filename string   `json:"filename"`
	Path     string   `json:"path"`
	Type     string   `json:"type"`
	UsedIn   []string `json:"usedIn"`
}

// Usage tokens stored in MediaRecord.UsedIn.
const (
	GlobalTokenPrefix  = "global:"
	ThemeSettingsToken = GlobalTokenPrefix + "theme-settings"
)

// PageToken returns the usage token for a page.
func PageToken(pageID string) string {
	return strings.TrimSpace(pageID)
}

// GlobalWidgetToken returns the usage token for a global widget slot.
func GlobalWidgetToken(slotID string) string {
	return GlobalTokenPrefix + strings.TrimSpace(slotID)
}

// NormalizeMediaPath strips surrounding whitespace and leading slashes so
// "/uploads/a.png" and "uploads/a.png" compare equal.
func NormalizeMediaPath(path string) string {
	return strings.TrimLeft(strings.TrimSpace(path), "/")
}
