package references

import (
	"reflect"
	"testing"

	"github.com/goliatone/go-pagekit/internal/domain"
)

func TestCollectStringsDeduplicatesAcrossWidgetsAndBlocks(t *testing.T) {
	matcher := NewMediaMatcher([]domain.MediaRecord{
		{ID: "f1", Path: "/uploads/hero.png"},
		{ID: "f2", Path: "uploads/logo.svg"},
	})
	page := &domain.Page{
		ID: "home",
		Widgets: map[string]domain.WidgetInstance{
			"w1": {
				Type:     "hero",
				Settings: map[string]any{"image": "/uploads/hero.png"},
				Blocks: map[string]domain.BlockInstance{
					"b1": {Type: "slide", Settings: map[string]any{"image": "uploads/hero.png"}},
					"b2": {Type: "slide", Settings: map[string]any{"caption": "no media here"}},
				},
				BlocksOrder: []string{"b1", "b2"},
			},
			"w2": {
				Type:     "gallery",
				Settings: map[string]any{"items": []any{map[string]any{"src": "/uploads/hero.png"}}},
			},
		},
		WidgetsOrder: []string{"w1", "w2"},
		SEO:          domain.PageSEO{OGImage: "/uploads/logo.svg"},
	}

	got := matcher.MediaInPage(page)
	want := []string{"uploads/hero.png", "uploads/logo.svg"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestMediaMatcherIgnoresUnknownPaths(t *testing.T) {
	matcher := NewMediaMatcher([]domain.MediaRecord{{ID: "f1", Path: "uploads/a.png"}})

	if _, ok := matcher.Match("uploads/b.png"); ok {
		t.Fatal("expected unknown path to be rejected")
	}
	if _, ok := matcher.Match("   "); ok {
		t.Fatal("expected blank value to be rejected")
	}
	if path, ok := matcher.Match("///uploads/a.png"); !ok || path != "uploads/a.png" {
		t.Fatalf("expected normalised match, got %q %v", path, ok)
	}
}

func TestWalkVisitsLinksAndThemeSettings(t *testing.T) {
	var visited []string
	Walk(domain.ThemeSettings{
		"logo": domain.LinkValue{Href: "uploads/logo.png"},
		"colors": map[string]string{
			"primary": "#fff",
		},
		"count": 3,
	}, func(value string) {
		visited = append(visited, value)
	})

	want := []string{"#fff", "uploads/logo.png"}
	if !reflect.DeepEqual(visited, want) {
		t.Fatalf("expected %v, got %v", want, visited)
	}
}
