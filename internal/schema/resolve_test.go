package schema

import (
	"testing"

	"github.com/goliatone/go-pagekit/internal/domain"
)

func TestResolveFillsEveryDeclaredSetting(t *testing.T) {
	t.Parallel()

	s := Schema{
		{ID: "title", Type: TypeText, Default: "Hello"},
		{Type: TypeHeader, Label: "Layout"},
		{ID: "height", Type: TypeRange, Default: 40},
		{ID: "color", Type: TypeColor},
	}

	cases := []struct {
		name     string
		settings map[string]any
		want     map[string]any
	}{
		{
			name:     "empty settings take defaults",
			settings: map[string]any{},
			want:     map[string]any{"title": "Hello", "height": 40, "color": nil},
		},
		{
			name:     "provided values win",
			settings: map[string]any{"title": "Custom", "height": 10},
			want:     map[string]any{"title": "Custom", "height": 10, "color": nil},
		},
		{
			name:     "nil values fall back to defaults",
			settings: map[string]any{"title": nil},
			want:     map[string]any{"title": "Hello", "height": 40, "color": nil},
		},
		{
			name:     "unknown ids pass through",
			settings: map[string]any{"legacy": "kept"},
			want:     map[string]any{"title": "Hello", "height": 40, "color": nil, "legacy": "kept"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Resolve(s, tc.settings)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d keys, got %d (%#v)", len(tc.want), len(got), got)
			}
			for key, want := range tc.want {
				value, ok := got[key]
				if !ok {
					t.Fatalf("expected key %q in %#v", key, got)
				}
				if value != want {
					t.Fatalf("key %q: expected %#v, got %#v", key, want, value)
				}
			}
		})
	}
}

func TestResolveSkipsHeaderDefinitions(t *testing.T) {
	t.Parallel()

	got := Resolve(Schema{{ID: "divider", Type: TypeHeader, Default: "x"}}, nil)
	if _, ok := got["divider"]; ok {
		t.Fatalf("header definitions must not yield values: %#v", got)
	}
}

func TestResolveDoesNotShareDefaultMaps(t *testing.T) {
	t.Parallel()

	s := Schema{{ID: "link", Type: TypeLink, Default: map[string]any{"href": "#"}}}
	first := Resolve(s, nil)
	first["link"].(map[string]any)["href"] = "/changed"

	second := Resolve(s, nil)
	if second["link"].(map[string]any)["href"] != "#" {
		t.Fatalf("default was mutated through a previous result")
	}
}

func TestResolveWidgetRecursesIntoBlocks(t *testing.T) {
	t.Parallel()

	doc := &Document{
		Settings: Schema{{ID: "heading", Type: TypeText, Default: "Slides"}},
		Blocks: map[string]Schema{
			"slide": {{ID: "caption", Type: TypeText, Default: "Untitled"}},
		},
	}
	widget := domain.WidgetInstance{
		ID:   "w1",
		Type: "slider",
		Blocks: map[string]domain.BlockInstance{
			"b2": {Type: "slide", Settings: map[string]any{"caption": "Second"}},
			"b1": {Type: "slide"},
			"b3": {Type: "unknown", Settings: map[string]any{"raw": true}},
		},
		BlocksOrder: []string{"b2", "missing", "b1"},
	}

	resolved := ResolveWidget(doc, widget)

	if resolved.Settings["heading"] != "Slides" {
		t.Fatalf("expected widget default, got %#v", resolved.Settings)
	}
	if got := resolved.Blocks["b1"].Settings["caption"]; got != "Untitled" {
		t.Fatalf("expected block default, got %#v", got)
	}
	if got := resolved.Blocks["b2"].Settings["caption"]; got != "Second" {
		t.Fatalf("expected block value, got %#v", got)
	}
	if got := resolved.Blocks["b3"].Settings["raw"]; got != true {
		t.Fatalf("expected undeclared block settings to pass through, got %#v", got)
	}
	if resolved.Blocks["b1"].ID != "b1" {
		t.Fatalf("expected block id to default to map key, got %q", resolved.Blocks["b1"].ID)
	}

	wantOrder := []string{"b2", "b1", "b3"}
	if len(resolved.BlocksOrder) != len(wantOrder) {
		t.Fatalf("unexpected order %v", resolved.BlocksOrder)
	}
	for i, id := range wantOrder {
		if resolved.BlocksOrder[i] != id {
			t.Fatalf("order[%d]: expected %s, got %s", i, id, resolved.BlocksOrder[i])
		}
	}
}

func TestResolveWidgetWithoutDocument(t *testing.T) {
	t.Parallel()

	resolved := ResolveWidget(nil, domain.WidgetInstance{
		Settings: map[string]any{"title": "kept"},
		Blocks:   map[string]domain.BlockInstance{"a": {Type: "item"}},
	})
	if resolved.Settings["title"] != "kept" {
		t.Fatalf("expected settings to pass through, got %#v", resolved.Settings)
	}
	if _, ok := resolved.Blocks["a"]; !ok {
		t.Fatalf("expected block to be present")
	}
}

func TestResolveSkipsHeaderDefinitionsInAnyCase(t *testing.T) {
	t.Parallel()

	got := Resolve(Schema{{ID: "divider", Type: "Header", Default: "x"}}, nil)
	if _, ok := got["divider"]; ok {
		t.Fatalf("header definitions must not yield values: %#v", got)
	}
	if !SettingType(" HEADER ").IsStructural() || !SettingType("Video").IsMedia() {
		t.Fatal("expected type checks to ignore case and padding")
	}
}
