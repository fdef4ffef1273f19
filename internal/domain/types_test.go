package domain

import "testing"

func TestParseRenderMode(t *testing.T) {
	cases := map[string]RenderMode{
		"":          RenderModePreview,
		"preview":   RenderModePreview,
		" PUBLISH ": RenderModePublish,
	}
	for input, want := range cases {
		got, err := ParseRenderMode(input)
		if err != nil {
			t.Fatalf("ParseRenderMode(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseRenderMode(%q): expected %q, got %q", input, want, got)
		}
	}
	if _, err := ParseRenderMode("draft"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestOrderedWidgetsFollowsOrderAndSkipsDangling(t *testing.T) {
	page := &Page{
		Widgets: map[string]WidgetInstance{
			"a": {Type: "core-heading"},
			"b": {ID: "custom", Type: "core-spacer"},
		},
		WidgetsOrder: []string{"b", "missing", "a"},
	}

	widgets := page.OrderedWidgets()
	if len(widgets) != 2 {
		t.Fatalf("expected 2 widgets, got %d", len(widgets))
	}
	if widgets[0].ID != "custom" || widgets[1].ID != "a" {
		t.Fatalf("unexpected order %+v", widgets)
	}

	var nilPage *Page
	if nilPage.OrderedWidgets() != nil {
		t.Fatal("expected nil widgets for nil page")
	}
}

func TestUsageTokens(t *testing.T) {
	if got := PageToken(" home "); got != "home" {
		t.Fatalf("expected trimmed page token, got %q", got)
	}
	if got := GlobalWidgetToken("footer"); got != "global:footer" {
		t.Fatalf("expected global:footer, got %q", got)
	}
	if ThemeSettingsToken != "global:theme-settings" {
		t.Fatalf("unexpected theme token %q", ThemeSettingsToken)
	}
	if NormalizeMediaPath(" //uploads/a.png") != NormalizeMediaPath("uploads/a.png") {
		t.Fatal("expected leading slashes to be ignored")
	}
}

func TestLinkFromValue(t *testing.T) {
	link, ok := LinkFromValue(map[string]any{"href": "a.html", "text": "A", "page_uuid": "p1"})
	if !ok || link.Href != "a.html" || link.PageUUID != "p1" {
		t.Fatalf("unexpected link %+v", link)
	}

	link, ok = LinkFromValue("https://example.com")
	if !ok || link.Href != "https://example.com" {
		t.Fatalf("expected string href, got %+v", link)
	}

	if _, ok := LinkFromValue(42); ok {
		t.Fatal("expected unsupported value to be rejected")
	}
	if !(LinkValue{Href: " "}).IsEmpty() {
		t.Fatal("expected blank link to be empty")
	}
}
