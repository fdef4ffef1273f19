package templates

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

func TestPongoExecutorEscapesTextAndTrustsHTML(t *testing.T) {
	exec := NewPongoExecutor()

	out, err := exec.Execute(context.Background(), `<h1>{{ title }}</h1>{{ body }}`, map[string]any{
		"title": "<script>alert(1)</script>",
		"body":  interfaces.HTML("<p><em>rich</em></p>"),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("expected text to be escaped, got %s", out)
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Fatalf("expected escaped script tag, got %s", out)
	}
	if !strings.Contains(out, "<p><em>rich</em></p>") {
		t.Fatalf("expected trusted html verbatim, got %s", out)
	}
	if strings.Contains(out, "&amp;lt;") {
		t.Fatalf("expected no double escaping, got %s", out)
	}
}

func TestPongoExecutorNormalisesNumbers(t *testing.T) {
	exec := NewPongoExecutor()

	out, err := exec.Execute(context.Background(), `{{ a }}|{{ b }}{% if a > 10 %}|big{% endif %}`, map[string]any{
		"a": json.Number("40"),
		"b": float64(12),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "40|12|big" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestPongoExecutorNestedMapsAndIndex(t *testing.T) {
	exec := NewPongoExecutor()
	tpl := `{% if widget.index == 1 %}<h1>{{ widget.settings.text }}</h1>{% else %}<h2>{{ widget.settings.text }}</h2>{% endif %}`

	first, err := exec.Execute(context.Background(), tpl, map[string]any{
		"widget": map[string]any{"index": 1, "settings": map[string]any{"text": "Hi"}},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	second, err := exec.Execute(context.Background(), tpl, map[string]any{
		"widget": map[string]any{"index": 2, "settings": map[string]any{"text": "Hi"}},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if first != "<h1>Hi</h1>" || second != "<h2>Hi</h2>" {
		t.Fatalf("unexpected headings %q %q", first, second)
	}
}

func TestPongoExecutorKeepsTrustedAttributes(t *testing.T) {
	exec := NewPongoExecutor()

	out, err := exec.Execute(context.Background(), `<main>{{ main }}</main>`, map[string]any{
		"main": interfaces.HTML(`<div class="widget widget-spacer" id="widget-a" style="height: 40px;"></div>`),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != `<main><div class="widget widget-spacer" id="widget-a" style="height: 40px;"></div></main>` {
		t.Fatalf("expected trusted markup verbatim, got %q", out)
	}
}

func TestPolicySanitizerStripsScripts(t *testing.T) {
	sanitizer, err := PolicySanitizer(PolicyUGC)
	if err != nil {
		t.Fatalf("PolicySanitizer: %v", err)
	}
	if out := sanitizer.Sanitize(`<p>ok</p><script>alert(1)</script>`); out != "<p>ok</p>" {
		t.Fatalf("expected script to be stripped, got %q", out)
	}
}

func TestPongoExecutorReportsCompileErrors(t *testing.T) {
	if _, err := NewPongoExecutor().Execute(context.Background(), `{% if ready %}never closed`, nil); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestPolicySanitizerRejectsUnknownPolicy(t *testing.T) {
	if _, err := PolicySanitizer("loose"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
	if s, err := PolicySanitizer(PolicyNone); err != nil || s != nil {
		t.Fatalf("expected nil sanitizer for none, got %v %v", s, err)
	}
}
