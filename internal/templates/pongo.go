package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

// Rich text policies applied to authored rich text and markdown settings.
const (
	PolicyNone   = "none"
	PolicyUGC    = "ugc"
	PolicyStrict = "strict"
)

// Sanitizer cleans authored markup.
type Sanitizer interface {
	Sanitize(s string) string
}

// PolicySanitizer returns the bluemonday policy registered under name. The
// "none" policy returns nil, meaning authored markup is kept untouched.
func PolicySanitizer(name string) (Sanitizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyNone:
		return nil, nil
	case PolicyUGC:
		return bluemonday.UGCPolicy(), nil
	case PolicyStrict:
		return bluemonday.StrictPolicy(), nil
	default:
		return nil, fmt.Errorf("templates: unknown rich text policy %q", name)
	}
}

// PongoExecutor executes templates with pongo2. Strings are escaped while the
// context is built and interfaces.HTML values pass through raw; templates run
// with pongo2 autoescaping off. Sanitising authored markup happens before it
// is marked as HTML, so rendered widget regions reach the layout intact.
type PongoExecutor struct {
	mu    sync.RWMutex
	cache map[string]*pongo2.Template
}

// NewPongoExecutor constructs an executor.
func NewPongoExecutor() *PongoExecutor {
	return &PongoExecutor{cache: make(map[string]*pongo2.Template)}
}

var _ interfaces.TemplateExecutor = (*PongoExecutor)(nil)

// Execute implements interfaces.TemplateExecutor.
func (e *PongoExecutor) Execute(_ context.Context, source string, data map[string]any) (string, error) {
	tpl, err := e.compile(source)
	if err != nil {
		return "", err
	}
	pctx := make(pongo2.Context, len(data))
	for key, value := range data {
		pctx[key] = e.convert(value)
	}
	out, err := tpl.Execute(pctx)
	if err != nil {
		return "", fmt.Errorf("templates: execute: %w", err)
	}
	return out, nil
}

func (e *PongoExecutor) compile(source string) (*pongo2.Template, error) {
	e.mu.RLock()
	tpl, ok := e.cache[source]
	e.mu.RUnlock()
	if ok {
		return tpl, nil
	}
	tpl, err := pongo2.FromString(autoescapeOff + source + autoescapeEnd)
	if err != nil {
		return nil, fmt.Errorf("templates: compile: %w", err)
	}
	e.mu.Lock()
	e.cache[source] = tpl
	e.mu.Unlock()
	return tpl, nil
}

const (
	autoescapeOff = "{% autoescape off %}"
	autoescapeEnd = "{% endautoescape %}"
)

func (e *PongoExecutor) convert(value any) any {
	switch v := value.(type) {
	case interfaces.HTML:
		return string(v)
	case string:
		return html.EscapeString(v)
	case []string:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = html.EscapeString(item)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(v))
		for key, item := range v {
			out[key] = html.EscapeString(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = e.convert(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = e.convert(item)
		}
		return out
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < math.MaxInt64 {
			return int64(v)
		}
		return v
	default:
		return value
	}
}
