package references

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/goliatone/go-pagekit/internal/domain"
	"github.com/goliatone/go-pagekit/internal/logging"
	"github.com/goliatone/go-pagekit/internal/schema"
	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

// Lookup exposes the session-scoped indexes the resolver needs. Render
// contexts implement it so the page index and menus are loaded once per
// session.
type Lookup interface {
	PageByUUID(ctx context.Context, uuid string) (*domain.Page, bool, error)
	Menus(ctx context.Context) ([]domain.Menu, error)
}

// Resolver rewrites reference-typed settings into the values templates read.
type Resolver struct {
	urls      PageURLBuilder
	markdown  goldmark.Markdown
	sanitizer Sanitizer
	logger    interfaces.Logger
}

// Sanitizer cleans authored rich text before it is trusted.
type Sanitizer interface {
	Sanitize(s string) string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithURLBuilder overrides the page URL strategy.
func WithURLBuilder(builder PageURLBuilder) Option {
	return func(r *Resolver) {
		if builder != nil {
			r.urls = builder
		}
	}
}

// WithMarkdown overrides the goldmark engine used for markdown settings.
func WithMarkdown(md goldmark.Markdown) Option {
	return func(r *Resolver) {
		if md != nil {
			r.markdown = md
		}
	}
}

// WithSanitizer applies a policy to richtext and markdown values. Only
// authored content passes through it; rendered widget markup does not.
func WithSanitizer(sanitizer Sanitizer) Option {
	return func(r *Resolver) {
		r.sanitizer = sanitizer
	}
}

// WithLogger sets the logger used for degraded references.
func WithLogger(logger interfaces.Logger) Option {
	return func(r *Resolver) {
		r.logger = logging.Fallback(logger)
	}
}

// NewResolver constructs a resolver with slug URLs and a GFM goldmark engine.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		urls: NewSlugURLBuilder(),
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// URLs returns the page URL strategy.
func (r *Resolver) URLs() PageURLBuilder {
	return r.urls
}

// ResolveSettings returns a copy of settings where every value whose declared
// type is a reference has been resolved. Dangling references degrade to
// neutral values; only lookup failures are returned as errors.
func (r *Resolver) ResolveSettings(ctx context.Context, lookup Lookup, types map[string]schema.SettingType, settings map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(settings))
	for key, value := range settings {
		out[key] = value
	}
	for id, settingType := range types {
		value, ok := out[id]
		if !ok {
			continue
		}
		resolved, err := r.ResolveValue(ctx, lookup, settingType, value)
		if err != nil {
			return nil, fmt.Errorf("references: resolve setting %q: %w", id, err)
		}
		out[id] = resolved
	}
	return out, nil
}

// ResolveValue resolves a single setting value of the given type.
func (r *Resolver) ResolveValue(ctx context.Context, lookup Lookup, settingType schema.SettingType, value any) (any, error) {
	switch settingType.Normalize() {
	case schema.TypeLink:
		link, err := r.ResolveLink(ctx, lookup, value)
		if err != nil {
			return nil, err
		}
		return link.Map(), nil
	case schema.TypeMenu:
		menu, err := r.ResolveMenu(ctx, lookup, value)
		if err != nil || menu == nil {
			return nil, err
		}
		return menu, nil
	case schema.TypeRichText:
		return r.sanitize(trustedHTML(value)), nil
	case schema.TypeMarkdown:
		rendered := r.renderMarkdown(value)
		if markup, ok := rendered.(interfaces.HTML); ok {
			return r.sanitize(markup), nil
		}
		return rendered, nil
	default:
		return value, nil
	}
}

// ResolveLink decodes value and, when it targets a page by uuid, rewrites the
// href to the page's current URL. A uuid that no longer resolves clears both
// href and text.
func (r *Resolver) ResolveLink(ctx context.Context, lookup Lookup, value any) (domain.LinkValue, error) {
	link, ok := domain.LinkFromValue(value)
	if !ok {
		return domain.LinkValue{}, nil
	}
	pageUUID := strings.TrimSpace(link.PageUUID)
	if pageUUID == "" || lookup == nil {
		return link, nil
	}
	page, found, err := lookup.PageByUUID(ctx, pageUUID)
	if err != nil {
		return domain.LinkValue{}, err
	}
	if !found || page == nil {
		r.logger.Debug("references.link.dangling", "page_uuid", pageUUID)
		link.Href = ""
		link.Text = ""
		return link, nil
	}
	link.Href = r.urls.PageURL(page)
	return link, nil
}

// ResolveMenu finds the menu referenced by value, matching uuid (or id)
// first and slug second. It returns nil when nothing matches.
func (r *Resolver) ResolveMenu(ctx context.Context, lookup Lookup, value any) (map[string]any, error) {
	ref := menuReference(value)
	if ref == "" || lookup == nil {
		return nil, nil
	}
	menus, err := lookup.Menus(ctx)
	if err != nil {
		return nil, err
	}
	menu := matchMenu(menus, ref)
	if menu == nil {
		r.logger.Debug("references.menu.unresolved", "menu", ref)
		return nil, nil
	}
	items, err := r.resolveMenuItems(ctx, lookup, menu.Items)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":    menu.ID,
		"uuid":  menu.UUID,
		"name":  menu.Name,
		"slug":  menu.Slug,
		"items": items,
	}, nil
}

func (r *Resolver) resolveMenuItems(ctx context.Context, lookup Lookup, items []domain.MenuItem) ([]any, error) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		link, err := r.ResolveLink(ctx, lookup, item.Link)
		if err != nil {
			return nil, err
		}
		children, err := r.resolveMenuItems(ctx, lookup, item.Items)
		if err != nil {
			return nil, err
		}
		label := item.Label
		if label == "" {
			label = link.Text
		}
		out = append(out, map[string]any{
			"id":    item.ID,
			"label": label,
			"link":  link.Map(),
			"items": children,
		})
	}
	return out, nil
}

func matchMenu(menus []domain.Menu, ref string) *domain.Menu {
	for i := range menus {
		if menus[i].UUID != "" && strings.EqualFold(menus[i].UUID, ref) {
			return &menus[i]
		}
	}
	for i := range menus {
		if menus[i].ID != "" && menus[i].ID == ref {
			return &menus[i]
		}
	}
	slugRef := NormalizeSlug(ref)
	for i := range menus {
		if menus[i].Slug != "" && NormalizeSlug(menus[i].Slug) == slugRef {
			return &menus[i]
		}
	}
	return nil
}

func menuReference(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		for _, key := range []string{"uuid", "id", "slug"} {
			if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func (r *Resolver) sanitize(markup interfaces.HTML) interfaces.HTML {
	if r.sanitizer == nil || markup == "" {
		return markup
	}
	return interfaces.HTML(r.sanitizer.Sanitize(string(markup)))
}

func trustedHTML(value any) interfaces.HTML {
	switch v := value.(type) {
	case nil:
		return ""
	case interfaces.HTML:
		return v
	case string:
		return interfaces.HTML(v)
	default:
		return interfaces.HTML(fmt.Sprint(v))
	}
}

func (r *Resolver) renderMarkdown(value any) any {
	var source string
	switch v := value.(type) {
	case nil:
		return interfaces.HTML("")
	case interfaces.HTML:
		return v
	case string:
		source = v
	default:
		return value
	}
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(source), &buf); err != nil {
		r.logger.Warn("references.markdown.failed", "error", err)
		return source
	}
	return interfaces.HTML(buf.String())
}
