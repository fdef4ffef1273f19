package references

import (
	"fmt"
	"strings"
	"sync"

	slug "github.com/goliatone/go-slug"
	urlkit "github.com/goliatone/go-urlkit"

	"github.com/goliatone/go-pagekit/internal/domain"
)

// PageURLBuilder derives the public URL of a page from its current slug.
type PageURLBuilder interface {
	PageURL(page *domain.Page) string
}

// SlugURLBuilder maps the index page to "index.html" and every other page to
// "<slug>.html", matching the layout of exported sites.
type SlugURLBuilder struct {
	IndexSlug string
	Extension string
}

// NewSlugURLBuilder returns the default builder.
func NewSlugURLBuilder() SlugURLBuilder {
	return SlugURLBuilder{IndexSlug: "index", Extension: ".html"}
}

// PageURL implements PageURLBuilder.
func (b SlugURLBuilder) PageURL(page *domain.Page) string {
	if page == nil {
		return ""
	}
	index := b.IndexSlug
	if index == "" {
		index = "index"
	}
	pageSlug := NormalizeSlug(page.Slug)
	if pageSlug == "" {
		pageSlug = index
	}
	return pageSlug + b.Extension
}

// NormalizeSlug applies go-slug rules, falling back to the trimmed input
// when the value cannot be normalised.
func NormalizeSlug(value string) string {
	trimmed := strings.Trim(strings.TrimSpace(value), "/")
	if trimmed == "" {
		return ""
	}
	normalized, err := slug.Normalize(trimmed)
	if err != nil || normalized == "" {
		return trimmed
	}
	return normalized
}

// URLKitBuilder resolves page URLs through a go-urlkit route group, falling
// back to Fallback when the route cannot be built.
type URLKitBuilder struct {
	manager   *urlkit.RouteManager
	group     string
	route     string
	slugParam string
	fallback  PageURLBuilder

	once     sync.Once
	resolved *urlkit.Group
	groupErr error
}

// URLKitBuilderOptions configures URLKitBuilder.
type URLKitBuilderOptions struct {
	Manager   *urlkit.RouteManager
	Group     string
	Route     string
	SlugParam string
	Fallback  PageURLBuilder
}

// NewURLKitBuilder constructs a builder backed by go-urlkit.
func NewURLKitBuilder(opts URLKitBuilderOptions) *URLKitBuilder {
	if opts.SlugParam == "" {
		opts.SlugParam = "slug"
	}
	if opts.Route == "" {
		opts.Route = "page"
	}
	if opts.Fallback == nil {
		opts.Fallback = NewSlugURLBuilder()
	}
	return &URLKitBuilder{
		manager:   opts.Manager,
		group:     strings.TrimSpace(opts.Group),
		route:     strings.TrimSpace(opts.Route),
		slugParam: opts.SlugParam,
		fallback:  opts.Fallback,
	}
}

// PageURL implements PageURLBuilder.
func (b *URLKitBuilder) PageURL(page *domain.Page) string {
	if page == nil {
		return ""
	}
	url, err := b.build(NormalizeSlug(page.Slug))
	if err != nil || url == "" {
		return b.fallback.PageURL(page)
	}
	return url
}

func (b *URLKitBuilder) build(pageSlug string) (url string, err error) {
	group, err := b.routeGroup()
	if err != nil {
		return "", err
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("references: urlkit builder panic: %v", rec)
		}
	}()
	return group.Builder(b.route).WithParam(b.slugParam, pageSlug).Build()
}

func (b *URLKitBuilder) routeGroup() (*urlkit.Group, error) {
	b.once.Do(func() {
		if b.manager == nil || b.group == "" {
			b.groupErr = fmt.Errorf("references: urlkit route group not configured")
			return
		}
		defer func() {
			if rec := recover(); rec != nil {
				b.groupErr = fmt.Errorf("references: route group %q not found", b.group)
			}
		}()
		parts := strings.Split(b.group, ".")
		current := b.manager.Group(parts[0])
		for _, part := range parts[1:] {
			current = current.Group(part)
		}
		b.resolved = current
	})
	return b.resolved, b.groupErr
}
