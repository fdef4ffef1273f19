package render

import (
	"context"
	"errors"
	"fmt"
	"html"
	"maps"
	"strings"

	"github.com/goliatone/go-pagekit/internal/domain"
	"github.com/goliatone/go-pagekit/internal/logging"
	"github.com/goliatone/go-pagekit/internal/references"
	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

// LayoutContent is the pre-rendered markup of the three page regions.
type LayoutContent struct {
	Header string
	Main   string
	Footer string
}

// LayoutRequest describes a page layout render.
type LayoutRequest struct {
	ProjectID     string
	Content       LayoutContent
	Page          *domain.Page
	ThemeSettings domain.ThemeSettings
	Mode          domain.RenderMode
	Shared        *Context
	Scope         map[string]any
}

// RenderPageLayout assembles the page document through the project layout.
// A missing layout, a failing layout template or a layout that drops one of
// the regions yields a fallback document that still carries the header, main
// and footer markup verbatim.
func (s *Service) RenderPageLayout(ctx context.Context, req LayoutRequest) (string, error) {
	logger := logging.WithProjectContext(s.logger, req.ProjectID, "render_layout")
	session := s.session(req.Shared, req.ProjectID, req.Mode, req.ThemeSettings)
	data := s.layoutData(session, req)

	source, err := s.loadLayout(ctx, req.ProjectID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(source) == "" {
		logger.Warn("render.layout.missing")
		return layoutErrorFragment(data, req.Content, "layout template not found"), nil
	}

	out, err := s.executor.Execute(ctx, source, data)
	if err != nil {
		logger.Error("render.layout.template_failed", "error", err)
		return layoutErrorFragment(data, req.Content, "layout template failed"), nil
	}
	if !containsRegions(out, req.Content) {
		logger.Warn("render.layout.regions_missing")
		return layoutErrorFragment(data, req.Content, "layout template omits page content"), nil
	}
	return out, nil
}

func (s *Service) loadLayout(ctx context.Context, projectID string) (string, error) {
	if s.layouts == nil {
		return "", nil
	}
	source, err := s.layouts.GetLayout(ctx, projectID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("render: load layout: %w", err)
	}
	return source, nil
}

func (s *Service) layoutData(session *Context, req LayoutRequest) map[string]any {
	theme := req.ThemeSettings
	if theme == nil {
		theme = session.ThemeSettings()
	}
	mode := req.Mode
	if mode == "" {
		mode = session.Mode()
	}

	page := req.Page
	if page == nil {
		page = &domain.Page{}
	}
	pageSlug := references.NormalizeSlug(page.Slug)
	bodyClass := "page"
	if pageSlug != "" {
		bodyClass = "page-" + pageSlug
	}
	ogTitle := page.SEO.OGTitle
	if ogTitle == "" {
		ogTitle = page.Name
	}
	url := ""
	if req.Page != nil {
		url = s.resolver.URLs().PageURL(req.Page)
	}

	data := map[string]any{
		"page": map[string]any{
			"id":   page.ID,
			"uuid": page.UUID,
			"name": page.Name,
			"slug": page.Slug,
			"url":  url,
		},
		"title":      page.Name,
		"body_class": bodyClass,
		"seo": map[string]any{
			"description":   page.SEO.Description,
			"og_title":      ogTitle,
			"og_image":      page.SEO.OGImage,
			"canonical_url": page.SEO.CanonicalURL,
			"robots":        page.SEO.Robots,
		},
		"header":           interfaces.HTML(req.Content.Header),
		"main":             interfaces.HTML(req.Content.Main),
		"footer":           interfaces.HTML(req.Content.Footer),
		"enqueued_styles":  session.Styles(),
		"enqueued_scripts": session.Scripts(),
		"theme":            map[string]any(theme),
		"renderMode":       string(mode),
		"project":          req.ProjectID,
	}
	maps.Copy(data, req.Scope)
	maps.Copy(data, session.Globals())
	return data
}

func containsRegions(out string, content LayoutContent) bool {
	for _, region := range []string{content.Header, content.Main, content.Footer} {
		if region != "" && !strings.Contains(out, region) {
			return false
		}
	}
	return true
}

func layoutErrorFragment(data map[string]any, content LayoutContent, reason string) string {
	title, _ := data["title"].(string)
	bodyClass, _ := data["body_class"].(string)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	if styles, ok := data["enqueued_styles"].([]string); ok {
		for _, href := range styles {
			fmt.Fprintf(&b, "<link rel=\"stylesheet\" href=\"%s\">\n", html.EscapeString(href))
		}
	}
	b.WriteString("</head>\n")
	fmt.Fprintf(&b, "<body class=\"%s\">\n", html.EscapeString(bodyClass))
	fmt.Fprintf(&b, "<div class=\"layout-error\">%s</div>\n", html.EscapeString(reason))
	b.WriteString(content.Header)
	b.WriteString("\n<main>\n")
	b.WriteString(content.Main)
	b.WriteString("\n</main>\n")
	b.WriteString(content.Footer)
	if scripts, ok := data["enqueued_scripts"].([]string); ok {
		for _, src := range scripts {
			fmt.Fprintf(&b, "\n<script src=\"%s\"></script>", html.EscapeString(src))
		}
	}
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}
