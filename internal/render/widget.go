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
	"github.com/goliatone/go-pagekit/internal/schema"
	"github.com/goliatone/go-pagekit/internal/widgets"
)

// WidgetRequest describes one widget render.
type WidgetRequest struct {
	ProjectID     string
	WidgetID      string
	Widget        domain.WidgetInstance
	ThemeSettings domain.ThemeSettings
	Mode          domain.RenderMode
	// Shared is the session cache. When nil a private session is used.
	Shared *Context
	// Index is the 1-based position of the widget on the page.
	Index int
	// Scope holds extra template variables.
	Scope map[string]any
}

// RenderWidget renders a single widget instance. A widget whose type is
// unknown, whose definition is broken or whose template fails renders as an
// inline error fragment; only store failures are returned as errors.
func (s *Service) RenderWidget(ctx context.Context, req WidgetRequest) (string, error) {
	widget := req.Widget
	if req.WidgetID != "" {
		widget.ID = req.WidgetID
	}
	logger := logging.WithProjectContext(s.logger, req.ProjectID, "render_widget")

	result, err := s.definitions.Lookup(ctx, req.ProjectID, widget.Type)
	if err != nil {
		if errors.Is(err, widgets.ErrDefinitionInvalid) {
			logger.Warn("render.widget.invalid_definition", "widget_type", widget.Type, "error", err)
			return widgetErrorFragment(widget, "definition is invalid"), nil
		}
		return "", fmt.Errorf("render: lookup widget %q: %w", widget.Type, err)
	}
	if !result.Found {
		logger.Warn("render.widget.missing_template", "widget_type", widget.Type, "widget_id", widget.ID)
		return widgetErrorFragment(widget, "template not found"), nil
	}
	def := result.Definition

	session := s.session(req.Shared, req.ProjectID, req.Mode, req.ThemeSettings)
	theme := req.ThemeSettings
	if theme == nil {
		theme = session.ThemeSettings()
	}
	mode := req.Mode
	if mode == "" {
		mode = session.Mode()
	}

	resolved := schema.ResolveWidget(def.Manifest, widget)
	settings, err := s.resolver.ResolveSettings(ctx, session, def.Schema().Types(), resolved.Settings)
	if err != nil {
		return "", err
	}
	blocks := make(map[string]any, len(resolved.Blocks))
	blockList := make([]any, 0, len(resolved.BlocksOrder))
	for id, block := range resolved.Blocks {
		blockSchema, _ := def.Manifest.BlockSchema(block.Type)
		blockSettings, err := s.resolver.ResolveSettings(ctx, session, blockSchema.Types(), block.Settings)
		if err != nil {
			return "", err
		}
		blocks[id] = map[string]any{
			"id":       block.ID,
			"type":     block.Type,
			"settings": blockSettings,
		}
	}
	for _, id := range resolved.BlocksOrder {
		blockList = append(blockList, blocks[id])
	}

	enqueueAssets(session, def.Assets())

	data := map[string]any{
		"widget": map[string]any{
			"id":          resolved.ID,
			"type":        resolved.Type,
			"index":       req.Index,
			"settings":    settings,
			"blocks":      blocks,
			"blocksOrder": resolved.BlocksOrder,
			"blockList":   blockList,
		},
		"theme":      map[string]any(theme),
		"renderMode": string(mode),
		"project":    req.ProjectID,
	}
	maps.Copy(data, req.Scope)
	maps.Copy(data, session.Globals())

	out, err := s.executor.Execute(ctx, def.Template, data)
	if err != nil {
		logger.Error("render.widget.template_failed", "widget_type", widget.Type, "widget_id", widget.ID, "error", err)
		return widgetErrorFragment(widget, "template failed"), nil
	}
	return out, nil
}

// PageRequest describes the render of every widget on a page.
type PageRequest struct {
	ProjectID     string
	Page          *domain.Page
	ThemeSettings domain.ThemeSettings
	Mode          domain.RenderMode
	Shared        *Context
	Scope         map[string]any
}

// RenderWidgets renders the page widgets in order through one session and
// returns the concatenated markup.
func (s *Service) RenderWidgets(ctx context.Context, req PageRequest) (string, error) {
	if req.Page == nil {
		return "", nil
	}
	session := s.session(req.Shared, req.ProjectID, req.Mode, req.ThemeSettings)
	var b strings.Builder
	for i, widget := range req.Page.OrderedWidgets() {
		out, err := s.RenderWidget(ctx, WidgetRequest{
			ProjectID:     req.ProjectID,
			Widget:        widget,
			ThemeSettings: req.ThemeSettings,
			Mode:          req.Mode,
			Shared:        session,
			Index:         i + 1,
			Scope:         req.Scope,
		})
		if err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

func widgetErrorFragment(widget domain.WidgetInstance, reason string) string {
	widgetType := html.EscapeString(widget.Type)
	return fmt.Sprintf(
		`<div class="widget-error" data-widget-type="%s" data-widget-id="%s">Widget "%s": %s</div>`,
		widgetType, html.EscapeString(widget.ID), widgetType, html.EscapeString(reason),
	)
}
