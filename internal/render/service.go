package render

import (
	"context"

	"github.com/goliatone/go-pagekit/internal/domain"
	"github.com/goliatone/go-pagekit/internal/logging"
	"github.com/goliatone/go-pagekit/internal/references"
	"github.com/goliatone/go-pagekit/internal/widgets"
	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

// DefinitionLookup resolves widget types to definitions.
type DefinitionLookup interface {
	Lookup(ctx context.Context, projectID, widgetType string) (widgets.LookupResult, error)
}

// Service renders widgets and page layouts.
type Service struct {
	definitions DefinitionLookup
	executor    interfaces.TemplateExecutor
	resolver    *references.Resolver
	pages       interfaces.PageStore
	menus       interfaces.MenuStore
	layouts     interfaces.LayoutSource
	logger      interfaces.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithResolver overrides the reference resolver.
func WithResolver(resolver *references.Resolver) ServiceOption {
	return func(s *Service) {
		if resolver != nil {
			s.resolver = resolver
		}
	}
}

// WithPageStore sets the store backing session page indexes.
func WithPageStore(store interfaces.PageStore) ServiceOption {
	return func(s *Service) { s.pages = store }
}

// WithMenuStore sets the store backing menu settings.
func WithMenuStore(store interfaces.MenuStore) ServiceOption {
	return func(s *Service) { s.menus = store }
}

// WithLayoutSource sets the loader for project layout templates.
func WithLayoutSource(source interfaces.LayoutSource) ServiceOption {
	return func(s *Service) { s.layouts = source }
}

// WithLogger sets the service logger.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *Service) { s.logger = logging.Fallback(logger) }
}

// NewService constructs a renderer.
func NewService(definitions DefinitionLookup, executor interfaces.TemplateExecutor, opts ...ServiceOption) *Service {
	s := &Service{
		definitions: definitions,
		executor:    executor,
		resolver:    references.NewResolver(),
		logger:      logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSession starts a render context bound to the service stores.
func (s *Service) NewSession(projectID string, mode domain.RenderMode, theme domain.ThemeSettings) *Context {
	return NewContext(ContextConfig{
		ProjectID:     projectID,
		Mode:          mode,
		ThemeSettings: theme,
		Pages:         s.pages,
		Menus:         s.menus,
	})
}

func (s *Service) session(shared *Context, projectID string, mode domain.RenderMode, theme domain.ThemeSettings) *Context {
	if shared != nil {
		return shared
	}
	return s.NewSession(projectID, mode, theme)
}
