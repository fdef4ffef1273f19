package render

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/goliatone/go-pagekit/internal/domain"
	"github.com/goliatone/go-pagekit/internal/widgets"
	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// pathExecutor substitutes {{ dotted.path }} placeholders, escaping every
// value except interfaces.HTML.
func pathExecutor() interfaces.TemplateExecutor {
	return interfaces.TemplateExecutorFunc(func(_ context.Context, source string, data map[string]any) (string, error) {
		return placeholder.ReplaceAllStringFunc(source, func(match string) string {
			path := placeholder.FindStringSubmatch(match)[1]
			switch v := lookupPath(data, path).(type) {
			case nil:
				return ""
			case interfaces.HTML:
				return string(v)
			default:
				return html.EscapeString(fmt.Sprint(v))
			}
		}), nil
	})
}

func lookupPath(data map[string]any, path string) any {
	var current any = data
	for _, part := range strings.Split(path, ".") {
		values, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = values[part]
	}
	return current
}

type themeSource struct {
	defs map[string]*widgets.Definition
}

func (s *themeSource) Definition(_ context.Context, _ string, widgetType string) (*widgets.Definition, error) {
	def, ok := s.defs[widgetType]
	if !ok {
		return nil, widgets.ErrDefinitionNotFound
	}
	return def, nil
}

func mustDefinition(widgetType, template, sidecar string) *widgets.Definition {
	def, err := widgets.ParseDefinition(widgetType, []byte(template), []byte(sidecar))
	if err != nil {
		panic(err)
	}
	return def
}

type pageStore struct {
	mu    sync.Mutex
	pages []domain.Page
	err   error
	calls int
}

func (s *pageStore) ListPages(context.Context, string) ([]domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.Page(nil), s.pages...), nil
}

func (s *pageStore) GetPage(_ context.Context, _ string, pageID string) (*domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pages {
		if s.pages[i].ID == pageID {
			page := s.pages[i]
			return &page, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (s *pageStore) rename(pageID, slug string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pages {
		if s.pages[i].ID == pageID {
			s.pages[i].Slug = slug
		}
	}
}

type menuStore struct {
	menus []domain.Menu
}

func (s *menuStore) ListMenus(context.Context, string) ([]domain.Menu, error) {
	return s.menus, nil
}

func (s *menuStore) GetMenu(_ context.Context, _ string, idOrUUID string) (*domain.Menu, error) {
	for i := range s.menus {
		if s.menus[i].UUID == idOrUUID || s.menus[i].ID == idOrUUID {
			return &s.menus[i], nil
		}
	}
	return nil, interfaces.ErrNotFound
}

type layoutSource struct {
	source string
	err    error
}

func (s layoutSource) GetLayout(context.Context, string) (string, error) {
	return s.source, s.err
}
