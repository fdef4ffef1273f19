package storage

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/goliatone/go-pagekit/internal/domain"
	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

// MemoryStore keeps every entity collection in memory. It implements all the
// store contracts and is used by tests and embedded hosts.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]*memoryProject
}

type memoryProject struct {
	pages   map[string]domain.Page
	menus   map[string]domain.Menu
	media   map[string]domain.MediaRecord
	globals map[string]domain.WidgetInstance
	theme   domain.ThemeSettings
	layout  string
}

var (
	_ interfaces.PageStore          = (*MemoryStore)(nil)
	_ interfaces.MenuStore          = (*MemoryStore)(nil)
	_ interfaces.MediaStore         = (*MemoryStore)(nil)
	_ interfaces.GlobalWidgetStore  = (*MemoryStore)(nil)
	_ interfaces.ThemeSettingsStore = (*MemoryStore)(nil)
	_ interfaces.LayoutSource       = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[string]*memoryProject)}
}

func (s *MemoryStore) project(projectID string) *memoryProject {
	p, ok := s.projects[projectID]
	if !ok {
		p = &memoryProject{
			menus:   map[string]domain.Menu{},
			media:   map[string]domain.MediaRecord{},
			globals: map[string]domain.WidgetInstance{},
		}
		s.projects[projectID] = p
	}
	return p
}

// EnsurePages creates an empty pages collection for the project.
func (s *MemoryStore) EnsurePages(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.project(projectID)
	if p.pages == nil {
		p.pages = map[string]domain.Page{}
	}
}

// PutPage stores a page.
func (s *MemoryStore) PutPage(projectID string, page domain.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.project(projectID)
	if p.pages == nil {
		p.pages = map[string]domain.Page{}
	}
	p.pages[page.ID] = page
}

// DeletePage removes a page.
func (s *MemoryStore) DeletePage(projectID, pageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.projects[projectID]; ok && p.pages != nil {
		delete(p.pages, pageID)
	}
}

// ListPages implements interfaces.PageStore.
func (s *MemoryStore) ListPages(_ context.Context, projectID string) ([]domain.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok || p.pages == nil {
		return nil, fmt.Errorf("project %q: %w", projectID, interfaces.ErrProjectNotFound)
	}
	out := make([]domain.Page, 0, len(p.pages))
	for _, id := range sortedKeys(p.pages) {
		out = append(out, p.pages[id])
	}
	return out, nil
}

// GetPage implements interfaces.PageStore.
func (s *MemoryStore) GetPage(_ context.Context, projectID, pageID string) (*domain.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.projects[projectID]; ok {
		if page, ok := p.pages[pageID]; ok {
			return &page, nil
		}
	}
	return nil, fmt.Errorf("page %q: %w", pageID, interfaces.ErrNotFound)
}

// PutMenu stores a menu keyed by id.
func (s *MemoryStore) PutMenu(projectID string, menu domain.Menu) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project(projectID).menus[menu.ID] = menu
}

// ListMenus implements interfaces.MenuStore.
func (s *MemoryStore) ListMenus(_ context.Context, projectID string) ([]domain.Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.Menu, 0, len(p.menus))
	for _, id := range sortedKeys(p.menus) {
		out = append(out, p.menus[id])
	}
	return out, nil
}

// GetMenu implements interfaces.MenuStore.
func (s *MemoryStore) GetMenu(ctx context.Context, projectID, idOrUUID string) (*domain.Menu, error) {
	menus, err := s.ListMenus(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return findMenu(menus, idOrUUID)
}

// PutMedia upserts media records.
func (s *MemoryStore) PutMedia(projectID string, records ...domain.MediaRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.project(projectID)
	for _, record := range records {
		p.media[record.ID] = cloneRecord(record)
	}
}

// ListMedia implements interfaces.MediaStore.
func (s *MemoryStore) ListMedia(_ context.Context, projectID string) ([]domain.MediaRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.MediaRecord, 0, len(p.media))
	for _, id := range sortedKeys(p.media) {
		out = append(out, cloneRecord(p.media[id]))
	}
	return out, nil
}

// WriteMedia implements interfaces.MediaStore.
func (s *MemoryStore) WriteMedia(_ context.Context, projectID string, records []domain.MediaRecord) error {
	s.PutMedia(projectID, records...)
	return nil
}

// PutGlobalWidget stores the widget of a global slot.
func (s *MemoryStore) PutGlobalWidget(projectID, slotID string, widget domain.WidgetInstance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project(projectID).globals[slotID] = widget
}

// ListGlobalWidgets implements interfaces.GlobalWidgetStore.
func (s *MemoryStore) ListGlobalWidgets(_ context.Context, projectID string) (map[string]domain.WidgetInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok {
		return map[string]domain.WidgetInstance{}, nil
	}
	return maps.Clone(p.globals), nil
}

// GetGlobalWidget implements interfaces.GlobalWidgetStore.
func (s *MemoryStore) GetGlobalWidget(_ context.Context, projectID, slotID string) (*domain.WidgetInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.projects[projectID]; ok {
		if widget, ok := p.globals[slotID]; ok {
			return &widget, nil
		}
	}
	return nil, fmt.Errorf("global widget %q: %w", slotID, interfaces.ErrNotFound)
}

// SetThemeSettings replaces the theme settings document.
func (s *MemoryStore) SetThemeSettings(projectID string, settings domain.ThemeSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project(projectID).theme = settings
}

// GetThemeSettings implements interfaces.ThemeSettingsStore.
func (s *MemoryStore) GetThemeSettings(_ context.Context, projectID string) (domain.ThemeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.projects[projectID]; ok && p.theme != nil {
		return p.theme, nil
	}
	return nil, fmt.Errorf("theme settings %q: %w", projectID, interfaces.ErrNotFound)
}

// SetLayout replaces the layout template.
func (s *MemoryStore) SetLayout(projectID, layout string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project(projectID).layout = layout
}

// GetLayout implements interfaces.LayoutSource.
func (s *MemoryStore) GetLayout(_ context.Context, projectID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.projects[projectID]; ok && p.layout != "" {
		return p.layout, nil
	}
	return "", fmt.Errorf("layout %q: %w", projectID, interfaces.ErrNotFound)
}

func findMenu(menus []domain.Menu, idOrUUID string) (*domain.Menu, error) {
	for i := range menus {
		if menus[i].UUID == idOrUUID || menus[i].ID == idOrUUID {
			menu := menus[i]
			return &menu, nil
		}
	}
	return nil, fmt.Errorf("menu %q: %w", idOrUUID, interfaces.ErrNotFound)
}

func cloneRecord(record domain.MediaRecord) domain.MediaRecord {
	if record.UsedIn != nil {
		record.UsedIn = append([]string{}, record.UsedIn...)
	}
	return record
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
