package render

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/goliatone/go-pagekit/internal/domain"
	"github.com/goliatone/go-pagekit/internal/references"
	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

// ContextConfig describes a render session.
type ContextConfig struct {
	ProjectID     string
	Mode          domain.RenderMode
	ThemeSettings domain.ThemeSettings
	Pages         interfaces.PageStore
	Menus         interfaces.MenuStore
	Globals       map[string]any
}

// Stats counts the expensive lookups a session performed.
type Stats struct {
	PageLoads int
	MenuLoads int
}

// Context is the caller-owned cache shared by every widget rendered in one
// page or export pass. It must not be shared between sessions; it is safe for
// concurrent widget renders within its own session.
type Context struct {
	projectID string
	mode      domain.RenderMode
	theme     domain.ThemeSettings
	pages     interfaces.PageStore
	menus     interfaces.MenuStore

	mu          sync.Mutex
	globals     map[string]any
	pagesByUUID map[string]*domain.Page
	menuList    []domain.Menu
	menusLoaded bool
	styles      assetList
	scripts     assetList
	stats       Stats
}

var _ references.Lookup = (*Context)(nil)

// NewContext starts a render session.
func NewContext(cfg ContextConfig) *Context {
	mode := cfg.Mode
	if mode == "" {
		mode = domain.RenderModePreview
	}
	return &Context{
		projectID: strings.TrimSpace(cfg.ProjectID),
		mode:      mode,
		theme:     cfg.ThemeSettings,
		pages:     cfg.Pages,
		menus:     cfg.Menus,
		globals:   maps.Clone(cfg.Globals),
	}
}

// ProjectID returns the session project.
func (c *Context) ProjectID() string { return c.projectID }

// Mode returns the session render mode.
func (c *Context) Mode() domain.RenderMode { return c.mode }

// ThemeSettings returns the raw theme settings bound to the session.
func (c *Context) ThemeSettings() domain.ThemeSettings { return c.theme }

// PageByUUID implements references.Lookup. The page index is built from the
// page store on first use and reused for the rest of the session. A project
// without a pages collection yields an empty index.
func (c *Context) PageByUUID(ctx context.Context, uuid string) (*domain.Page, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadPagesLocked(ctx); err != nil {
		return nil, false, err
	}
	page, ok := c.pagesByUUID[strings.TrimSpace(uuid)]
	return page, ok, nil
}

func (c *Context) loadPagesLocked(ctx context.Context) error {
	if c.pagesByUUID != nil {
		return nil
	}
	index := map[string]*domain.Page{}
	if c.pages != nil {
		c.stats.PageLoads++
		pages, err := c.pages.ListPages(ctx, c.projectID)
		if err != nil && !errors.Is(err, interfaces.ErrProjectNotFound) {
			return fmt.Errorf("render: load pages: %w", err)
		}
		for i := range pages {
			page := pages[i]
			if page.UUID == "" {
				continue
			}
			index[page.UUID] = &page
		}
	}
	c.pagesByUUID = index
	return nil
}

// Menus implements references.Lookup, loading the project menus once.
func (c *Context) Menus(ctx context.Context) ([]domain.Menu, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.menusLoaded {
		return c.menuList, nil
	}
	if c.menus != nil {
		c.stats.MenuLoads++
		menus, err := c.menus.ListMenus(ctx, c.projectID)
		if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
			return nil, fmt.Errorf("render: load menus: %w", err)
		}
		c.menuList = menus
	}
	c.menusLoaded = true
	return c.menuList, nil
}

// EnqueueStyle adds a stylesheet URL once per session.
func (c *Context) EnqueueStyle(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.styles.add(url)
}

// EnqueueScript adds a script URL once per session.
func (c *Context) EnqueueScript(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts.add(url)
}

// Styles returns the enqueued stylesheets in insertion order.
func (c *Context) Styles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.styles.list()
}

// Scripts returns the enqueued scripts in insertion order.
func (c *Context) Scripts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scripts.list()
}

// SetGlobal stores a value exposed to every template rendered in the session.
func (c *Context) SetGlobal(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.globals == nil {
		c.globals = map[string]any{}
	}
	c.globals[key] = value
}

// Globals returns a copy of the session globals.
func (c *Context) Globals() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.globals)
}

// Stats returns the lookup counters of the session.
func (c *Context) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

type assetList struct {
	items []string
	seen  map[string]struct{}
}

func (a *assetList) add(url string) {
	url = strings.TrimSpace(url)
	if url == "" {
		return
	}
	if a.seen == nil {
		a.seen = map[string]struct{}{}
	}
	if _, ok := a.seen[url]; ok {
		return
	}
	a.seen[url] = struct{}{}
	a.items = append(a.items, url)
}

func (a *assetList) list() []string {
	return append([]string(nil), a.items...)
}
