package pagekit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	urlkit "github.com/goliatone/go-urlkit"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-pagekit/internal/commands"
	mediausagecmd "github.com/goliatone/go-pagekit/internal/commands/mediausage"
	"github.com/goliatone/go-pagekit/internal/domain"
	"github.com/goliatone/go-pagekit/internal/jobs"
	"github.com/goliatone/go-pagekit/internal/logging"
	"github.com/goliatone/go-pagekit/internal/logging/gologger"
	"github.com/goliatone/go-pagekit/internal/mediausage"
	"github.com/goliatone/go-pagekit/internal/references"
	"github.com/goliatone/go-pagekit/internal/render"
	"github.com/goliatone/go-pagekit/internal/runtimeconfig"
	"github.com/goliatone/go-pagekit/internal/storage"
	"github.com/goliatone/go-pagekit/internal/templates"
	"github.com/goliatone/go-pagekit/internal/watch"
	"github.com/goliatone/go-pagekit/internal/widgets"
	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

// Global widget slots rendered into the layout header and footer regions.
const (
	HeaderSlot = "header"
	FooterSlot = "footer"
)

type (
	RenderMode  = domain.RenderMode
	MediaResult = mediausage.Result
	Usage       = mediausage.Usage
)

const (
	RenderModePreview = domain.RenderModePreview
	RenderModePublish = domain.RenderModePublish
)

// ParseRenderMode parses "preview" or "publish", defaulting to preview.
func ParseRenderMode(value string) (RenderMode, error) {
	return domain.ParseRenderMode(value)
}

// ErrMediaNotFound is matched by MediaUsage for unknown file ids.
var ErrMediaNotFound = mediausage.ErrMediaNotFound

// Module is the engine facade: file-backed stores, the renderer, the media
// usage index and its background maintenance.
type Module struct {
	cfg      Config
	provider interfaces.LoggerProvider
	logger   interfaces.Logger

	files    *storage.FileStore
	media    interfaces.MediaStore
	db       *bun.DB
	themes   *widgets.DirectorySource
	renderer *render.Service
	usage    *mediausage.Service
	handlers *mediausagecmd.HandlerSet
	worker   *jobs.Worker

	executor interfaces.TemplateExecutor
	registry commands.CommandRegistry
	watchers []*watch.Watcher
}

// Option customises module assembly.
type Option func(*Module)

// WithLoggerProvider replaces the provider built from Config.Logging.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(m *Module) { m.provider = provider }
}

// WithTemplateExecutor replaces the pongo2 executor.
func WithTemplateExecutor(executor interfaces.TemplateExecutor) Option {
	return func(m *Module) { m.executor = executor }
}

// WithMediaStore replaces the media store selected by Config.Storage.
func WithMediaStore(store interfaces.MediaStore) Option {
	return func(m *Module) { m.media = store }
}

// WithCommandRegistry registers the media usage command handlers.
func WithCommandRegistry(registry commands.CommandRegistry) Option {
	return func(m *Module) { m.registry = registry }
}

// New validates cfg and assembles a module.
func New(cfg Config, opts ...Option) (*Module, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pagekit: invalid config: %w", err)
	}
	m := &Module{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	if m.provider == nil {
		provider, err := newLoggerProvider(cfg.Logging)
		if err != nil {
			return nil, err
		}
		m.provider = provider
	}
	m.logger = logging.ModuleLogger(m.provider, "pagekit")

	m.files = storage.NewFileStore(cfg.DataDir)
	if m.media == nil {
		media, db, err := openMediaStore(context.Background(), cfg.Storage, m.files)
		if err != nil {
			return nil, err
		}
		m.media, m.db = media, db
	}

	if m.executor == nil {
		m.executor = templates.NewPongoExecutor()
	}
	sanitizer, err := templates.PolicySanitizer(cfg.Render.RichTextPolicy)
	if err != nil {
		return nil, err
	}

	widgetsRoot := cfg.Render.ThemeWidgetsDir
	if strings.TrimSpace(widgetsRoot) == "" {
		widgetsRoot = cfg.DataDir
	}
	m.themes = widgets.NewDirectorySource(widgetsRoot)
	registry, err := widgets.NewCoreRegistry(m.themes)
	if err != nil {
		return nil, err
	}

	renderLogger := logging.RenderLogger(m.provider)
	resolver := references.NewResolver(
		references.WithURLBuilder(urlBuilder(cfg.Render.URLs)),
		references.WithSanitizer(sanitizer),
		references.WithLogger(renderLogger),
	)
	m.renderer = render.NewService(registry, m.executor,
		render.WithResolver(resolver),
		render.WithPageStore(m.files),
		render.WithMenuStore(m.files),
		render.WithLayoutSource(m.files),
		render.WithLogger(renderLogger),
	)

	m.usage = mediausage.NewService(mediausage.Stores{
		Media:   m.media,
		Pages:   m.files,
		Globals: m.files,
		Theme:   m.files,
	}, mediausage.WithLogger(logging.MediaLogger(m.provider)))

	m.handlers, err = mediausagecmd.RegisterMediaUsageCommands(m.registry, m.usage, mediausagecmd.Sources{
		Pages:   m.files,
		Globals: m.files,
		Theme:   m.files,
	}, m.provider)
	if err != nil {
		return nil, err
	}
	m.worker = jobs.NewWorker(m.usage, m.files, jobs.WithLogger(logging.JobsLogger(m.provider)))
	return m, nil
}

func newLoggerProvider(cfg runtimeconfig.LoggingConfig) (interfaces.LoggerProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case runtimeconfig.LoggingProviderNone:
		return nil, nil
	default:
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     cfg.Level,
			Format:    cfg.Format,
			AddSource: cfg.AddSource,
			Focus:     cfg.Focus,
		})
		if err != nil {
			return nil, err
		}
		return provider, nil
	}
}

func openMediaStore(ctx context.Context, cfg runtimeconfig.StorageConfig, files *storage.FileStore) (interfaces.MediaStore, *bun.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Media))
	if driver == "" || driver == runtimeconfig.MediaStorageFile {
		return files, nil, nil
	}
	db, err := storage.OpenDB(driver, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := storage.MigrateMedia(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return storage.NewBunMediaStore(db), db, nil
}

func urlBuilder(cfg runtimeconfig.URLConfig) references.PageURLBuilder {
	if cfg.RouteConfig == nil {
		return references.NewSlugURLBuilder()
	}
	return references.NewURLKitBuilder(references.URLKitBuilderOptions{
		Manager:   urlkit.NewRouteManager(cfg.RouteConfig),
		Group:     cfg.Group,
		Route:     cfg.Route,
		SlugParam: cfg.SlugParam,
	})
}

// Store returns the file-backed entity store.
func (m *Module) Store() *storage.FileStore { return m.files }

// Renderer returns the widget and layout renderer.
func (m *Module) Renderer() *render.Service { return m.renderer }

// MediaIndex returns the media usage index.
func (m *Module) MediaIndex() *mediausage.Service { return m.usage }

// Commands returns the media usage command handlers.
func (m *Module) Commands() *mediausagecmd.HandlerSet { return m.handlers }

// ReloadWidgets drops the cached theme widget definitions of a project.
func (m *Module) ReloadWidgets(projectID string) { m.themes.Invalidate(projectID) }

// Logger returns a module-scoped logger.
func (m *Module) Logger(module string) interfaces.Logger {
	return logging.ModuleLogger(m.provider, module)
}

// RenderPage renders a stored page through the project layout. Global widgets
// in the header and footer slots fill the matching layout regions, and every
// widget shares one render session.
func (m *Module) RenderPage(ctx context.Context, projectID, pageID string, mode RenderMode) (string, error) {
	page, err := m.files.GetPage(ctx, projectID, pageID)
	if err != nil {
		return "", err
	}
	theme, err := m.files.GetThemeSettings(ctx, projectID)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return "", err
	}
	session := m.renderer.NewSession(projectID, mode, theme)

	header, err := m.renderSlot(ctx, session, projectID, HeaderSlot, theme, mode)
	if err != nil {
		return "", err
	}
	main, err := m.renderer.RenderWidgets(ctx, render.PageRequest{
		ProjectID:     projectID,
		Page:          page,
		ThemeSettings: theme,
		Mode:          mode,
		Shared:        session,
	})
	if err != nil {
		return "", err
	}
	footer, err := m.renderSlot(ctx, session, projectID, FooterSlot, theme, mode)
	if err != nil {
		return "", err
	}

	return m.renderer.RenderPageLayout(ctx, render.LayoutRequest{
		ProjectID:     projectID,
		Content:       render.LayoutContent{Header: header, Main: main, Footer: footer},
		Page:          page,
		ThemeSettings: theme,
		Mode:          mode,
		Shared:        session,
	})
}

func (m *Module) renderSlot(ctx context.Context, session *render.Context, projectID, slot string, theme domain.ThemeSettings, mode RenderMode) (string, error) {
	widget, err := m.files.GetGlobalWidget(ctx, projectID, slot)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if widget.ID == "" {
		widget.ID = domain.GlobalWidgetToken(slot)
	}
	return m.renderer.RenderWidget(ctx, render.WidgetRequest{
		ProjectID:     projectID,
		WidgetID:      widget.ID,
		Widget:        *widget,
		ThemeSettings: theme,
		Mode:          mode,
		Shared:        session,
		Scope:         map[string]any{"slot": slot},
	})
}

// RefreshMediaUsage rebuilds the media usage index of a project.
func (m *Module) RefreshMediaUsage(ctx context.Context, projectID string) (MediaResult, error) {
	return m.usage.RefreshAllMediaUsage(ctx, projectID)
}

// MediaUsage reports which entities reference a media file.
func (m *Module) MediaUsage(ctx context.Context, projectID, fileID string) (Usage, error) {
	return m.usage.GetMediaUsage(ctx, projectID, fileID)
}

// Start launches the configured background maintenance: the cron rebuild
// and, when enabled, a page watcher per project.
func (m *Module) Start(ctx context.Context) error {
	if schedule := strings.TrimSpace(m.cfg.Media.RebuildSchedule); schedule != "" {
		if err := m.worker.Start(schedule); err != nil {
			return err
		}
	}
	if !m.cfg.Media.Watch.Enabled {
		return nil
	}
	projects, err := m.files.Projects()
	if err != nil {
		return err
	}
	for _, projectID := range projects {
		if err := m.Watch(ctx, projectID); err != nil {
			return err
		}
	}
	return nil
}

// Watch starts a page watcher for one project.
func (m *Module) Watch(ctx context.Context, projectID string) error {
	dir, err := m.files.PagesDir(projectID)
	if err != nil {
		return err
	}
	w := watch.New(projectID, dir, m.files, m.usage,
		watch.WithDebounce(m.cfg.Media.Watch.Debounce),
		watch.WithLogger(logging.WatchLogger(m.provider)),
	)
	if err := w.Start(ctx); err != nil {
		return err
	}
	m.watchers = append(m.watchers, w)
	return nil
}

// Close stops background work and releases the database.
func (m *Module) Close() error {
	m.worker.Stop()
	var errs []error
	for _, w := range m.watchers {
		errs = append(errs, w.Stop())
	}
	m.watchers = nil
	if m.db != nil {
		errs = append(errs, m.db.Close())
		m.db = nil
	}
	return errors.Join(errs...)
}
