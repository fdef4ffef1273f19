package interfaces

import (
	"context"
	"errors"

	"github.com/goliatone/go-pagekit/internal/domain"
)

var (
	// ErrNotFound is returned (wrapped) by stores when an entity is missing.
	ErrNotFound = errors.New("store: not found")
	// ErrProjectNotFound is returned by PageStore.ListPages when the project
	// has no pages collection at all, as opposed to an empty one.
	ErrProjectNotFound = errors.New("store: project pages not found")
)

// PageStore exposes project pages.
type PageStore interface {
	ListPages(ctx context.Context, projectID string) ([]domain.Page, error)
	GetPage(ctx context.Context, projectID, pageID string) (*domain.Page, error)
}

// MenuStore exposes project menus.
type MenuStore interface {
	ListMenus(ctx context.Context, projectID string) ([]domain.Menu, error)
	GetMenu(ctx context.Context, projectID, idOrUUID string) (*domain.Menu, error)
}

// MediaStore exposes the media collection of a project. WriteMedia upserts
// the supplied records by id and leaves every other record untouched.
type MediaStore interface {
	ListMedia(ctx context.Context, projectID string) ([]domain.MediaRecord, error)
	WriteMedia(ctx context.Context, projectID string, records []domain.MediaRecord) error
}

// GlobalWidgetStore exposes widgets shared across a site, keyed by slot.
type GlobalWidgetStore interface {
	ListGlobalWidgets(ctx context.Context, projectID string) (map[string]domain.WidgetInstance, error)
	GetGlobalWidget(ctx context.Context, projectID, slotID string) (*domain.WidgetInstance, error)
}

// ThemeSettingsStore exposes the raw theme settings document of a project.
type ThemeSettingsStore interface {
	GetThemeSettings(ctx context.Context, projectID string) (domain.ThemeSettings, error)
}

// LayoutSource loads the page layout template of a project.
type LayoutSource interface {
	GetLayout(ctx context.Context, projectID string) (string, error)
}
