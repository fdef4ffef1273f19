package mediausagecmd

import (
	"context"
	"errors"
	"fmt"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-pagekit/internal/commands"
	"github.com/goliatone/go-pagekit/internal/domain"
	"github.com/goliatone/go-pagekit/internal/logging"
	"github.com/goliatone/go-pagekit/internal/mediausage"
	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

const (
	refreshOperation      = "media_usage.refresh"
	updatePageOperation   = "media_usage.update_page"
	removePageOperation   = "media_usage.remove_page"
	updateGlobalOperation = "media_usage.update_global_widget"
	updateThemeOperation  = "media_usage.update_theme_settings"
)

// ErrProjectMissing is returned by the refresh handler when the project has
// no pages collection.
var ErrProjectMissing = errors.New("media usage command: project pages not found")

// Index is the subset of mediausage.Service the handlers drive.
type Index interface {
	RefreshAllMediaUsage(ctx context.Context, projectID string) (mediausage.Result, error)
	UpdatePageMediaUsage(ctx context.Context, projectID string, page *domain.Page) (mediausage.Result, error)
	RemovePageFromMediaUsage(ctx context.Context, projectID, pageID string) (mediausage.Result, error)
	UpdateGlobalWidgetMediaUsage(ctx context.Context, projectID, slotID string, widget domain.WidgetInstance) (mediausage.Result, error)
	UpdateThemeSettingsMediaUsage(ctx context.Context, projectID string, settings domain.ThemeSettings) (mediausage.Result, error)
}

// Sources loads the entities a handler re-indexes.
type Sources struct {
	Pages   interfaces.PageStore
	Globals interfaces.GlobalWidgetStore
	Theme   interfaces.ThemeSettingsStore
}

var (
	_ command.Commander[RefreshMediaUsageCommand]             = (*RefreshHandler)(nil)
	_ command.Commander[UpdatePageMediaUsageCommand]          = (*UpdatePageHandler)(nil)
	_ command.Commander[RemovePageMediaUsageCommand]          = (*RemovePageHandler)(nil)
	_ command.Commander[UpdateGlobalWidgetMediaUsageCommand]  = (*UpdateGlobalWidgetHandler)(nil)
	_ command.Commander[UpdateThemeSettingsMediaUsageCommand] = (*UpdateThemeSettingsHandler)(nil)
)

// RefreshHandler rebuilds a project's media usage index.
type RefreshHandler struct {
	inner *commands.Handler[RefreshMediaUsageCommand]
}

// NewRefreshHandler creates a refresh handler.
func NewRefreshHandler(index Index, logger interfaces.Logger, opts ...commands.HandlerOption[RefreshMediaUsageCommand]) *RefreshHandler {
	logger = logging.Fallback(logger)
	exec := func(ctx context.Context, msg RefreshMediaUsageCommand) error {
		result, err := index.RefreshAllMediaUsage(ctx, msg.ProjectID)
		if err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("%w: %s", ErrProjectMissing, result.Message)
		}
		logging.WithFields(logger, map[string]any{
			"project_id": msg.ProjectID,
			"in_use":     len(result.MediaPaths),
		}).Info("media_usage.command.refresh.completed", "message", result.Message)
		return nil
	}
	return &RefreshHandler{inner: commands.NewHandler(exec, handlerOptions(logger, refreshOperation, func(msg RefreshMediaUsageCommand) map[string]any {
		return map[string]any{"project_id": msg.ProjectID}
	}, opts)...)}
}

// Execute satisfies command.Commander[RefreshMediaUsageCommand].
func (h *RefreshHandler) Execute(ctx context.Context, msg RefreshMediaUsageCommand) error {
	return h.inner.Execute(ctx, msg)
}

// UpdatePageHandler re-indexes a stored page.
type UpdatePageHandler struct {
	inner *commands.Handler[UpdatePageMediaUsageCommand]
}

// NewUpdatePageHandler creates a page update handler.
func NewUpdatePageHandler(index Index, pages interfaces.PageStore, logger interfaces.Logger, opts ...commands.HandlerOption[UpdatePageMediaUsageCommand]) *UpdatePageHandler {
	logger = logging.Fallback(logger)
	exec := func(ctx context.Context, msg UpdatePageMediaUsageCommand) error {
		if pages == nil {
			return errors.New("media usage command: page store not configured")
		}
		page, err := pages.GetPage(ctx, msg.ProjectID, msg.PageID)
		if err != nil {
			return err
		}
		_, err = index.UpdatePageMediaUsage(ctx, msg.ProjectID, page)
		return err
	}
	return &UpdatePageHandler{inner: commands.NewHandler(exec, handlerOptions(logger, updatePageOperation, func(msg UpdatePageMediaUsageCommand) map[string]any {
		return map[string]any{"project_id": msg.ProjectID, "page_id": msg.PageID}
	}, opts)...)}
}

// Execute satisfies command.Commander[UpdatePageMediaUsageCommand].
func (h *UpdatePageHandler) Execute(ctx context.Context, msg UpdatePageMediaUsageCommand) error {
	return h.inner.Execute(ctx, msg)
}

// RemovePageHandler drops a page from the index.
type RemovePageHandler struct {
	inner *commands.Handler[RemovePageMediaUsageCommand]
}

// NewRemovePageHandler creates a page removal handler.
func NewRemovePageHandler(index Index, logger interfaces.Logger, opts ...commands.HandlerOption[RemovePageMediaUsageCommand]) *RemovePageHandler {
	logger = logging.Fallback(logger)
	exec := func(ctx context.Context, msg RemovePageMediaUsageCommand) error {
		_, err := index.RemovePageFromMediaUsage(ctx, msg.ProjectID, msg.PageID)
		return err
	}
	return &RemovePageHandler{inner: commands.NewHandler(exec, handlerOptions(logger, removePageOperation, func(msg RemovePageMediaUsageCommand) map[string]any {
		return map[string]any{"project_id": msg.ProjectID, "page_id": msg.PageID}
	}, opts)...)}
}

// Execute satisfies command.Commander[RemovePageMediaUsageCommand].
func (h *RemovePageHandler) Execute(ctx context.Context, msg RemovePageMediaUsageCommand) error {
	return h.inner.Execute(ctx, msg)
}

// UpdateGlobalWidgetHandler re-indexes a global widget slot. A slot that no
// longer exists is indexed as empty.
type UpdateGlobalWidgetHandler struct {
	inner *commands.Handler[UpdateGlobalWidgetMediaUsageCommand]
}

// NewUpdateGlobalWidgetHandler creates a global widget handler.
func NewUpdateGlobalWidgetHandler(index Index, globals interfaces.GlobalWidgetStore, logger interfaces.Logger, opts ...commands.HandlerOption[UpdateGlobalWidgetMediaUsageCommand]) *UpdateGlobalWidgetHandler {
	logger = logging.Fallback(logger)
	exec := func(ctx context.Context, msg UpdateGlobalWidgetMediaUsageCommand) error {
		var widget domain.WidgetInstance
		if globals != nil {
			stored, err := globals.GetGlobalWidget(ctx, msg.ProjectID, msg.SlotID)
			switch {
			case err == nil:
				widget = *stored
			case !errors.Is(err, interfaces.ErrNotFound):
				return err
			}
		}
		_, err := index.UpdateGlobalWidgetMediaUsage(ctx, msg.ProjectID, msg.SlotID, widget)
		return err
	}
	return &UpdateGlobalWidgetHandler{inner: commands.NewHandler(exec, handlerOptions(logger, updateGlobalOperation, func(msg UpdateGlobalWidgetMediaUsageCommand) map[string]any {
		return map[string]any{"project_id": msg.ProjectID, "slot_id": msg.SlotID}
	}, opts)...)}
}

// Execute satisfies command.Commander[UpdateGlobalWidgetMediaUsageCommand].
func (h *UpdateGlobalWidgetHandler) Execute(ctx context.Context, msg UpdateGlobalWidgetMediaUsageCommand) error {
	return h.inner.Execute(ctx, msg)
}

// UpdateThemeSettingsHandler re-indexes the stored theme settings.
type UpdateThemeSettingsHandler struct {
	inner *commands.Handler[UpdateThemeSettingsMediaUsageCommand]
}

// NewUpdateThemeSettingsHandler creates a theme settings handler.
func NewUpdateThemeSettingsHandler(index Index, theme interfaces.ThemeSettingsStore, logger interfaces.Logger, opts ...commands.HandlerOption[UpdateThemeSettingsMediaUsageCommand]) *UpdateThemeSettingsHandler {
	logger = logging.Fallback(logger)
	exec := func(ctx context.Context, msg UpdateThemeSettingsMediaUsageCommand) error {
		var settings domain.ThemeSettings
		if theme != nil {
			stored, err := theme.GetThemeSettings(ctx, msg.ProjectID)
			if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
				return err
			}
			settings = stored
		}
		_, err := index.UpdateThemeSettingsMediaUsage(ctx, msg.ProjectID, settings)
		return err
	}
	return &UpdateThemeSettingsHandler{inner: commands.NewHandler(exec, handlerOptions(logger, updateThemeOperation, func(msg UpdateThemeSettingsMediaUsageCommand) map[string]any {
		return map[string]any{"project_id": msg.ProjectID}
	}, opts)...)}
}

// Execute satisfies command.Commander[UpdateThemeSettingsMediaUsageCommand].
func (h *UpdateThemeSettingsHandler) Execute(ctx context.Context, msg UpdateThemeSettingsMediaUsageCommand) error {
	return h.inner.Execute(ctx, msg)
}

func handlerOptions[T command.Message](logger interfaces.Logger, operation string, fields func(T) map[string]any, extra []commands.HandlerOption[T]) []commands.HandlerOption[T] {
	opts := []commands.HandlerOption[T]{
		commands.WithLogger[T](logger),
		commands.WithOperation[T](operation),
		commands.WithMessageFields(fields),
		commands.WithTelemetry(commands.DefaultTelemetry[T](logger)),
	}
	return append(opts, extra...)
}
