package mediausagecmd

import (
	"context"
	"errors"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-pagekit/internal/commands"
	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

// HandlerSet groups the media usage command handlers.
type HandlerSet struct {
	Refresh      *RefreshHandler
	UpdatePage   *UpdatePageHandler
	RemovePage   *RemovePageHandler
	UpdateGlobal *UpdateGlobalWidgetHandler
	UpdateTheme  *UpdateThemeSettingsHandler
}

// RegisterMediaUsageCommands builds the handlers and registers them with reg
// when it is non-nil.
func RegisterMediaUsageCommands(reg commands.CommandRegistry, index Index, sources Sources, provider interfaces.LoggerProvider) (*HandlerSet, error) {
	if index == nil {
		return nil, errors.New("media usage command registration: index is nil")
	}
	logger := commands.CommandLogger(provider, "media_usage")

	set := &HandlerSet{
		Refresh:      NewRefreshHandler(index, logger),
		UpdatePage:   NewUpdatePageHandler(index, sources.Pages, logger),
		RemovePage:   NewRemovePageHandler(index, logger),
		UpdateGlobal: NewUpdateGlobalWidgetHandler(index, sources.Globals, logger),
		UpdateTheme:  NewUpdateThemeSettingsHandler(index, sources.Theme, logger),
	}
	if reg != nil {
		for _, handler := range []any{set.Refresh, set.UpdatePage, set.RemovePage, set.UpdateGlobal, set.UpdateTheme} {
			if err := reg.RegisterCommand(handler); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}

// RegisterRefreshCron schedules a refresh of msg.ProjectID under
// cfg.Expression. The handler runs with a background context.
func RegisterRefreshCron(reg commands.CronRegistrar, handler *RefreshHandler, cfg command.HandlerConfig, msg RefreshMediaUsageCommand) error {
	if reg == nil || handler == nil {
		return nil
	}
	return reg(cfg, func() error {
		return handler.Execute(context.Background(), msg)
	})
}
