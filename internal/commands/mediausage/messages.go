package mediausagecmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	refreshMessageType       = "pagekit.media_usage.refresh"
	updatePageMessageType    = "pagekit.media_usage.update_page"
	removePageMessageType    = "pagekit.media_usage.remove_page"
	updateGlobalMessageType  = "pagekit.media_usage.update_global_widget"
	updateThemeMessageType   = "pagekit.media_usage.update_theme_settings"
	projectRequiredErrorCode = "pagekit.media_usage.project_required"
)

// RefreshMediaUsageCommand rebuilds the whole media usage index of a project.
type RefreshMediaUsageCommand struct {
	ProjectID string `json:"project_id"`
}

// Type implements command.Message.
func (RefreshMediaUsageCommand) Type() string { return refreshMessageType }

// Validate implements command.Message.
func (cmd RefreshMediaUsageCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.ProjectID, validation.By(requiredText(projectRequiredErrorCode, "project_id is required"))),
	)
}

// UpdatePageMediaUsageCommand re-indexes a single stored page.
type UpdatePageMediaUsageCommand struct {
	ProjectID string `json:"project_id"`
	PageID    string `json:"page_id"`
}

// Type implements command.Message.
func (UpdatePageMediaUsageCommand) Type() string { return updatePageMessageType }

// Validate implements command.Message.
func (cmd UpdatePageMediaUsageCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.ProjectID, validation.By(requiredText(projectRequiredErrorCode, "project_id is required"))),
		validation.Field(&cmd.PageID, validation.By(requiredText("pagekit.media_usage.page_required", "page_id is required"))),
	)
}

// RemovePageMediaUsageCommand drops a deleted page from the index.
type RemovePageMediaUsageCommand struct {
	ProjectID string `json:"project_id"`
	PageID    string `json:"page_id"`
}

// Type implements command.Message.
func (RemovePageMediaUsageCommand) Type() string { return removePageMessageType }

// Validate implements command.Message.
func (cmd RemovePageMediaUsageCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.ProjectID, validation.By(requiredText(projectRequiredErrorCode, "project_id is required"))),
		validation.Field(&cmd.PageID, validation.By(requiredText("pagekit.media_usage.page_required", "page_id is required"))),
	)
}

// UpdateGlobalWidgetMediaUsageCommand re-indexes the widget stored in a
// global slot.
type UpdateGlobalWidgetMediaUsageCommand struct {
	ProjectID string `json:"project_id"`
	SlotID    string `json:"slot_id"`
}

// Type implements command.Message.
func (UpdateGlobalWidgetMediaUsageCommand) Type() string { return updateGlobalMessageType }

// Validate implements command.Message.
func (cmd UpdateGlobalWidgetMediaUsageCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.ProjectID, validation.By(requiredText(projectRequiredErrorCode, "project_id is required"))),
		validation.Field(&cmd.SlotID, validation.By(requiredText("pagekit.media_usage.slot_required", "slot_id is required"))),
	)
}

// UpdateThemeSettingsMediaUsageCommand re-indexes the stored theme settings.
type UpdateThemeSettingsMediaUsageCommand struct {
	ProjectID string `json:"project_id"`
}

// Type implements command.Message.
func (UpdateThemeSettingsMediaUsageCommand) Type() string { return updateThemeMessageType }

// Validate implements command.Message.
func (cmd UpdateThemeSettingsMediaUsageCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.ProjectID, validation.By(requiredText(projectRequiredErrorCode, "project_id is required"))),
	)
}

func requiredText(code, message string) validation.RuleFunc {
	return func(value any) error {
		text, _ := value.(string)
		if strings.TrimSpace(text) == "" {
			return validation.NewError(code, message)
		}
		return nil
	}
}
