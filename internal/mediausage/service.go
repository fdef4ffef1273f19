package mediausage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-pagekit/internal/domain"
	"github.com/goliatone/go-pagekit/internal/logging"
	"github.com/goliatone/go-pagekit/internal/references"
	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

const (
	storeUnavailableCode = "STORE_UNAVAILABLE"
	invalidInputCode     = "MEDIA_USAGE_INVALID_INPUT"
	mediaNotFoundCode    = "MEDIA_NOT_FOUND"
)

// Service maintains MediaRecord.UsedIn as a reverse index of the entities
// referencing each media file.
type Service struct {
	media   interfaces.MediaStore
	pages   interfaces.PageStore
	globals interfaces.GlobalWidgetStore
	theme   interfaces.ThemeSettingsStore
	locks   *projectLocks
	logger  interfaces.Logger
}

// Stores groups the entity stores the index reads and writes.
type Stores struct {
	Media   interfaces.MediaStore
	Pages   interfaces.PageStore
	Globals interfaces.GlobalWidgetStore
	Theme   interfaces.ThemeSettingsStore
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *Service) { s.logger = logging.Fallback(logger) }
}

// NewService constructs the media usage index.
func NewService(stores Stores, opts ...Option) *Service {
	s := &Service{
		media:   stores.Media,
		pages:   stores.Pages,
		globals: stores.Globals,
		theme:   stores.Theme,
		locks:   newProjectLocks(),
		logger:  logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdatePageMediaUsage records the media referenced by page under the page id.
func (s *Service) UpdatePageMediaUsage(ctx context.Context, projectID string, page *domain.Page) (Result, error) {
	if page == nil || strings.TrimSpace(page.ID) == "" {
		return Result{}, invalidInput("page id is required")
	}
	return s.updateEntity(ctx, projectID, domain.PageToken(page.ID), "update_page", func(m references.MediaMatcher) []string {
		return m.MediaInPage(page)
	})
}

// UpdateGlobalWidgetMediaUsage records the media referenced by the widget in
// a global slot under "global:<slot>".
func (s *Service) UpdateGlobalWidgetMediaUsage(ctx context.Context, projectID, slotID string, widget domain.WidgetInstance) (Result, error) {
	if strings.TrimSpace(slotID) == "" {
		return Result{}, invalidInput("slot id is required")
	}
	return s.updateEntity(ctx, projectID, domain.GlobalWidgetToken(slotID), "update_global_widget", func(m references.MediaMatcher) []string {
		return m.MediaInWidget(widget)
	})
}

// UpdateThemeSettingsMediaUsage records the media referenced anywhere in the
// theme settings document.
func (s *Service) UpdateThemeSettingsMediaUsage(ctx context.Context, projectID string, settings domain.ThemeSettings) (Result, error) {
	return s.updateEntity(ctx, projectID, domain.ThemeSettingsToken, "update_theme_settings", func(m references.MediaMatcher) []string {
		return m.MediaInTree(settings)
	})
}

// RemovePageFromMediaUsage drops the page from every record it appears in.
func (s *Service) RemovePageFromMediaUsage(ctx context.Context, projectID, pageID string) (Result, error) {
	if strings.TrimSpace(pageID) == "" {
		return Result{}, invalidInput("page id is required")
	}
	return s.updateEntity(ctx, projectID, domain.PageToken(pageID), "remove_page", func(references.MediaMatcher) []string {
		return nil
	})
}

func (s *Service) updateEntity(ctx context.Context, projectID, token, operation string, extract func(references.MediaMatcher) []string) (Result, error) {
	logger := logging.WithProjectContext(s.logger, projectID, operation)
	unlock := s.locks.lock(projectID)
	defer unlock()

	records, err := s.media.ListMedia(ctx, projectID)
	if err != nil {
		return Result{}, storeUnavailable(err, "list media")
	}
	matcher := references.NewMediaMatcher(records)
	paths := extract(matcher)

	changed, added, removed := applyMembership(records, token, paths)
	if len(changed) > 0 {
		if err := s.media.WriteMedia(ctx, projectID, changed); err != nil {
			return Result{}, storeUnavailable(err, "write media")
		}
	}
	logger.Debug("media.usage.updated", "token", token, "paths", len(paths), "added", added, "removed", removed)
	return Result{Success: true, MediaPaths: nonNil(paths)}, nil
}

// applyMembership computes the previous membership of token by filtering the
// index, diffs it against the referenced paths and returns only the records
// whose UsedIn changed.
func applyMembership(records []domain.MediaRecord, token string, paths []string) (changed []domain.MediaRecord, added, removed int) {
	want := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		want[path] = struct{}{}
	}
	for _, record := range records {
		_, member := want[domain.NormalizeMediaPath(record.Path)]
		count := countToken(record.UsedIn, token)
		switch {
		case member && count == 1, !member && count == 0:
			continue
		case member && count == 0:
			added++
		case !member:
			removed++
		}
		next := make([]string, 0, len(record.UsedIn)+1)
		for _, existing := range record.UsedIn {
			if existing != token {
				next = append(next, existing)
			}
		}
		if member {
			next = append(next, token)
		}
		record.UsedIn = next
		changed = append(changed, record)
	}
	return changed, added, removed
}

// RefreshAllMediaUsage rebuilds the whole index from pages, global widgets and
// theme settings. A project without a pages collection reports Success=false;
// a project with zero pages is a successful rebuild.
func (s *Service) RefreshAllMediaUsage(ctx context.Context, projectID string) (Result, error) {
	logger := logging.WithProjectContext(s.logger, projectID, "refresh_all")
	unlock := s.locks.lock(projectID)
	defer unlock()

	pages, err := s.pages.ListPages(ctx, projectID)
	if err != nil {
		if errors.Is(err, interfaces.ErrProjectNotFound) {
			logger.Warn("media.usage.refresh.project_missing")
			return Result{Success: false, Message: fmt.Sprintf("pages directory not found for project %q", projectID)}, nil
		}
		return Result{}, storeUnavailable(err, "list pages")
	}
	globals, err := s.listGlobals(ctx, projectID)
	if err != nil {
		return Result{}, err
	}
	theme, err := s.loadTheme(ctx, projectID)
	if err != nil {
		return Result{}, err
	}
	records, err := s.media.ListMedia(ctx, projectID)
	if err != nil {
		return Result{}, storeUnavailable(err, "list media")
	}

	matcher := references.NewMediaMatcher(records)
	usage := map[string][]string{}
	note := func(token string, paths []string) {
		for _, path := range paths {
			if !slices.Contains(usage[path], token) {
				usage[path] = append(usage[path], token)
			}
		}
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].ID < pages[j].ID })
	for i := range pages {
		note(domain.PageToken(pages[i].ID), matcher.MediaInPage(&pages[i]))
	}
	slots := make([]string, 0, len(globals))
	for slot := range globals {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	for _, slot := range slots {
		note(domain.GlobalWidgetToken(slot), matcher.MediaInWidget(globals[slot]))
	}
	if theme != nil {
		note(domain.ThemeSettingsToken, matcher.MediaInTree(theme))
	}

	inUse := make([]string, 0, len(usage))
	for i := range records {
		tokens := usage[domain.NormalizeMediaPath(records[i].Path)]
		records[i].UsedIn = append([]string{}, tokens...)
		if len(tokens) > 0 {
			inUse = append(inUse, domain.NormalizeMediaPath(records[i].Path))
		}
	}
	if len(records) > 0 {
		if err := s.media.WriteMedia(ctx, projectID, records); err != nil {
			return Result{}, storeUnavailable(err, "write media")
		}
	}
	sort.Strings(inUse)
	inUse = slices.Compact(inUse)

	logger.Info("media.usage.refreshed", "pages", len(pages), "globals", len(globals), "media", len(records), "in_use", len(inUse))
	return Result{
		Success:    true,
		MediaPaths: inUse,
		Message:    fmt.Sprintf("scanned %d pages and %d global widgets, %d of %d media files in use", len(pages), len(globals), len(inUse), len(records)),
	}, nil
}

func (s *Service) listGlobals(ctx context.Context, projectID string) (map[string]domain.WidgetInstance, error) {
	if s.globals == nil {
		return nil, nil
	}
	globals, err := s.globals.ListGlobalWidgets(ctx, projectID)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return nil, storeUnavailable(err, "list global widgets")
	}
	return globals, nil
}

func (s *Service) loadTheme(ctx context.Context, projectID string) (domain.ThemeSettings, error) {
	if s.theme == nil {
		return nil, nil
	}
	theme, err := s.theme.GetThemeSettings(ctx, projectID)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return nil, storeUnavailable(err, "load theme settings")
	}
	return theme, nil
}

// GetMediaUsage reports which entities reference the file.
func (s *Service) GetMediaUsage(ctx context.Context, projectID, fileID string) (Usage, error) {
	records, err := s.media.ListMedia(ctx, projectID)
	if err != nil {
		return Usage{}, storeUnavailable(err, "list media")
	}
	for _, record := range records {
		if record.ID != fileID {
			continue
		}
		usedIn := append([]string{}, record.UsedIn...)
		return Usage{
			FileID:   record.ID,
			Filename: record.Filename,
			UsedIn:   usedIn,
			IsInUse:  len(usedIn) > 0,
		}, nil
	}
	return Usage{}, mediaNotFound(projectID, fileID)
}

func countToken(tokens []string, token string) int {
	count := 0
	for _, existing := range tokens {
		if existing == token {
			count++
		}
	}
	return count
}

func nonNil(paths []string) []string {
	if paths == nil {
		return []string{}
	}
	return paths
}

func storeUnavailable(err error, action string) error {
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, "media usage: "+action+" failed").
		WithTextCode(storeUnavailableCode)
}

func mediaNotFound(projectID, fileID string) error {
	return goerrors.Wrap(&NotFoundError{ProjectID: projectID, FileID: fileID}, goerrors.CategoryNotFound, "media usage: media file not found").
		WithTextCode(mediaNotFoundCode).
		WithMetadata(map[string]any{"project_id": projectID, "file_id": fileID})
}

func invalidInput(message string) error {
	return goerrors.Wrap(errors.New(message), goerrors.CategoryValidation, "media usage: invalid input").
		WithTextCode(invalidInputCode)
}
