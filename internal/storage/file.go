package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/goliatone/go-pagekit/internal/domain"
	"github.com/goliatone/go-pagekit/internal/identity"
	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

// Directory layout of a project inside the data directory.
const (
	PagesDir    = "pages"
	MenusDir    = "menus"
	GlobalsDir  = "globals"
	ThemeFile   = "theme.json"
	MediaFile   = "media.json"
	LayoutFile  = "layout.html"
	jsonExt     = ".json"
	projectPerm = 0o755
)

// ErrInvalidProjectID reports a project id that would escape the data
// directory.
var ErrInvalidProjectID = errors.New("storage: invalid project id")

// FileStore reads and writes project entities as JSON documents under a root
// directory. Writes are atomic renames so readers never observe partial files.
type FileStore struct {
	root string
	mu   sync.Mutex
}

var (
	_ interfaces.PageStore          = (*FileStore)(nil)
	_ interfaces.MenuStore          = (*FileStore)(nil)
	_ interfaces.MediaStore         = (*FileStore)(nil)
	_ interfaces.GlobalWidgetStore  = (*FileStore)(nil)
	_ interfaces.ThemeSettingsStore = (*FileStore)(nil)
	_ interfaces.LayoutSource       = (*FileStore)(nil)
)

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

// Root returns the data directory.
func (s *FileStore) Root() string {
	return s.root
}

// ProjectDir returns the directory of a project.
func (s *FileStore) ProjectDir(projectID string) (string, error) {
	id := strings.TrimSpace(projectID)
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id {
		return "", fmt.Errorf("%w: %q", ErrInvalidProjectID, projectID)
	}
	return filepath.Join(s.root, id), nil
}

// PagesDir returns the pages directory of a project.
func (s *FileStore) PagesDir(projectID string) (string, error) {
	dir, err := s.ProjectDir(projectID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PagesDir), nil
}

// PageIDFromPath maps a page document path to its page id.
func PageIDFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if filepath.Ext(base) != jsonExt || strings.HasPrefix(base, ".") {
		return "", false
	}
	return strings.TrimSuffix(base, jsonExt), true
}

// ListPages implements interfaces.PageStore. A missing pages directory is
// reported as interfaces.ErrProjectNotFound.
func (s *FileStore) ListPages(_ context.Context, projectID string) ([]domain.Page, error) {
	dir, err := s.PagesDir(projectID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("project %q: %w", projectID, interfaces.ErrProjectNotFound)
		}
		return nil, fmt.Errorf("storage: read pages: %w", err)
	}
	pages := make([]domain.Page, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := PageIDFromPath(entry.Name())
		if !ok {
			continue
		}
		page, err := s.readPage(projectID, filepath.Join(dir, entry.Name()), id)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *page)
	}
	return pages, nil
}

// GetPage implements interfaces.PageStore.
func (s *FileStore) GetPage(_ context.Context, projectID, pageID string) (*domain.Page, error) {
	dir, err := s.PagesDir(projectID)
	if err != nil {
		return nil, err
	}
	if filepath.Base(pageID) != pageID {
		return nil, fmt.Errorf("page %q: %w", pageID, interfaces.ErrNotFound)
	}
	return s.readPage(projectID, filepath.Join(dir, pageID+jsonExt), pageID)
}

// ReadPageFile decodes a page document from an arbitrary path.
func (s *FileStore) ReadPageFile(projectID, path string) (*domain.Page, error) {
	id, ok := PageIDFromPath(path)
	if !ok {
		return nil, fmt.Errorf("storage: %s is not a page document", path)
	}
	return s.readPage(projectID, path, id)
}

func (s *FileStore) readPage(projectID, path, id string) (*domain.Page, error) {
	var page domain.Page
	if err := readJSON(path, &page); err != nil {
		return nil, fmt.Errorf("page %q: %w", id, err)
	}
	if page.ID == "" {
		page.ID = id
	}
	if page.UUID == "" {
		page.UUID = identity.PageUUID(projectID, page.ID).String()
	}
	return &page, nil
}

// PutPage writes a page document.
func (s *FileStore) PutPage(projectID string, page domain.Page) error {
	dir, err := s.PagesDir(projectID)
	if err != nil {
		return err
	}
	if page.ID == "" || filepath.Base(page.ID) != page.ID {
		return fmt.Errorf("storage: invalid page id %q", page.ID)
	}
	return writeJSON(filepath.Join(dir, page.ID+jsonExt), page)
}

// ListMenus implements interfaces.MenuStore. A project without menus has an
// empty list.
func (s *FileStore) ListMenus(_ context.Context, projectID string) ([]domain.Menu, error) {
	dir, err := s.ProjectDir(projectID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(dir, MenusDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: read menus: %w", err)
	}
	var menus []domain.Menu
	for _, entry := range entries {
		id, ok := PageIDFromPath(entry.Name())
		if entry.IsDir() || !ok {
			continue
		}
		var menu domain.Menu
		if err := readJSON(filepath.Join(dir, MenusDir, entry.Name()), &menu); err != nil {
			return nil, fmt.Errorf("menu %q: %w", id, err)
		}
		if menu.ID == "" {
			menu.ID = id
		}
		menus = append(menus, menu)
	}
	return menus, nil
}

// GetMenu implements interfaces.MenuStore.
func (s *FileStore) GetMenu(ctx context.Context, projectID, idOrUUID string) (*domain.Menu, error) {
	menus, err := s.ListMenus(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return findMenu(menus, idOrUUID)
}

// ListMedia implements interfaces.MediaStore.
func (s *FileStore) ListMedia(_ context.Context, projectID string) ([]domain.MediaRecord, error) {
	path, err := s.mediaPath(projectID)
	if err != nil {
		return nil, err
	}
	return readMedia(path)
}

// WriteMedia implements interfaces.MediaStore: records are upserted by id
// into media.json and the file is replaced atomically.
func (s *FileStore) WriteMedia(_ context.Context, projectID string, records []domain.MediaRecord) error {
	path, err := s.mediaPath(projectID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := readMedia(path)
	if err != nil {
		return err
	}
	index := make(map[string]int, len(existing))
	for i, record := range existing {
		index[record.ID] = i
	}
	for _, record := range records {
		if record.UsedIn == nil {
			record.UsedIn = []string{}
		}
		if i, ok := index[record.ID]; ok {
			existing[i] = record
			continue
		}
		index[record.ID] = len(existing)
		existing = append(existing, record)
	}
	return writeJSON(path, existing)
}

func (s *FileStore) mediaPath(projectID string) (string, error) {
	dir, err := s.ProjectDir(projectID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, MediaFile), nil
}

func readMedia(path string) ([]domain.MediaRecord, error) {
	var records []domain.MediaRecord
	if err := readJSON(path, &records); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: read media: %w", err)
	}
	return records, nil
}

// ListGlobalWidgets implements interfaces.GlobalWidgetStore.
func (s *FileStore) ListGlobalWidgets(_ context.Context, projectID string) (map[string]domain.WidgetInstance, error) {
	dir, err := s.ProjectDir(projectID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(dir, GlobalsDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]domain.WidgetInstance{}, nil
		}
		return nil, fmt.Errorf("storage: read globals: %w", err)
	}
	out := make(map[string]domain.WidgetInstance, len(entries))
	for _, entry := range entries {
		slot, ok := PageIDFromPath(entry.Name())
		if entry.IsDir() || !ok {
			continue
		}
		var widget domain.WidgetInstance
		if err := readJSON(filepath.Join(dir, GlobalsDir, entry.Name()), &widget); err != nil {
			return nil, fmt.Errorf("global widget %q: %w", slot, err)
		}
		out[slot] = widget
	}
	return out, nil
}

// GetGlobalWidget implements interfaces.GlobalWidgetStore.
func (s *FileStore) GetGlobalWidget(_ context.Context, projectID, slotID string) (*domain.WidgetInstance, error) {
	dir, err := s.ProjectDir(projectID)
	if err != nil {
		return nil, err
	}
	if filepath.Base(slotID) != slotID {
		return nil, fmt.Errorf("global widget %q: %w", slotID, interfaces.ErrNotFound)
	}
	var widget domain.WidgetInstance
	if err := readJSON(filepath.Join(dir, GlobalsDir, slotID+jsonExt), &widget); err != nil {
		return nil, fmt.Errorf("global widget %q: %w", slotID, err)
	}
	return &widget, nil
}

// GetThemeSettings implements interfaces.ThemeSettingsStore.
func (s *FileStore) GetThemeSettings(_ context.Context, projectID string) (domain.ThemeSettings, error) {
	dir, err := s.ProjectDir(projectID)
	if err != nil {
		return nil, err
	}
	var settings domain.ThemeSettings
	if err := readJSON(filepath.Join(dir, ThemeFile), &settings); err != nil {
		return nil, fmt.Errorf("theme settings: %w", err)
	}
	return settings, nil
}

// GetLayout implements interfaces.LayoutSource.
func (s *FileStore) GetLayout(_ context.Context, projectID string) (string, error) {
	dir, err := s.ProjectDir(projectID)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(dir, LayoutFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("layout: %w", interfaces.ErrNotFound)
		}
		return "", fmt.Errorf("storage: read layout: %w", err)
	}
	return string(data), nil
}

// Projects lists the project directories under the root.
func (s *FileStore) Projects() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: read data dir: %w", err)
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			out = append(out, entry.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return interfaces.ErrNotFound
		}
		return err
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), projectPerm); err != nil {
		return fmt.Errorf("storage: create %s: %w", filepath.Dir(path), err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(append(data, '\n'))); err != nil {
		return fmt.Errorf("storage: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// DeletePage removes a page document. Missing pages are ignored.
func (s *FileStore) DeletePage(projectID, pageID string) error {
	dir, err := s.PagesDir(projectID)
	if err != nil {
		return err
	}
	if filepath.Base(pageID) != pageID {
		return fmt.Errorf("storage: invalid page id %q", pageID)
	}
	if err := os.Remove(filepath.Join(dir, pageID+jsonExt)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete page %q: %w", pageID, err)
	}
	return nil
}
