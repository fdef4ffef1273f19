package mediausage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-pagekit/internal/domain"
	"github.com/goliatone/go-pagekit/internal/storage"
)

const project = "site"

func seedStore() *storage.MemoryStore {
	store := storage.NewMemoryStore()
	store.EnsurePages(project)
	store.PutMedia(project,
		domain.MediaRecord{ID: "hero", Filename: "hero.png", Path: "uploads/hero.png"},
		domain.MediaRecord{ID: "logo", Filename: "logo.svg", Path: "/uploads/logo.svg"},
		domain.MediaRecord{ID: "unused", Filename: "unused.jpg", Path: "uploads/unused.jpg"},
	)
	return store
}

func newService(store *storage.MemoryStore) *Service {
	return NewService(Stores{Media: store, Pages: store, Globals: store, Theme: store})
}

func homePage() *domain.Page {
	return &domain.Page{
		ID:   "home",
		Slug: "index",
		Widgets: map[string]domain.WidgetInstance{
			"a": {Type: "image", Settings: map[string]any{"image": "uploads/hero.png"}},
			"b": {Type: "gallery", Settings: map[string]any{"images": []any{"uploads/hero.png", "/uploads/logo.svg"}}},
		},
		WidgetsOrder: []string{"a", "b"},
	}
}

func usedIn(t *testing.T, store *storage.MemoryStore, fileID string) []string {
	t.Helper()
	records, err := store.ListMedia(context.Background(), project)
	require.NoError(t, err)
	for _, record := range records {
		if record.ID == fileID {
			return record.UsedIn
		}
	}
	t.Fatalf("media %q not found", fileID)
	return nil
}

func TestUpdatePageMediaUsageDeduplicates(t *testing.T) {
	store := seedStore()
	service := newService(store)

	result, err := service.UpdatePageMediaUsage(context.Background(), project, homePage())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"uploads/hero.png", "uploads/logo.svg"}, result.MediaPaths)

	_, err = service.UpdatePageMediaUsage(context.Background(), project, homePage())
	require.NoError(t, err)
	assert.Equal(t, []string{"home"}, usedIn(t, store, "hero"))
	assert.Equal(t, []string{"home"}, usedIn(t, store, "logo"))
	assert.Empty(t, usedIn(t, store, "unused"))
}

func TestUpdatePageMediaUsageDropsStaleReferences(t *testing.T) {
	store := seedStore()
	service := newService(store)
	ctx := context.Background()

	_, err := service.UpdatePageMediaUsage(ctx, project, homePage())
	require.NoError(t, err)

	page := homePage()
	delete(page.Widgets, "b")
	result, err := service.UpdatePageMediaUsage(ctx, project, page)
	require.NoError(t, err)
	assert.Equal(t, []string{"uploads/hero.png"}, result.MediaPaths)
	assert.Empty(t, usedIn(t, store, "logo"))
}

func TestUpdatePageMediaUsageWithoutReferences(t *testing.T) {
	service := newService(seedStore())
	result, err := service.UpdatePageMediaUsage(context.Background(), project, &domain.Page{ID: "empty"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.MediaPaths)
}

// gatedMedia holds every ListMedia caller until a second caller has read the
// same collection, or until the window elapses. Without project locking two
// writers therefore always work from the same snapshot.
type gatedMedia struct {
	*storage.MemoryStore
	window time.Duration

	mu      sync.Mutex
	readers int
	both    chan struct{}
	active  int
	overlap int
}

func newGatedMedia(store *storage.MemoryStore) *gatedMedia {
	return &gatedMedia{MemoryStore: store, window: 150 * time.Millisecond, both: make(chan struct{})}
}

func (g *gatedMedia) ListMedia(ctx context.Context, projectID string) ([]domain.MediaRecord, error) {
	records, err := g.MemoryStore.ListMedia(ctx, projectID)
	g.mu.Lock()
	g.readers++
	g.active++
	if g.active > g.overlap {
		g.overlap = g.active
	}
	if g.readers == 2 {
		close(g.both)
	}
	g.mu.Unlock()

	select {
	case <-g.both:
	case <-time.After(g.window):
	}
	return records, err
}

func (g *gatedMedia) WriteMedia(ctx context.Context, projectID string, records []domain.MediaRecord) error {
	defer func() {
		g.mu.Lock()
		g.active--
		g.mu.Unlock()
	}()
	return g.MemoryStore.WriteMedia(ctx, projectID, records)
}

func (g *gatedMedia) maxOverlap() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.overlap
}

func runConcurrently(t *testing.T, ops ...func() error) {
	t.Helper()
	var wg sync.WaitGroup
	errs := make(chan error, len(ops))
	for _, op := range ops {
		wg.Add(1)
		go func(op func() error) {
			defer wg.Done()
			errs <- op()
		}(op)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestConcurrentUpdatesKeepBothTokens(t *testing.T) {
	store := seedStore()
	media := newGatedMedia(store)
	service := NewService(Stores{Media: media, Pages: store, Globals: store, Theme: store})
	ctx := context.Background()

	runConcurrently(t,
		func() error {
			_, err := service.UpdatePageMediaUsage(ctx, project, homePage())
			return err
		},
		func() error {
			_, err := service.UpdateGlobalWidgetMediaUsage(ctx, project, "header", domain.WidgetInstance{
				Type:     "header",
				Settings: map[string]any{"logo": "uploads/logo.svg"},
			})
			return err
		},
	)

	assert.Equal(t, 1, media.maxOverlap(), "read-modify-write cycles overlapped")
	assert.ElementsMatch(t, []string{"home", "global:header"}, usedIn(t, store, "logo"))
	assert.Equal(t, []string{"home"}, usedIn(t, store, "hero"))
}

func TestRefreshExcludesConcurrentIncrementalUpdates(t *testing.T) {
	store := seedStore()
	store.PutPage(project, *homePage())
	header := domain.WidgetInstance{Type: "header", Settings: map[string]any{"logo": "uploads/logo.svg"}}
	store.PutGlobalWidget(project, "header", header)
	media := newGatedMedia(store)
	service := NewService(Stores{Media: media, Pages: store, Globals: store, Theme: store})
	ctx := context.Background()

	runConcurrently(t,
		func() error {
			_, err := service.RefreshAllMediaUsage(ctx, project)
			return err
		},
		func() error {
			_, err := service.UpdateGlobalWidgetMediaUsage(ctx, project, "header", header)
			return err
		},
	)

	assert.Equal(t, 1, media.maxOverlap(), "refresh overlapped an incremental update")
	assert.ElementsMatch(t, []string{"home", "global:header"}, usedIn(t, store, "logo"))
}

func TestDifferentProjectsDoNotBlockEachOther(t *testing.T) {
	store := seedStore()
	store.EnsurePages("other")
	store.PutMedia("other", domain.MediaRecord{ID: "logo", Path: "uploads/logo.svg"})
	media := newGatedMedia(store)
	media.window = 5 * time.Second
	service := NewService(Stores{Media: media, Pages: store, Globals: store, Theme: store})
	ctx := context.Background()

	start := time.Now()
	runConcurrently(t,
		func() error {
			_, err := service.UpdatePageMediaUsage(ctx, project, homePage())
			return err
		},
		func() error {
			_, err := service.UpdatePageMediaUsage(ctx, "other", homePage())
			return err
		},
	)

	assert.Less(t, time.Since(start), media.window, "projects were serialised")
	assert.Equal(t, 2, media.maxOverlap())
}

func TestUpdateThemeSettingsMediaUsage(t *testing.T) {
	store := seedStore()
	service := newService(store)

	result, err := service.UpdateThemeSettingsMediaUsage(context.Background(), project, domain.ThemeSettings{
		"brand": map[string]any{"logo": "uploads/logo.svg", "color": "#fff"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"uploads/logo.svg"}, result.MediaPaths)
	assert.Equal(t, []string{domain.ThemeSettingsToken}, usedIn(t, store, "logo"))
}

func TestRemovePageFromMediaUsage(t *testing.T) {
	store := seedStore()
	service := newService(store)
	ctx := context.Background()

	_, err := service.UpdatePageMediaUsage(ctx, project, homePage())
	require.NoError(t, err)
	_, err = service.UpdateGlobalWidgetMediaUsage(ctx, project, "header", domain.WidgetInstance{
		Settings: map[string]any{"logo": "uploads/logo.svg"},
	})
	require.NoError(t, err)

	result, err := service.RemovePageFromMediaUsage(ctx, project, "home")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, usedIn(t, store, "hero"))
	assert.Equal(t, []string{"global:header"}, usedIn(t, store, "logo"))
}

func TestRefreshAllMediaUsageIsIdempotent(t *testing.T) {
	store := seedStore()
	store.PutPage(project, *homePage())
	store.PutPage(project, domain.Page{ID: "about", Widgets: map[string]domain.WidgetInstance{
		"x": {Settings: map[string]any{"src": "uploads/hero.png"}},
	}, WidgetsOrder: []string{"x"}})
	store.PutGlobalWidget(project, "footer", domain.WidgetInstance{Settings: map[string]any{"logo": "uploads/logo.svg"}})
	store.PutMedia(project, domain.MediaRecord{ID: "unused", Path: "uploads/unused.jpg", UsedIn: []string{"stale"}})
	service := newService(store)
	ctx := context.Background()

	first, err := service.RefreshAllMediaUsage(ctx, project)
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, []string{"uploads/hero.png", "uploads/logo.svg"}, first.MediaPaths)
	assert.Equal(t, "scanned 2 pages and 1 global widgets, 2 of 3 media files in use", first.Message)

	hero := usedIn(t, store, "hero")
	logo := usedIn(t, store, "logo")
	assert.Equal(t, []string{"about", "home"}, hero)
	assert.Equal(t, []string{"home", "global:footer"}, logo)
	assert.Empty(t, usedIn(t, store, "unused"))

	second, err := service.RefreshAllMediaUsage(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, hero, usedIn(t, store, "hero"))
	assert.Equal(t, logo, usedIn(t, store, "logo"))
}

func TestRefreshAllMediaUsageMissingVersusEmptyProject(t *testing.T) {
	service := newService(storage.NewMemoryStore())
	result, err := service.RefreshAllMediaUsage(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "not found")

	empty := storage.NewMemoryStore()
	empty.EnsurePages("blank")
	result, err = newService(empty).RefreshAllMediaUsage(context.Background(), "blank")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.MediaPaths)
}

func TestGetMediaUsage(t *testing.T) {
	store := seedStore()
	service := newService(store)
	ctx := context.Background()

	_, err := service.UpdatePageMediaUsage(ctx, project, homePage())
	require.NoError(t, err)

	usage, err := service.GetMediaUsage(ctx, project, "hero")
	require.NoError(t, err)
	assert.Equal(t, Usage{FileID: "hero", Filename: "hero.png", UsedIn: []string{"home"}, IsInUse: true}, usage)

	usage, err = service.GetMediaUsage(ctx, project, "unused")
	require.NoError(t, err)
	assert.False(t, usage.IsInUse)
	assert.Equal(t, []string{}, usage.UsedIn)

	_, err = service.GetMediaUsage(ctx, project, "nope")
	require.Error(t, err)
	assert.Regexp(t, `(?i)not found`, err.Error())
	assert.ErrorIs(t, err, ErrMediaNotFound)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nope", notFound.FileID)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryNotFound))
	var wrapped *goerrors.Error
	require.ErrorAs(t, err, &wrapped)
	assert.Equal(t, "MEDIA_NOT_FOUND", wrapped.TextCode)
}

type failingMedia struct {
	*storage.MemoryStore
	listErr  error
	writeErr error
	writes   int
}

func (f *failingMedia) ListMedia(ctx context.Context, projectID string) ([]domain.MediaRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.MemoryStore.ListMedia(ctx, projectID)
}

func (f *failingMedia) WriteMedia(ctx context.Context, projectID string, records []domain.MediaRecord) error {
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.MemoryStore.WriteMedia(ctx, projectID, records)
}

func TestStoreFailureLeavesIndexUntouched(t *testing.T) {
	store := seedStore()
	media := &failingMedia{MemoryStore: store, listErr: errors.New("disk offline")}
	service := NewService(Stores{Media: media, Pages: store, Globals: store, Theme: store})

	_, err := service.UpdatePageMediaUsage(context.Background(), project, homePage())
	require.Error(t, err)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryCommand))
	assert.Zero(t, media.writes)

	media.listErr = nil
	media.writeErr = errors.New("read-only")
	_, err = service.UpdatePageMediaUsage(context.Background(), project, homePage())
	require.Error(t, err)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryCommand))
	assert.Empty(t, usedIn(t, store, "hero"))
}

func TestInvalidInput(t *testing.T) {
	service := newService(seedStore())
	_, err := service.UpdatePageMediaUsage(context.Background(), project, nil)
	require.Error(t, err)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryValidation))

	_, err = service.UpdateGlobalWidgetMediaUsage(context.Background(), project, " ", domain.WidgetInstance{})
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryValidation))

	_, err = service.RemovePageFromMediaUsage(context.Background(), project, "")
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryValidation))
}
