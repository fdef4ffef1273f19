package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-pagekit/internal/domain"
	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

func TestMemoryStorePagesLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.ListPages(ctx, "site")
	require.ErrorIs(t, err, interfaces.ErrProjectNotFound)

	store.EnsurePages("site")
	pages, err := store.ListPages(ctx, "site")
	require.NoError(t, err)
	assert.Empty(t, pages)

	store.PutPage("site", domain.Page{ID: "home", UUID: "u1"})
	page, err := store.GetPage(ctx, "site", "home")
	require.NoError(t, err)
	assert.Equal(t, "u1", page.UUID)

	store.DeletePage("site", "home")
	_, err = store.GetPage(ctx, "site", "home")
	require.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestMemoryStoreMediaIsCopied(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.PutMedia("site", domain.MediaRecord{ID: "m1", UsedIn: []string{"home"}})

	records, err := store.ListMedia(ctx, "site")
	require.NoError(t, err)
	records[0].UsedIn[0] = "mutated"

	again, err := store.ListMedia(ctx, "site")
	require.NoError(t, err)
	assert.Equal(t, []string{"home"}, again[0].UsedIn)
}
