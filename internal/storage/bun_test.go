package storage

import (
	"context"
	"errors"
	"testing"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-pagekit/internal/domain"
	"github.com/goliatone/go-pagekit/pkg/testsupport"
)

func TestBunMediaStoreUpsertAndScope(t *testing.T) {
	db := testsupport.NewBunMemoryDB(t, "storage_media_upsert")
	ctx := context.Background()
	require.NoError(t, MigrateMedia(ctx, db))

	store := NewBunMediaStore(db)
	require.NoError(t, store.WriteMedia(ctx, "site", []domain.MediaRecord{
		{ID: "m2", Filename: "b.png", Path: "uploads/b.png"},
		{ID: "m1", Filename: "a.png", Path: "uploads/a.png", UsedIn: []string{"home"}},
	}))
	require.NoError(t, store.WriteMedia(ctx, "other", []domain.MediaRecord{
		{ID: "m1", Path: "uploads/a.png"},
	}))
	require.NoError(t, store.WriteMedia(ctx, "site", []domain.MediaRecord{
		{ID: "m2", Filename: "b.png", Path: "uploads/b.png", UsedIn: []string{"global:header", "home"}},
	}))

	records, err := store.ListMedia(ctx, "site")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "m1", records[0].ID)
	assert.Equal(t, []string{"home"}, records[0].UsedIn)
	assert.Equal(t, []string{"global:header", "home"}, records[1].UsedIn)

	others, err := store.ListMedia(ctx, "other")
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, []string{}, others[0].UsedIn)

	require.NoError(t, store.DeleteMedia(ctx, "other", "m1"))
	others, err = store.ListMedia(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestBunMediaStoreOnSharedMemoryDB(t *testing.T) {
	sqldb, err := testsupport.NewSQLiteMemoryDB()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, MigrateMedia(ctx, db))

	store := NewBunMediaStore(db)
	records, err := store.ListMedia(ctx, "empty-project")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestOpenDB(t *testing.T) {
	db, err := OpenDB("SQLite3", "file:storage_open_db?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, MigrateMedia(context.Background(), db))

	_, err = OpenDB("oracle", "dsn")
	assert.ErrorContains(t, err, "unsupported driver")
}

type failingMediaRepository struct {
	repository.Repository[*MediaRecordModel]
	failOn string
}

func (r failingMediaRepository) CreateTx(ctx context.Context, tx bun.IDB, record *MediaRecordModel, criteria ...repository.InsertCriteria) (*MediaRecordModel, error) {
	if record.FileID == r.failOn {
		return nil, errors.New("disk full")
	}
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

func TestBunMediaStoreWriteIsAllOrNothing(t *testing.T) {
	db := testsupport.NewBunMemoryDB(t, "storage_media_atomic")
	ctx := context.Background()
	require.NoError(t, MigrateMedia(ctx, db))

	store := NewBunMediaStore(db)
	require.NoError(t, store.WriteMedia(ctx, "site", []domain.MediaRecord{
		{ID: "a", Filename: "a.png", Path: "uploads/a.png"},
	}))
	store.repo = failingMediaRepository{Repository: store.repo, failOn: "b"}

	err := store.WriteMedia(ctx, "site", []domain.MediaRecord{
		{ID: "a", Filename: "a.png", Path: "uploads/a.png", UsedIn: []string{"home"}},
		{ID: "b", Filename: "b.png", Path: "uploads/b.png", UsedIn: []string{"home"}},
	})
	require.ErrorContains(t, err, "disk full")

	records, err := store.ListMedia(ctx, "site")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, []string{}, records[0].UsedIn)
}
