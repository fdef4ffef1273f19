package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-pagekit/internal/domain"
	"github.com/goliatone/go-pagekit/internal/identity"
	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

// MediaRecordModel is the database row of a media record.
type MediaRecordModel struct {
	bun.BaseModel `bun:"table:media_records,alias:mr"`

	ID        uuid.UUID `bun:",pk,type:uuid" json:"id"`
	ProjectID string    `bun:"project_id,notnull" json:"project_id"`
	FileID    string    `bun:"file_id,notnull" json:"file_id"`
	Filename  string    `bun:"filename" json:"filename"`
	Path      string    `bun:"path" json:"path"`
	Type      string    `bun:"type" json:"type"`
	UsedIn    string    `bun:"used_in" json:"used_in"`
}

func newMediaRecordModel(projectID string, record domain.MediaRecord) (*MediaRecordModel, error) {
	usedIn := record.UsedIn
	if usedIn == nil {
		usedIn = []string{}
	}
	encoded, err := json.Marshal(usedIn)
	if err != nil {
		return nil, err
	}
	return &MediaRecordModel{
		ID:        identity.MediaRecordUUID(projectID, record.ID),
		ProjectID: projectID,
		FileID:    record.ID,
		Filename:  record.Filename,
		Path:      record.Path,
		Type:      record.Type,
		UsedIn:    string(encoded),
	}, nil
}

// Record converts the row to a domain record.
func (m *MediaRecordModel) Record() (domain.MediaRecord, error) {
	record := domain.MediaRecord{
		ID:       m.FileID,
		Filename: m.Filename,
		Path:     m.Path,
		Type:     m.Type,
		UsedIn:   []string{},
	}
	if m.UsedIn != "" {
		if err := json.Unmarshal([]byte(m.UsedIn), &record.UsedIn); err != nil {
			return record, fmt.Errorf("media %q: decode used_in: %w", m.FileID, err)
		}
	}
	return record, nil
}

// NewMediaRecordRepository creates a repository for media rows.
func NewMediaRecordRepository(db *bun.DB) repository.Repository[*MediaRecordModel] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*MediaRecordModel]{
		NewRecord: func() *MediaRecordModel { return &MediaRecordModel{} },
		GetID: func(m *MediaRecordModel) uuid.UUID {
			return m.ID
		},
		SetID: func(m *MediaRecordModel, id uuid.UUID) {
			m.ID = id
		},
		GetIdentifier: func() string {
			return "file_id"
		},
		GetIdentifierValue: func(m *MediaRecordModel) string {
			return m.FileID
		},
	})
}

// MigrateMedia creates the media table when missing.
func MigrateMedia(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*MediaRecordModel)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("storage: create media_records: %w", err)
	}
	return nil
}

// BunMediaStore implements interfaces.MediaStore on a SQL database.
type BunMediaStore struct {
	db   *bun.DB
	repo repository.Repository[*MediaRecordModel]
}

var _ interfaces.MediaStore = (*BunMediaStore)(nil)

// NewBunMediaStore wraps a bun database.
func NewBunMediaStore(db *bun.DB) *BunMediaStore {
	return &BunMediaStore{db: db, repo: NewMediaRecordRepository(db)}
}

// ListMedia implements interfaces.MediaStore.
func (s *BunMediaStore) ListMedia(ctx context.Context, projectID string) ([]domain.MediaRecord, error) {
	rows, _, err := s.repo.List(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.project_id = ?", projectID)
	}))
	if err != nil {
		return nil, fmt.Errorf("media repository error: %w", err)
	}
	records := make([]domain.MediaRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.Record()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// WriteMedia implements interfaces.MediaStore. All records are written in one
// transaction; a failing record leaves every row unchanged.
func (s *BunMediaStore) WriteMedia(ctx context.Context, projectID string, records []domain.MediaRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, record := range records {
			if err := s.upsert(ctx, tx, projectID, record); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteMedia removes a media row.
func (s *BunMediaStore) DeleteMedia(ctx context.Context, projectID, fileID string) error {
	return s.repo.Delete(ctx, &MediaRecordModel{ID: identity.MediaRecordUUID(projectID, fileID)})
}

func (s *BunMediaStore) upsert(ctx context.Context, tx bun.IDB, projectID string, record domain.MediaRecord) error {
	model, err := newMediaRecordModel(projectID, record)
	if err != nil {
		return fmt.Errorf("media %q: %w", record.ID, err)
	}
	_, err = s.repo.GetByIDTx(ctx, tx, model.ID.String())
	switch {
	case err == nil:
		_, err = s.repo.UpdateTx(ctx, tx, model)
	case goerrors.IsCategory(err, repository.CategoryDatabaseNotFound):
		_, err = s.repo.CreateTx(ctx, tx, model)
	}
	if err != nil {
		return fmt.Errorf("media repository error: %w", err)
	}
	return nil
}
