package documents

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexi-backend/internal/domain"
	"github.com/yungbote/lexi-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
)

type DocumentRepo interface {
	Create(dbc dbctx.Context, doc *types.DocumentRecord) (*types.DocumentRecord, error)
	// GetByID returns nil, nil when the document does not exist.
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DocumentRecord, error)
	ListByMatter(dbc dbctx.Context, matterID uuid.UUID, limit int) ([]*types.DocumentRecord, error)
	// ListUnvectorized returns the oldest documents still short of verified indexing.
	ListUnvectorized(dbc dbctx.Context, limit int) ([]*types.DocumentRecord, error)
	// UpdateFields returns gorm.ErrRecordNotFound when no row has id.
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, log *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: log.With("repo", "DocumentRepo")}
}

func (r *documentRepo) tx(dbc dbctx.Context) *gorm.DB {
	return dbc.Conn(r.db)
}

func (r *documentRepo) Create(dbc dbctx.Context, doc *types.DocumentRecord) (*types.DocumentRecord, error) {
	if doc == nil {
		return nil, fmt.Errorf("missing document")
	}
	if err := r.tx(dbc).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *documentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DocumentRecord, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	var out types.DocumentRecord
	err := r.tx(dbc).Where("id = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *documentRepo) ListByMatter(dbc dbctx.Context, matterID uuid.UUID, limit int) ([]*types.DocumentRecord, error) {
	if matterID == uuid.Nil {
		return nil, fmt.Errorf("missing matter_id")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*types.DocumentRecord
	if err := r.tx(dbc).
		Model(&types.DocumentRecord{}).
		Omit("encrypted_blob").
		Where("matter_id = ?", matterID).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *documentRepo) ListUnvectorized(dbc dbctx.Context, limit int) ([]*types.DocumentRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*types.DocumentRecord
	if err := r.tx(dbc).
		Model(&types.DocumentRecord{}).
		Omit("encrypted_blob").
		Where("is_vectorized = ?", false).
		Order("updated_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *documentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now().UTC()
	res := r.tx(dbc).
		Model(&types.DocumentRecord{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *documentRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	return r.tx(dbc).Where("id = ?", id).Delete(&types.DocumentRecord{}).Error
}
