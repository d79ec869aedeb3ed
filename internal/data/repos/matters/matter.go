package matters

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexi-backend/internal/domain"
	"github.com/yungbote/lexi-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
)

type MatterRepo interface {
	Create(dbc dbctx.Context, m *types.Matter) (*types.Matter, error)
	// GetByID returns nil, nil when the matter does not exist.
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Matter, error)
	Exists(dbc dbctx.Context, id uuid.UUID) (bool, error)
	AddMember(dbc dbctx.Context, matterID, principalID uuid.UUID) error
}

type matterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMatterRepo(db *gorm.DB, log *logger.Logger) MatterRepo {
	return &matterRepo{db: db, log: log.With("repo", "MatterRepo")}
}

func (r *matterRepo) tx(dbc dbctx.Context) *gorm.DB {
	return dbc.Conn(r.db)
}

func (r *matterRepo) Create(dbc dbctx.Context, m *types.Matter) (*types.Matter, error) {
	if m == nil {
		return nil, fmt.Errorf("missing matter")
	}
	if err := r.tx(dbc).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (r *matterRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Matter, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	var out types.Matter
	err := r.tx(dbc).Preload("Members").Where("id = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *matterRepo) Exists(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	var n int64
	if err := r.tx(dbc).Model(&types.Matter{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *matterRepo) AddMember(dbc dbctx.Context, matterID, principalID uuid.UUID) error {
	if matterID == uuid.Nil || principalID == uuid.Nil {
		return fmt.Errorf("missing matter_id or principal_id")
	}
	return r.tx(dbc).Create(&types.MatterMember{MatterID: matterID, PrincipalID: principalID}).Error
}
