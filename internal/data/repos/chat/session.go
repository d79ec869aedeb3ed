package chat

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

type ChatSessionRepo interface {
	Create(dbc dbctx.Context, s *types.ChatSession) (*types.ChatSession, error)
	// GetByID returns nil, nil when the session does not exist.
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatSession, error)
	ListByPrincipal(dbc dbctx.Context, principalID uuid.UUID, limit int) ([]*types.ChatSession, error)
	// BumpSeq advances next_seq and updated_at and returns the new sequence value.
	BumpSeq(dbc dbctx.Context, id uuid.UUID) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type chatSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatSessionRepo(db *gorm.DB, log *logger.Logger) ChatSessionRepo {
	return &chatSessionRepo{db: db, log: log.With("repo", "ChatSessionRepo")}
}

func (r *chatSessionRepo) tx(dbc dbctx.Context) *gorm.DB {
	return dbc.Conn(r.db)
}

func (r *chatSessionRepo) Create(dbc dbctx.Context, s *types.ChatSession) (*types.ChatSession, error) {
	if s == nil || s.PrincipalID == uuid.Nil {
		return nil, fmt.Errorf("missing principal_id")
	}
	if s.Name == "" {
		s.Name = types.DefaultSessionName
	}
	if err := r.tx(dbc).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

func (r *chatSessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatSession, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	var out types.ChatSession
	err := r.tx(dbc).Where("id = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *chatSessionRepo) ListByPrincipal(dbc dbctx.Context, principalID uuid.UUID, limit int) ([]*types.ChatSession, error) {
	if principalID == uuid.Nil {
		return nil, fmt.Errorf("missing principal_id")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.ChatSession
	if err := r.tx(dbc).
		Model(&types.ChatSession{}).
		Where("principal_id = ?", principalID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chatSessionRepo) BumpSeq(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	if id == uuid.Nil {
		return 0, fmt.Errorf("missing id")
	}
	txx := r.tx(dbc)
	res := txx.Model(&types.ChatSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"next_seq":   gorm.Expr("next_seq + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	var seq int64
	if err := txx.Model(&types.ChatSession{}).
		Select("next_seq").
		Where("id = ?", id).
		Row().
		Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *chatSessionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now().UTC()
	return r.tx(dbc).
		Model(&types.ChatSession{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *chatSessionRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	return r.tx(dbc).Where("id = ?", id).Delete(&types.ChatSession{}).Error
}
