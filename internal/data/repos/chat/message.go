package chat

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexi-backend/internal/domain"
	"github.com/yungbote/lexi-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
)

type ChatMessageRepo interface {
	Create(dbc dbctx.Context, m *types.ChatMessage) (*types.ChatMessage, error)
	// ListRecent returns up to limit of the newest messages, oldest first.
	ListRecent(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*types.ChatMessage, error)
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.ChatMessage, error)
	DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) error
}

type chatMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatMessageRepo(db *gorm.DB, log *logger.Logger) ChatMessageRepo {
	return &chatMessageRepo{db: db, log: log.With("repo", "ChatMessageRepo")}
}

func (r *chatMessageRepo) tx(dbc dbctx.Context) *gorm.DB {
	return dbc.Conn(r.db)
}

func (r *chatMessageRepo) Create(dbc dbctx.Context, m *types.ChatMessage) (*types.ChatMessage, error) {
	if m == nil || m.SessionID == uuid.Nil {
		return nil, fmt.Errorf("missing session_id")
	}
	if err := r.tx(dbc).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (r *chatMessageRepo) ListRecent(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("missing session_id")
	}
	if limit <= 0 {
		return []*types.ChatMessage{}, nil
	}
	if limit > 500 {
		limit = 500
	}
	var out []*types.ChatMessage
	if err := r.tx(dbc).
		Model(&types.ChatMessage{}).
		Where("session_id = ?", sessionID).
		Order("seq DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *chatMessageRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.ChatMessage, error) {
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("missing session_id")
	}
	var out []*types.ChatMessage
	if err := r.tx(dbc).
		Model(&types.ChatMessage{}).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chatMessageRepo) DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) error {
	if sessionID == uuid.Nil {
		return fmt.Errorf("missing session_id")
	}
	return r.tx(dbc).Where("session_id = ?", sessionID).Delete(&types.ChatMessage{}).Error
}
