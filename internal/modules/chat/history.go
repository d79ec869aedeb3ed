package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	chatrepo "github.com/yungbote/lexi-backend/internal/data/repos/chat"
	types "github.com/yungbote/lexi-backend/internal/domain"
	"github.com/yungbote/lexi-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
)

const (
	DefaultHistoryTurns = 6

	maxSessionNameLen = 120
)

// History persists sessions and their messages. Every call keyed by session
// id checks ownership first.
type History struct {
	db       *gorm.DB
	log      *logger.Logger
	sessions chatrepo.ChatSessionRepo
	messages chatrepo.ChatMessageRepo
}

func NewHistory(db *gorm.DB, log *logger.Logger, sessions chatrepo.ChatSessionRepo, messages chatrepo.ChatMessageRepo) *History {
	return &History{
		db:       db,
		log:      log.With("service", "ChatHistory"),
		sessions: sessions,
		messages: messages,
	}
}

// Authorize returns the session when principalID owns it.
func (h *History) Authorize(ctx context.Context, principalID, sessionID uuid.UUID) (*types.ChatSession, error) {
	if sessionID == uuid.Nil {
		return nil, types.Validation("session_id", "is required")
	}
	s, err := h.sessions.GetByID(dbctx.Context{Ctx: ctx}, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		return nil, types.NotFound("session", sessionID)
	}
	if principalID == uuid.Nil || s.PrincipalID != principalID {
		return nil, types.Unauthorized("session belongs to another principal")
	}
	return s, nil
}

// loadHistory renders up to limit of the newest messages, oldest first, as
// "User: ..." / "Lexi: ..." lines.
func (h *History) loadHistory(ctx context.Context, sessionID uuid.UUID, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultHistoryTurns
	}
	msgs, err := h.messages.ListRecent(dbctx.Context{Ctx: ctx}, sessionID, limit)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	return renderTranscript(msgs), nil
}

func renderTranscript(msgs []*types.ChatMessage) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		label := "User"
		if m.Role == types.MessageRoleAssistant {
			label = assistantName
		}
		lines = append(lines, label+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// appendMessage stores a message and bumps the session's updated_at in one
// transaction. Citations are snapshotted as given.
func (h *History) appendMessage(ctx context.Context, sessionID uuid.UUID, role types.MessageRole, content string, citations []types.Citation) (*types.ChatMessage, error) {
	msg := &types.ChatMessage{SessionID: sessionID, Role: role, Content: content}
	if err := msg.SetCitations(citations); err != nil {
		return nil, fmt.Errorf("encode citations: %w", err)
	}
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		seq, err := h.sessions.BumpSeq(dbc, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NotFound("session", sessionID)
			}
			return err
		}
		msg.Seq = seq
		_, err = h.messages.Create(dbc, msg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

func (h *History) CreateSession(ctx context.Context, principalID uuid.UUID, name string) (*types.ChatSession, error) {
	if principalID == uuid.Nil {
		return nil, types.Unauthorized("missing principal")
	}
	name, err := sessionName(name)
	if err != nil {
		return nil, err
	}
	return h.sessions.Create(dbctx.Context{Ctx: ctx}, &types.ChatSession{PrincipalID: principalID, Name: name})
}

func (h *History) ListSessions(ctx context.Context, principalID uuid.UUID, limit int) ([]*types.ChatSession, error) {
	if principalID == uuid.Nil {
		return nil, types.Unauthorized("missing principal")
	}
	return h.sessions.ListByPrincipal(dbctx.Context{Ctx: ctx}, principalID, limit)
}

func (h *History) RenameSession(ctx context.Context, principalID, sessionID uuid.UUID, name string) (*types.ChatSession, error) {
	s, err := h.Authorize(ctx, principalID, sessionID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, types.Validation("name", "must not be empty")
	}
	name, err = sessionName(name)
	if err != nil {
		return nil, err
	}
	if err := h.sessions.UpdateFields(dbctx.Context{Ctx: ctx}, s.ID, map[string]interface{}{"name": name}); err != nil {
		return nil, fmt.Errorf("rename session: %w", err)
	}
	s.Name = name
	return s, nil
}

// DeleteSession removes the messages and then the session.
func (h *History) DeleteSession(ctx context.Context, principalID, sessionID uuid.UUID) error {
	s, err := h.Authorize(ctx, principalID, sessionID)
	if err != nil {
		return err
	}
	return h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := h.messages.DeleteBySession(dbc, s.ID); err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		if err := h.sessions.Delete(dbc, s.ID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	})
}

// Messages returns the whole session oldest first.
func (h *History) Messages(ctx context.Context, principalID, sessionID uuid.UUID) ([]*types.ChatMessage, error) {
	s, err := h.Authorize(ctx, principalID, sessionID)
	if err != nil {
		return nil, err
	}
	return h.messages.ListBySession(dbctx.Context{Ctx: ctx}, s.ID)
}

func sessionName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return types.DefaultSessionName, nil
	}
	if len([]rune(name)) > maxSessionNameLen {
		return "", types.Validation("name", fmt.Sprintf("must be at most %d characters", maxSessionNameLen))
	}
	return name, nil
}
