package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/lexi-backend/internal/domain"
	"github.com/yungbote/lexi-backend/internal/http/response"
	"github.com/yungbote/lexi-backend/internal/modules/chat"
	"github.com/yungbote/lexi-backend/internal/platform/apierr"
)

type ChatService interface {
	Turn(ctx context.Context, in chat.TurnInput) (*chat.TurnResult, error)
}

// SessionStore is the session surface of chat.History.
type SessionStore interface {
	CreateSession(ctx context.Context, principalID uuid.UUID, name string) (*types.ChatSession, error)
	ListSessions(ctx context.Context, principalID uuid.UUID, limit int) ([]*types.ChatSession, error)
	RenameSession(ctx context.Context, principalID, sessionID uuid.UUID, name string) (*types.ChatSession, error)
	DeleteSession(ctx context.Context, principalID, sessionID uuid.UUID) error
	Messages(ctx context.Context, principalID, sessionID uuid.UUID) ([]*types.ChatMessage, error)
}

type ChatHandler struct {
	chat     ChatService
	sessions SessionStore
}

func NewChatHandler(chat ChatService, sessions SessionStore) *ChatHandler {
	return &ChatHandler{chat: chat, sessions: sessions}
}

// POST /api/chat
// body: { "session_id": "...", "query": "...", "matter_id": "..." }
// A missing session_id opens a new session for the caller.
func (h *ChatHandler) Turn(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		SessionID string `json:"session_id"`
		Query     string `json:"query"`
		MatterID  string `json:"matter_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, apierr.BadRequest("invalid_request", err))
		return
	}
	var matterID uuid.UUID
	if raw := strings.TrimSpace(req.MatterID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.FromError(c, types.Validation("matter_id", "must be a uuid"))
			return
		}
		matterID = id
	}
	ctx := c.Request.Context()
	var sessionID uuid.UUID
	if raw := strings.TrimSpace(req.SessionID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.FromError(c, types.Validation("session_id", "must be a uuid"))
			return
		}
		sessionID = id
	} else {
		if strings.TrimSpace(req.Query) == "" {
			response.FromError(c, types.Validation("query", "must not be empty"))
			return
		}
		s, err := h.sessions.CreateSession(ctx, rd.PrincipalID, "")
		if err != nil {
			response.FromError(c, err)
			return
		}
		sessionID = s.ID
	}

	out, err := h.chat.Turn(ctx, chat.TurnInput{
		PrincipalID: rd.PrincipalID,
		SessionID:   sessionID,
		Query:       req.Query,
		MatterID:    matterID,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"session_id":      sessionID,
		"answer":          out.Answer,
		"citations":       out.Citations,
		"searched":        out.Searched,
		"rewritten_query": out.RewrittenQuery,
	})
}

// POST /api/chat/sessions
// body: { "name": "..." }
func (h *ChatHandler) CreateSession(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.FromError(c, apierr.BadRequest("invalid_request", err))
			return
		}
	}
	s, err := h.sessions.CreateSession(c.Request.Context(), rd.PrincipalID, req.Name)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"session": s})
}

// GET /api/chat/sessions
func (h *ChatHandler) ListSessions(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	sessions, err := h.sessions.ListSessions(c.Request.Context(), rd.PrincipalID, listLimit(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sessions": sessions})
}

// PATCH /api/chat/sessions/:id
// body: { "name": "..." }
func (h *ChatHandler) RenameSession(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "invalid_session_id")
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, apierr.BadRequest("invalid_request", err))
		return
	}
	s, err := h.sessions.RenameSession(c.Request.Context(), rd.PrincipalID, id, req.Name)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session": s})
}

// DELETE /api/chat/sessions/:id
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "invalid_session_id")
	if !ok {
		return
	}
	if err := h.sessions.DeleteSession(c.Request.Context(), rd.PrincipalID, id); err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondNoContent(c)
}

// GET /api/chat/sessions/:id/messages
func (h *ChatHandler) Messages(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "invalid_session_id")
	if !ok {
		return
	}
	msgs, err := h.sessions.Messages(c.Request.Context(), rd.PrincipalID, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"messages": msgs})
}
