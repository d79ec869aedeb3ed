// Package chat runs a conversational turn: load history, route, optionally
// rewrite and retrieve under the caller's role, generate, then persist both
// messages with the citations used.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	accessrepo "github.com/yungbote/lexi-backend/internal/data/repos/access"
	types "github.com/yungbote/lexi-backend/internal/domain"
	"github.com/yungbote/lexi-backend/internal/modules/retrieval"
	"github.com/yungbote/lexi-backend/internal/observability"
	"github.com/yungbote/lexi-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
)

const maxQueryLen = 4000

type Retriever interface {
	Retrieve(ctx context.Context, q retrieval.Query) ([]types.Citation, error)
}

type TurnInput struct {
	PrincipalID uuid.UUID
	SessionID   uuid.UUID
	Query       string
	MatterID    uuid.UUID
}

type TurnResult struct {
	Answer         string
	Citations      []types.Citation
	Searched       bool
	RewrittenQuery string

	UserMessage      *types.ChatMessage
	AssistantMessage *types.ChatMessage
}

type Config struct {
	HistoryTurns int
	TopK         int
}

type Service struct {
	log        *logger.Logger
	principals accessrepo.PrincipalRepo
	history    *History
	router     *Router
	retriever  Retriever
	generator  *Generator
	cfg        Config
}

func NewService(log *logger.Logger, principals accessrepo.PrincipalRepo, history *History, router *Router, retriever Retriever, generator *Generator, cfg Config) (*Service, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if principals == nil || history == nil || router == nil || retriever == nil || generator == nil {
		return nil, fmt.Errorf("chat service dependencies missing")
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = DefaultHistoryTurns
	}
	if cfg.TopK <= 0 {
		cfg.TopK = retrieval.DefaultTopK
	}
	return &Service{
		log:        log.With("service", "ChatService"),
		principals: principals,
		history:    history,
		router:     router,
		retriever:  retriever,
		generator:  generator,
		cfg:        cfg,
	}, nil
}

func (s *Service) History() *History { return s.history }

// Turn answers one user query. Retrieval failures degrade to an answer with
// no citations; the caller's role always comes from the principal store.
func (s *Service) Turn(ctx context.Context, in TurnInput) (*TurnResult, error) {
	ctx, span := observability.StartSpan(ctx, "chat.turn", attribute.String("session_id", in.SessionID.String()))
	defer span.End()

	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, types.Validation("query", "must not be empty")
	}
	if len([]rune(query)) > maxQueryLen {
		return nil, types.Validation("query", fmt.Sprintf("must be at most %d characters", maxQueryLen))
	}
	principal, err := s.principals.GetByID(dbctx.Context{Ctx: ctx}, in.PrincipalID)
	if err != nil {
		return nil, fmt.Errorf("load principal: %w", err)
	}
	if principal == nil {
		return nil, types.Unauthorized("unknown principal")
	}
	session, err := s.history.Authorize(ctx, principal.ID, in.SessionID)
	if err != nil {
		return nil, err
	}
	transcript, err := s.history.loadHistory(ctx, session.ID, s.cfg.HistoryTurns)
	if err != nil {
		return nil, err
	}

	out := &TurnResult{Citations: []types.Citation{}}
	if s.router.NeedsSearch(ctx, transcript, query) {
		out.Searched = true
		out.RewrittenQuery = s.router.Rewrite(ctx, transcript, query)
		cits, err := s.retriever.Retrieve(ctx, retrieval.Query{
			Text:     out.RewrittenQuery,
			Role:     principal.Role,
			MatterID: in.MatterID,
			TopK:     s.cfg.TopK,
		})
		if err != nil {
			s.log.Warn("Retrieval failed; answering without documents", "session_id", session.ID, "error", err)
		} else {
			out.Citations = cits
		}
	}
	span.SetAttributes(attribute.Bool("searched", out.Searched), attribute.Int("citations", len(out.Citations)))

	out.Answer, _ = s.generator.Generate(ctx, query, transcript, out.Citations)

	out.UserMessage, err = s.history.appendMessage(ctx, session.ID, types.MessageRoleUser, query, nil)
	if err != nil {
		return nil, err
	}
	out.AssistantMessage, err = s.history.appendMessage(ctx, session.ID, types.MessageRoleAssistant, out.Answer, out.Citations)
	if err != nil {
		return nil, err
	}
	observability.Current().IncChatTurn(out.Searched)
	return out, nil
}
