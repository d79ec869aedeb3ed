package chat

import (
	"context"
	"strings"

	"github.com/yungbote/lexi-backend/internal/observability"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
	"github.com/yungbote/lexi-backend/internal/platform/openai"
)

// Router decides whether a turn needs document search and makes the query
// standalone. Both calls fail open: search, and keep the original query.
type Router struct {
	log *logger.Logger
	llm openai.Completer
}

func NewRouter(log *logger.Logger, llm openai.Completer) *Router {
	return &Router{log: log.With("service", "ChatRouter"), llm: llm}
}

func (r *Router) NeedsSearch(ctx context.Context, history, query string) bool {
	ctx, span := observability.StartSpan(ctx, "chat.route")
	defer span.End()

	system, user := promptSearchNeeded(history, query)
	out, err := r.llm.Complete(ctx, openai.CompletionRequest{
		System:      system,
		User:        user,
		Temperature: 0,
		MaxTokens:   5,
	})
	if err != nil {
		observability.Current().IncInferenceFailure("route")
		r.log.Warn("Search classifier failed; searching", "error", err)
		return true
	}
	return strings.Contains(strings.ToUpper(strings.TrimSpace(out)), "YES")
}

func (r *Router) Rewrite(ctx context.Context, history, query string) string {
	ctx, span := observability.StartSpan(ctx, "chat.rewrite")
	defer span.End()

	system, user := promptRewriteQuery(history, query)
	out, err := r.llm.Complete(ctx, openai.CompletionRequest{
		System:      system,
		User:        user,
		Temperature: 0.1,
	})
	if err != nil {
		observability.Current().IncInferenceFailure("rewrite")
		r.log.Warn("Query rewrite failed; using original", "error", err)
		return query
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return query
	}
	return out
}
