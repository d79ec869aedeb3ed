package chat

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/lexi-backend/internal/domain"
	"github.com/yungbote/lexi-backend/internal/observability"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
	"github.com/yungbote/lexi-backend/internal/platform/openai"
)

type Generator struct {
	log *logger.Logger
	llm openai.Completer
}

func NewGenerator(log *logger.Logger, llm openai.Completer) *Generator {
	return &Generator{log: log.With("service", "Generator"), llm: llm}
}

// Generate always returns text. An inference failure becomes the answer so
// the turn still persists.
func (g *Generator) Generate(ctx context.Context, query, history string, citations []types.Citation) (string, bool) {
	ctx, span := observability.StartSpan(ctx, "chat.generate", attribute.Int("citations", len(citations)))
	defer span.End()

	system, user := promptAnswer(query, history, citations)
	out, err := g.llm.Complete(ctx, openai.CompletionRequest{
		System:      system,
		User:        user,
		Temperature: 0.3,
	})
	if err != nil {
		observability.Current().IncInferenceFailure("generate")
		g.log.Error("Answer generation failed", "error", err)
		return fmt.Sprintf("Error generating answer: %v", err), false
	}
	return out, true
}
