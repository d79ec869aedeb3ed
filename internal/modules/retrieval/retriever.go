// Package retrieval runs role-filtered similarity search and turns hits into
// citations. The sensitivity filter is built before the index is queried and
// travels with the query; hits are never filtered afterwards.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/lexi-backend/internal/domain"
	docdomain "github.com/yungbote/lexi-backend/internal/domain/documents"
	"github.com/yungbote/lexi-backend/internal/modules/access"
	"github.com/yungbote/lexi-backend/internal/observability"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
	"github.com/yungbote/lexi-backend/internal/platform/openai"
	"github.com/yungbote/lexi-backend/internal/platform/vectorindex"
)

const (
	DefaultTopK = 5

	unknownValue    = "unknown"
	unknownFilename = "Unknown File"
)

type Query struct {
	Text string
	Role types.Role
	// MatterID narrows the search to one matter when set.
	MatterID uuid.UUID
	TopK     int
}

type Retriever struct {
	log      *logger.Logger
	embedder openai.Embedder
	index    vectorindex.Index
	minScore float64
}

func NewRetriever(log *logger.Logger, embedder openai.Embedder, index vectorindex.Index, minScore float64) (*Retriever, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if embedder == nil || index == nil {
		return nil, fmt.Errorf("embedder and vector index required")
	}
	if minScore < 0 {
		minScore = 0
	}
	return &Retriever{
		log:      log.With("service", "Retriever"),
		embedder: embedder,
		index:    index,
		minScore: minScore,
	}, nil
}

// Retrieve returns citations ordered by descending score. A role with no
// allowed sensitivities gets an empty result without touching the index.
func (r *Retriever) Retrieve(ctx context.Context, q Query) ([]types.Citation, error) {
	ctx, span := observability.StartSpan(ctx, "retrieval.retrieve", attribute.String("role", string(q.Role)))
	defer span.End()

	allowed := access.FilterValues(q.Role)
	if len(allowed) == 0 {
		observability.Current().IncRetrieval("denied")
		r.log.Info("Retrieval denied for role", "role", q.Role)
		return []types.Citation{}, nil
	}
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return []types.Citation{}, nil
	}
	topK := q.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	vecs, err := r.embedder.Embed(ctx, []string{text})
	if err != nil {
		observability.Current().IncRetrieval("error")
		observability.Current().IncInferenceFailure("embed")
		return nil, types.Inference("embed", err)
	}
	if len(vecs) != 1 {
		observability.Current().IncRetrieval("error")
		return nil, types.Inference("embed", fmt.Errorf("want 1 vector got %d", len(vecs)))
	}

	filter := vectorindex.In(docdomain.PayloadSensitivity, allowed...)
	if q.MatterID != uuid.Nil {
		filter = vectorindex.And(filter, vectorindex.Eq(docdomain.PayloadMatterID, q.MatterID.String()))
	}
	matches, err := r.index.Search(ctx, vectorindex.SearchRequest{
		Vector:         vecs[0],
		Filter:         filter,
		Limit:          topK,
		ScoreThreshold: r.minScore,
	})
	if err != nil {
		observability.Current().IncRetrieval("error")
		return nil, fmt.Errorf("vector search: %w", err)
	}

	out := make([]types.Citation, 0, len(matches))
	for _, m := range matches {
		out = append(out, citationFromMatch(m))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	observability.Current().IncRetrieval("ok")
	span.SetAttributes(attribute.Int("hits", len(out)))
	return out, nil
}

func citationFromMatch(m vectorindex.Match) types.Citation {
	return types.Citation{
		DocumentID:  payloadString(m.Payload, docdomain.PayloadDocumentID, unknownValue),
		Filename:    payloadString(m.Payload, docdomain.PayloadFilename, unknownFilename),
		MatterID:    payloadString(m.Payload, docdomain.PayloadMatterID, unknownValue),
		Sensitivity: payloadString(m.Payload, docdomain.PayloadSensitivity, unknownValue),
		ChunkIndex:  payloadInt(m.Payload, docdomain.PayloadChunkIndex),
		TextSnippet: payloadString(m.Payload, docdomain.PayloadTextSnippet, ""),
		Score:       m.Score,
	}
}

func payloadString(p map[string]any, key, fallback string) string {
	v, ok := vectorindex.ScalarValue(p[key])
	if !ok || v == nil {
		return fallback
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return fallback
	}
	return s
}

func payloadInt(p map[string]any, key string) int {
	v, ok := vectorindex.ScalarValue(p[key])
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case uint:
		return int(n)
	case uint64:
		return int(n)
	default:
		return 0
	}
}
