package ingestion

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	types "github.com/yungbote/lexi-backend/internal/domain"
	docdomain "github.com/yungbote/lexi-backend/internal/domain/documents"
	"github.com/yungbote/lexi-backend/internal/observability"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
	"github.com/yungbote/lexi-backend/internal/platform/openai"
	"github.com/yungbote/lexi-backend/internal/platform/vectorindex"
)

const (
	DefaultEmbedBatchSize   = 12
	DefaultEmbedConcurrency = 4
)

// Source is the document metadata copied into every chunk payload.
type Source struct {
	DocumentID  uuid.UUID
	MatterID    uuid.UUID
	Filename    string
	Sensitivity types.Sensitivity
}

type Vectorizer struct {
	log      *logger.Logger
	chunker  *Chunker
	embedder openai.Embedder
	index    vectorindex.Index
	batch    int
	// sem caps embedding calls in flight across every document being indexed.
	sem *semaphore.Weighted
}

type VectorizerOption func(*Vectorizer)

func WithChunker(c *Chunker) VectorizerOption {
	return func(v *Vectorizer) {
		if c != nil {
			v.chunker = c
		}
	}
}

func WithEmbedBatchSize(n int) VectorizerOption {
	return func(v *Vectorizer) {
		if n > 0 {
			v.batch = n
		}
	}
}

func WithEmbedConcurrency(n int) VectorizerOption {
	return func(v *Vectorizer) {
		if n > 0 {
			v.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

func NewVectorizer(log *logger.Logger, embedder openai.Embedder, index vectorindex.Index, opts ...VectorizerOption) (*Vectorizer, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if index == nil {
		return nil, fmt.Errorf("vector index required")
	}
	v := &Vectorizer{
		log:      log.With("service", "Vectorizer"),
		chunker:  NewChunker(),
		embedder: embedder,
		index:    index,
		batch:    DefaultEmbedBatchSize,
		sem:      semaphore.NewWeighted(DefaultEmbedConcurrency),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Vectorize chunks, embeds and upserts text, returning the chunk count.
// Empty text is a no-op.
func (v *Vectorizer) Vectorize(ctx context.Context, src Source, text string) (int, error) {
	if src.DocumentID == uuid.Nil {
		return 0, fmt.Errorf("vectorize: missing document id")
	}
	chunks := v.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := v.embedAll(ctx, chunks)
	if err != nil {
		observability.Current().IncInferenceFailure("embed")
		return 0, types.Inference("embed", err)
	}

	points := make([]vectorindex.Point, 0, len(chunks))
	for i, piece := range chunks {
		chunk := docdomain.VectorChunk{
			ID:          uuid.New().String(),
			DocumentID:  src.DocumentID.String(),
			Filename:    src.Filename,
			MatterID:    src.MatterID.String(),
			Sensitivity: string(src.Sensitivity),
			ChunkIndex:  i,
			Text:        piece,
			Vector:      vectors[i],
		}
		points = append(points, vectorindex.Point{ID: chunk.ID, Vector: chunk.Vector, Payload: chunk.Payload()})
	}
	if err := v.index.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("upsert chunks: %w", err)
	}
	v.log.Debug("Indexed document chunks", "document_id", src.DocumentID, "chunks", len(points))
	return len(points), nil
}

func (v *Vectorizer) embedAll(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(chunks); start += v.batch {
		start := start
		end := start + v.batch
		if end > len(chunks) {
			end = len(chunks)
		}
		g.Go(func() error {
			if err := v.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer v.sem.Release(1)
			out, err := v.embedder.Embed(gctx, chunks[start:end])
			if err != nil {
				return err
			}
			if len(out) != end-start {
				return fmt.Errorf("embed: want %d vectors got %d", end-start, len(out))
			}
			copy(vectors[start:end], out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func documentFilter(documentID uuid.UUID) map[string]any {
	return vectorindex.Eq(docdomain.PayloadDocumentID, documentID.String())
}

// DeleteDocument removes every chunk tagged with documentID.
func (v *Vectorizer) DeleteDocument(ctx context.Context, documentID uuid.UUID) error {
	if documentID == uuid.Nil {
		return fmt.Errorf("delete vectors: missing document id")
	}
	if err := v.index.DeleteByFilter(ctx, documentFilter(documentID)); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	return nil
}

// CountDocumentChunks is the verification probe after indexing.
func (v *Vectorizer) CountDocumentChunks(ctx context.Context, documentID uuid.UUID) (int, error) {
	n, err := v.index.Count(ctx, documentFilter(documentID))
	if err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return n, nil
}
