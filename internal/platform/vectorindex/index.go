// Package vectorindex defines the vector index contract shared by the Qdrant
// adapter and the in-memory index, plus the payload filter language both accept.
package vectorindex

import (
	"context"
	"errors"
)

// Point is one embedded chunk. ID must be unique per chunk and is never derived
// from content.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

type Match struct {
	ID      string
	Score   float64
	Payload map[string]any
}

type SearchRequest struct {
	Vector []float32
	// Filter is applied by the index before ranking.
	Filter         map[string]any
	Limit          int
	ScoreThreshold float64
}

type Index interface {
	// EnsureCollection creates the collection and payload indexes when absent.
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, points []Point) error
	// Search returns matches ordered by descending score.
	Search(ctx context.Context, req SearchRequest) ([]Match, error)
	DeleteByFilter(ctx context.Context, filter map[string]any) error
	Count(ctx context.Context, filter map[string]any) (int, error)
}

var ErrDimensionMismatch = errors.New("vector dimension mismatch")
