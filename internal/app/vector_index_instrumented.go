package app

import (
	"context"
	"time"

	"github.com/yungbote/lexi-backend/internal/observability"
	"github.com/yungbote/lexi-backend/internal/platform/vectorindex"
)

type instrumentedVectorIndex struct {
	provider string
	inner    vectorindex.Index
	metrics  *observability.Metrics
}

func instrumentVectorIndex(provider string, inner vectorindex.Index) vectorindex.Index {
	if inner == nil {
		return nil
	}
	return &instrumentedVectorIndex{
		provider: provider,
		inner:    inner,
		metrics:  observability.Current(),
	}
}

func (s *instrumentedVectorIndex) EnsureCollection(ctx context.Context) error {
	start := time.Now()
	err := s.inner.EnsureCollection(ctx)
	s.observe("ensure_collection", err, time.Since(start))
	return err
}

func (s *instrumentedVectorIndex) Upsert(ctx context.Context, points []vectorindex.Point) error {
	start := time.Now()
	err := s.inner.Upsert(ctx, points)
	s.observe("upsert", err, time.Since(start))
	return err
}

func (s *instrumentedVectorIndex) Search(ctx context.Context, req vectorindex.SearchRequest) ([]vectorindex.Match, error) {
	start := time.Now()
	out, err := s.inner.Search(ctx, req)
	s.observe("search", err, time.Since(start))
	return out, err
}

func (s *instrumentedVectorIndex) DeleteByFilter(ctx context.Context, filter map[string]any) error {
	start := time.Now()
	err := s.inner.DeleteByFilter(ctx, filter)
	s.observe("delete_by_filter", err, time.Since(start))
	return err
}

func (s *instrumentedVectorIndex) Count(ctx context.Context, filter map[string]any) (int, error) {
	start := time.Now()
	n, err := s.inner.Count(ctx, filter)
	s.observe("count", err, time.Since(start))
	return n, err
}

func (s *instrumentedVectorIndex) observe(operation string, err error, dur time.Duration) {
	if s == nil || s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveVectorOp(s.provider, operation, status, dur)
}
