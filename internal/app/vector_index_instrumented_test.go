package app

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/lexi-backend/internal/platform/vectorindex"
)

func TestInstrumentVectorIndexPassThrough(t *testing.T) {
	inner := &fakeIndex{}
	idx := instrumentVectorIndex("memory", inner)
	if idx == nil {
		t.Fatalf("instrumentVectorIndex: expected non-nil wrapper")
	}
	ctx := context.Background()

	if err := idx.EnsureCollection(ctx); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if err := idx.Upsert(ctx, []vectorindex.Point{{ID: "p1", Vector: []float32{1, 0}}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	matches, err := idx.Search(ctx, vectorindex.SearchRequest{Vector: []float32{1, 0}, Limit: 3})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "p1" {
		t.Fatalf("Search: want=[p1] got=%v", matches)
	}
	if _, err := idx.Count(ctx, vectorindex.Eq("document_id", "d1")); err != nil {
		t.Fatalf("Count: %v", err)
	}
	if err := idx.DeleteByFilter(ctx, vectorindex.Eq("document_id", "d1")); err != nil {
		t.Fatalf("DeleteByFilter: %v", err)
	}

	if inner.ensureCalls != 1 || inner.upsertCalls != 1 || inner.searchCalls != 1 || inner.countCalls != 1 || inner.deleteCalls != 1 {
		t.Fatalf(
			"unexpected call counts: ensure=%d upsert=%d search=%d count=%d delete=%d",
			inner.ensureCalls, inner.upsertCalls, inner.searchCalls, inner.countCalls, inner.deleteCalls,
		)
	}
}

func TestInstrumentVectorIndexErrorPassThrough(t *testing.T) {
	want := errors.New("delete failed")
	idx := instrumentVectorIndex("qdrant", &fakeIndex{deleteErr: want})

	err := idx.DeleteByFilter(context.Background(), vectorindex.Eq("document_id", "d1"))
	if !errors.Is(err, want) {
		t.Fatalf("DeleteByFilter: want=%v got=%v", want, err)
	}
}

type fakeIndex struct {
	ensureCalls int
	upsertCalls int
	searchCalls int
	countCalls  int
	deleteCalls int

	ensureErr error
	deleteErr error
}

func (f *fakeIndex) EnsureCollection(context.Context) error {
	f.ensureCalls++
	return f.ensureErr
}

func (f *fakeIndex) Upsert(context.Context, []vectorindex.Point) error {
	f.upsertCalls++
	return nil
}

func (f *fakeIndex) Search(context.Context, vectorindex.SearchRequest) ([]vectorindex.Match, error) {
	f.searchCalls++
	return []vectorindex.Match{{ID: "p1", Score: 0.9}}, nil
}

func (f *fakeIndex) DeleteByFilter(context.Context, map[string]any) error {
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeIndex) Count(context.Context, map[string]any) (int, error) {
	f.countCalls++
	return 0, nil
}
