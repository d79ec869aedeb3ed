package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/lexi-backend/internal/platform/logger"
	"github.com/yungbote/lexi-backend/internal/platform/vectorindex"
)

func TestIndexUpsertRequestShape(t *testing.T) {
	var captured map[string]any
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut {
			t.Fatalf("method: want=%s got=%s", http.MethodPut, r.Method)
		}
		if r.URL.Path != "/collections/legal_documents/points" {
			t.Fatalf("path: want=%q got=%q", "/collections/legal_documents/points", r.URL.Path)
		}
		if r.URL.RawQuery != "wait=true" {
			t.Fatalf("query: want=%q got=%q", "wait=true", r.URL.RawQuery)
		}
		if r.Header.Get("api-key") != "k" {
			t.Fatalf("api-key header: want=%q got=%q", "k", r.Header.Get("api-key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	id := uuid.New().String()
	err := s.Upsert(context.Background(), []vectorindex.Point{
		{ID: id, Vector: []float32{1, 2, 3}, Payload: map[string]any{"document_id": "d-1", "chunk_index": 0}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	points, ok := captured["points"].([]any)
	if !ok || len(points) != 1 {
		t.Fatalf("points: want 1 got=%v", captured["points"])
	}
	first := points[0].(map[string]any)
	if first["id"] != id {
		t.Fatalf("id: want=%q got=%v", id, first["id"])
	}
	vec, ok := first["vector"].(map[string]any)
	if !ok {
		t.Fatalf("vector type: got=%T", first["vector"])
	}
	if _, ok := vec[DefaultVectorName]; !ok {
		t.Fatalf("named vector %q missing: got=%v", DefaultVectorName, vec)
	}
	payload := first["payload"].(map[string]any)
	if payload["document_id"] != "d-1" {
		t.Fatalf("payload document_id: want=%q got=%v", "d-1", payload["document_id"])
	}
}

func TestIndexUpsertRejectsNonUUIDAndBadDim(t *testing.T) {
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		return nil, nil
	})
	err := s.Upsert(context.Background(), []vectorindex.Point{{ID: "chunk-1", Vector: []float32{1, 2, 3}}})
	var oe *OperationError
	if !errors.As(err, &oe) || oe.Code != OperationErrorValidation {
		t.Fatalf("non-uuid: want=%s got=%v", OperationErrorValidation, err)
	}
	err = s.Upsert(context.Background(), []vectorindex.Point{{ID: uuid.New().String(), Vector: []float32{1}}})
	if !errors.Is(err, vectorindex.ErrDimensionMismatch) {
		t.Fatalf("dim: want=%v got=%v", vectorindex.ErrDimensionMismatch, err)
	}
}

func TestIndexSearchSendsFilterAndThreshold(t *testing.T) {
	var captured map[string]any
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/legal_documents/points/search" {
			t.Fatalf("path: got=%q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, []map[string]any{
			{"id": "b", "score": 0.4, "payload": map[string]any{"filename": "b.docx"}},
			{"id": "a", "score": 0.9, "payload": map[string]any{"filename": "a.docx"}},
		}), nil
	})

	got, err := s.Search(context.Background(), vectorindex.SearchRequest{
		Vector:         []float32{0.1, 0.2, 0.3},
		Filter:         vectorindex.And(vectorindex.In("sensitivity", "public", "internal"), vectorindex.Eq("matter_id", "m-1")),
		Limit:          5,
		ScoreThreshold: 0.2,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("order: want=[a b] got=%v", got)
	}
	if got[0].Payload["filename"] != "a.docx" {
		t.Fatalf("payload: want=a.docx got=%v", got[0].Payload["filename"])
	}

	vector := captured["vector"].(map[string]any)
	if vector["name"] != DefaultVectorName {
		t.Fatalf("vector name: want=%q got=%v", DefaultVectorName, vector["name"])
	}
	if captured["score_threshold"] != 0.2 {
		t.Fatalf("score_threshold: want=0.2 got=%v", captured["score_threshold"])
	}
	filter := captured["filter"].(map[string]any)
	must := filter["must"].([]any)
	if len(must) != 2 {
		t.Fatalf("must: want=2 got=%d (%v)", len(must), must)
	}
	sens := findCondition(t, must, "sensitivity")
	anyVals := sens["match"].(map[string]any)["any"].([]any)
	if len(anyVals) != 2 || anyVals[0] != "public" || anyVals[1] != "internal" {
		t.Fatalf("sensitivity any: got=%v", anyVals)
	}
	matter := findCondition(t, must, "matter_id")
	if matter["match"].(map[string]any)["value"] != "m-1" {
		t.Fatalf("matter match: got=%v", matter["match"])
	}
}

func TestIndexSearchUnsupportedFilter(t *testing.T) {
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request")
		return nil, nil
	})
	_, err := s.Search(context.Background(), vectorindex.SearchRequest{
		Vector: []float32{1, 2, 3},
		Filter: map[string]any{"chunk_index": map[string]any{"$gt": 2}},
		Limit:  1,
	})
	var oe *OperationError
	if !errors.As(err, &oe) || oe.Code != OperationErrorUnsupportedFilter {
		t.Fatalf("want=%s got=%v", OperationErrorUnsupportedFilter, err)
	}
}

func TestIndexDeleteByFilterAndCount(t *testing.T) {
	var paths []string
	var bodies []map[string]any
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		paths = append(paths, r.URL.Path)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		if strings.HasSuffix(r.URL.Path, "/count") {
			return okResponse(t, map[string]any{"count": 3}), nil
		}
		return okResponse(t, map[string]any{"status": "completed"}), nil
	})
	ctx := context.Background()
	if err := s.DeleteByFilter(ctx, vectorindex.Eq("document_id", "d-1")); err != nil {
		t.Fatalf("DeleteByFilter: %v", err)
	}
	n, err := s.Count(ctx, vectorindex.Eq("document_id", "d-1"))
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Fatalf("count: want=3 got=%d", n)
	}
	if paths[0] != "/collections/legal_documents/points/delete" || paths[1] != "/collections/legal_documents/points/count" {
		t.Fatalf("paths: got=%v", paths)
	}
	if bodies[1]["exact"] != true {
		t.Fatalf("count exact: want=true got=%v", bodies[1]["exact"])
	}
	if err := s.DeleteByFilter(ctx, nil); err == nil {
		t.Fatalf("DeleteByFilter(nil): expected error")
	}
}

func TestEnsureCollectionCreatesWhenMissing(t *testing.T) {
	var calls []string
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.URL.Path == "/readyz":
			return textResponse(http.StatusOK, "all shards are ready"), nil
		case r.Method == http.MethodGet:
			return textResponse(http.StatusNotFound, `{"status":{"error":"Not found"}}`), nil
		case r.Method == http.MethodPut && r.URL.Path == "/collections/legal_documents":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			vectors := body["vectors"].(map[string]any)[DefaultVectorName].(map[string]any)
			if vectors["distance"] != "Cosine" || vectors["size"] != float64(3) {
				t.Fatalf("create body: got=%v", vectors)
			}
			return okResponse(t, true), nil
		default:
			return okResponse(t, map[string]any{"status": "acknowledged"}), nil
		}
	})
	if err := s.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	// readyz, get, create, three payload indexes
	if len(calls) != 6 {
		t.Fatalf("calls: want=6 got=%d (%v)", len(calls), calls)
	}
}

func TestEnsureCollectionRejectsSizeMismatch(t *testing.T) {
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == "/readyz" {
			return textResponse(http.StatusOK, "ok"), nil
		}
		return okResponse(t, map[string]any{
			"config": map[string]any{"params": map[string]any{"vectors": map[string]any{
				DefaultVectorName: map[string]any{"size": 768, "distance": "Cosine"},
			}}},
		}), nil
	})
	err := s.EnsureCollection(context.Background())
	var oe *OperationError
	if !errors.As(err, &oe) || oe.Code != OperationErrorValidation {
		t.Fatalf("want=%s got=%v", OperationErrorValidation, err)
	}
}

func TestClassifyHTTPCallError(t *testing.T) {
	var oe *OperationError
	if err := classifyHTTPCallError("search", "timeout", context.DeadlineExceeded); !errors.As(err, &oe) || oe.Code != OperationErrorTimeout {
		t.Fatalf("deadline: want=%s got=%v", OperationErrorTimeout, err)
	}
	if err := classifyHTTPCallError("search", "transport", fmt.Errorf("boom")); !errors.As(err, &oe) || oe.Code != OperationErrorTransportFailed {
		t.Fatalf("transport: want=%s got=%v", OperationErrorTransportFailed, err)
	}
}

func newTestIndex(t *testing.T, roundTrip func(*http.Request) (*http.Response, error)) *Index {
	t.Helper()
	return &Index{
		log: newTestLogger(t),
		cfg: Config{
			URL:        "http://qdrant.local",
			APIKey:     "k",
			Collection: DefaultCollection,
			VectorName: DefaultVectorName,
			VectorDim:  3,
		},
		baseURL: "http://qdrant.local",
		http:    &http.Client{Transport: roundTripFunc(roundTrip)},
	}
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() {
		log.Sync()
	})
	return log
}

func okResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"result": result, "status": "ok", "time": 0.001})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

func textResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func findCondition(t *testing.T, items []any, key string) map[string]any {
	t.Helper()
	for _, item := range items {
		cond, ok := item.(map[string]any)
		if ok && cond["key"] == key {
			return cond
		}
	}
	t.Fatalf("condition %q not found in %v", key, items)
	return nil
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestDoJSONRetriesTransientStatus(t *testing.T) {
	calls := 0
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return textResponse(http.StatusServiceUnavailable, `{"status":{"error":"overloaded"}}`), nil
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})
	s.cfg.MaxRetries = 2
	s.backoff = time.Millisecond

	if err := s.doJSON(context.Background(), "upsert", http.MethodPut, "/collections/legal_documents/points", map[string]any{"points": []any{}}, nil); err != nil {
		t.Fatalf("doJSON: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls: want=2 got=%d", calls)
	}
}

func TestDoJSONDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		calls++
		return textResponse(http.StatusBadRequest, `{"status":{"error":"bad filter"}}`), nil
	})
	s.cfg.MaxRetries = 3
	s.backoff = time.Millisecond

	err := s.doJSON(context.Background(), "search", http.MethodPost, "/collections/legal_documents/points/search", map[string]any{}, nil)
	var oe *OperationError
	if !errors.As(err, &oe) || oe.StatusCode != http.StatusBadRequest {
		t.Fatalf("want status 400 got=%v", err)
	}
	if calls != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}
