package qdrant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/lexi-backend/internal/platform/ctxutil"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
	"github.com/yungbote/lexi-backend/internal/platform/vectorindex"
)

// KeywordFields get payload indexes at bootstrap so filtered search and
// delete-by-filter stay cheap.
var KeywordFields = []string{"document_id", "matter_id", "sensitivity"}

type Index struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client
	backoff time.Duration
}

var _ vectorindex.Index = (*Index)(nil)

type searchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// NewIndex validates cfg and returns an adapter. No network calls happen until
// EnsureCollection.
func NewIndex(log *logger.Logger, cfg Config) (*Index, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg = cfg.withDefaults()
	if err := ValidateConfig(cfg, true); err != nil {
		return nil, err
	}
	s := &Index{
		log:     log.With("service", "QdrantIndex"),
		cfg:     cfg,
		baseURL: cfg.URL,
		http:    &http.Client{Timeout: cfg.Timeout},
		backoff: defaultBackoff,
	}
	log.Info(
		"Qdrant vector index selected",
		"provider", "qdrant",
		"url", s.baseURL,
		"collection", cfg.Collection,
		"vector_name", cfg.VectorName,
		"vector_dim", cfg.VectorDim,
	)
	return s, nil
}

// EnsureCollection checks readiness, creates the collection when absent (one
// named cosine vector of the configured size), verifies the size of an existing
// one, and creates keyword payload indexes.
func (s *Index) EnsureCollection(ctx context.Context) error {
	const op = "bootstrap"
	if err := s.checkReady(ctx); err != nil {
		return err
	}

	var info struct {
		Config struct {
			Params struct {
				Vectors json.RawMessage `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err := s.doJSON(ctx, op, http.MethodGet, s.collectionPath(""), nil, &info)
	switch {
	case isNotFound(err):
		if err := s.createCollection(ctx); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if err := s.verifyVectors(info.Config.Params.Vectors); err != nil {
			return err
		}
	}

	for _, field := range KeywordFields {
		body := map[string]any{"field_name": field, "field_schema": "keyword"}
		if err := s.doJSON(ctx, "create_payload_index", http.MethodPut, s.collectionPath("/index?wait=true"), body, nil); err != nil {
			return err
		}
	}
	s.log.Info("Qdrant collection ready", "collection", s.cfg.Collection)
	return nil
}

// checkReady probes /readyz, which answers in plain text rather than the JSON envelope.
func (s *Index) checkReady(ctx context.Context) error {
	const op = "ready"
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, s.baseURL+"/readyz", nil)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build ready request failed", err)
	}
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant ready check failed", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant ready check returned status=%d", resp.StatusCode),
		}
	}
	return nil
}

func (s *Index) createCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			s.cfg.VectorName: map[string]any{
				"size":     s.cfg.VectorDim,
				"distance": "Cosine",
			},
		},
	}
	if err := s.doJSON(ctx, "create_collection", http.MethodPut, s.collectionPath(""), body, nil); err != nil {
		return err
	}
	s.log.Info("Qdrant collection created", "collection", s.cfg.Collection, "vector_dim", s.cfg.VectorDim)
	return nil
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

func (s *Index) verifyVectors(raw json.RawMessage) error {
	const op = "bootstrap"
	named := map[string]vectorParams{}
	if err := json.Unmarshal(raw, &named); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode collection vectors failed", err)
	}
	params, ok := named[s.cfg.VectorName]
	if !ok {
		return opErr(op, OperationErrorValidation, fmt.Sprintf(
			"qdrant collection %q has no named vector %q", s.cfg.Collection, s.cfg.VectorName), nil)
	}
	if params.Size != s.cfg.VectorDim {
		return opErr(op, OperationErrorValidation, fmt.Sprintf(
			"qdrant collection %q vector size mismatch: expected=%d actual=%d",
			s.cfg.Collection, s.cfg.VectorDim, params.Size), vectorindex.ErrDimensionMismatch)
	}
	if !strings.EqualFold(params.Distance, "cosine") {
		s.log.Warn("Qdrant collection distance is not cosine", "collection", s.cfg.Collection, "distance", params.Distance)
	}
	return nil
}

func (s *Index) Upsert(ctx context.Context, points []vectorindex.Point) error {
	const op = "upsert"
	if len(points) == 0 {
		return nil
	}
	body := make([]map[string]any, 0, len(points))
	for _, p := range points {
		if _, err := uuid.Parse(p.ID); err != nil {
			return opErr(op, OperationErrorValidation, fmt.Sprintf("point id %q must be a uuid", p.ID), err)
		}
		if err := s.checkDim(op, len(p.Vector)); err != nil {
			return err
		}
		payload := p.Payload
		if payload == nil {
			payload = map[string]any{}
		}
		body = append(body, map[string]any{
			"id":      p.ID,
			"vector":  map[string]any{s.cfg.VectorName: p.Vector},
			"payload": payload,
		})
	}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": body}, nil)
}

func (s *Index) Search(ctx context.Context, req vectorindex.SearchRequest) ([]vectorindex.Match, error) {
	const op = "search"
	if err := s.checkDim(op, len(req.Vector)); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	filter, err := translateFilter(op, req.Filter)
	if err != nil {
		s.log.Warn("qdrant search filter rejected", "error", err)
		return nil, err
	}
	body := map[string]any{
		"vector":       map[string]any{"name": s.cfg.VectorName, "vector": req.Vector},
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if filter != nil {
		body["filter"] = filter
	}
	if req.ScoreThreshold > 0 {
		body["score_threshold"] = req.ScoreThreshold
	}

	var raw []searchResultItem
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/search"), body, &raw); err != nil {
		return nil, err
	}
	out := make([]vectorindex.Match, 0, len(raw))
	for _, item := range raw {
		out = append(out, vectorindex.Match{
			ID:      decodePointID(item.ID),
			Score:   item.Score,
			Payload: item.Payload,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (s *Index) DeleteByFilter(ctx context.Context, filter map[string]any) error {
	const op = "delete"
	body, err := translateFilter(op, filter)
	if err != nil {
		return err
	}
	if body == nil {
		return opErr(op, OperationErrorValidation, "delete requires a non-empty filter", nil)
	}
	return s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/delete?wait=true"), map[string]any{"filter": body}, nil)
}

func (s *Index) Count(ctx context.Context, filter map[string]any) (int, error) {
	const op = "count"
	body := map[string]any{"exact": true}
	translated, err := translateFilter(op, filter)
	if err != nil {
		return 0, err
	}
	if translated != nil {
		body["filter"] = translated
	}
	var result struct {
		Count int `json:"count"`
	}
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/count"), body, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

func (s *Index) checkDim(op string, n int) error {
	if n == 0 {
		return opErr(op, OperationErrorValidation, "vector is empty", vectorindex.ErrDimensionMismatch)
	}
	if n != s.cfg.VectorDim {
		return opErr(op, OperationErrorValidation,
			fmt.Sprintf("vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, n),
			vectorindex.ErrDimensionMismatch)
	}
	return nil
}

func (s *Index) collectionPath(suffix string) string {
	return "/collections/" + s.cfg.Collection + suffix
}

func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var idString string
	if err := json.Unmarshal(raw, &idString); err == nil {
		return strings.TrimSpace(idString)
	}
	var idNumber int64
	if err := json.Unmarshal(raw, &idNumber); err == nil {
		return fmt.Sprintf("%d", idNumber)
	}
	return strings.TrimSpace(string(raw))
}
