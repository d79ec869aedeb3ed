// Package memory is an in-process vectorindex.Index. It ranks by cosine
// similarity and applies filters before ranking, like the Qdrant adapter.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/yungbote/lexi-backend/internal/platform/logger"
	"github.com/yungbote/lexi-backend/internal/platform/vectorindex"
)

type stored struct {
	point vectorindex.Point
	seq   uint64
}

type Index struct {
	log *logger.Logger
	dim int

	mu     sync.RWMutex
	points map[string]stored
	seq    uint64
}

var _ vectorindex.Index = (*Index)(nil)

// New returns an empty index. dim <= 0 accepts any dimension but still requires
// every vector to match the first one upserted.
func New(log *logger.Logger, dim int) *Index {
	if log == nil {
		log = logger.NewNop()
	}
	log.Info("In-memory vector index selected", "vector_dim", dim)
	return &Index{
		log:    log.With("index", "memory"),
		dim:    dim,
		points: map[string]stored{},
	}
}

func (i *Index) EnsureCollection(ctx context.Context) error { return nil }

func (i *Index) Upsert(ctx context.Context, points []vectorindex.Point) error {
	if len(points) == 0 {
		return nil
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, p := range points {
		if p.ID == "" {
			return fmt.Errorf("upsert: point id is required")
		}
		if err := i.checkDimLocked(len(p.Vector)); err != nil {
			return err
		}
	}
	for _, p := range points {
		seq := i.seq
		if prev, ok := i.points[p.ID]; ok {
			seq = prev.seq
		} else {
			i.seq++
		}
		i.points[p.ID] = stored{point: clonePoint(p), seq: seq}
	}
	return nil
}

func (i *Index) checkDimLocked(n int) error {
	if n == 0 {
		return fmt.Errorf("%w: empty vector", vectorindex.ErrDimensionMismatch)
	}
	if i.dim <= 0 {
		i.dim = n
		return nil
	}
	if n != i.dim {
		return fmt.Errorf("%w: want=%d got=%d", vectorindex.ErrDimensionMismatch, i.dim, n)
	}
	return nil
}

// Search ranks by cosine similarity. Equal scores keep insertion order.
func (i *Index) Search(ctx context.Context, req vectorindex.SearchRequest) ([]vectorindex.Match, error) {
	if req.Limit <= 0 {
		return nil, fmt.Errorf("search: limit must be positive")
	}
	filter, err := vectorindex.ParseFilter(req.Filter)
	if err != nil {
		return nil, err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.dim > 0 && len(req.Vector) != i.dim {
		return nil, fmt.Errorf("%w: want=%d got=%d", vectorindex.ErrDimensionMismatch, i.dim, len(req.Vector))
	}

	type scored struct {
		match vectorindex.Match
		seq   uint64
	}
	hits := make([]scored, 0, len(i.points))
	for id, s := range i.points {
		if !filter.Matches(s.point.Payload) {
			continue
		}
		score := cosine(req.Vector, s.point.Vector)
		if req.ScoreThreshold > 0 && score < req.ScoreThreshold {
			continue
		}
		hits = append(hits, scored{
			match: vectorindex.Match{ID: id, Score: score, Payload: cloneMap(s.point.Payload)},
			seq:   s.seq,
		})
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].match.Score == hits[b].match.Score {
			return hits[a].seq < hits[b].seq
		}
		return hits[a].match.Score > hits[b].match.Score
	})
	if len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}
	out := make([]vectorindex.Match, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.match)
	}
	return out, nil
}

func (i *Index) DeleteByFilter(ctx context.Context, filter map[string]any) error {
	if len(filter) == 0 {
		return fmt.Errorf("delete: filter is required")
	}
	f, err := vectorindex.ParseFilter(filter)
	if err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	for id, s := range i.points {
		if f.Matches(s.point.Payload) {
			delete(i.points, id)
		}
	}
	return nil
}

func (i *Index) Count(ctx context.Context, filter map[string]any) (int, error) {
	f, err := vectorindex.ParseFilter(filter)
	if err != nil {
		return 0, err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	n := 0
	for _, s := range i.points {
		if f.Matches(s.point.Payload) {
			n++
		}
	}
	return n, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for k := range a {
		x, y := float64(a[k]), float64(b[k])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clonePoint(p vectorindex.Point) vectorindex.Point {
	vec := make([]float32, len(p.Vector))
	copy(vec, p.Vector)
	return vectorindex.Point{ID: p.ID, Vector: vec, Payload: cloneMap(p.Payload)}
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
