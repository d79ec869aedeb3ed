package reindex

import (
	"context"
	"time"

	docrepo "github.com/yungbote/lexi-backend/internal/data/repos/documents"
	"github.com/yungbote/lexi-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
)

const (
	DefaultSweepInterval = 5 * time.Minute
	DefaultSweepBatch    = 100
)

type SweeperConfig struct {
	Interval time.Duration
	// MinAge skips documents touched recently so an in-flight upload is not
	// re-driven underneath itself.
	MinAge time.Duration
	Batch  int
}

// Sweeper enqueues documents the record store still marks unvectorized.
type Sweeper struct {
	log   *logger.Logger
	docs  docrepo.DocumentRepo
	queue Queue
	cfg   SweeperConfig
	now   func() time.Time
}

func NewSweeper(baseLog *logger.Logger, docs docrepo.DocumentRepo, queue Queue, cfg SweeperConfig) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSweepInterval
	}
	if cfg.MinAge < 0 {
		cfg.MinAge = 0
	}
	if cfg.Batch <= 0 {
		cfg.Batch = DefaultSweepBatch
	}
	return &Sweeper{
		log:   baseLog.With("component", "ReindexSweeper"),
		docs:  docs,
		queue: queue,
		cfg:   cfg,
		now:   time.Now,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.SweepOnce(ctx); err != nil {
					s.log.Warn("Reindex sweep failed", "error", err)
				}
			}
		}
	}()
}

// SweepOnce enqueues one page of stale unvectorized documents and returns how
// many were queued.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	rows, err := s.docs.ListUnvectorized(dbctx.Context{Ctx: ctx}, s.cfg.Batch)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().UTC().Add(-s.cfg.MinAge)
	queued := 0
	for _, d := range rows {
		if d.UpdatedAt.After(cutoff) {
			continue
		}
		if err := s.queue.Enqueue(ctx, d.ID); err != nil {
			return queued, err
		}
		queued++
	}
	if queued > 0 {
		s.log.Info("Queued unvectorized documents", "count", queued)
	}
	return queued, nil
}
