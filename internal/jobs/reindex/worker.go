package reindex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/lexi-backend/internal/domain"
	"github.com/yungbote/lexi-backend/internal/modules/documents"
	"github.com/yungbote/lexi-backend/internal/observability"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
)

type Reindexer interface {
	Reindex(ctx context.Context, documentID uuid.UUID) (*documents.Result, error)
}

type Worker struct {
	log       *logger.Logger
	queue     Queue
	reindexer Reindexer
	workers   int
	// jobTimeout bounds one re-drive, embedding included.
	jobTimeout time.Duration

	wg sync.WaitGroup
}

func NewWorker(baseLog *logger.Logger, queue Queue, reindexer Reindexer, workers int, jobTimeout time.Duration) *Worker {
	if workers <= 0 {
		workers = 1
	}
	if jobTimeout <= 0 {
		jobTimeout = 5 * time.Minute
	}
	return &Worker{
		log:        baseLog.With("component", "ReindexWorker"),
		queue:      queue,
		reindexer:  reindexer,
		workers:    workers,
		jobTimeout: jobTimeout,
	}
}

// Start launches the pool and returns. The pool stops when ctx ends or the
// queue closes; Wait blocks until every goroutine has returned.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func(n int) {
			defer w.wg.Done()
			w.loop(ctx, n)
		}(i)
	}
}

func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) loop(ctx context.Context, n int) {
	for {
		id, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return
			}
			w.log.Warn("Dequeue failed", "worker", n, "error", err)
			if !pause(ctx, time.Second) {
				return
			}
			continue
		}
		w.Process(ctx, id)
	}
}

// Process re-drives one document and records the outcome.
func (w *Worker) Process(ctx context.Context, id uuid.UUID) string {
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	outcome := "ok"
	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Reindex panic", "document_id", id, "panic", fmt.Sprint(r))
				outcome = "panic"
			}
		}()
		res, err := w.reindexer.Reindex(jobCtx, id)
		switch {
		case errors.Is(err, types.ErrNotFound):
			w.log.Info("Reindex target gone; dropping", "document_id", id)
			outcome = "dropped"
		case err != nil:
			w.log.Warn("Reindex failed", "document_id", id, "error", err)
			outcome = "error"
		case res == nil:
		case res.Warning != "":
			w.log.Warn("Reindex incomplete", "document_id", id, "warning", res.Warning)
			outcome = res.Warning
		default:
			w.log.Info("Reindexed document", "document_id", id, "chunks", res.Chunks)
		}
	}()
	observability.Current().IncReindexJob(outcome)
	return outcome
}

func pause(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
