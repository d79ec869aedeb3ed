// Package reindex re-drives documents whose vector indexing is missing or
// unverified. Producers enqueue document ids; a Worker pool drains them
// through documents.Service.Reindex and a Sweeper backfills from the record
// store.
package reindex

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrClosed = errors.New("reindex queue closed")

type Queue interface {
	Enqueue(ctx context.Context, documentID uuid.UUID) error
	// Dequeue blocks until an id arrives, ctx ends or the queue closes.
	Dequeue(ctx context.Context) (uuid.UUID, error)
	Close() error
}
