package documents

import (
	"context"
	"errors"
	"time"

	types "github.com/yungbote/lexi-backend/internal/domain"
	docdomain "github.com/yungbote/lexi-backend/internal/domain/documents"
	"github.com/yungbote/lexi-backend/internal/modules/ingestion"
	"github.com/yungbote/lexi-backend/internal/observability"
	"github.com/yungbote/lexi-backend/internal/pkg/dbctx"
)

// index runs [flush ->] vectorize -> verify for doc and records the state
// reached. Only record store failures are returned as errors; indexing
// problems come back as a Result warning.
func (s *Service) index(ctx context.Context, doc *types.DocumentRecord, text string, flush, requeue bool) (*Result, error) {
	dbc := dbctx.Context{Ctx: ctx}
	res := &Result{Document: doc}

	fillStatus := docdomain.VectorStatusVectorizing
	if flush {
		if err := s.indexer.DeleteDocument(ctx, doc.ID); err != nil {
			s.log.Warn("Vector flush failed", "document_id", doc.ID, "error", err)
			return s.fail(dbc, res, WarningVectorizationFailed, requeue)
		}
		fillStatus = docdomain.VectorStatusRevectorizing
	}
	if err := s.setFields(dbc, doc, map[string]interface{}{"vector_status": fillStatus}); err != nil {
		return nil, err
	}

	n, err := s.indexer.Vectorize(ctx, ingestion.Source{
		DocumentID:  doc.ID,
		MatterID:    doc.MatterID,
		Filename:    doc.Filename,
		Sensitivity: doc.Sensitivity,
	}, text)
	if err != nil {
		s.log.Warn("Vectorization failed", "document_id", doc.ID, "error", err)
		return s.fail(dbc, res, WarningVectorizationFailed, requeue)
	}
	res.Chunks = n
	if n == 0 {
		res.Status = doc.VectorStatus
		res.Warning = WarningNoIndexableText
		return res, nil
	}
	// A concurrent Delete may have removed the record while the fill ran.
	if _, err := s.get(dbc, doc.ID); err != nil {
		return nil, s.dropOrphans(ctx, doc, err)
	}

	if !s.verify(ctx, doc) {
		observability.Current().IncVerification("inconclusive")
		s.log.Warn("Indexing could not be verified", "document_id", doc.ID, "chunks", n)
		if err := s.setFields(dbc, doc, map[string]interface{}{"chunk_count": n}); err != nil {
			return nil, s.dropOrphans(ctx, doc, err)
		}
		res.Status = doc.VectorStatus
		res.Warning = WarningIndexingInconsistent
		s.enqueue(ctx, doc, requeue)
		return res, nil
	}
	observability.Current().IncVerification("confirmed")
	if err := s.setFields(dbc, doc, map[string]interface{}{
		"is_vectorized": true,
		"vector_status": docdomain.VectorStatusVectorized,
		"chunk_count":   n,
	}); err != nil {
		return nil, s.dropOrphans(ctx, doc, err)
	}
	res.Status = doc.VectorStatus
	return res, nil
}

// dropOrphans flushes the chunks just written when err says the record is
// gone, so no searchable vector outlives its document. err is returned as is.
func (s *Service) dropOrphans(ctx context.Context, doc *types.DocumentRecord, err error) error {
	if !errors.Is(err, types.ErrNotFound) {
		return err
	}
	if derr := s.indexer.DeleteDocument(ctx, doc.ID); derr != nil {
		s.log.Error("Failed to flush vectors of deleted document", "document_id", doc.ID, "error", derr)
		return err
	}
	s.log.Info("Document deleted during indexing; vectors flushed", "document_id", doc.ID)
	return err
}

func (s *Service) fail(dbc dbctx.Context, res *Result, warning string, requeue bool) (*Result, error) {
	if err := s.setFields(dbc, res.Document, map[string]interface{}{
		"is_vectorized": false,
		"vector_status": docdomain.VectorStatusVectorizationFailed,
	}); err != nil {
		return nil, err
	}
	res.Status = res.Document.VectorStatus
	res.Warning = warning
	s.enqueue(dbc.Ctx, res.Document, requeue)
	return res, nil
}

// verify probes the index for at least one chunk of doc, waiting retryDelay
// before each of verifyRetries extra probes.
func (s *Service) verify(ctx context.Context, doc *types.DocumentRecord) bool {
	for attempt := 0; attempt <= s.verifyRetries; attempt++ {
		if attempt > 0 && !sleep(ctx, s.retryDelay) {
			return false
		}
		n, err := s.indexer.CountDocumentChunks(ctx, doc.ID)
		if err != nil {
			s.log.Warn("Verification probe failed", "document_id", doc.ID, "attempt", attempt, "error", err)
			continue
		}
		if n > 0 {
			return true
		}
	}
	return false
}

func (s *Service) enqueue(ctx context.Context, doc *types.DocumentRecord, requeue bool) {
	if !requeue || s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(ctx, doc.ID); err != nil {
		s.log.Warn("Failed to enqueue reindex", "document_id", doc.ID, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
