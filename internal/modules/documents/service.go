// Package documents keeps the encrypted record store and the vector index in
// agreement across upload, update, delete and re-drive. The vault write always
// lands first and is never rolled back because of an indexing problem.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	docrepo "github.com/yungbote/lexi-backend/internal/data/repos/documents"
	matterrepo "github.com/yungbote/lexi-backend/internal/data/repos/matters"
	types "github.com/yungbote/lexi-backend/internal/domain"
	docdomain "github.com/yungbote/lexi-backend/internal/domain/documents"
	"github.com/yungbote/lexi-backend/internal/modules/access"
	"github.com/yungbote/lexi-backend/internal/modules/ingestion"
	"github.com/yungbote/lexi-backend/internal/observability"
	"github.com/yungbote/lexi-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
)

const (
	WarningIndexingInconsistent = "indexing_inconsistent"
	WarningVectorizationFailed  = "vectorization_failed"
	WarningNoIndexableText      = "no_indexable_text"

	DefaultVerifyRetries = 1
	DefaultRetryDelay    = time.Second
)

type Cipher interface {
	Encrypt(plaintext string) ([]byte, error)
	Decrypt(blob []byte) (string, error)
}

// Indexer is the slice of ingestion.Vectorizer the lifecycle needs.
type Indexer interface {
	Vectorize(ctx context.Context, src ingestion.Source, text string) (int, error)
	DeleteDocument(ctx context.Context, documentID uuid.UUID) error
	CountDocumentChunks(ctx context.Context, documentID uuid.UUID) (int, error)
}

// ReindexQueue receives documents whose indexing could not be confirmed.
type ReindexQueue interface {
	Enqueue(ctx context.Context, documentID uuid.UUID) error
}

type UploadInput struct {
	Filename    string
	MatterID    uuid.UUID
	Sensitivity types.Sensitivity
	Content     string
}

// Result reports where indexing ended. Warning is empty only when the
// document was verified in the index.
type Result struct {
	Document *types.DocumentRecord
	Status   types.VectorStatus
	Warning  string
	Chunks   int
}

type Option func(*Service)

func WithQueue(q ReindexQueue) Option {
	return func(s *Service) { s.queue = q }
}

// WithVerification sets how many extra verification probes run and the wait
// before each one.
func WithVerification(retries int, delay time.Duration) Option {
	return func(s *Service) {
		if retries >= 0 {
			s.verifyRetries = retries
		}
		if delay >= 0 {
			s.retryDelay = delay
		}
	}
}

type Service struct {
	log     *logger.Logger
	docs    docrepo.DocumentRepo
	matters matterrepo.MatterRepo
	cipher  Cipher
	indexer Indexer
	queue   ReindexQueue

	verifyRetries int
	retryDelay    time.Duration
}

func NewService(log *logger.Logger, docs docrepo.DocumentRepo, matters matterrepo.MatterRepo, cipher Cipher, indexer Indexer, opts ...Option) (*Service, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if docs == nil || matters == nil {
		return nil, fmt.Errorf("document and matter repos required")
	}
	if cipher == nil {
		return nil, fmt.Errorf("cipher required")
	}
	if indexer == nil {
		return nil, fmt.Errorf("indexer required")
	}
	s := &Service{
		log:           log.With("service", "DocumentService"),
		docs:          docs,
		matters:       matters,
		cipher:        cipher,
		indexer:       indexer,
		verifyRetries: DefaultVerifyRetries,
		retryDelay:    DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Upload(ctx context.Context, in UploadInput) (*Result, error) {
	ctx, span := observability.StartSpan(ctx, "documents.upload",
		attribute.String("matter_id", in.MatterID.String()),
		attribute.String("sensitivity", string(in.Sensitivity)),
	)
	defer span.End()

	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		return nil, types.Validation("filename", "is required")
	}
	if !in.Sensitivity.Valid() {
		return nil, types.Validation("sensitivity", fmt.Sprintf("unknown level %q", in.Sensitivity))
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, types.Validation("content", "must not be empty")
	}
	if in.MatterID == uuid.Nil {
		return nil, types.Validation("matter_id", "is required")
	}
	dbc := dbctx.Context{Ctx: ctx}
	ok, err := s.matters.Exists(dbc, in.MatterID)
	if err != nil {
		return nil, fmt.Errorf("lookup matter: %w", err)
	}
	if !ok {
		return nil, types.Validation("matter_id", "matter does not exist")
	}

	blob, err := s.cipher.Encrypt(in.Content)
	if err != nil {
		observability.Current().IncDocument("upload", "error")
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	doc, err := s.docs.Create(dbc, &types.DocumentRecord{
		Filename:      filename,
		MatterID:      in.MatterID,
		Sensitivity:   in.Sensitivity,
		EncryptedBlob: blob,
		IsVectorized:  false,
		VectorStatus:  docdomain.VectorStatusCreated,
	})
	if err != nil {
		observability.Current().IncDocument("upload", "error")
		return nil, fmt.Errorf("store document: %w", err)
	}
	s.log.Info("Document stored", "document_id", doc.ID, "matter_id", doc.MatterID, "sensitivity", doc.Sensitivity)

	res, err := s.index(ctx, doc, in.Content, false, true)
	if err != nil {
		observability.Current().IncDocument("upload", "error")
		return nil, err
	}
	observability.Current().IncDocument("upload", outcome(res))
	return res, nil
}

// Update replaces the document text and refreshes its vectors by
// flush-and-fill. Concurrent updates to one id must be serialized by the caller.
func (s *Service) Update(ctx context.Context, id uuid.UUID, content string) (*Result, error) {
	ctx, span := observability.StartSpan(ctx, "documents.update", attribute.String("document_id", id.String()))
	defer span.End()

	if strings.TrimSpace(content) == "" {
		return nil, types.Validation("content", "must not be empty")
	}
	dbc := dbctx.Context{Ctx: ctx}
	doc, err := s.get(dbc, id)
	if err != nil {
		return nil, err
	}
	blob, err := s.cipher.Encrypt(content)
	if err != nil {
		observability.Current().IncDocument("update", "error")
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	if err := s.setFields(dbc, doc, map[string]interface{}{
		"encrypted_blob": blob,
		"is_vectorized":  false,
		"vector_status":  docdomain.VectorStatusFlushing,
	}); err != nil {
		observability.Current().IncDocument("update", "error")
		return nil, err
	}
	doc.EncryptedBlob = blob

	res, err := s.index(ctx, doc, content, true, true)
	if err != nil {
		observability.Current().IncDocument("update", "error")
		return nil, err
	}
	observability.Current().IncDocument("update", outcome(res))
	return res, nil
}

// Delete removes the document's vectors and then its record. When the vector
// delete fails the record is kept so the id stays available for cleanup.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := observability.StartSpan(ctx, "documents.delete", attribute.String("document_id", id.String()))
	defer span.End()

	dbc := dbctx.Context{Ctx: ctx}
	doc, err := s.get(dbc, id)
	if err != nil {
		return err
	}
	if err := s.indexer.DeleteDocument(ctx, doc.ID); err != nil {
		observability.Current().IncDocument("delete", "error")
		s.log.Warn("Vector delete failed; keeping record", "document_id", doc.ID, "error", err)
		return &types.Error{Kind: types.KindIndexing, Message: "vector delete failed; record kept", Cause: err}
	}
	if err := s.setFields(dbc, doc, map[string]interface{}{
		"is_vectorized": false,
		"vector_status": docdomain.VectorStatusVectorsDeleted,
		"chunk_count":   0,
	}); err != nil {
		s.log.Warn("Failed to record vectors_deleted", "document_id", doc.ID, "error", err)
	}
	if err := s.docs.Delete(dbc, doc.ID); err != nil {
		observability.Current().IncDocument("delete", "error")
		return fmt.Errorf("delete document: %w", err)
	}
	observability.Current().IncDocument("delete", "ok")
	s.log.Info("Document deleted", "document_id", doc.ID)
	return nil
}

// ReadText decrypts the vault copy for a role cleared for its sensitivity.
func (s *Service) ReadText(ctx context.Context, role types.Role, id uuid.UUID) (*types.DocumentRecord, string, error) {
	doc, err := s.get(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, "", err
	}
	if !access.CanView(role, doc.Sensitivity) {
		return nil, "", types.Unauthorized(fmt.Sprintf("role %q may not view %s documents", role, doc.Sensitivity))
	}
	text, err := s.cipher.Decrypt(doc.EncryptedBlob)
	if err != nil {
		s.log.Error("Vault decrypt failed", "document_id", doc.ID, "error", err)
		return nil, "", fmt.Errorf("read document %s: %w", doc.ID, err)
	}
	return doc, text, nil
}

// Reindex re-drives indexing from the vault copy. It does not re-enqueue on
// failure; the caller owns retry.
func (s *Service) Reindex(ctx context.Context, id uuid.UUID) (*Result, error) {
	ctx, span := observability.StartSpan(ctx, "documents.reindex", attribute.String("document_id", id.String()))
	defer span.End()

	dbc := dbctx.Context{Ctx: ctx}
	doc, err := s.get(dbc, id)
	if err != nil {
		return nil, err
	}
	text, err := s.cipher.Decrypt(doc.EncryptedBlob)
	if err != nil {
		observability.Current().IncDocument("reindex", "error")
		return nil, fmt.Errorf("reindex %s: %w", doc.ID, err)
	}
	if err := s.setFields(dbc, doc, map[string]interface{}{
		"is_vectorized": false,
		"vector_status": docdomain.VectorStatusFlushing,
	}); err != nil {
		return nil, err
	}
	res, err := s.index(ctx, doc, text, true, false)
	if err != nil {
		observability.Current().IncDocument("reindex", "error")
		return nil, err
	}
	observability.Current().IncDocument("reindex", outcome(res))
	return res, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*types.DocumentRecord, error) {
	return s.get(dbctx.Context{Ctx: ctx}, id)
}

// ListByMatter returns only the documents the role may view.
func (s *Service) ListByMatter(ctx context.Context, role types.Role, matterID uuid.UUID, limit int) ([]*types.DocumentRecord, error) {
	if matterID == uuid.Nil {
		return nil, types.Validation("matter_id", "is required")
	}
	rows, err := s.docs.ListByMatter(dbctx.Context{Ctx: ctx}, matterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := make([]*types.DocumentRecord, 0, len(rows))
	for _, d := range rows {
		if access.CanView(role, d.Sensitivity) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Service) get(dbc dbctx.Context, id uuid.UUID) (*types.DocumentRecord, error) {
	if id == uuid.Nil {
		return nil, types.Validation("document_id", "is required")
	}
	doc, err := s.docs.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return nil, types.NotFound("document", id)
	}
	return doc, nil
}

func (s *Service) setFields(dbc dbctx.Context, doc *types.DocumentRecord, updates map[string]interface{}) error {
	if err := s.docs.UpdateFields(dbc, doc.ID, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.NotFound("document", doc.ID)
		}
		return fmt.Errorf("update document %s: %w", doc.ID, err)
	}
	if v, ok := updates["is_vectorized"].(bool); ok {
		doc.IsVectorized = v
	}
	if v, ok := updates["vector_status"].(docdomain.VectorStatus); ok {
		doc.VectorStatus = v
	}
	if v, ok := updates["chunk_count"].(int); ok {
		doc.ChunkCount = v
	}
	return nil
}

func outcome(res *Result) string {
	if res == nil || res.Warning == "" {
		return "ok"
	}
	return res.Warning
}
