package handlers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/lexi-backend/internal/domain"
	domainaccess "github.com/yungbote/lexi-backend/internal/domain/access"
	"github.com/yungbote/lexi-backend/internal/http/response"
	"github.com/yungbote/lexi-backend/internal/modules/access"
	"github.com/yungbote/lexi-backend/internal/modules/documents"
	"github.com/yungbote/lexi-backend/internal/platform/apierr"
)

type DocumentService interface {
	Upload(ctx context.Context, in documents.UploadInput) (*documents.Result, error)
	Update(ctx context.Context, id uuid.UUID, content string) (*documents.Result, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*types.DocumentRecord, error)
	ReadText(ctx context.Context, role types.Role, id uuid.UUID) (*types.DocumentRecord, string, error)
	ListByMatter(ctx context.Context, role types.Role, matterID uuid.UUID, limit int) ([]*types.DocumentRecord, error)
}

type DocumentHandler struct {
	docs DocumentService
}

func NewDocumentHandler(docs DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

type documentResult struct {
	Document *types.DocumentRecord `json:"document"`
	Status   types.VectorStatus    `json:"status"`
	Warning  string                `json:"warning,omitempty"`
	Chunks   int                   `json:"chunks"`
}

func toDocumentResult(res *documents.Result) documentResult {
	return documentResult{Document: res.Document, Status: res.Status, Warning: res.Warning, Chunks: res.Chunks}
}

// POST /api/documents
// body: { "filename": "...", "matter_id": "...", "sensitivity": "...", "content": "..." }
func (h *DocumentHandler) Upload(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		Filename    string `json:"filename"`
		MatterID    string `json:"matter_id"`
		Sensitivity string `json:"sensitivity"`
		Content     string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, apierr.BadRequest("invalid_request", err))
		return
	}
	matterID, err := uuid.Parse(req.MatterID)
	if err != nil {
		response.FromError(c, types.Validation("matter_id", "must be a uuid"))
		return
	}
	sens, err := domainaccess.ParseSensitivity(req.Sensitivity)
	if err != nil {
		response.FromError(c, types.Validation("sensitivity", err.Error()))
		return
	}
	if !access.CanView(rd.Role, sens) {
		response.FromError(c, types.Unauthorized(fmt.Sprintf("role %q may not file %s documents", rd.Role, sens)))
		return
	}
	res, err := h.docs.Upload(c.Request.Context(), documents.UploadInput{
		Filename:    req.Filename,
		MatterID:    matterID,
		Sensitivity: sens,
		Content:     req.Content,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondCreated(c, toDocumentResult(res))
}

// PUT /api/documents/:id
// body: { "content": "..." }
func (h *DocumentHandler) Update(c *gin.Context) {
	doc, ok := h.cleared(c)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, apierr.BadRequest("invalid_request", err))
		return
	}
	res, err := h.docs.Update(c.Request.Context(), doc.ID, req.Content)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, toDocumentResult(res))
}

// DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	doc, ok := h.cleared(c)
	if !ok {
		return
	}
	if err := h.docs.Delete(c.Request.Context(), doc.ID); err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondNoContent(c)
}

// GET /api/documents/:id/text
func (h *DocumentHandler) Text(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "invalid_document_id")
	if !ok {
		return
	}
	doc, text, err := h.docs.ReadText(c.Request.Context(), rd.Role, id)
	if types.KindOf(err) == types.KindAuthorization {
		err = types.NotFound("document", id)
	}
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"document": doc, "text": text})
}

// GET /api/matters/:id/documents
func (h *DocumentHandler) ListByMatter(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	matterID, ok := pathUUID(c, "id", "invalid_matter_id")
	if !ok {
		return
	}
	docs, err := h.docs.ListByMatter(c.Request.Context(), rd.Role, matterID, listLimit(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"documents": docs})
}

// cleared loads the path document and checks the caller may act on its
// sensitivity. A document above the caller's clearance answers exactly like a
// missing one. Writes the error response itself.
func (h *DocumentHandler) cleared(c *gin.Context) (*types.DocumentRecord, bool) {
	rd, ok := caller(c)
	if !ok {
		return nil, false
	}
	id, ok := pathUUID(c, "id", "invalid_document_id")
	if !ok {
		return nil, false
	}
	doc, err := h.docs.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return nil, false
	}
	if !access.CanView(rd.Role, doc.Sensitivity) {
		response.FromError(c, types.NotFound("document", id))
		return nil, false
	}
	return doc, true
}
