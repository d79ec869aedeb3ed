package documents

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lexi-backend/internal/data/repos/testutil"
	types "github.com/yungbote/lexi-backend/internal/domain"
	"github.com/yungbote/lexi-backend/internal/domain/access"
	docdomain "github.com/yungbote/lexi-backend/internal/domain/documents"
	"github.com/yungbote/lexi-backend/internal/pkg/dbctx"
)

func TestDocumentRepoLifecycle(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	matter := testutil.SeedMatter(t, ctx, db, "Millennium Tower")
	repo := NewDocumentRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	doc, err := repo.Create(dbc, &types.DocumentRecord{
		Filename:      "lease.docx",
		MatterID:      matter.ID,
		Sensitivity:   access.SensitivityInternal,
		EncryptedBlob: []byte{1, 2, 3},
		VectorStatus:  docdomain.VectorStatusCreated,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if doc.ID == uuid.Nil {
		t.Fatalf("Create: id not assigned")
	}

	pending, err := repo.ListUnvectorized(dbc, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("ListUnvectorized: want=1 got=%d err=%v", len(pending), err)
	}
	if len(pending[0].EncryptedBlob) != 0 {
		t.Fatalf("ListUnvectorized: blob should be omitted")
	}

	if err := repo.UpdateFields(dbc, doc.ID, map[string]interface{}{
		"is_vectorized": true,
		"vector_status": docdomain.VectorStatusVectorized,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetByID(dbc, doc.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if !got.IsVectorized || got.VectorStatus != docdomain.VectorStatusVectorized {
		t.Fatalf("flags: want vectorized got is_vectorized=%v status=%s", got.IsVectorized, got.VectorStatus)
	}
	if string(got.EncryptedBlob) != string([]byte{1, 2, 3}) {
		t.Fatalf("blob round trip: got=%v", got.EncryptedBlob)
	}

	listed, err := repo.ListByMatter(dbc, matter.ID, 0)
	if err != nil || len(listed) != 1 {
		t.Fatalf("ListByMatter: want=1 got=%d err=%v", len(listed), err)
	}

	if err := repo.Delete(dbc, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	gone, err := repo.GetByID(dbc, doc.ID)
	if err != nil || gone != nil {
		t.Fatalf("GetByID after delete: want=nil got=%v err=%v", gone, err)
	}
}

func TestDocumentRepoUpdateFieldsMissingRow(t *testing.T) {
	db := testutil.DB(t)
	repo := NewDocumentRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	err := repo.UpdateFields(dbc, uuid.New(), map[string]interface{}{"is_vectorized": true})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("UpdateFields on missing row: want=%v got=%v", gorm.ErrRecordNotFound, err)
	}
}
