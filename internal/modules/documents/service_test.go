package documents

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/lexi-backend/internal/data/repos"
	"github.com/yungbote/lexi-backend/internal/data/repos/testutil"
	types "github.com/yungbote/lexi-backend/internal/domain"
	domainaccess "github.com/yungbote/lexi-backend/internal/domain/access"
	docdomain "github.com/yungbote/lexi-backend/internal/domain/documents"
	"github.com/yungbote/lexi-backend/internal/modules/ingestion"
	"github.com/yungbote/lexi-backend/internal/modules/vault"
	"github.com/yungbote/lexi-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexi-backend/internal/platform/openai/openaitest"
	"github.com/yungbote/lexi-backend/internal/platform/vectorindex/memory"
)

// flakyIndexer wraps a real Vectorizer and records call order.
type flakyIndexer struct {
	*ingestion.Vectorizer

	mu           sync.Mutex
	calls        []string
	vectorizeErr error
	deleteErr    error
	// countZero makes every verification probe see an empty index.
	countZero bool
	// beforeFill runs inside Vectorize ahead of the real upsert.
	beforeFill func()
}

func (f *flakyIndexer) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *flakyIndexer) Vectorize(ctx context.Context, src ingestion.Source, text string) (int, error) {
	f.record("vectorize")
	if f.vectorizeErr != nil {
		return 0, f.vectorizeErr
	}
	if f.beforeFill != nil {
		f.beforeFill()
	}
	return f.Vectorizer.Vectorize(ctx, src, text)
}

func (f *flakyIndexer) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	f.record("delete")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Vectorizer.DeleteDocument(ctx, id)
}

func (f *flakyIndexer) CountDocumentChunks(ctx context.Context, id uuid.UUID) (int, error) {
	f.record("count")
	if f.countZero {
		return 0, nil
	}
	return f.Vectorizer.CountDocumentChunks(ctx, id)
}

type recordingQueue struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (q *recordingQueue) Enqueue(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	q.ids = append(q.ids, id)
	q.mu.Unlock()
	return nil
}

type fixture struct {
	svc     *Service
	repos   repos.Repos
	indexer *flakyIndexer
	queue   *recordingQueue
	matter  *types.Matter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	rs := repos.New(db, log)
	cipher, err := vault.New(bytes.Repeat([]byte{7}, vault.KeySize))
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	vec, err := ingestion.NewVectorizer(log, openaitest.NewVocabEmbedder(256), memory.New(log, 256))
	if err != nil {
		t.Fatalf("NewVectorizer: %v", err)
	}
	ix := &flakyIndexer{Vectorizer: vec}
	q := &recordingQueue{}
	svc, err := NewService(log, rs.Documents, rs.Matters, cipher, ix, WithQueue(q), WithVerification(1, 0))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{
		svc:     svc,
		repos:   rs,
		indexer: ix,
		queue:   q,
		matter:  testutil.SeedMatter(t, context.Background(), db, "Acme v. Globex"),
	}
}

func (f *fixture) upload(t *testing.T, content string) *Result {
	t.Helper()
	res, err := f.svc.Upload(context.Background(), UploadInput{
		Filename:    "lease.txt",
		MatterID:    f.matter.ID,
		Sensitivity: domainaccess.SensitivityInternal,
		Content:     content,
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	return res
}

func (f *fixture) stored(t *testing.T, id uuid.UUID) *types.DocumentRecord {
	t.Helper()
	doc, err := f.repos.Documents.GetByID(dbctx.Context{Ctx: context.Background()}, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return doc
}

func TestUploadVerifiesAndEncrypts(t *testing.T) {
	f := newFixture(t)
	res := f.upload(t, "The rent is $650,000/month.")
	if res.Warning != "" || res.Status != docdomain.VectorStatusVectorized || res.Chunks != 1 {
		t.Fatalf("Upload result: got=%+v", res)
	}
	doc := f.stored(t, res.Document.ID)
	if !doc.IsVectorized || doc.VectorStatus != docdomain.VectorStatusVectorized || doc.ChunkCount != 1 {
		t.Fatalf("stored doc: got vectorized=%v status=%s chunks=%d", doc.IsVectorized, doc.VectorStatus, doc.ChunkCount)
	}
	if bytes.Contains(doc.EncryptedBlob, []byte("650,000")) {
		t.Fatalf("blob contains plaintext")
	}
	if len(doc.EncryptedBlob) != vault.NonceSize+len("The rent is $650,000/month.")+vault.TagSize {
		t.Fatalf("blob len: got=%d", len(doc.EncryptedBlob))
	}
	if len(f.queue.ids) != 0 {
		t.Fatalf("queue: want empty got=%v", f.queue.ids)
	}
}

func TestUploadValidation(t *testing.T) {
	f := newFixture(t)
	cases := []UploadInput{
		{Filename: "a.txt", MatterID: f.matter.ID, Sensitivity: domainaccess.SensitivityPublic, Content: "   "},
		{Filename: "a.txt", MatterID: f.matter.ID, Sensitivity: types.Sensitivity("secret"), Content: "x"},
		{Filename: "a.txt", MatterID: uuid.New(), Sensitivity: domainaccess.SensitivityPublic, Content: "x"},
		{Filename: "", MatterID: f.matter.ID, Sensitivity: domainaccess.SensitivityPublic, Content: "x"},
	}
	for i, in := range cases {
		_, err := f.svc.Upload(context.Background(), in)
		if !errors.Is(err, types.ErrValidation) {
			t.Fatalf("case %d: want=ErrValidation got=%v", i, err)
		}
	}
	if len(f.indexer.calls) != 0 {
		t.Fatalf("indexer touched on invalid input: %v", f.indexer.calls)
	}
	rows, _ := f.repos.Documents.ListByMatter(dbctx.Context{Ctx: context.Background()}, f.matter.ID, 10)
	if len(rows) != 0 {
		t.Fatalf("records written: want=0 got=%d", len(rows))
	}
}

func TestUploadVectorizationFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)
	f.indexer.vectorizeErr = errors.New("embedding service down")
	res := f.upload(t, "Some privileged memo.")
	if res.Warning != WarningVectorizationFailed || res.Status != docdomain.VectorStatusVectorizationFailed {
		t.Fatalf("result: got=%+v", res)
	}
	doc := f.stored(t, res.Document.ID)
	if doc == nil || doc.IsVectorized {
		t.Fatalf("stored doc: want kept and unvectorized got=%+v", doc)
	}
	if len(f.queue.ids) != 1 || f.queue.ids[0] != doc.ID {
		t.Fatalf("queue: want=[%s] got=%v", doc.ID, f.queue.ids)
	}
}

func TestUploadInconclusiveVerificationRetriesOnce(t *testing.T) {
	f := newFixture(t)
	f.indexer.countZero = true
	res := f.upload(t, "Lease term is ten years.")
	if res.Warning != WarningIndexingInconsistent {
		t.Fatalf("warning: want=%s got=%q", WarningIndexingInconsistent, res.Warning)
	}
	probes := 0
	for _, c := range f.indexer.calls {
		if c == "count" {
			probes++
		}
	}
	if probes != 2 {
		t.Fatalf("verification probes: want=2 got=%d", probes)
	}
	doc := f.stored(t, res.Document.ID)
	if doc.IsVectorized || doc.VectorStatus != docdomain.VectorStatusVectorizing {
		t.Fatalf("stored doc: got vectorized=%v status=%s", doc.IsVectorized, doc.VectorStatus)
	}
	if len(f.queue.ids) != 1 {
		t.Fatalf("queue: want 1 id got=%v", f.queue.ids)
	}
}

func TestUpdateFlushesThenFills(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.upload(t, "The rent is $650,000/month.")
	f.indexer.calls = nil

	upd, err := f.svc.Update(ctx, res.Document.ID, "The rent is $700,000/month.")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if upd.Warning != "" || upd.Status != docdomain.VectorStatusVectorized {
		t.Fatalf("Update result: got=%+v", upd)
	}
	if len(f.indexer.calls) < 2 || f.indexer.calls[0] != "delete" || f.indexer.calls[1] != "vectorize" {
		t.Fatalf("call order: want delete,vectorize,... got=%v", f.indexer.calls)
	}
	if n, _ := f.indexer.Vectorizer.CountDocumentChunks(ctx, res.Document.ID); n != 1 {
		t.Fatalf("chunks after update: want=1 got=%d", n)
	}
	_, text, err := f.svc.ReadText(ctx, domainaccess.RolePartner, res.Document.ID)
	if err != nil || text != "The rent is $700,000/month." {
		t.Fatalf("ReadText: want new text got=%q err=%v", text, err)
	}
}

func TestUpdateMissingDocument(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Update(context.Background(), uuid.New(), "x"); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("Update: want=ErrNotFound got=%v", err)
	}
}

func TestDeleteRemovesVectorsFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.upload(t, "Settlement amount is confidential.")
	if err := f.svc.Delete(ctx, res.Document.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n, _ := f.indexer.Vectorizer.CountDocumentChunks(ctx, res.Document.ID); n != 0 {
		t.Fatalf("chunks after delete: want=0 got=%d", n)
	}
	if doc := f.stored(t, res.Document.ID); doc != nil {
		t.Fatalf("record after delete: want=nil got=%+v", doc)
	}
}

func TestDeleteKeepsRecordWhenVectorDeleteFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.upload(t, "Settlement amount is confidential.")
	f.indexer.deleteErr = errors.New("index unreachable")
	err := f.svc.Delete(ctx, res.Document.ID)
	if !errors.Is(err, types.ErrIndexing) {
		t.Fatalf("Delete: want=ErrIndexing got=%v", err)
	}
	if doc := f.stored(t, res.Document.ID); doc == nil {
		t.Fatalf("record removed despite vector delete failure")
	}
}

func TestReadTextEnforcesPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.upload(t, "Internal staffing plan.")
	if _, _, err := f.svc.ReadText(ctx, domainaccess.RoleClient, res.Document.ID); !errors.Is(err, types.ErrUnauthorized) {
		t.Fatalf("client ReadText: want=ErrUnauthorized got=%v", err)
	}
	_, text, err := f.svc.ReadText(ctx, domainaccess.RoleStaff, res.Document.ID)
	if err != nil || text != "Internal staffing plan." {
		t.Fatalf("staff ReadText: got=%q err=%v", text, err)
	}
}

func TestReadTextTamperedBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.upload(t, "Original text.")
	blob := append([]byte(nil), f.stored(t, res.Document.ID).EncryptedBlob...)
	blob[len(blob)-1] ^= 0xff
	if err := f.repos.Documents.UpdateFields(dbctx.Context{Ctx: ctx}, res.Document.ID, map[string]interface{}{"encrypted_blob": blob}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	_, text, err := f.svc.ReadText(ctx, domainaccess.RolePartner, res.Document.ID)
	if !errors.Is(err, types.ErrDecryptionFailed) || text != "" {
		t.Fatalf("ReadText: want=ErrDecryptionFailed got=%v text=%q", err, text)
	}
}

func TestReindexRecoversFailedDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.indexer.vectorizeErr = errors.New("down")
	res := f.upload(t, "Deposition transcript excerpt.")
	f.indexer.vectorizeErr = nil
	f.queue.ids = nil

	out, err := f.svc.Reindex(ctx, res.Document.ID)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if out.Status != docdomain.VectorStatusVectorized || !f.stored(t, res.Document.ID).IsVectorized {
		t.Fatalf("Reindex: want vectorized got=%+v", out)
	}
	if len(f.queue.ids) != 0 {
		t.Fatalf("Reindex should not enqueue: got=%v", f.queue.ids)
	}
}

func TestReindexFlushesChunksWhenDeletedMidFill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.upload(t, "Settlement memo for the Globex counterclaim.")
	id := res.Document.ID

	f.indexer.beforeFill = func() {
		f.indexer.beforeFill = nil
		if err := f.svc.Delete(ctx, id); err != nil {
			t.Errorf("Delete: %v", err)
		}
	}
	out, err := f.svc.Reindex(ctx, id)
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("Reindex: want=ErrNotFound got=%v result=%+v", err, out)
	}
	if got, _ := f.repos.Documents.GetByID(dbctx.Context{Ctx: ctx}, id); got != nil {
		t.Fatalf("record: want deleted got=%+v", got)
	}
	n, err := f.indexer.Vectorizer.CountDocumentChunks(ctx, id)
	if err != nil || n != 0 {
		t.Fatalf("chunks left for deleted document: want=0 got=%d err=%v", n, err)
	}
}

func TestListByMatterFiltersByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, s := range []types.Sensitivity{domainaccess.SensitivityPublic, domainaccess.SensitivityPrivileged} {
		if _, err := f.svc.Upload(ctx, UploadInput{Filename: string(s) + ".txt", MatterID: f.matter.ID, Sensitivity: s, Content: "text " + string(s)}); err != nil {
			t.Fatalf("Upload: %v", err)
		}
	}
	client, _ := f.svc.ListByMatter(ctx, domainaccess.RoleClient, f.matter.ID, 10)
	partner, _ := f.svc.ListByMatter(ctx, domainaccess.RolePartner, f.matter.ID, 10)
	if len(client) != 1 || client[0].Sensitivity != domainaccess.SensitivityPublic {
		t.Fatalf("client list: got=%d", len(client))
	}
	if len(partner) != 2 {
		t.Fatalf("partner list: want=2 got=%d", len(partner))
	}
}
