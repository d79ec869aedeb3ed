package chat

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lexi-backend/internal/data/repos"
	"github.com/yungbote/lexi-backend/internal/data/repos/testutil"
	types "github.com/yungbote/lexi-backend/internal/domain"
	domainaccess "github.com/yungbote/lexi-backend/internal/domain/access"
	"github.com/yungbote/lexi-backend/internal/modules/documents"
	"github.com/yungbote/lexi-backend/internal/modules/ingestion"
	"github.com/yungbote/lexi-backend/internal/modules/retrieval"
	"github.com/yungbote/lexi-backend/internal/modules/vault"
	"github.com/yungbote/lexi-backend/internal/platform/openai"
	"github.com/yungbote/lexi-backend/internal/platform/openai/openaitest"
	"github.com/yungbote/lexi-backend/internal/platform/vectorindex/memory"
)

const cannotFind = "I cannot find that information in the documents available to you."

var sourceLine = regexp.MustCompile(`SOURCE: (\S+) \(Sensitivity: (\w+)\)`)

// scriptedLLM routes on the system prompt: every query needs search, rewrites
// echo the question, answers name the first source or admit nothing was found.
func scriptedLLM() *openaitest.Completer {
	return &openaitest.Completer{Fn: func(ctx context.Context, req openai.CompletionRequest) (string, error) {
		switch {
		case strings.Contains(req.System, "routing agent"):
			return "YES", nil
		case strings.Contains(req.System, "query rewriting"):
			i := strings.LastIndex(req.User, "Last Question: ")
			return req.User[i+len("Last Question: "):], nil
		default:
			if m := sourceLine.FindStringSubmatch(req.User); m != nil {
				return "Per " + m[1] + ", the answer is in the " + m[2] + " record.", nil
			}
			return cannotFind, nil
		}
	}}
}

type failingRetriever struct{}

func (failingRetriever) Retrieve(ctx context.Context, q retrieval.Query) ([]types.Citation, error) {
	return nil, errors.New("qdrant unreachable")
}

type stack struct {
	db        *gorm.DB
	repos     repos.Repos
	docs      *documents.Service
	retriever *retrieval.Retriever
	chat      *Service
	llm       *openaitest.Completer
	matter    *types.Matter
}

func newStack(t *testing.T, retr Retriever) *stack {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	rs := repos.New(db, log)
	emb := openaitest.NewVocabEmbedder(512)
	idx := memory.New(log, 512)
	cipher, err := vault.New(bytes.Repeat([]byte{9}, vault.KeySize))
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	vec, err := ingestion.NewVectorizer(log, emb, idx)
	if err != nil {
		t.Fatalf("NewVectorizer: %v", err)
	}
	docs, err := documents.NewService(log, rs.Documents, rs.Matters, cipher, vec, documents.WithVerification(1, 0))
	if err != nil {
		t.Fatalf("documents.NewService: %v", err)
	}
	r, err := retrieval.NewRetriever(log, emb, idx, 0.1)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}
	if retr == nil {
		retr = r
	}
	llm := scriptedLLM()
	svc, err := NewService(log, rs.Principals, NewHistory(db, log, rs.ChatSessions, rs.ChatMessages), NewRouter(log, llm), retr, NewGenerator(log, llm), Config{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &stack{
		db:        db,
		repos:     rs,
		docs:      docs,
		retriever: r,
		chat:      svc,
		llm:       llm,
		matter:    testutil.SeedMatter(t, context.Background(), db, "Acme v. Globex"),
	}
}

func (s *stack) upload(t *testing.T, filename string, sens types.Sensitivity, content string) *types.DocumentRecord {
	t.Helper()
	res, err := s.docs.Upload(context.Background(), documents.UploadInput{
		Filename: filename, MatterID: s.matter.ID, Sensitivity: sens, Content: content,
	})
	if err != nil {
		t.Fatalf("Upload %s: %v", filename, err)
	}
	if res.Warning != "" {
		t.Fatalf("Upload %s: unexpected warning %q", filename, res.Warning)
	}
	return res.Document
}

func (s *stack) turn(t *testing.T, role types.Role, query string) *TurnResult {
	t.Helper()
	ctx := context.Background()
	p := testutil.SeedPrincipal(t, ctx, s.db, role)
	sess := testutil.SeedSession(t, ctx, s.db, p.ID)
	out, err := s.chat.Turn(ctx, TurnInput{PrincipalID: p.ID, SessionID: sess.ID, Query: query, MatterID: s.matter.ID})
	if err != nil {
		t.Fatalf("Turn(%s): %v", role, err)
	}
	return out
}

func TestEndToEndSensitivityScenario(t *testing.T) {
	s := newStack(t, nil)
	s.upload(t, "holiday_schedule.txt", domainaccess.SensitivityPublic, "Firm holiday schedule: offices closed December 25.")
	s.upload(t, "staffing_plan.txt", domainaccess.SensitivityInternal, "Staffing plan: two associates assigned to document review.")
	s.upload(t, "settlement_memo.txt", domainaccess.SensitivityPrivileged, "Settlement authority: client authorizes up to $2,000,000 to settle.")

	client := s.turn(t, domainaccess.RoleClient, "What is the settlement authority?")
	if !client.Searched {
		t.Fatalf("client turn: want searched")
	}
	if len(client.Citations) != 0 {
		t.Fatalf("client citations: want=0 got=%+v", client.Citations)
	}
	if client.Answer != cannotFind {
		t.Fatalf("client answer: want=%q got=%q", cannotFind, client.Answer)
	}

	partner := s.turn(t, domainaccess.RolePartner, "What is the settlement authority?")
	if len(partner.Citations) == 0 || partner.Citations[0].Filename != "settlement_memo.txt" {
		t.Fatalf("partner citations: want settlement_memo.txt first got=%+v", partner.Citations)
	}
	if partner.Citations[0].Sensitivity != "privileged" {
		t.Fatalf("partner citation sensitivity: got=%s", partner.Citations[0].Sensitivity)
	}
	if !strings.Contains(partner.Answer, "settlement_memo.txt") {
		t.Fatalf("partner answer: want filename got=%q", partner.Answer)
	}

	stored, err := partner.AssistantMessage.DecodeCitations()
	if err != nil || len(stored) != len(partner.Citations) || stored[0].Filename != "settlement_memo.txt" {
		t.Fatalf("persisted citations: got=%+v err=%v", stored, err)
	}
	if partner.UserMessage.Seq != 1 || partner.AssistantMessage.Seq != 2 {
		t.Fatalf("message seq: want 1,2 got=%d,%d", partner.UserMessage.Seq, partner.AssistantMessage.Seq)
	}
}

func TestUpdateConsistencyThroughRetrieval(t *testing.T) {
	s := newStack(t, nil)
	ctx := context.Background()
	doc := s.upload(t, "lease.txt", domainaccess.SensitivityInternal, "The rent is $650,000/month.")

	hits, _ := s.retriever.Retrieve(ctx, retrieval.Query{Text: "650,000", Role: domainaccess.RolePartner})
	if len(hits) != 1 {
		t.Fatalf("before update: want=1 hit got=%d", len(hits))
	}
	if _, err := s.docs.Update(ctx, doc.ID, "The rent is $700,000/month."); err != nil {
		t.Fatalf("Update: %v", err)
	}
	hits, _ = s.retriever.Retrieve(ctx, retrieval.Query{Text: "700,000", Role: domainaccess.RolePartner})
	if len(hits) != 1 || !strings.Contains(hits[0].TextSnippet, "700,000") {
		t.Fatalf("new content: want 1 hit with 700,000 got=%+v", hits)
	}
	hits, _ = s.retriever.Retrieve(ctx, retrieval.Query{Text: "650,000", Role: domainaccess.RolePartner})
	if len(hits) != 0 {
		t.Fatalf("old content: want=0 hits got=%+v", hits)
	}
}

func TestDeletedDocumentNeverRetrieved(t *testing.T) {
	s := newStack(t, nil)
	ctx := context.Background()
	doc := s.upload(t, "nda.txt", domainaccess.SensitivityPublic, "Non-disclosure agreement with Initech.")
	if err := s.docs.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	hits, _ := s.retriever.Retrieve(ctx, retrieval.Query{Text: "non-disclosure agreement initech", Role: domainaccess.RolePartner})
	for _, h := range hits {
		if h.DocumentID == doc.ID.String() {
			t.Fatalf("deleted document retrieved: %+v", h)
		}
	}
}

func TestTurnRetrievalFailureStillAnswers(t *testing.T) {
	s := newStack(t, failingRetriever{})
	out := s.turn(t, domainaccess.RolePartner, "What is the rent?")
	if !out.Searched || len(out.Citations) != 0 || out.Answer != cannotFind {
		t.Fatalf("turn: got=%+v", out)
	}
	if out.AssistantMessage == nil {
		t.Fatalf("assistant message not persisted")
	}
}

func TestTurnSkipsSearchWhenRouterSaysNo(t *testing.T) {
	s := newStack(t, nil)
	inner := s.llm.Fn
	s.llm.Fn = func(ctx context.Context, req openai.CompletionRequest) (string, error) {
		if strings.Contains(req.System, "routing agent") {
			return "NO", nil
		}
		return inner(ctx, req)
	}
	out := s.turn(t, domainaccess.RolePartner, "Thanks!")
	if out.Searched || out.RewrittenQuery != "" {
		t.Fatalf("turn: want no search got=%+v", out)
	}
	for _, req := range s.llm.Requests() {
		if strings.Contains(req.System, "query rewriting") {
			t.Fatalf("rewriter called without search")
		}
	}
}

func TestTurnHistoryFeedsNextTurn(t *testing.T) {
	s := newStack(t, nil)
	ctx := context.Background()
	p := testutil.SeedPrincipal(t, ctx, s.db, domainaccess.RoleAssociate)
	sess := testutil.SeedSession(t, ctx, s.db, p.ID)
	if _, err := s.chat.Turn(ctx, TurnInput{PrincipalID: p.ID, SessionID: sess.ID, Query: "Who is the tenant?"}); err != nil {
		t.Fatalf("Turn 1: %v", err)
	}
	if _, err := s.chat.Turn(ctx, TurnInput{PrincipalID: p.ID, SessionID: sess.ID, Query: "What is his address?"}); err != nil {
		t.Fatalf("Turn 2: %v", err)
	}
	reqs := s.llm.Requests()
	last := reqs[len(reqs)-1]
	if !strings.Contains(last.User, "User: Who is the tenant?") || !strings.Contains(last.User, "Lexi: "+cannotFind) {
		t.Fatalf("second turn prompt missing history: %q", last.User)
	}
}

func TestTurnRejects(t *testing.T) {
	s := newStack(t, nil)
	ctx := context.Background()
	owner := testutil.SeedPrincipal(t, ctx, s.db, domainaccess.RolePartner)
	intruder := testutil.SeedPrincipal(t, ctx, s.db, domainaccess.RolePartner)
	sess := testutil.SeedSession(t, ctx, s.db, owner.ID)

	if _, err := s.chat.Turn(ctx, TurnInput{PrincipalID: owner.ID, SessionID: sess.ID, Query: "  "}); !errors.Is(err, types.ErrValidation) {
		t.Fatalf("empty query: want=ErrValidation got=%v", err)
	}
	if _, err := s.chat.Turn(ctx, TurnInput{PrincipalID: intruder.ID, SessionID: sess.ID, Query: "hi"}); !errors.Is(err, types.ErrUnauthorized) {
		t.Fatalf("foreign session: want=ErrUnauthorized got=%v", err)
	}
	if _, err := s.chat.Turn(ctx, TurnInput{PrincipalID: uuid.New(), SessionID: sess.ID, Query: "hi"}); !errors.Is(err, types.ErrUnauthorized) {
		t.Fatalf("unknown principal: want=ErrUnauthorized got=%v", err)
	}
	if len(s.llm.Requests()) != 0 {
		t.Fatalf("inference called on rejected turns")
	}
	msgs, err := s.chat.History().Messages(ctx, owner.ID, sess.ID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("rejected turns wrote to the session: want=0 messages got=%d", len(msgs))
	}
}
