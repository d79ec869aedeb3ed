package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lexi-backend/internal/data/repos"
	"github.com/yungbote/lexi-backend/internal/data/repos/testutil"
	types "github.com/yungbote/lexi-backend/internal/domain"
	domainaccess "github.com/yungbote/lexi-backend/internal/domain/access"
	"github.com/yungbote/lexi-backend/internal/pkg/dbctx"
)

func newTestHistory(t *testing.T) (*History, *gorm.DB, repos.Repos) {
	t.Helper()
	db := testutil.DB(t)
	rs := repos.New(db, testutil.Logger(t))
	return NewHistory(db, testutil.Logger(t), rs.ChatSessions, rs.ChatMessages), db, rs
}

func TestHistoryOwnershipCheck(t *testing.T) {
	h, db, _ := newTestHistory(t)
	ctx := context.Background()
	owner := testutil.SeedPrincipal(t, ctx, db, domainaccess.RoleAssociate)
	other := testutil.SeedPrincipal(t, ctx, db, domainaccess.RoleAssociate)
	s := testutil.SeedSession(t, ctx, db, owner.ID)

	if _, err := h.Authorize(ctx, owner.ID, s.ID); err != nil {
		t.Fatalf("owner Authorize: %v", err)
	}
	if _, err := h.Authorize(ctx, other.ID, s.ID); !errors.Is(err, types.ErrUnauthorized) {
		t.Fatalf("other Authorize: want=ErrUnauthorized got=%v", err)
	}
	if _, err := h.Authorize(ctx, owner.ID, uuid.New()); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("missing session: want=ErrNotFound got=%v", err)
	}
	if _, err := h.Messages(ctx, other.ID, s.ID); !errors.Is(err, types.ErrUnauthorized) {
		t.Fatalf("other Messages: want=ErrUnauthorized got=%v", err)
	}
	if err := h.DeleteSession(ctx, other.ID, s.ID); !errors.Is(err, types.ErrUnauthorized) {
		t.Fatalf("other DeleteSession: want=ErrUnauthorized got=%v", err)
	}
	if _, err := h.RenameSession(ctx, other.ID, s.ID, "Stolen"); !errors.Is(err, types.ErrUnauthorized) {
		t.Fatalf("other RenameSession: want=ErrUnauthorized got=%v", err)
	}
}

func TestHistoryTranscriptIsOldestFirstAndLimited(t *testing.T) {
	h, db, _ := newTestHistory(t)
	ctx := context.Background()
	p := testutil.SeedPrincipal(t, ctx, db, domainaccess.RolePartner)
	s := testutil.SeedSession(t, ctx, db, p.ID)
	for i := 0; i < 4; i++ {
		if _, err := h.appendMessage(ctx, s.ID, types.MessageRoleUser, "question "+string(rune('a'+i)), nil); err != nil {
			t.Fatalf("appendMessage: %v", err)
		}
		if _, err := h.appendMessage(ctx, s.ID, types.MessageRoleAssistant, "answer "+string(rune('a'+i)), nil); err != nil {
			t.Fatalf("appendMessage: %v", err)
		}
	}
	got, err := h.loadHistory(ctx, s.ID, 3)
	if err != nil {
		t.Fatalf("loadHistory: %v", err)
	}
	want := "Lexi: answer c\nUser: question d\nLexi: answer d"
	if got != want {
		t.Fatalf("transcript: want=%q got=%q", want, got)
	}
	all, _ := h.loadHistory(ctx, s.ID, 0)
	if n := len(strings.Split(all, "\n")); n != DefaultHistoryTurns {
		t.Fatalf("default limit: want=%d got=%d", DefaultHistoryTurns, n)
	}
	empty := testutil.SeedSession(t, ctx, db, p.ID)
	if got, _ := h.loadHistory(ctx, empty.ID, 6); got != "" {
		t.Fatalf("empty transcript: want=\"\" got=%q", got)
	}
}

func TestAppendBumpsUpdatedAtAndStoresCitations(t *testing.T) {
	h, db, rs := newTestHistory(t)
	ctx := context.Background()
	p := testutil.SeedPrincipal(t, ctx, db, domainaccess.RolePartner)
	s := testutil.SeedSession(t, ctx, db, p.ID)
	before := s.UpdatedAt
	time.Sleep(5 * time.Millisecond)

	cits := []types.Citation{{DocumentID: "d1", Filename: "lease.txt", Sensitivity: "internal", ChunkIndex: 2, TextSnippet: "rent", Score: 0.9}}
	msg, err := h.appendMessage(ctx, s.ID, types.MessageRoleAssistant, "The rent is stated in lease.txt.", cits)
	if err != nil {
		t.Fatalf("appendMessage: %v", err)
	}
	if msg.Seq != 1 {
		t.Fatalf("seq: want=1 got=%d", msg.Seq)
	}
	stored, _ := rs.ChatSessions.GetByID(dbctx.Context{Ctx: ctx}, s.ID)
	if !stored.UpdatedAt.After(before) {
		t.Fatalf("updated_at not bumped: before=%v after=%v", before, stored.UpdatedAt)
	}
	msgs, err := h.Messages(ctx, p.ID, s.ID)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("Messages: want=1 got=%d err=%v", len(msgs), err)
	}
	got, err := msgs[0].DecodeCitations()
	if err != nil || len(got) != 1 || got[0] != cits[0] {
		t.Fatalf("citations: want=%+v got=%+v err=%v", cits, got, err)
	}
	if _, err := h.appendMessage(ctx, uuid.New(), types.MessageRoleUser, "x", nil); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("appendMessage to missing session: want=ErrNotFound got=%v", err)
	}
}

func TestSessionCRUD(t *testing.T) {
	h, db, rs := newTestHistory(t)
	ctx := context.Background()
	p := testutil.SeedPrincipal(t, ctx, db, domainaccess.RoleStaff)

	first, err := h.CreateSession(ctx, p.ID, "")
	if err != nil || first.Name != types.DefaultSessionName {
		t.Fatalf("CreateSession default: got=%+v err=%v", first, err)
	}
	time.Sleep(5 * time.Millisecond)
	second, _ := h.CreateSession(ctx, p.ID, "Lease review")
	if _, err := h.CreateSession(ctx, p.ID, strings.Repeat("x", maxSessionNameLen+1)); !errors.Is(err, types.ErrValidation) {
		t.Fatalf("long name: want=ErrValidation got=%v", err)
	}

	list, _ := h.ListSessions(ctx, p.ID, 10)
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("ListSessions: want newest first got=%d", len(list))
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := h.appendMessage(ctx, first.ID, types.MessageRoleUser, "bump", nil); err != nil {
		t.Fatalf("appendMessage: %v", err)
	}
	list, _ = h.ListSessions(ctx, p.ID, 10)
	if list[0].ID != first.ID {
		t.Fatalf("ListSessions after append: want %s first got=%s", first.ID, list[0].ID)
	}

	renamed, err := h.RenameSession(ctx, p.ID, second.ID, "  Discovery prep ")
	if err != nil || renamed.Name != "Discovery prep" {
		t.Fatalf("RenameSession: got=%+v err=%v", renamed, err)
	}
	if _, err := h.RenameSession(ctx, p.ID, second.ID, " "); !errors.Is(err, types.ErrValidation) {
		t.Fatalf("blank rename: want=ErrValidation got=%v", err)
	}

	if err := h.DeleteSession(ctx, p.ID, first.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if s, _ := rs.ChatSessions.GetByID(dbctx.Context{Ctx: ctx}, first.ID); s != nil {
		t.Fatalf("session survived delete")
	}
	if msgs, _ := rs.ChatMessages.ListBySession(dbctx.Context{Ctx: ctx}, first.ID); len(msgs) != 0 {
		t.Fatalf("messages survived delete: %d", len(msgs))
	}
}
