package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	types "github.com/yungbote/lexi-backend/internal/domain"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
	"github.com/yungbote/lexi-backend/internal/platform/openai"
	"github.com/yungbote/lexi-backend/internal/platform/openai/openaitest"
)

func replying(reply string, err error) *openaitest.Completer {
	return &openaitest.Completer{Fn: func(ctx context.Context, req openai.CompletionRequest) (string, error) {
		return reply, err
	}}
}

func TestNeedsSearchParsesReply(t *testing.T) {
	cases := map[string]bool{
		"YES":     true,
		" yes.":   true,
		"NO":      false,
		"no":      false,
		"":        false,
		"Maybe":   false,
		"YES, NO": true,
	}
	for reply, want := range cases {
		r := NewRouter(logger.NewNop(), replying(reply, nil))
		if got := r.NeedsSearch(context.Background(), "", "q"); got != want {
			t.Fatalf("NeedsSearch(%q): want=%v got=%v", reply, want, got)
		}
	}
}

func TestNeedsSearchFailsOpen(t *testing.T) {
	r := NewRouter(logger.NewNop(), replying("", errors.New("503")))
	if !r.NeedsSearch(context.Background(), "User: hi", "what is the rent?") {
		t.Fatalf("NeedsSearch on failure: want=true got=false")
	}
}

func TestNeedsSearchRequestShape(t *testing.T) {
	llm := replying("NO", nil)
	r := NewRouter(logger.NewNop(), llm)
	r.NeedsSearch(context.Background(), "User: hello\nLexi: Hi!", "thanks")
	reqs := llm.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests: want=1 got=%d", len(reqs))
	}
	if reqs[0].Temperature != 0 || reqs[0].MaxTokens != 5 {
		t.Fatalf("params: want temp=0 max=5 got temp=%v max=%d", reqs[0].Temperature, reqs[0].MaxTokens)
	}
	if !strings.Contains(reqs[0].User, "Lexi: Hi!") || !strings.Contains(reqs[0].User, "Current Query: thanks") {
		t.Fatalf("user prompt missing history or query: %q", reqs[0].User)
	}
}

func TestRewriteFallsBackToOriginal(t *testing.T) {
	q := "What is his address?"
	if got := NewRouter(logger.NewNop(), replying("", errors.New("timeout"))).Rewrite(context.Background(), "", q); got != q {
		t.Fatalf("Rewrite on failure: want=%q got=%q", q, got)
	}
	if got := NewRouter(logger.NewNop(), replying("   ", nil)).Rewrite(context.Background(), "", q); got != q {
		t.Fatalf("Rewrite on empty output: want=%q got=%q", q, got)
	}
	got := NewRouter(logger.NewNop(), replying(" What is John Doe's address? \n", nil)).Rewrite(context.Background(), "User: Tell me about John Doe", q)
	if got != "What is John Doe's address?" {
		t.Fatalf("Rewrite: want trimmed rewrite got=%q", got)
	}
}

func TestGenerateFormatsContext(t *testing.T) {
	llm := replying("The rent is $700,000 per month (lease.txt).", nil)
	g := NewGenerator(logger.NewNop(), llm)
	answer, ok := g.Generate(context.Background(), "What is the rent?", "", []types.Citation{
		{Filename: "lease.txt", Sensitivity: "internal", TextSnippet: "rent is $700,000"},
		{Filename: "memo.txt", Sensitivity: "privileged", TextSnippet: "strategy"},
	})
	if !ok || answer != "The rent is $700,000 per month (lease.txt)." {
		t.Fatalf("Generate: got=%q ok=%v", answer, ok)
	}
	req := llm.Requests()[0]
	want := "SOURCE: lease.txt (Sensitivity: internal)\nCONTENT: rent is $700,000\n---\nSOURCE: memo.txt (Sensitivity: privileged)\nCONTENT: strategy"
	if !strings.Contains(req.User, want) {
		t.Fatalf("context block: want contains %q got=%q", want, req.User)
	}
	if req.Temperature != 0.3 || !strings.Contains(req.System, "Lexi") {
		t.Fatalf("generation params: temp=%v system=%q", req.Temperature, req.System)
	}
}

func TestGenerateWithoutCitationsSaysSo(t *testing.T) {
	llm := replying("ok", nil)
	NewGenerator(logger.NewNop(), llm).Generate(context.Background(), "hi", "", nil)
	if !strings.Contains(llm.Requests()[0].User, noContextText) {
		t.Fatalf("no-context text missing: %q", llm.Requests()[0].User)
	}
}

func TestGenerateFailureReturnsErrorText(t *testing.T) {
	g := NewGenerator(logger.NewNop(), replying("", errors.New("model overloaded")))
	answer, ok := g.Generate(context.Background(), "q", "", nil)
	if ok || answer != "Error generating answer: model overloaded" {
		t.Fatalf("Generate on failure: got=%q ok=%v", answer, ok)
	}
}
