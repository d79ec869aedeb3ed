// Package openaitest holds deterministic inference fakes for tests.
package openaitest

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/yungbote/lexi-backend/internal/platform/openai"
)

// VocabEmbedder assigns each new token its own dimension, so two texts score
// above zero only when they share a token. Tokens past Dim fold by hash.
type VocabEmbedder struct {
	Dim int
	// Err, when set, fails every call.
	Err error

	mu    sync.Mutex
	vocab map[string]int
	calls int
}

var _ openai.Embedder = (*VocabEmbedder)(nil)

func NewVocabEmbedder(dim int) *VocabEmbedder {
	return &VocabEmbedder{Dim: dim, vocab: map[string]int{}}
}

func (e *VocabEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		vec := make([]float32, e.Dim)
		for _, tok := range Tokens(in) {
			vec[e.slotLocked(tok)]++
		}
		out[i] = vec
	}
	return out, nil
}

func (e *VocabEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *VocabEmbedder) slotLocked(tok string) int {
	if e.vocab == nil {
		e.vocab = map[string]int{}
	}
	if slot, ok := e.vocab[tok]; ok {
		return slot
	}
	slot := len(e.vocab)
	if slot >= e.Dim {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		slot = int(h.Sum32() % uint32(e.Dim))
	}
	e.vocab[tok] = slot
	return slot
}

// Tokens lowercases text and keeps runs of letters, digits and inner commas,
// so "$650,000/month" yields "650,000" and "month".
func Tokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ','
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.Trim(f, ","); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Completer answers through Fn and records every request.
type Completer struct {
	Fn func(ctx context.Context, req openai.CompletionRequest) (string, error)

	mu       sync.Mutex
	requests []openai.CompletionRequest
}

var _ openai.Completer = (*Completer)(nil)

func (c *Completer) Complete(ctx context.Context, req openai.CompletionRequest) (string, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	if c.Fn == nil {
		return "", nil
	}
	return c.Fn(ctx, req)
}

func (c *Completer) Requests() []openai.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]openai.CompletionRequest(nil), c.requests...)
}
