// Package openai talks to OpenAI-compatible inference endpoints: /v1/embeddings
// for the embedding service and /v1/chat/completions for the LLM (Groq, vLLM,
// TEI and OpenAI all speak this shape).
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/lexi-backend/internal/platform/logger"
)

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type CompletionRequest struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type Client interface {
	Embedder
	Completer
}

type Config struct {
	BaseURL    string
	APIKey     string
	ChatModel  string
	EmbedModel string
	Timeout    time.Duration
	MaxRetries int
}

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	chatModel   string
	embedModel  string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("inference base url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &client{
		log:         log.With("client", "InferenceClient", "base_url", baseURL),
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		chatModel:   strings.TrimSpace(cfg.ChatModel),
		embedModel:  strings.TrimSpace(cfg.EmbedModel),
		httpClient:  &http.Client{Timeout: timeout},
		maxRetries:  maxRetries,
		baseBackoff: time.Second,
	}, nil
}

type embeddingsRequest struct {
	Model string   `json:"model,omitempty"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed returns one vector per input, in input order.
func (c *client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	clean := make([]string, len(inputs))
	for i := range inputs {
		s := strings.TrimSpace(inputs[i])
		if s == "" {
			s = " "
		}
		clean[i] = s
	}
	req := embeddingsRequest{Model: c.embedModel, Input: clean}

	var resp embeddingsResponse
	if err := c.do(ctx, http.MethodPost, "/v1/embeddings", c.embedModel, req, &resp); err != nil {
		return nil, err
	}
	out := placeEmbeddings(resp, len(clean))
	if hasMissingEmbeddings(out) {
		c.log.Warn("Embeddings response missing indices; retrying once",
			"requested", len(clean),
			"returned", len(resp.Data),
			"model", c.embedModel,
		)
		var retry embeddingsResponse
		if err := c.do(ctx, http.MethodPost, "/v1/embeddings", c.embedModel, req, &retry); err != nil {
			return nil, err
		}
		out = placeEmbeddings(retry, len(clean))
		if hasMissingEmbeddings(out) {
			return nil, fmt.Errorf("embeddings missing indices after retry: requested=%d returned=%d model=%s",
				len(clean), len(retry.Data), c.embedModel)
		}
	}
	return out, nil
}

// placeEmbeddings slots vectors by their reported index, falling back to
// positional order when the server omits indices.
func placeEmbeddings(resp embeddingsResponse, n int) [][]float32 {
	out := make([][]float32, n)
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < n && out[d.Index] == nil {
			out[d.Index] = toFloat32(d.Embedding)
		}
	}
	if hasMissingEmbeddings(out) && len(resp.Data) == n {
		for i := range out {
			if out[i] == nil {
				out[i] = toFloat32(resp.Data[i].Embedding)
			}
		}
	}
	return out
}

func toFloat32(in []float64) []float32 {
	vec := make([]float32, len(in))
	for i, f := range in {
		vec[i] = float32(f)
	}
	return vec
}

func hasMissingEmbeddings(v [][]float32) bool {
	for _, e := range v {
		if len(e) == 0 {
			return true
		}
	}
	return false
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	body := chatCompletionRequest{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	var resp chatCompletionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/chat/completions", c.chatModel, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices (model=%s)", c.chatModel)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
