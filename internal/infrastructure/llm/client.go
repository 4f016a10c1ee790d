package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"

	"NewsLens/internal/config"
	"NewsLens/internal/infrastructure/httpx"
	"NewsLens/internal/ports"
)

// Client implements embedding, topic disambiguation and item analysis on top
// of an OpenAI-compatible API.
type Client struct {
	http           *httpx.Client
	model          string
	embeddingModel string
	systemPrompt   string
}

var (
	_ ports.Embedder      = (*Client)(nil)
	_ ports.Disambiguator = (*Client)(nil)
	_ ports.Analyzer      = (*Client)(nil)
)

// NewClient builds a client from configuration. It returns nil when the
// endpoint or API key is missing.
func NewClient(cfg config.LLMConfig, res config.ResilienceConfig, logger *slog.Logger) *Client {
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return nil
	}
	return &Client{
		http: httpx.New(httpx.Options{
			Name:            "llm",
			BaseURL:         cfg.Endpoint,
			APIKey:          cfg.APIKey,
			Timeout:         cfg.Timeout,
			MaxRetries:      res.MaxRetries,
			Backoff:         res.Backoff,
			MaxBackoff:      res.MaxBackoff,
			BreakerFailures: res.BreakerFailures,
			BreakerCooldown: res.BreakerCooldown,
			RatePerSecond:   res.RatePerSecond,
			Burst:           res.Burst,
			Logger:          logger,
		}),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		systemPrompt:   cfg.SystemPrompt,
	}
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if c == nil {
		return nil, errors.New("llm client is not configured")
	}

	var resp embeddingResponse
	err := c.http.PostJSON(ctx, "/embeddings", map[string]any{
		"model": c.embeddingModel,
		"input": text,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("embed: empty embedding in response")
	}
	return resp.Data[0].Embedding, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Temperature    float64        `json:"temperature"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete runs a schema-constrained chat completion and decodes the
// assistant message into out.
func (c *Client) complete(ctx context.Context, system, user string, schema jsonSchema, out any) error {
	if c == nil {
		return errors.New("llm client is not configured")
	}

	req := chatRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: responseFormat{Type: "json_schema", JSONSchema: schema},
	}

	var resp chatResponse
	if err := c.http.PostJSON(ctx, "/chat/completions", req, &resp); err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return errors.New("no choices in completion")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return errors.New("empty completion")
	}
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("malformed completion: %w", err)
	}
	return nil
}

func safePrompt(prompt, fallback string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fallback
	}
	return prompt
}
