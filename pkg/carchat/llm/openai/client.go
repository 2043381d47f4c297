// Package openai implements llm.Completer on top of the OpenAI chat completions API.
package openai

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/nekruzvatanshoev/carchat/pkg/carchat/llm"
	"github.com/rs/zerolog"
	goopenai "github.com/sashabaranov/go-openai"
)

const (
	defaultModel   = "gpt-4o"
	defaultTimeout = 60 * time.Second
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client sends completions to an OpenAI-compatible endpoint
type Client struct {
	api   *goopenai.Client
	model string
	key   string
	base  string
	log   zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) *Client {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		apiCfg.BaseURL = strings.TrimRight(base, "/")
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		api:   goopenai.NewClientWithConfig(apiCfg),
		model: cfg.Model,
		key:   strings.TrimSpace(cfg.APIKey),
		base:  apiCfg.BaseURL,
		log:   log,
	}
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	if c.key == "" && requiresAPIKey(c.base) {
		return "", fmt.Errorf("%w for %s", llm.ErrMissingAPIKey, c.base)
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai %s completion: %w", req.Operation, err)
	}
	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyResponse
	}
	c.log.Debug().
		Str("op", req.Operation).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("openai usage")
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// temperature keeps a requested 0 on the wire; go-openai drops the zero value
// through omitempty and the API would then sample at its default of 1.
func temperature(t float32) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func requiresAPIKey(baseURL string) bool {
	lower := strings.ToLower(baseURL)
	return !(strings.Contains(lower, "localhost") || strings.Contains(lower, "127.0.0.1") || strings.Contains(lower, "ollama"))
}
