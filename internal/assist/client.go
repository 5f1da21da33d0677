// Package assist asks a remote chat-completion service to write scene code.
package assist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const SystemInstruction = "You write scenes for the Manim animation library. " +
	"Reply with Python source code only. Do not add explanations, markdown or code fences. " +
	"Start with \"from manim import *\" and define exactly one Scene subclass with a construct method."

var (
	ErrNotConfigured = errors.New("assistant endpoint or key not configured")
	ErrEmptyResponse = errors.New("assistant returned no content")
)

// Endpoint is the base URL of an OpenAI compatible API; requests go to
// its /chat/completions route.
type Config struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
	Client   *http.Client
	Logger   *log.Logger
}

func DefaultConfig() Config {
	return Config{
		Endpoint: "https://api.openai.com/v1",
		Model:    "gpt-4o-mini",
		Timeout:  2 * time.Minute,
	}
}

type Client struct {
	endpoint string
	model    string
	api      *openai.Client
	logger   *log.Logger
}

func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	var api *openai.Client
	if cfg.Endpoint != "" && cfg.APIKey != "" {
		apiConfig := openai.DefaultConfig(cfg.APIKey)
		apiConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
		apiConfig.HTTPClient = httpClient
		api = openai.NewClientWithConfig(apiConfig)
	}

	return &Client{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		api:      api,
		logger:   logger,
	}
}

// Generate sends prompt and returns the reply with any code fences removed.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.api == nil {
		return "", ErrNotConfigured
	}

	c.logger.Printf("assist: requesting scene from %s (%s)", c.endpoint, c.model)
	response, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("assistant: %d %s: %s",
				apiErr.HTTPStatusCode, http.StatusText(apiErr.HTTPStatusCode), apiErr.Message)
		}
		return "", fmt.Errorf("assistant request: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	code := StripFences(response.Choices[0].Message.Content)
	if code == "" {
		return "", ErrEmptyResponse
	}
	return code, nil
}

// StripFences returns the contents of the first fenced code block in text,
// or the trimmed text when it has no fence.
func StripFences(text string) string {
	text = strings.TrimSpace(text)

	start := strings.Index(text, "```")
	if start < 0 {
		return text
	}

	rest := text[start+3:]
	// Drops the info string, such as "python".
	if newline := strings.IndexByte(rest, '\n'); newline >= 0 {
		rest = rest[newline+1:]
	} else {
		rest = ""
	}

	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
