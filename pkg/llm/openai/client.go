// Package openai implements llm.Provider on the OpenAI chat completion API.
//
// Any OpenAI-compatible endpoint (DeepSeek, Qwen DashScope compatible mode,
// Ollama's /v1 API) works by setting BaseURL.
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/oceanbase/remindsense-go/pkg/llm"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = openai.GPT3Dot5Turbo

// Client is an OpenAI chat completion client.
type Client struct {
	client *openai.Client
	model  string
}

// Config is the configuration for the OpenAI client.
type Config struct {
	// APIKey is the API key (required except for local endpoints).
	APIKey string

	// Model is the chat model name.
	Model string

	// BaseURL overrides the API base URL.
	BaseURL string
}

// NewClient creates a new OpenAI client.
//
// Returns:
//   - *Client: OpenAI client instance
//   - error: Returns an error if cfg is nil
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("openai: config is required")
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

// Generate implements llm.Provider.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return c.GenerateWithMessages(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

// GenerateWithMessages implements llm.Provider.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages,
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
	}
	if options.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Close implements llm.Provider. The HTTP client needs no cleanup.
func (c *Client) Close() error {
	return nil
}
