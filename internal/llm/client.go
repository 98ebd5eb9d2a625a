// Package llm wraps OpenAI-compatible chat completion endpoints for the
// LLM-backed extractor and judge. DeepSeek and Ollama speak the same wire
// protocol behind different base URLs, so one client covers all three.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Config holds LLM client configuration.
type Config struct {
	// Provider name: "openai", "deepseek", "ollama".
	Provider string

	// Model name (provider-specific). Empty picks the provider default.
	Model string

	// APIKey for OpenAI/DeepSeek. Ollama ignores it.
	APIKey string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// Timeout per request, in seconds.
	Timeout int

	// MaxTokens for response generation.
	MaxTokens int
}

// DefaultConfig returns sensible defaults with the provider disabled.
func DefaultConfig() Config {
	return Config{
		Timeout:   30,
		MaxTokens: 1000,
	}
}

// Client is a chat completion client bound to one provider and model.
type Client struct {
	api      *openai.Client
	provider string
	model    string
	config   Config
}

// NewClient builds a client for the configured provider.
func NewClient(config Config) (*Client, error) {
	provider := strings.ToLower(config.Provider)
	model := config.Model
	baseURL := config.BaseURL
	apiKey := config.APIKey

	switch provider {
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("openai API key is required")
		}
		if model == "" {
			model = openai.GPT4oMini
		}
	case "deepseek":
		if apiKey == "" {
			return nil, fmt.Errorf("deepseek API key is required")
		}
		if baseURL == "" {
			baseURL = "https://api.deepseek.com/v1"
		}
		if model == "" {
			model = "deepseek-chat"
		}
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		if apiKey == "" {
			apiKey = "ollama" // the endpoint ignores it but the SDK requires one
		}
		if model == "" {
			model = "llama3.1"
		}
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, deepseek, ollama)", config.Provider)
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	return &Client{
		api:      openai.NewClientWithConfig(clientConfig),
		provider: provider,
		model:    model,
		config:   config,
	}, nil
}

// Name identifies the provider and model for provenance, e.g.
// "deepseek:deepseek-chat".
func (c *Client) Name() string {
	return c.provider + ":" + c.model
}

// Model returns the model name.
func (c *Client) Model() string {
	return c.model
}

// Complete sends a single-turn chat completion and returns the response
// text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	timeout := time.Duration(c.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	maxTokens := c.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.3, // low temperature for focused, parseable output
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s API error: %w", c.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from %s", c.provider)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ExtractJSON returns the first JSON object or array embedded in an LLM
// reply, tolerating markdown code fences and surrounding prose.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	end := strings.LastIndexAny(s, "}]")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
