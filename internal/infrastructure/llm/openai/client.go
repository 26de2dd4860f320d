package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/finvoy/invoice-autopilot/internal/infrastructure/resilience"
)

const defaultModel = "gpt-4o-mini"

// Client adapts the OpenAI chat completion API to the completion port.
// An empty API key yields a client that reports itself unavailable, so
// callers fall back to their pattern strategies instead of erroring.
type Client struct {
	api      *goopenai.Client
	model    string
	timeout  time.Duration
	executor *resilience.Executor
}

func New(apiKey, model string, timeout time.Duration, executor *resilience.Executor) *Client {
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &Client{model: model, timeout: timeout, executor: executor}
	if apiKey != "" {
		c.api = goopenai.NewClient(apiKey)
	}
	return c
}

func (c *Client) Available() bool {
	return c != nil && c.api != nil
}

func (c *Client) Complete(ctx context.Context, prompt, systemPrompt string, temperature float32, maxTokens int) (string, error) {
	return c.chat(ctx, "chat_completion", prompt, systemPrompt, temperature, maxTokens, false)
}

// ExtractJSON runs a completion that must yield a single JSON value and
// returns the cleaned payload bytes. Fence markers and surrounding prose
// are stripped; anything that still is not braced JSON is an error.
func (c *Client) ExtractJSON(ctx context.Context, prompt, systemPrompt, schemaHint string) ([]byte, error) {
	full := prompt
	if schemaHint != "" {
		full = prompt + "\n\nRespond with strict JSON matching:\n" + schemaHint
	}
	raw, err := c.chat(ctx, "json_extraction", full, systemPrompt, 0.1, 2000, true)
	if err != nil {
		return nil, err
	}
	cleaned := extractJSONObject(stripCodeFences(raw))
	if cleaned == "" {
		return nil, fmt.Errorf("completion contained no JSON object: %q", truncate(raw, 120))
	}
	return []byte(cleaned), nil
}

// Classify picks one of the given categories for the text. The reply is
// matched case-insensitively against the category list; an unmatched reply
// is an error so callers can fall through to their own rules.
func (c *Client) Classify(ctx context.Context, text string, categories []string, hint string) (string, error) {
	raw, err := c.chat(ctx, "classification", buildClassifyPrompt(text, categories, hint), classifySystemPrompt, 0.0, 50, false)
	if err != nil {
		return "", err
	}
	reply := strings.TrimSpace(strings.Trim(raw, `"'`))
	for _, cat := range categories {
		if strings.EqualFold(cat, reply) {
			return cat, nil
		}
	}
	for _, cat := range categories {
		if strings.Contains(strings.ToLower(reply), strings.ToLower(cat)) {
			return cat, nil
		}
	}
	return "", fmt.Errorf("classification %q matched no category", truncate(reply, 80))
}

func (c *Client) chat(ctx context.Context, operation, prompt, systemPrompt string, temperature float32, maxTokens int, jsonMode bool) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("openai %s: no API key configured", operation)
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := goopenai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if jsonMode {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var content string
	err := c.executor.Execute(ctx, "openai_"+operation, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.api.CreateChatCompletion(callCtx, req)
		if err != nil {
			return fmt.Errorf("openai %s: %w", operation, err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("openai %s: empty choices", operation)
		}
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}, classifyOpenAIError)
	if err != nil {
		return "", wrapTemporaryIfNeeded(operation, err)
	}
	return content, nil
}

func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
