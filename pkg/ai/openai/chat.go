package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chmielvu/Forge-Text/pkg/ai"

	"github.com/openai/openai-go/v3"
)

var errNotConfigured = errors.New("openai client is not configured")

// GenerateCompletion sends a single-turn prompt to the chat model and
// returns the first choice as plain text.
func (c *GraphOpenAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	if c.ChatClient == nil {
		return "", errNotConfigured
	}
	o := ai.ResolveOptions(c.model, opts)

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(o.SystemPrompts)+1)
	for _, sp := range o.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.Model),
		Messages:    msgs,
		Temperature: openai.Float(o.Temperature),
	}
	if o.MaxTokens > 0 {
		body.MaxCompletionTokens = openai.Int(int64(o.MaxTokens))
	}

	start := time.Now()
	resp, err := c.ChatClient.Chat.Completions.New(ctx, body)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	c.Record(ai.ModelMetrics{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:  int(resp.Usage.TotalTokens),
		DurationMs:   time.Since(start).Milliseconds(),
	})

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response from model")
	}
	return resp.Choices[0].Message.Content, nil
}

// LoadModel is a no-op; hosted models load on demand.
func (c *GraphOpenAIClient) LoadModel(context.Context, ...ai.GenerateOption) error {
	return nil
}
