package ollama

import (
	"context"
	"fmt"

	"github.com/chmielvu/Forge-Text/pkg/ai"
	"github.com/chmielvu/Forge-Text/pkg/logger"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
)

const (
	defaultContext  = 4096
	responseReserve = 200
)

// contextSize estimates the num_ctx a request needs: the messages in o200k
// tokens plus room for the reply. It returns 0 when the model default is
// large enough.
func contextSize(maxTokens int, messages ...string) (int, error) {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return 0, err
	}
	tokens := max(maxTokens, responseReserve)
	for _, m := range messages {
		tokens += len(enc.Encode(m, nil, nil))
	}
	if tokens <= defaultContext {
		return 0, nil
	}
	return tokens, nil
}

// GenerateCompletion sends a single-turn prompt and returns assistant text.
func (c *GraphOllamaClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	o := ai.ResolveOptions(c.model, opts)

	msgs := make([]api.Message, 0, len(o.SystemPrompts)+1)
	for _, sp := range o.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sp})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: prompt})

	stream := false
	req := &api.ChatRequest{
		Model:    o.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": o.Temperature},
	}
	if o.MaxTokens > 0 {
		req.Options["num_predict"] = o.MaxTokens
	}

	numCtx, err := contextSize(o.MaxTokens, o.Messages(prompt)...)
	if err != nil {
		logger.Debug("[AI][Ollama] Token estimate unavailable", "err", err)
	} else if numCtx > 0 {
		req.Options["num_ctx"] = numCtx
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	var final api.ChatResponse
	if err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	c.Record(ai.ModelMetrics{
		InputTokens:  final.Metrics.PromptEvalCount,
		OutputTokens: final.Metrics.EvalCount,
		TotalTokens:  final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
		DurationMs:   final.Metrics.TotalDuration.Milliseconds(),
	})

	return final.Message.Content, nil
}

// LoadModel asks the server to load the model into memory so the first
// summary of a rebuild does not pay the load time.
func (c *GraphOllamaClient) LoadModel(ctx context.Context, opts ...ai.GenerateOption) error {
	o := ai.ResolveOptions(c.model, opts)
	return c.Client.Chat(ctx, &api.ChatRequest{Model: o.Model}, func(api.ChatResponse) error {
		return nil
	})
}
