package ai

import (
	"context"
	"fmt"
	"strings"
)

// Summarizer turns a prompt into a short piece of text. The retrieval index
// depends only on this capability, not on a concrete model backend.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// SummarizerFunc adapts a plain function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, prompt string) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ClientSummarizer summarises through a GraphAIClient completion call.
type ClientSummarizer struct {
	client GraphAIClient
	opts   []GenerateOption
}

// SummaryMaxTokens caps a community summary; the prompt asks for at most
// 60 words.
const SummaryMaxTokens = 120

// NewSummarizer wraps client so it can be used wherever a Summarizer is
// expected. The summariser system prompt and token cap apply unless opts
// override them.
func NewSummarizer(client GraphAIClient, opts ...GenerateOption) *ClientSummarizer {
	defaults := []GenerateOption{WithSystemPrompts(SummarizerSystemPrompt), WithMaxTokens(SummaryMaxTokens)}
	return &ClientSummarizer{
		client: client,
		opts:   append(defaults, opts...),
	}
}

func (s *ClientSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("ai client is nil")
	}
	out, err := s.client.GenerateCompletion(ctx, prompt, s.opts...)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("empty summary from model")
	}
	return out, nil
}

// Metrics returns the token usage accumulated by the underlying client.
func (s *ClientSummarizer) Metrics() ModelMetrics {
	if s.client == nil {
		return ModelMetrics{}
	}
	return s.client.GetMetrics()
}

// CommunityPromptFor renders CommunityPrompt for the given member labels and
// relation tags.
func CommunityPromptFor(members, relations []string) string {
	rel := strings.Join(relations, "; ")
	if rel == "" {
		rel = "none"
	}
	return fmt.Sprintf(CommunityPrompt, strings.Join(members, ", "), rel)
}
