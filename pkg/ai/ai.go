// Package ai is the boundary to text-generation backends. The engine only
// needs single-turn completions for community summaries; backends live in
// the openai and ollama subpackages.
package ai

import (
	"context"
	"sync"
)

const defaultTemperature = 0.3

// GenerateOptions holds configuration for one completion request.
type GenerateOptions struct {
	Model         string
	SystemPrompts []string
	Temperature   float64
	// MaxTokens caps the reply length; 0 leaves it to the backend.
	MaxTokens int
}

// GenerateOption is a functional option for configuring completion requests.
type GenerateOption func(*GenerateOptions)

func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) { o.Model = model }
}

// WithSystemPrompts replaces the system prompts sent before the user prompt.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) { o.SystemPrompts = prompts }
}

func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) { o.Temperature = temp }
}

func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) { o.MaxTokens = n }
}

// ResolveOptions applies opts over the backend defaults.
func ResolveOptions(model string, opts []GenerateOption) GenerateOptions {
	o := GenerateOptions{Model: model, Temperature: defaultTemperature}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Messages returns the system prompts followed by prompt, in send order.
func (o GenerateOptions) Messages(prompt string) []string {
	return append(append(make([]string, 0, len(o.SystemPrompts)+1), o.SystemPrompts...), prompt)
}

// ModelMetrics contains token and timing totals for a backend.
type ModelMetrics struct {
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	DurationMs     int64   `json:"duration_ms"`
	Requests       int     `json:"requests"`
	TokenPerSecond float32 `json:"tokens_per_second"`
}

// Add accumulates m into a running total.
func (a *ModelMetrics) Add(m ModelMetrics) {
	a.InputTokens += m.InputTokens
	a.OutputTokens += m.OutputTokens
	a.TotalTokens += m.TotalTokens
	a.DurationMs += m.DurationMs
	a.Requests++
	if a.DurationMs > 0 {
		a.TokenPerSecond = float32(a.OutputTokens) / (float32(a.DurationMs) / 1000)
	}
}

// MetricsRecorder is embedded by backends to provide the metrics half of
// GraphAIClient. The zero value is ready to use.
type MetricsRecorder struct {
	mu      sync.Mutex
	metrics ModelMetrics
}

func (r *MetricsRecorder) Record(m ModelMetrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics.Add(m)
}

func (r *MetricsRecorder) ResetMetrics() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = ModelMetrics{}
}

// GetMetrics returns the totals since the last reset.
func (r *MetricsRecorder) GetMetrics() ModelMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics
}

// GraphAIClient is the text-generation capability the engine depends on.
type GraphAIClient interface {
	GenerateCompletion(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)
	// LoadModel warms the model so the first summary of a rebuild does not
	// pay the load time.
	LoadModel(ctx context.Context, opts ...GenerateOption) error
	ResetMetrics()
	GetMetrics() ModelMetrics
}
