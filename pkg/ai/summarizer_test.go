package ai

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	reply   string
	err     error
	prompts []string
	opts    GenerateOptions
}

func (f *fakeClient) GenerateCompletion(_ context.Context, prompt string, opts ...GenerateOption) (string, error) {
	f.prompts = append(f.prompts, prompt)
	for _, o := range opts {
		o(&f.opts)
	}
	return f.reply, f.err
}

func (f *fakeClient) LoadModel(context.Context, ...GenerateOption) error { return nil }
func (f *fakeClient) ResetMetrics()                                      {}
func (f *fakeClient) GetMetrics() ModelMetrics                           { return ModelMetrics{Requests: len(f.prompts)} }

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestClientSummarizerTrimsAndSendsSystemPrompt(t *testing.T) {
	client := &fakeClient{reply: "  Darius rules the dorm.\n"}
	s := NewSummarizer(client, WithTemperature(0.2))

	out, err := s.Summarize(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "Darius rules the dorm.", out)
	assert.Equal(t, []string{SummarizerSystemPrompt}, client.opts.SystemPrompts)
	assert.Equal(t, 0.2, client.opts.Temperature)
	assert.Equal(t, SummaryMaxTokens, client.opts.MaxTokens)
	assert.Equal(t, 1, s.Metrics().Requests)
}

func TestClientSummarizerErrors(t *testing.T) {
	_, err := NewSummarizer(&fakeClient{reply: "   "}).Summarize(context.Background(), "p")
	assert.Error(t, err)

	boom := errors.New("boom")
	_, err = NewSummarizer(&fakeClient{err: boom}).Summarize(context.Background(), "p")
	assert.ErrorIs(t, err, boom)

	_, err = NewSummarizer(nil).Summarize(context.Background(), "p")
	assert.Error(t, err)
}

func TestSummarizerFunc(t *testing.T) {
	var s Summarizer = SummarizerFunc(func(_ context.Context, p string) (string, error) {
		return "echo " + p, nil
	})
	out, err := s.Summarize(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "echo x", out)
}

func TestCommunityPromptFor(t *testing.T) {
	p := CommunityPromptFor([]string{"Darius", "Theo"}, []string{"GRUDGE:0.9"})
	assert.Contains(t, p, "Darius, Theo")
	assert.Contains(t, p, "GRUDGE:0.9")

	assert.Contains(t, CommunityPromptFor([]string{"Solo"}, nil), "none")
}

func TestModelMetricsAdd(t *testing.T) {
	var m ModelMetrics
	m.Add(ModelMetrics{InputTokens: 10, OutputTokens: 20, TotalTokens: 30, DurationMs: 1000})
	m.Add(ModelMetrics{InputTokens: 5, OutputTokens: 20, TotalTokens: 25, DurationMs: 1000})

	assert.Equal(t, 15, m.InputTokens)
	assert.Equal(t, 55, m.TotalTokens)
	assert.Equal(t, 2, m.Requests)
	assert.InDelta(t, 20, m.TokenPerSecond, 1e-6)
}

func TestResolveOptions(t *testing.T) {
	o := ResolveOptions("base", []GenerateOption{WithModel("other"), WithSystemPrompts("a", "b")})
	assert.Equal(t, "other", o.Model)
	assert.Equal(t, 0.3, o.Temperature)
	assert.Equal(t, []string{"a", "b", "p"}, o.Messages("p"))
	assert.Equal(t, []string{"a", "b"}, o.SystemPrompts)
}

func TestMetricsRecorder(t *testing.T) {
	var r MetricsRecorder
	r.Record(ModelMetrics{InputTokens: 3, OutputTokens: 2, TotalTokens: 5})
	r.Record(ModelMetrics{TotalTokens: 1})
	assert.Equal(t, 6, r.GetMetrics().TotalTokens)
	assert.Equal(t, 2, r.GetMetrics().Requests)

	r.ResetMetrics()
	assert.Equal(t, ModelMetrics{}, r.GetMetrics())
}
