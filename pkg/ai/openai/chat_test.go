package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chmielvu/Forge-Text/pkg/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCompletionRecordsMetrics(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1", "object": "chat.completion", "created": 0, "model": "m",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "The prefects circle Theo."}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 6, "total_tokens": 18}
		}`))
	}))
	defer srv.Close()

	c := NewGraphOpenAIClient(NewGraphOpenAIClientParams{Model: "m", ChatURL: srv.URL + "/", ChatKey: "k"})
	out, err := c.GenerateCompletion(context.Background(), "summarise", ai.WithSystemPrompts("sys"), ai.WithMaxTokens(50))
	require.NoError(t, err)

	assert.Equal(t, "The prefects circle Theo.", out)
	assert.Equal(t, "m", body["model"])
	assert.Len(t, body["messages"], 2)
	assert.Equal(t, float64(50), body["max_completion_tokens"])

	m := c.GetMetrics()
	assert.Equal(t, 18, m.TotalTokens)
	assert.Equal(t, 1, m.Requests)

	c.ResetMetrics()
	assert.Equal(t, ai.ModelMetrics{}, c.GetMetrics())
}

func TestGenerateCompletionWithoutKey(t *testing.T) {
	c := NewGraphOpenAIClient(NewGraphOpenAIClientParams{Model: "m"})
	_, err := c.GenerateCompletion(context.Background(), "p")
	assert.Error(t, err)
	assert.NoError(t, c.LoadModel(context.Background()))
}
