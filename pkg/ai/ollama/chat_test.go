package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chmielvu/Forge-Text/pkg/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCompletionAgainstServer(t *testing.T) {
	var req map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"qwen","message":{"role":"assistant","content":"Darius holds the dorm."},"done":true,"prompt_eval_count":10,"eval_count":5}` + "\n"))
	}))
	defer srv.Close()

	c, err := NewGraphOllamaClient(NewGraphOllamaClientParams{Model: "qwen", BaseURL: srv.URL, ApiKey: "secret", MaxConcurrentRequests: 2})
	require.NoError(t, err)

	out, err := c.GenerateCompletion(context.Background(), "summarise", ai.WithMaxTokens(80))
	require.NoError(t, err)
	assert.Equal(t, "Darius holds the dorm.", out)
	assert.Equal(t, "qwen", req["model"])
	opts, _ := req["options"].(map[string]any)
	assert.Equal(t, float64(80), opts["num_predict"])

	m := c.GetMetrics()
	assert.Equal(t, 15, m.TotalTokens)
	assert.Equal(t, 1, m.Requests)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewGraphOllamaClient(NewGraphOllamaClientParams{BaseURL: "://bad"})
	assert.Error(t, err)
}
