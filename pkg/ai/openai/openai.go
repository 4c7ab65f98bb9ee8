// Package openai implements ai.GraphAIClient for OpenAI-compatible chat
// completion endpoints.
package openai

import (
	"github.com/chmielvu/Forge-Text/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// GraphOpenAIClient should be created using NewGraphOpenAIClient.
type GraphOpenAIClient struct {
	ai.MetricsRecorder

	model      string
	ChatClient *openai.Client
}

// NewGraphOpenAIClientParams configures a GraphOpenAIClient. An empty
// ChatURL uses the public OpenAI endpoint; an empty ChatKey leaves the
// client unconfigured and every completion fails.
type NewGraphOpenAIClientParams struct {
	Model   string
	ChatURL string
	ChatKey string
}

// NewGraphOpenAIClient builds a client for the configured endpoint:
//
//	client := openai.NewGraphOpenAIClient(openai.NewGraphOpenAIClientParams{
//		Model:   "gpt-4o-mini",
//		ChatKey: os.Getenv("AI_CHAT_KEY"),
//	})
func NewGraphOpenAIClient(params NewGraphOpenAIClientParams) *GraphOpenAIClient {
	c := &GraphOpenAIClient{model: params.Model}
	if params.ChatKey == "" {
		return c
	}
	opts := []option.RequestOption{option.WithAPIKey(params.ChatKey)}
	if params.ChatURL != "" {
		opts = append(opts, option.WithBaseURL(params.ChatURL))
	}
	client := openai.NewClient(opts...)
	c.ChatClient = &client
	return c
}

var _ ai.GraphAIClient = (*GraphOpenAIClient)(nil)
