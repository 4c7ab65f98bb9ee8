package ollama

import (
	"net/http"
	"net/url"

	"github.com/chmielvu/Forge-Text/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// GraphOllamaClient implements ai.GraphAIClient against a locally hosted
// Ollama server. Concurrent requests are bounded by a weighted semaphore so
// a burst of community summaries cannot starve the local model.
type GraphOllamaClient struct {
	ai.MetricsRecorder

	model   string
	reqLock *semaphore.Weighted
	Client  *api.Client
}

// NewGraphOllamaClientParams configures a GraphOllamaClient. ApiKey is sent
// as a bearer token for Ollama instances behind an authenticating proxy.
type NewGraphOllamaClientParams struct {
	Model string

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewGraphOllamaClient connects to the Ollama server at BaseURL (or the
// default when empty).
func NewGraphOllamaClient(
	params NewGraphOllamaClientParams,
) (*GraphOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	transport := http.DefaultTransport
	if params.ApiKey != "" {
		transport = &headerTransport{
			headers: map[string]string{"Authorization": "Bearer " + params.ApiKey},
			rt:      http.DefaultTransport,
		}
	}

	maxReq := params.MaxConcurrentRequests
	if maxReq <= 0 {
		maxReq = 1
	}

	return &GraphOllamaClient{
		model:   params.Model,
		reqLock: semaphore.NewWeighted(maxReq),
		Client:  api.NewClient(u, &http.Client{Transport: transport}),
	}, nil
}

var _ ai.GraphAIClient = (*GraphOllamaClient)(nil)
