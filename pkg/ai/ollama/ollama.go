package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/ollama/ollama/api"

	"github.com/loom-graph/loom/pkg/ai"
)

// ModelOllamaClient implements ai.ModelClient using a locally-hosted
// Ollama server.
type ModelOllamaClient struct {
	extractionModel   string
	verificationModel string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	Client *api.Client
}

// NewModelOllamaClientParams contains configuration for creating a new
// ModelOllamaClient. BaseURL defaults to the local Ollama endpoint when
// empty; APIKey is sent as a bearer token for proxied servers.
type NewModelOllamaClientParams struct {
	ExtractionModel   string
	VerificationModel string

	BaseURL string
	APIKey  string
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewModelOllamaClient creates an Ollama-backed client with the specified
// configuration.
func NewModelOllamaClient(params NewModelOllamaClientParams) (*ModelOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	} else {
		u, err = url.Parse("http://127.0.0.1:11434")
		if err != nil {
			return nil, err
		}
	}

	httpClient := http.DefaultClient
	if params.APIKey != "" {
		httpClient = &http.Client{
			Transport: &headerTransport{
				headers: map[string]string{
					"Authorization": "Bearer " + params.APIKey,
				},
				rt: http.DefaultTransport,
			},
		}
	}

	return &ModelOllamaClient{
		extractionModel:   params.ExtractionModel,
		verificationModel: params.VerificationModel,
		Client:            api.NewClient(u, httpClient),
	}, nil
}

func (c *ModelOllamaClient) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += m.InputTokens
	c.metrics.OutputTokens += m.OutputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs
	c.metrics.Requests++
}

// GetMetrics returns the usage metrics accumulated since the last reset.
func (c *ModelOllamaClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

// ResetMetrics clears the accumulated usage metrics.
func (c *ModelOllamaClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}
