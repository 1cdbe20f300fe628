package openai

import (
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/loom-graph/loom/pkg/ai"
)

// ModelOpenAIClient is an OpenAI-backed implementation of ai.ModelClient.
// It keeps separate model names for extraction and verification calls,
// which usually want different cost/quality trade-offs.
//
// A ModelOpenAIClient should be created using NewModelOpenAIClient.
type ModelOpenAIClient struct {
	extractionModel   string
	verificationModel string

	baseURL string
	apiKey  string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	Client *openai.Client
}

// NewModelOpenAIClientParams defines the configuration for creating a
// new ModelOpenAIClient. BaseURL may point at any OpenAI-compatible
// endpoint; leave it empty for the default API.
type NewModelOpenAIClientParams struct {
	ExtractionModel   string
	VerificationModel string

	BaseURL string
	APIKey  string
}

// NewModelOpenAIClient creates a client configured with the provided
// parameters. It returns nil Client internals when APIKey is empty; use
// HasCredential to check before starting a run.
func NewModelOpenAIClient(params NewModelOpenAIClientParams) *ModelOpenAIClient {
	var client *openai.Client
	if params.APIKey != "" {
		options := []option.RequestOption{
			option.WithAPIKey(params.APIKey),
		}
		if params.BaseURL != "" {
			options = append(options, option.WithBaseURL(params.BaseURL))
		}
		c := openai.NewClient(options...)
		client = &c
	}

	return &ModelOpenAIClient{
		extractionModel:   params.ExtractionModel,
		verificationModel: params.VerificationModel,

		baseURL: params.BaseURL,
		apiKey:  params.APIKey,

		Client: client,
	}
}

// HasCredential reports whether the client was configured with an API key.
func (c *ModelOpenAIClient) HasCredential() bool {
	return c.apiKey != ""
}

func (c *ModelOpenAIClient) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += m.InputTokens
	c.metrics.OutputTokens += m.OutputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs
	c.metrics.Requests++
}

// GetMetrics returns the usage metrics accumulated since the last reset.
func (c *ModelOpenAIClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

// ResetMetrics clears the accumulated usage metrics.
func (c *ModelOpenAIClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}
