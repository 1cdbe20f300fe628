package graph

import "time"

// GraphClient drives the model-facing side of graph construction: shaping
// extraction and verification calls, bounding their payloads, and pacing
// them against external rate limits.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	integrationInterval int
	maxRetries          int
	retryBaseDelay      time.Duration
	postCallDelay       time.Duration
	callTimeout         time.Duration
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// IntegrationInterval is the number of documents between verification
// passes. MaxRetries bounds attempts per model call, with exponential
// backoff starting at RetryBaseDelay. PostCallDelay is a fixed pause after
// every call regardless of outcome. CallTimeout bounds a single call.
type NewGraphClientParams struct {
	IntegrationInterval int
	MaxRetries          int
	RetryBaseDelay      time.Duration
	PostCallDelay       time.Duration
	CallTimeout         time.Duration
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters. Zero values fall back to defaults.
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	g := &GraphClient{
		integrationInterval: params.IntegrationInterval,
		maxRetries:          params.MaxRetries,
		retryBaseDelay:      params.RetryBaseDelay,
		postCallDelay:       params.PostCallDelay,
		callTimeout:         params.CallTimeout,
	}
	if g.integrationInterval <= 0 {
		g.integrationInterval = 10
	}
	if g.maxRetries <= 0 {
		g.maxRetries = 3
	}
	if g.retryBaseDelay <= 0 {
		g.retryBaseDelay = 1500 * time.Millisecond
	}
	if g.postCallDelay < 0 {
		g.postCallDelay = 0
	} else if g.postCallDelay == 0 {
		g.postCallDelay = time.Second
	}
	if g.callTimeout <= 0 {
		g.callTimeout = 90 * time.Second
	}

	return g, nil
}

// IntegrationInterval returns the number of documents between
// verification passes.
func (g *GraphClient) IntegrationInterval() int {
	return g.integrationInterval
}
