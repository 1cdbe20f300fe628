package main

import (
	"fmt"
	"time"

	"github.com/loom-graph/loom/internal/checkpoint"
	"github.com/loom-graph/loom/internal/config"
	mid "github.com/loom-graph/loom/internal/server/middleware"
	"github.com/loom-graph/loom/pkg/ai"
	oai "github.com/loom-graph/loom/pkg/ai/ollama"
	gai "github.com/loom-graph/loom/pkg/ai/openai"
	"github.com/loom-graph/loom/pkg/common"
	"github.com/loom-graph/loom/pkg/graph"
	"github.com/loom-graph/loom/pkg/pipeline"
)

// buildApp assembles the model client, graph client, checkpoint store
// and pipeline from the loaded config. When printProgress is set the
// pipeline reports per-document progress on stdout.
func buildApp(cli *CLI, printProgress bool) (*mid.App, *checkpoint.BadgerStore, error) {
	cfg, err := loadConfig(cli)
	if err != nil {
		return nil, nil, err
	}

	model, err := buildModel(cfg)
	if err != nil {
		return nil, nil, err
	}

	graphClient, err := graph.NewGraphClient(graph.NewGraphClientParams{
		IntegrationInterval: cfg.Pipeline.IntegrationInterval,
		MaxRetries:          cfg.Pipeline.MaxRetries,
		RetryBaseDelay:      time.Duration(cfg.Pipeline.RetryBaseDelayMs) * time.Millisecond,
		PostCallDelay:       time.Duration(cfg.Pipeline.PostCallDelayMs) * time.Millisecond,
		CallTimeout:         time.Duration(cfg.Pipeline.CallTimeoutSec) * time.Second,
	})
	if err != nil {
		return nil, nil, err
	}

	var store *checkpoint.BadgerStore
	if cfg.CheckpointPath != "" {
		store, err = checkpoint.Open(cfg.CheckpointPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening checkpoint store: %w", err)
		}
	}

	params := pipeline.NewPipelineParams{
		GraphClient:        graphClient,
		Model:              model,
		CheckpointInterval: cfg.Pipeline.CheckpointInterval,
	}
	if store != nil {
		params.Store = store
	}
	if printProgress {
		params.OnProgress = printRunProgress
	}

	p, err := pipeline.NewPipeline(params)
	if err != nil {
		return nil, nil, err
	}

	return &mid.App{
		Pipeline:    p,
		GraphClient: graphClient,
		Model:       model,
		Config:      cfg,
	}, store, nil
}

func buildModel(cfg *config.Config) (ai.ModelClient, error) {
	switch cfg.Model.Provider {
	case "ollama":
		return oai.NewModelOllamaClient(oai.NewModelOllamaClientParams{
			ExtractionModel:   cfg.Model.ExtractionModel,
			VerificationModel: cfg.Model.VerificationModel,
			BaseURL:           cfg.Model.BaseURL,
			APIKey:            cfg.Model.APIKey,
		})
	default:
		return gai.NewModelOpenAIClient(gai.NewModelOpenAIClientParams{
			ExtractionModel:   cfg.Model.ExtractionModel,
			VerificationModel: cfg.Model.VerificationModel,
			BaseURL:           cfg.Model.BaseURL,
			APIKey:            cfg.Model.APIKey,
		}), nil
	}
}

func printRunProgress(p pipeline.Progress) {
	switch p.Status {
	case common.StatusProcessing:
		title := p.CurrentDocumentTitle
		if len(title) > 48 {
			title = title[:45] + "..."
		}
		fmt.Printf("\r\033[K[%d/%d] %s", p.CurrentDocumentIndex+1, p.TotalDocuments, title)
	case common.StatusPaused:
		fmt.Printf("\r\033[Kpaused at document %d/%d", p.CurrentDocumentIndex, p.TotalDocuments)
	case common.StatusComplete:
		fmt.Printf("\r\033[Kprocessed %d/%d documents", p.TotalDocuments, p.TotalDocuments)
	}
}
