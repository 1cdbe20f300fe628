package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loom-graph/loom/internal/timing"
	"github.com/loom-graph/loom/pkg/ai"
	"github.com/loom-graph/loom/pkg/common"
	"github.com/loom-graph/loom/pkg/graph"
	"github.com/loom-graph/loom/pkg/logger"
)

// ErrNoCredential is returned when a run is started without a usable
// model credential. It is fatal at start; processing never begins.
var ErrNoCredential = errors.New("no valid model credential")

// ErrNotPaused is returned when Resume is called on a run that is not
// in the paused state.
var ErrNotPaused = errors.New("run is not paused")

// credentialChecker is implemented by model clients that can tell up
// front whether they hold a usable credential.
type credentialChecker interface {
	HasCredential() bool
}

// Progress is a point-in-time view of a run, safe for callers to retain.
type Progress struct {
	RunID                string        `json:"runId"`
	Status               common.Status `json:"status"`
	CurrentDocumentIndex int           `json:"currentDocumentIndex"`
	TotalDocuments       int           `json:"totalDocuments"`
	CurrentDocumentTitle string        `json:"currentDocumentTitle,omitempty"`
	Errors               int           `json:"errors"`
	EstimatedRemaining   time.Duration `json:"estimatedRemainingNs"`
	Metrics              ai.ModelMetrics `json:"metrics"`
}

// Pipeline drives one run over an ordered document list: per-document
// extraction, apply, periodic integration verification, and checkpointing.
// Documents are processed strictly one at a time since each extraction's
// context depends on the graph produced by all prior documents.
//
// Pause, Resume and Stop are cooperative: flags are checked between
// documents, never mid-call.
type Pipeline struct {
	graphClient        *graph.GraphClient
	model              ai.ModelClient
	store              CheckpointStore
	checkpointInterval int
	onProgress         func(Progress)
	timer              *timing.Tracker

	mu    sync.Mutex
	state *common.ProcessingState

	pauseRequested atomic.Bool
	stopRequested  atomic.Bool
}

// NewPipelineParams configures a Pipeline. Store may be nil, which
// disables checkpointing (useful for tests and one-shot runs).
// OnProgress, when set, is invoked after every document boundary.
type NewPipelineParams struct {
	GraphClient        *graph.GraphClient
	Model              ai.ModelClient
	Store              CheckpointStore
	CheckpointInterval int
	OnProgress         func(Progress)
}

// NewPipeline creates a pipeline for a single run.
func NewPipeline(params NewPipelineParams) (*Pipeline, error) {
	if params.GraphClient == nil {
		return nil, errors.New("graph client is required")
	}
	if params.Model == nil {
		return nil, errors.New("model client is required")
	}
	interval := params.CheckpointInterval
	if interval <= 0 {
		interval = 5
	}
	return &Pipeline{
		graphClient:        params.GraphClient,
		model:              params.Model,
		store:              params.Store,
		checkpointInterval: interval,
		onProgress:         params.OnProgress,
		timer:              timing.NewTracker(),
	}, nil
}

// Start begins a fresh run over documents, which must already be ordered
// ascending by date. It returns once the run completes, pauses, stops, or
// fails a start-time check.
func (p *Pipeline) Start(ctx context.Context, runID string, documents []common.Document) error {
	if checker, ok := p.model.(credentialChecker); ok && !checker.HasCredential() {
		p.mu.Lock()
		p.state = common.NewProcessingState(runID, documents)
		p.state.Status = common.StatusError
		p.mu.Unlock()
		return ErrNoCredential
	}

	p.mu.Lock()
	p.state = common.NewProcessingState(runID, documents)
	p.mu.Unlock()
	p.timer.Reset()

	return p.run(ctx)
}

// Resume continues a paused run. The checkpoint keeps the full document
// list, so resuming re-enters the loop at the saved index; a document
// whose extraction was applied but not yet checkpointed is re-extracted,
// which at worst adds one duplicate occurrence entry.
func (p *Pipeline) Resume(ctx context.Context) error {
	if checker, ok := p.model.(credentialChecker); ok && !checker.HasCredential() {
		return ErrNoCredential
	}

	p.mu.Lock()
	if p.state == nil || p.state.Status != common.StatusPaused {
		p.mu.Unlock()
		return ErrNotPaused
	}
	p.mu.Unlock()

	return p.run(ctx)
}

// ResumeFromCheckpoint loads the persisted state for runID and continues
// it. A missing or corrupt checkpoint yields ErrNoCheckpoint.
func (p *Pipeline) ResumeFromCheckpoint(ctx context.Context, runID string) error {
	if p.store == nil {
		return ErrNoCheckpoint
	}
	state, err := p.store.Load(ctx, runID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	state.Status = common.StatusPaused
	p.state = state
	p.mu.Unlock()

	return p.Resume(ctx)
}

// Pause requests a cooperative pause at the next document boundary.
func (p *Pipeline) Pause() {
	p.pauseRequested.Store(true)
}

// Stop requests a cooperative stop at the next document boundary. The run
// lands in the paused state like Pause, but the caller treats the graph
// as ready for immediate export instead of waiting for a resume.
func (p *Pipeline) Stop() {
	p.stopRequested.Store(true)
}

// Progress returns the current run progress.
func (p *Pipeline) Progress() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progressLocked()
}

func (p *Pipeline) progressLocked() Progress {
	if p.state == nil {
		return Progress{Status: common.StatusIdle}
	}
	pr := Progress{
		RunID:                p.state.RunID,
		Status:               p.state.Status,
		CurrentDocumentIndex: p.state.CurrentDocumentIndex,
		TotalDocuments:       p.state.TotalDocuments,
		Errors:               len(p.state.Errors),
		EstimatedRemaining:   p.timer.Predict(p.state.TotalDocuments - p.state.CurrentDocumentIndex),
		Metrics:              p.model.GetMetrics(),
	}
	if p.state.CurrentDocumentIndex < len(p.state.Documents) {
		pr.CurrentDocumentTitle = p.state.Documents[p.state.CurrentDocumentIndex].Title
	}
	return pr
}

// Graph returns the current graph state. Consumers must treat it as
// read-only; exporters receive it only after the run has settled.
func (p *Pipeline) Graph() *common.KnowledgeGraph {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil {
		return nil
	}
	return p.state.Graph
}

// State returns the underlying processing state for inspection.
func (p *Pipeline) State() *common.ProcessingState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) run(ctx context.Context) error {
	p.pauseRequested.Store(false)
	p.stopRequested.Store(false)

	p.mu.Lock()
	p.state.Status = common.StatusProcessing
	p.state.PausedAt = nil
	p.mu.Unlock()

	interval := p.graphClient.IntegrationInterval()

	for {
		p.mu.Lock()
		state := p.state
		idx := state.CurrentDocumentIndex
		total := state.TotalDocuments
		p.mu.Unlock()

		if idx >= total {
			break
		}

		doc := state.Documents[idx]
		p.notifyProgress()

		if ctx.Err() != nil {
			p.suspend()
			return ctx.Err()
		}
		if p.pauseRequested.Load() || p.stopRequested.Load() {
			p.suspend()
			return nil
		}

		logger.Info("processing document",
			"run", state.RunID, "index", idx, "total", total, "title", doc.Title)

		docStart := time.Now()
		res, err := p.graphClient.ExtractFromDocument(ctx, p.model, state.Graph, doc)
		p.timer.Record(time.Since(docStart))
		if err != nil && ctx.Err() != nil {
			// Canceled out from under us, not a document failure. Suspend
			// so the checkpoint stays clean and the document is retried on
			// resume.
			p.suspend()
			return ctx.Err()
		}
		p.mu.Lock()
		if err != nil {
			// Recoverable: record, advance, keep going. One bad document
			// must never halt the run.
			state.Errors = append(state.Errors, common.ProcessingError{
				DocumentTitle: doc.Title,
				Message:       err.Error(),
				At:            time.Now().UTC(),
			})
			logger.Warn("extraction failed, continuing",
				"title", doc.Title, "err", err)
		} else {
			state.Graph = graph.Apply(state.Graph, res, doc)
			state.PendingIntegrationTitles = append(state.PendingIntegrationTitles, doc.Title)
		}
		pending := len(state.PendingIntegrationTitles)
		p.mu.Unlock()

		if (idx+1)%interval == 0 && pending >= interval {
			p.runIntegration(ctx)
		}

		p.mu.Lock()
		state.CurrentDocumentIndex++
		next := state.CurrentDocumentIndex
		p.mu.Unlock()

		if next%p.checkpointInterval == 0 {
			p.checkpoint(ctx)
		}
		p.notifyProgress()
	}

	p.mu.Lock()
	p.state.Status = common.StatusComplete
	runID := p.state.RunID
	p.mu.Unlock()

	// The run finished; a stale checkpoint would only invite a pointless
	// resume, so discard it.
	if p.store != nil {
		if err := p.store.Delete(context.WithoutCancel(ctx), runID); err != nil {
			logger.Warn("failed to discard checkpoint", "run", runID, "err", err)
		}
	}
	p.notifyProgress()
	return nil
}

func (p *Pipeline) runIntegration(ctx context.Context) {
	p.mu.Lock()
	state := p.state
	titles := append([]string(nil), state.PendingIntegrationTitles...)
	g := state.Graph
	p.mu.Unlock()

	res, err := p.graphClient.VerifyIntegration(ctx, p.model, g, titles)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		// Non-fatal: skip this round, the next one sees the same items.
		state.Errors = append(state.Errors, common.ProcessingError{
			DocumentTitle: fmt.Sprintf("integration after %d documents", state.CurrentDocumentIndex+1),
			Message:       err.Error(),
			At:            time.Now().UTC(),
		})
		logger.Warn("integration round failed, skipping", "err", err)
		return
	}
	state.Graph = graph.ApplyIntegration(state.Graph, res)
	state.PendingIntegrationTitles = nil
	logger.Info("integration round applied",
		"merges", len(res.Merges),
		"newRelationships", len(res.NewRelationships))
}

// suspend checkpoints and parks the run in the paused state.
func (p *Pipeline) suspend() {
	p.mu.Lock()
	now := time.Now().UTC()
	p.state.Status = common.StatusPaused
	p.state.PausedAt = &now
	p.mu.Unlock()

	p.checkpoint(context.Background())
	p.notifyProgress()
}

func (p *Pipeline) checkpoint(ctx context.Context) {
	if p.store == nil {
		return
	}
	p.mu.Lock()
	state := p.state
	p.mu.Unlock()

	// A failed write should not abort an otherwise healthy run; at worst
	// a later resume replays a few documents.
	if err := p.store.Save(ctx, state); err != nil {
		logger.Error("checkpoint write failed", "run", state.RunID, "err", err)
	}
}

func (p *Pipeline) notifyProgress() {
	if p.onProgress == nil {
		return
	}
	p.mu.Lock()
	pr := p.progressLocked()
	p.mu.Unlock()
	p.onProgress(pr)
}
