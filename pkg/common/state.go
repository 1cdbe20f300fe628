package common

import "time"

// Status is the lifecycle state of a processing run.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusPaused     Status = "paused"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// ProcessingError records one non-fatal failure during a run. Errors
// accumulate for later inspection and never stop the loop.
type ProcessingError struct {
	DocumentTitle string    `json:"documentTitle"`
	Message       string    `json:"message"`
	At            time.Time `json:"at"`
}

// ProcessingState is the full resumable state of a run over an ordered
// document list. It is owned exclusively by the pipeline loop and handed
// to the checkpoint store at persistence boundaries.
type ProcessingState struct {
	RunID                string            `json:"runId"`
	Status               Status            `json:"status"`
	CurrentDocumentIndex int               `json:"currentDocumentIndex"`
	TotalDocuments       int               `json:"totalDocuments"`
	Documents            []Document        `json:"documents"`
	Graph                *KnowledgeGraph   `json:"graph"`
	Errors               []ProcessingError `json:"errors"`
	StartTime            time.Time         `json:"startTime"`
	PausedAt             *time.Time        `json:"pausedAt,omitempty"`

	// Titles processed since the last integration round, consumed when
	// the verifier runs.
	PendingIntegrationTitles []string `json:"pendingIntegrationTitles"`
}

// NewProcessingState creates an idle state over the given ordered documents.
func NewProcessingState(runID string, documents []Document) *ProcessingState {
	return &ProcessingState{
		RunID:          runID,
		Status:         StatusIdle,
		TotalDocuments: len(documents),
		Documents:      documents,
		Graph:          NewKnowledgeGraph(),
		StartTime:      time.Now().UTC(),
	}
}
