package pipeline

import (
	"context"
	"errors"

	"github.com/loom-graph/loom/pkg/common"
)

// ErrNoCheckpoint is returned by CheckpointStore.Load when no usable
// checkpoint exists for a run. Absence is a normal fresh-start condition,
// and implementations must also return it for corrupt persisted state
// rather than failing the load.
var ErrNoCheckpoint = errors.New("no checkpoint available")

// CheckpointStore persists one serialized ProcessingState per run so an
// interrupted run can resume at its saved document index.
type CheckpointStore interface {
	Save(ctx context.Context, state *common.ProcessingState) error
	Load(ctx context.Context, runID string) (*common.ProcessingState, error)
	Delete(ctx context.Context, runID string) error
}
