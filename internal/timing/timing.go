// Package timing tracks per-document processing durations so progress
// reporting can estimate how long the rest of a run will take.
package timing

import (
	"sync"
	"time"
)

const maxSamples = 50

// Tracker keeps a sliding window of recent durations. Extraction time
// grows with graph size, so old samples age out of the estimate.
type Tracker struct {
	mu      sync.Mutex
	samples []time.Duration
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Record adds a completed document's processing duration.
func (t *Tracker) Record(d time.Duration) {
	if d <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = append(t.samples, d)
	if len(t.samples) > maxSamples {
		t.samples = t.samples[len(t.samples)-maxSamples:]
	}
}

// Predict estimates the time needed for remaining documents from the
// mean of recorded samples. It returns zero with no samples.
func (t *Tracker) Predict(remaining int) time.Duration {
	if remaining <= 0 {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range t.samples {
		total += d
	}
	mean := total / time.Duration(len(t.samples))
	return mean * time.Duration(remaining)
}

// Reset discards all samples, for example when a run restarts.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = nil
}
