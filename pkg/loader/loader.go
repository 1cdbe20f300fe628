// Package loader turns external corpora into the ordered document lists
// the pipeline consumes. Sources only gather raw documents; Prepare owns
// ordering, id assignment and date synthesis so every source behaves the
// same way downstream.
package loader

import (
	"context"
	"fmt"
	"sort"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/loom-graph/loom/internal/util"
	"github.com/loom-graph/loom/pkg/common"
)

// Source produces documents from some corpus location: a local directory,
// a list of URLs, an object-store prefix.
type Source interface {
	Load(ctx context.Context) ([]common.Document, error)
}

// Prepare normalizes raw documents for processing: it fills missing ids
// and word counts, synthesizes missing dates, and sorts ascending by date
// so first-seen attribution and evolution ordering are deterministic.
func Prepare(docs []common.Document) ([]common.Document, error) {
	out := make([]common.Document, len(docs))
	copy(out, docs)

	var latest string
	for _, d := range out {
		if d.Date != "" && d.Date > latest {
			latest = d.Date
		}
	}
	if latest == "" {
		latest = time.Now().UTC().Format("2006-01-02")
	}

	synth, err := time.Parse("2006-01-02", latest[:min(10, len(latest))])
	if err != nil {
		synth = time.Now().UTC()
	}

	seen := map[string]bool{}
	for i := range out {
		d := &out[i]
		if d.Title == "" {
			d.Title = fmt.Sprintf("Untitled %d", i+1)
		}
		if d.Date == "" {
			// Undated posts are slotted after everything dated, in input
			// order, so they never steal first-seen attribution.
			synth = synth.AddDate(0, 0, 1)
			d.Date = synth.Format("2006-01-02")
		}
		if d.WordCount == 0 {
			d.WordCount = util.CountWords(d.Content)
		}
		if d.ID == "" {
			d.ID = common.NormalizeID(d.Title)
		}
		if d.ID == "" || seen[d.ID] {
			id, err := gonanoid.New()
			if err != nil {
				return nil, fmt.Errorf("generating document id: %w", err)
			}
			d.ID = id
		}
		seen[d.ID] = true
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out, nil
}
