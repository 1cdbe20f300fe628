// Package export renders a finished knowledge graph into consumable
// artifacts: a JSON dump, a vault of linked markdown notes, and a single
// context file for feeding the graph back to a language model. Exporters
// are pure projections; they never mutate the graph.
package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/loom-graph/loom/pkg/common"
)

// WriteJSON serializes the full graph to path as indented JSON.
func WriteJSON(g *common.KnowledgeGraph, path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling graph: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
