package export

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/loom-graph/loom/pkg/common"
)

// WriteContext renders the whole graph as one plain-text file shaped for
// pasting into a model prompt: compact, id-addressed, no markup beyond
// section headers.
func WriteContext(g *common.KnowledgeGraph, path string) error {
	var b strings.Builder

	fmt.Fprintf(&b, "KNOWLEDGE GRAPH (%d documents, %s to %s)\n\n",
		g.Metadata.TotalDocumentsProcessed,
		g.Metadata.DateRange.Earliest, g.Metadata.DateRange.Latest)

	b.WriteString("ENTITIES\n")
	for _, id := range sortedEntityIDs(g) {
		e := g.Entities[id]
		fmt.Fprintf(&b, "%s [%s, %s]: %s\n", e.ID, e.Type, e.Significance, e.Description)
		if len(e.Aliases) > 0 {
			fmt.Fprintf(&b, "  aka: %s\n", strings.Join(e.Aliases, ", "))
		}
	}

	b.WriteString("\nCONCEPTS\n")
	for _, id := range sortedConceptIDs(g) {
		c := g.Concepts[id]
		fmt.Fprintf(&b, "%s [%s]: %s\n", c.ID, c.Significance, c.Description)
		for _, ev := range c.Evolution {
			fmt.Fprintf(&b, "  evolution (%s): %s\n", ev.DocumentDate, ev.Note)
		}
	}

	b.WriteString("\nRELATIONSHIPS\n")
	for _, r := range g.Relationships {
		fmt.Fprintf(&b, "%s -%s-> %s: %s\n", r.SourceID, r.Type, r.TargetID, r.Description)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func sortedEntityIDs(g *common.KnowledgeGraph) []string {
	ids := make([]string, 0, len(g.Entities))
	for id := range g.Entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedConceptIDs(g *common.KnowledgeGraph) []string {
	ids := make([]string, 0, len(g.Concepts))
	for id := range g.Concepts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
