package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/loom-graph/loom/internal/util"
	"github.com/loom-graph/loom/pkg/common"
)

const (
	contextMaxEntities      = 50
	contextMaxConcepts      = 50
	contextMaxRelationships = 30

	snapshotTokenBudget = 24000
	snapshotEncoder     = "o200k_base"
)

// contextSummary renders a bounded view of the graph for the per-document
// extraction call. Items are ranked by significance, then occurrence count,
// so the summary stays useful as the graph outgrows the caps.
func contextSummary(g *common.KnowledgeGraph) string {
	if g == nil || (len(g.Entities) == 0 && len(g.Concepts) == 0) {
		return "(empty - this is the first post)"
	}

	entities := make([]*common.Entity, 0, len(g.Entities))
	for _, e := range g.Entities {
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool {
		if r := entities[i].Significance.Rank() - entities[j].Significance.Rank(); r != 0 {
			return r > 0
		}
		if d := len(entities[i].Occurrences) - len(entities[j].Occurrences); d != 0 {
			return d > 0
		}
		return entities[i].ID < entities[j].ID
	})
	if len(entities) > contextMaxEntities {
		entities = entities[:contextMaxEntities]
	}

	concepts := make([]*common.Concept, 0, len(g.Concepts))
	for _, c := range g.Concepts {
		concepts = append(concepts, c)
	}
	sort.Slice(concepts, func(i, j int) bool {
		if r := concepts[i].Significance.Rank() - concepts[j].Significance.Rank(); r != 0 {
			return r > 0
		}
		if d := len(concepts[i].Occurrences) - len(concepts[j].Occurrences); d != 0 {
			return d > 0
		}
		return concepts[i].ID < concepts[j].ID
	})
	if len(concepts) > contextMaxConcepts {
		concepts = concepts[:contextMaxConcepts]
	}

	rels := g.Relationships
	if len(rels) > contextMaxRelationships {
		rels = rels[len(rels)-contextMaxRelationships:]
	}

	var b strings.Builder
	b.WriteString("Entities:\n")
	for _, e := range entities {
		fmt.Fprintf(&b, "- %s (%s, %s): %s\n",
			e.Name, e.Type, e.Significance, util.FirstNWords(e.Description, 25))
	}
	b.WriteString("\nConcepts:\n")
	for _, c := range concepts {
		fmt.Fprintf(&b, "- %s (%s): %s\n",
			c.Name, c.Significance, util.FirstNWords(c.Description, 25))
	}
	b.WriteString("\nRelationships:\n")
	for _, r := range rels {
		fmt.Fprintf(&b, "- %s %s %s\n", r.SourceID, r.Type, r.TargetID)
	}

	return b.String()
}

// graphSnapshot renders the full graph for the verification call, truncated
// to a token budget so the payload stays bounded as the graph grows.
func graphSnapshot(g *common.KnowledgeGraph) (string, error) {
	var b strings.Builder

	entityIDs := make([]string, 0, len(g.Entities))
	for id := range g.Entities {
		entityIDs = append(entityIDs, id)
	}
	sort.Strings(entityIDs)

	b.WriteString("Entities:\n")
	for _, id := range entityIDs {
		e := g.Entities[id]
		fmt.Fprintf(&b, "- id=%s name=%q type=%s significance=%s occurrences=%d aliases=%s\n  %s\n",
			e.ID, e.Name, e.Type, e.Significance, len(e.Occurrences),
			strings.Join(e.Aliases, ", "), util.FirstNWords(e.Description, 40))
	}

	conceptIDs := make([]string, 0, len(g.Concepts))
	for id := range g.Concepts {
		conceptIDs = append(conceptIDs, id)
	}
	sort.Strings(conceptIDs)

	b.WriteString("\nConcepts:\n")
	for _, id := range conceptIDs {
		c := g.Concepts[id]
		fmt.Fprintf(&b, "- id=%s name=%q significance=%s occurrences=%d domains=%s terms=%s\n  %s\n",
			c.ID, c.Name, c.Significance, len(c.Occurrences),
			strings.Join(c.Domains, ", "), strings.Join(c.AlternateTerms, ", "),
			util.FirstNWords(c.Description, 40))
	}

	b.WriteString("\nRelationships:\n")
	for _, r := range g.Relationships {
		fmt.Fprintf(&b, "- %s %s %s (%s)\n",
			r.SourceID, r.Type, r.TargetID, util.FirstNWords(r.Description, 15))
	}

	return util.TruncateTokens(b.String(), snapshotEncoder, snapshotTokenBudget)
}
