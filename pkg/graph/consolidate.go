package graph

import (
	"time"

	"github.com/loom-graph/loom/pkg/common"
	"github.com/loom-graph/loom/pkg/logger"
)

// redirects tracks absorbed-id to kept-id mappings accumulated over one
// consolidation batch. Merge instructions may chain (A absorbed into B,
// B later absorbed into C), so lookups follow the chain to the final
// representative.
type redirects map[string]string

func (r redirects) resolve(id string) string {
	seen := map[string]bool{}
	for {
		next, ok := r[id]
		if !ok || seen[id] {
			return id
		}
		seen[id] = true
		id = next
	}
}

// ApplyIntegration applies one verification correction set to the graph
// and returns the resulting state. The input graph is cloned, never
// mutated. Instructions naming ids that no longer exist are skipped
// individually; one bad instruction never aborts the batch.
func ApplyIntegration(
	g *common.KnowledgeGraph,
	res *IntegrationResult,
) *common.KnowledgeGraph {
	out := g.Clone()
	moved := redirects{}

	for _, m := range res.Merges {
		keep := moved.resolve(m.Keep)
		merge := moved.resolve(m.Merge)
		if keep == merge {
			continue
		}

		merged := false
		if absorbed, ok := out.Entities[merge]; ok {
			if target, ok := out.Entities[keep]; ok {
				mergeEntity(target, absorbed)
				delete(out.Entities, merge)
				merged = true
			}
		}
		if absorbed, ok := out.Concepts[merge]; ok {
			if target, ok := out.Concepts[keep]; ok {
				mergeConcept(target, absorbed)
				delete(out.Concepts, merge)
				merged = true
			}
		}

		if merged {
			moved[merge] = keep
		} else {
			logger.Warn("skipping merge instruction, id not found",
				"keep", m.Keep, "merge", m.Merge, "reason", m.Reason)
		}
	}

	// Re-point every relationship away from absorbed ids before adding
	// anything new, so the dedup pass sees final endpoints throughout.
	for i := range out.Relationships {
		rewriteRelationship(&out.Relationships[i], moved)
	}
	rewriteRelatedSets(out, moved)

	for _, cand := range res.NewRelationships {
		sourceID := moved.resolve(common.NormalizeID(cand.Source))
		targetID := moved.resolve(common.NormalizeID(cand.Target))
		if sourceID == "" || targetID == "" || sourceID == targetID {
			continue
		}

		id := common.RelationshipID(sourceID, cand.Type, targetID)
		if existing := findRelationship(out, id); existing != nil {
			existing.Evidence = common.UnionStrings(existing.Evidence, cand.Evidence)
			continue
		}

		evidence := []string{}
		if cand.Evidence != "" {
			evidence = append(evidence, cand.Evidence)
		}
		out.Relationships = append(out.Relationships, common.Relationship{
			ID:          id,
			SourceID:    sourceID,
			TargetID:    targetID,
			Type:        cand.Type,
			Description: cand.Description,
			Evidence:    evidence,
		})
		linkRelated(out, sourceID, targetID)
	}

	for _, u := range res.UpdatedSignificance {
		id := moved.resolve(u.ID)
		// Direct overwrite: the verifier may demote as well as promote.
		if e, ok := out.Entities[id]; ok {
			e.Significance = u.Significance
		}
		if c, ok := out.Concepts[id]; ok {
			c.Significance = u.Significance
		}
	}

	for _, u := range res.DescriptionUpdates {
		id := moved.resolve(u.ID)
		if e, ok := out.Entities[id]; ok {
			e.Description = u.Description
		}
		if c, ok := out.Concepts[id]; ok {
			c.Description = u.Description
		}
	}

	out.Relationships = dedupRelationships(out.Relationships)
	out.Metadata.LastUpdated = time.Now().UTC()

	return out
}

func mergeEntity(keep, absorbed *common.Entity) {
	keep.Occurrences = append(keep.Occurrences, absorbed.Occurrences...)
	keep.Aliases = common.UnionStrings(keep.Aliases, absorbed.Name)
	keep.Aliases = common.UnionStrings(keep.Aliases, absorbed.Aliases...)
	keep.RelatedEntityIDs = common.UnionStrings(keep.RelatedEntityIDs, absorbed.RelatedEntityIDs...)
	keep.RelatedConceptIDs = common.UnionStrings(keep.RelatedConceptIDs, absorbed.RelatedConceptIDs...)
	if len(absorbed.Description) > len(keep.Description) {
		keep.Description = absorbed.Description
	}
	if absorbed.Significance.Rank() > keep.Significance.Rank() {
		keep.Significance = absorbed.Significance
	}
	keep.Significance = common.PromoteSignificance(keep.Significance, len(keep.Occurrences))
}

func mergeConcept(keep, absorbed *common.Concept) {
	keep.Occurrences = append(keep.Occurrences, absorbed.Occurrences...)
	keep.Evolution = append(keep.Evolution, absorbed.Evolution...)
	keep.AlternateTerms = common.UnionStrings(keep.AlternateTerms, absorbed.Name)
	keep.AlternateTerms = common.UnionStrings(keep.AlternateTerms, absorbed.AlternateTerms...)
	keep.Domains = common.UnionStrings(keep.Domains, absorbed.Domains...)
	keep.RelatedEntityIDs = common.UnionStrings(keep.RelatedEntityIDs, absorbed.RelatedEntityIDs...)
	keep.RelatedConceptIDs = common.UnionStrings(keep.RelatedConceptIDs, absorbed.RelatedConceptIDs...)
	if len(absorbed.Description) > len(keep.Description) {
		keep.Description = absorbed.Description
	}
	if absorbed.Significance.Rank() > keep.Significance.Rank() {
		keep.Significance = absorbed.Significance
	}
	keep.Significance = common.PromoteSignificance(keep.Significance, len(keep.Occurrences))
}

func rewriteRelationship(r *common.Relationship, moved redirects) {
	source := moved.resolve(r.SourceID)
	target := moved.resolve(r.TargetID)
	if source == r.SourceID && target == r.TargetID {
		return
	}
	r.SourceID = source
	r.TargetID = target
	r.ID = common.RelationshipID(source, r.Type, target)
}

// rewriteRelatedSets re-points related-id sets at merge survivors and
// drops self references produced by the rewrite.
func rewriteRelatedSets(g *common.KnowledgeGraph, moved redirects) {
	if len(moved) == 0 {
		return
	}
	rewrite := func(ownID string, ids []string) []string {
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			resolved := moved.resolve(id)
			if resolved == ownID {
				continue
			}
			out = common.UnionStrings(out, resolved)
		}
		return out
	}
	for id, e := range g.Entities {
		e.RelatedEntityIDs = rewrite(id, e.RelatedEntityIDs)
		e.RelatedConceptIDs = rewrite(id, e.RelatedConceptIDs)
	}
	for id, c := range g.Concepts {
		c.RelatedEntityIDs = rewrite(id, c.RelatedEntityIDs)
		c.RelatedConceptIDs = rewrite(id, c.RelatedConceptIDs)
	}
}

// dedupRelationships collapses records that collide on the same
// (source, type, target) triple after id rewrites. Evidence lists are
// merged; self-loops created by merges are dropped.
func dedupRelationships(rels []common.Relationship) []common.Relationship {
	out := make([]common.Relationship, 0, len(rels))
	index := make(map[string]int, len(rels))

	for _, r := range rels {
		if r.SourceID == r.TargetID {
			continue
		}
		if i, ok := index[r.ID]; ok {
			out[i].Evidence = common.UnionStrings(out[i].Evidence, r.Evidence...)
			if len(r.Description) > len(out[i].Description) {
				out[i].Description = r.Description
			}
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
