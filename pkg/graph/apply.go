package graph

import (
	"time"

	"github.com/loom-graph/loom/pkg/common"
)

// Apply merges one validated extraction into the graph and returns the
// resulting state. The input graph is cloned, never mutated, so callers
// can keep the pre-call state for diffing or rollback.
//
// Merge rules for an item already present under the same normalized id:
// occurrences are append-only, aliases and domains are set unions, the
// description is replaced only by a strictly longer candidate, and
// significance follows the monotonic promotion rule.
func Apply(
	g *common.KnowledgeGraph,
	res *ExtractionResult,
	doc common.Document,
) *common.KnowledgeGraph {
	out := g.Clone()

	occurrence := func(context string, sig common.Significance) common.Occurrence {
		return common.Occurrence{
			DocumentTitle:     doc.Title,
			DocumentDate:      doc.Date,
			Context:           context,
			LocalSignificance: sig,
		}
	}

	for _, cand := range res.Entities {
		id := common.NormalizeID(cand.Name)
		if id == "" {
			continue
		}

		e, ok := out.Entities[id]
		if !ok {
			out.Entities[id] = &common.Entity{
				ID:                     id,
				Name:                   cand.Name,
				Type:                   cand.Type,
				Description:            cand.Description,
				Aliases:                common.UnionStrings(nil, cand.Aliases...),
				Occurrences:            []common.Occurrence{occurrence(cand.ContextInThisPost, cand.Significance)},
				FirstSeenDocumentTitle: doc.Title,
				Significance:           cand.Significance,
			}
			continue
		}

		e.Occurrences = append(e.Occurrences, occurrence(cand.ContextInThisPost, cand.Significance))
		e.Aliases = common.UnionStrings(e.Aliases, cand.Aliases...)
		if cand.Name != e.Name {
			e.Aliases = common.UnionStrings(e.Aliases, cand.Name)
		}
		if len(cand.Description) > len(e.Description) {
			e.Description = cand.Description
		}
		e.Significance = common.PromoteSignificance(e.Significance, len(e.Occurrences))
	}

	for _, cand := range res.Concepts {
		id := common.NormalizeID(cand.Name)
		if id == "" {
			continue
		}

		c, ok := out.Concepts[id]
		if !ok {
			out.Concepts[id] = &common.Concept{
				ID:                     id,
				Name:                   cand.Name,
				Description:            cand.Description,
				Domains:                common.UnionStrings(nil, cand.Domains...),
				AlternateTerms:         common.UnionStrings(nil, cand.AlternateTerms...),
				Occurrences:            []common.Occurrence{occurrence(cand.ContextInThisPost, cand.Significance)},
				FirstSeenDocumentTitle: doc.Title,
				Significance:           cand.Significance,
			}
			continue
		}

		c.Occurrences = append(c.Occurrences, occurrence(cand.ContextInThisPost, cand.Significance))
		c.Domains = common.UnionStrings(c.Domains, cand.Domains...)
		c.AlternateTerms = common.UnionStrings(c.AlternateTerms, cand.AlternateTerms...)
		if cand.Name != c.Name {
			c.AlternateTerms = common.UnionStrings(c.AlternateTerms, cand.Name)
		}
		if len(cand.Description) > len(c.Description) {
			c.Description = cand.Description
		}
		if cand.EvolutionNote != "" {
			c.Evolution = append(c.Evolution, common.EvolutionNote{
				DocumentTitle: doc.Title,
				DocumentDate:  doc.Date,
				Note:          cand.EvolutionNote,
			})
		}
		c.Significance = common.PromoteSignificance(c.Significance, len(c.Occurrences))
	}

	for _, cand := range res.Relationships {
		sourceID := common.NormalizeID(cand.Source)
		targetID := common.NormalizeID(cand.Target)
		if sourceID == "" || targetID == "" || sourceID == targetID {
			// Self-loops are semantically meaningless, reject at the boundary.
			continue
		}

		evidence := cand.Evidence
		if evidence == "" {
			evidence = doc.Title
		}

		id := common.RelationshipID(sourceID, cand.Type, targetID)
		if existing := findRelationship(out, id); existing != nil {
			existing.Evidence = common.UnionStrings(existing.Evidence, evidence)
			if len(cand.Description) > len(existing.Description) {
				existing.Description = cand.Description
			}
		} else {
			out.Relationships = append(out.Relationships, common.Relationship{
				ID:          id,
				SourceID:    sourceID,
				TargetID:    targetID,
				Type:        cand.Type,
				Description: cand.Description,
				Evidence:    []string{evidence},
			})
		}

		linkRelated(out, sourceID, targetID)
	}

	out.Metadata.TotalDocumentsProcessed++
	widenDateRange(&out.Metadata.DateRange, doc.Date)
	out.Metadata.LastUpdated = time.Now().UTC()

	return out
}

func findRelationship(g *common.KnowledgeGraph, id string) *common.Relationship {
	for i := range g.Relationships {
		if g.Relationships[i].ID == id {
			return &g.Relationships[i]
		}
	}
	return nil
}

// linkRelated registers a relationship's endpoints in each other's
// related-id sets, in both directions. This denormalized cross-index lets
// consumers render "related to" lists without scanning the relationship
// list. Ids that resolve to nothing yet are ignored; a later verification
// pass reconciles them.
func linkRelated(g *common.KnowledgeGraph, a, b string) {
	aEntity, aIsEntity := g.Entities[a]
	aConcept, aIsConcept := g.Concepts[a]
	bEntity, bIsEntity := g.Entities[b]
	bConcept, bIsConcept := g.Concepts[b]

	if aIsEntity {
		if bIsEntity {
			aEntity.RelatedEntityIDs = common.UnionStrings(aEntity.RelatedEntityIDs, b)
		}
		if bIsConcept {
			aEntity.RelatedConceptIDs = common.UnionStrings(aEntity.RelatedConceptIDs, b)
		}
	}
	if aIsConcept {
		if bIsEntity {
			aConcept.RelatedEntityIDs = common.UnionStrings(aConcept.RelatedEntityIDs, b)
		}
		if bIsConcept {
			aConcept.RelatedConceptIDs = common.UnionStrings(aConcept.RelatedConceptIDs, b)
		}
	}
	if bIsEntity {
		if aIsEntity {
			bEntity.RelatedEntityIDs = common.UnionStrings(bEntity.RelatedEntityIDs, a)
		}
		if aIsConcept {
			bEntity.RelatedConceptIDs = common.UnionStrings(bEntity.RelatedConceptIDs, a)
		}
	}
	if bIsConcept {
		if aIsEntity {
			bConcept.RelatedEntityIDs = common.UnionStrings(bConcept.RelatedEntityIDs, a)
		}
		if aIsConcept {
			bConcept.RelatedConceptIDs = common.UnionStrings(bConcept.RelatedConceptIDs, a)
		}
	}
}

// widenDateRange grows the range to include date; it never shrinks.
// ISO-8601 date strings compare correctly as plain strings.
func widenDateRange(r *common.DateRange, date string) {
	if date == "" {
		return
	}
	if r.Earliest == "" || date < r.Earliest {
		r.Earliest = date
	}
	if r.Latest == "" || date > r.Latest {
		r.Latest = date
	}
}
