package graph

import (
	"testing"

	"github.com/loom-graph/loom/pkg/common"
)

func grimesGraph() *common.KnowledgeGraph {
	g := common.NewKnowledgeGraph()
	g = Apply(g, &ExtractionResult{
		Entities: []EntityCandidate{entityCandidate("Jean Baudrillard", common.SignificanceMinor)},
	}, doc("Doc0", "2018-12-01"))

	for _, d := range []string{"2019-01-01", "2019-02-01", "2019-03-01"} {
		g = Apply(g, &ExtractionResult{
			Entities: []EntityCandidate{entityCandidate("Grimes", common.SignificanceMinor)},
		}, doc("Post "+d, d))
	}
	for _, d := range []string{"2019-04-01", "2019-05-01"} {
		res := &ExtractionResult{
			Entities: []EntityCandidate{entityCandidate("Claire Boucher", common.SignificanceMinor)},
		}
		if d == "2019-05-01" {
			res.Relationships = []RelationshipCandidate{{
				Source: "Claire Boucher",
				Target: "Jean Baudrillard",
				Type:   common.RelationCites,
			}}
		}
		g = Apply(g, res, doc("Post "+d, d))
	}
	return g
}

func TestConsolidateGrimesScenario(t *testing.T) {
	g := grimesGraph()
	got := ApplyIntegration(g, &IntegrationResult{
		Merges: []MergeInstruction{{Keep: "grimes", Merge: "claire-boucher", Reason: "same person"}},
	})

	if _, ok := got.Entities["claire-boucher"]; ok {
		t.Error("claire-boucher still present after merge")
	}
	e, ok := got.Entities["grimes"]
	if !ok {
		t.Fatal("grimes missing after merge")
	}
	if len(e.Occurrences) != 5 {
		t.Errorf("occurrences = %d, want 5", len(e.Occurrences))
	}
	hasAlias := false
	for _, a := range e.Aliases {
		if a == "Claire Boucher" {
			hasAlias = true
		}
	}
	if !hasAlias {
		t.Errorf("aliases = %v, want Claire Boucher", e.Aliases)
	}
	if e.Significance != common.SignificanceMajor {
		t.Errorf("significance = %s, want major after 5 occurrences", e.Significance)
	}

	found := false
	for _, r := range got.Relationships {
		if r.SourceID == "claire-boucher" || r.TargetID == "claire-boucher" {
			t.Errorf("relationship still references claire-boucher: %+v", r)
		}
		if r.SourceID == "grimes" && r.Type == common.RelationCites && r.TargetID == "jean-baudrillard" {
			found = true
		}
	}
	if !found {
		t.Errorf("rewritten (grimes, cites, jean-baudrillard) missing: %+v", got.Relationships)
	}

	// Input graph must stay untouched.
	if _, ok := g.Entities["claire-boucher"]; !ok {
		t.Error("input graph mutated by consolidation")
	}
}

func TestConsolidateTransitiveChain(t *testing.T) {
	g := common.NewKnowledgeGraph()
	for _, name := range []string{"A Band", "B Band", "C Band"} {
		g = Apply(g, &ExtractionResult{
			Entities: []EntityCandidate{entityCandidate(name, common.SignificanceMinor)},
		}, doc("Doc "+name, "2019-01-01"))
	}
	g = Apply(g, &ExtractionResult{
		Relationships: []RelationshipCandidate{{
			Source: "A Band", Target: "C Band", Type: common.RelationRelated,
		}},
	}, doc("Doc rel", "2019-02-01"))

	got := ApplyIntegration(g, &IntegrationResult{
		Merges: []MergeInstruction{
			{Keep: "b-band", Merge: "a-band"},
			{Keep: "c-band", Merge: "b-band"},
		},
	})

	if len(got.Entities) != 1 {
		t.Fatalf("entities = %d, want 1 after chained merges", len(got.Entities))
	}
	survivor, ok := got.Entities["c-band"]
	if !ok {
		t.Fatal("c-band missing, chain resolved to wrong survivor")
	}
	if len(survivor.Occurrences) != 3 {
		t.Errorf("occurrences = %d, want 3", len(survivor.Occurrences))
	}
	// The (a-band, related, c-band) edge collapses into a self-loop once
	// the chain resolves, so it must be dropped.
	if len(got.Relationships) != 0 {
		t.Errorf("relationships = %v, want none", got.Relationships)
	}
}

func TestConsolidateSkipsMissingIDs(t *testing.T) {
	g := grimesGraph()
	got := ApplyIntegration(g, &IntegrationResult{
		Merges: []MergeInstruction{
			{Keep: "grimes", Merge: "nobody-here"},
			{Keep: "grimes", Merge: "claire-boucher"},
		},
	})

	if _, ok := got.Entities["claire-boucher"]; ok {
		t.Error("valid merge skipped because an earlier instruction was bad")
	}
	if len(got.Entities["grimes"].Occurrences) != 5 {
		t.Errorf("occurrences = %d, want 5", len(got.Entities["grimes"].Occurrences))
	}
}

func TestConsolidateRelationshipDedupAfterRewrite(t *testing.T) {
	g := common.NewKnowledgeGraph()
	g = Apply(g, &ExtractionResult{
		Entities: []EntityCandidate{
			entityCandidate("Grimes", common.SignificanceMinor),
			entityCandidate("Claire Boucher", common.SignificanceMinor),
			entityCandidate("Jean Baudrillard", common.SignificanceMinor),
		},
		Relationships: []RelationshipCandidate{
			{Source: "Grimes", Target: "Jean Baudrillard", Type: common.RelationCites, Evidence: "first"},
			{Source: "Claire Boucher", Target: "Jean Baudrillard", Type: common.RelationCites, Evidence: "second"},
		},
	}, doc("Doc1", "2019-01-02"))

	got := ApplyIntegration(g, &IntegrationResult{
		Merges: []MergeInstruction{{Keep: "grimes", Merge: "claire-boucher"}},
	})

	if len(got.Relationships) != 1 {
		t.Fatalf("relationships = %d, want 1 after dedup", len(got.Relationships))
	}
	r := got.Relationships[0]
	if r.ID != "grimes|cites|jean-baudrillard" {
		t.Errorf("id = %q", r.ID)
	}
	if len(r.Evidence) != 2 {
		t.Errorf("evidence = %v, want both retained", r.Evidence)
	}
}

func TestConsolidateSignificanceMayDemote(t *testing.T) {
	g := grimesGraph()
	got := ApplyIntegration(g, &IntegrationResult{
		UpdatedSignificance: []SignificanceUpdate{{ID: "grimes", Significance: common.SignificanceMinor}},
	})

	if got.Entities["grimes"].Significance != common.SignificanceMinor {
		t.Errorf("significance = %s, want minor (verifier overrides the promotion rule)",
			got.Entities["grimes"].Significance)
	}
}

func TestConsolidateDescriptionUpdate(t *testing.T) {
	g := grimesGraph()
	got := ApplyIntegration(g, &IntegrationResult{
		DescriptionUpdates: []DescriptionUpdate{{ID: "grimes", Description: "x"}},
	})

	// Unlike apply, the verifier's description replaces even a longer one.
	if got.Entities["grimes"].Description != "x" {
		t.Errorf("description = %q, want overwritten", got.Entities["grimes"].Description)
	}
}

func TestConsolidateNewRelationships(t *testing.T) {
	g := grimesGraph()
	got := ApplyIntegration(g, &IntegrationResult{
		NewRelationships: []RelationshipCandidate{
			{Source: "grimes", Target: "jean-baudrillard", Type: common.RelationApplies, Evidence: "aggregate view"},
			{Source: "grimes", Target: "grimes", Type: common.RelationRelated},
		},
	})

	count := 0
	for _, r := range got.Relationships {
		if r.Type == common.RelationApplies {
			count++
			if len(r.Evidence) != 1 || r.Evidence[0] != "aggregate view" {
				t.Errorf("evidence = %v", r.Evidence)
			}
		}
		if r.SourceID == r.TargetID {
			t.Errorf("self-loop admitted: %+v", r)
		}
	}
	if count != 1 {
		t.Errorf("applies relationships = %d, want 1", count)
	}
}
