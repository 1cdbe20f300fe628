package graph

import (
	"testing"

	"github.com/loom-graph/loom/pkg/common"
)

func doc(title, date string) common.Document {
	return common.Document{
		ID:      common.NormalizeID(title),
		Title:   title,
		Date:    date,
		Content: "content of " + title,
	}
}

func entityCandidate(name string, sig common.Significance) EntityCandidate {
	return EntityCandidate{
		Name:              name,
		Type:              common.EntityTypePerson,
		Description:       "a description of " + name,
		IsNew:             true,
		ContextInThisPost: "mentioned in passing",
		Significance:      sig,
	}
}

func TestApplyCreatesEntity(t *testing.T) {
	g := common.NewKnowledgeGraph()
	res := &ExtractionResult{
		Entities: []EntityCandidate{entityCandidate("Jean Baudrillard", common.SignificanceMinor)},
	}

	got := Apply(g, res, doc("Doc1", "2019-01-02"))

	e, ok := got.Entities["jean-baudrillard"]
	if !ok {
		t.Fatalf("expected entity jean-baudrillard, have %v", got.Entities)
	}
	if e.Name != "Jean Baudrillard" {
		t.Errorf("name = %q, want Jean Baudrillard", e.Name)
	}
	if e.FirstSeenDocumentTitle != "Doc1" {
		t.Errorf("firstSeen = %q, want Doc1", e.FirstSeenDocumentTitle)
	}
	if len(e.Occurrences) != 1 {
		t.Errorf("occurrences = %d, want 1", len(e.Occurrences))
	}
	if e.Significance != common.SignificanceMinor {
		t.Errorf("significance = %s, want minor", e.Significance)
	}
	if len(g.Entities) != 0 {
		t.Errorf("input graph mutated: %d entities", len(g.Entities))
	}
}

func TestApplyBaudrillardScenario(t *testing.T) {
	g := common.NewKnowledgeGraph()

	g = Apply(g, &ExtractionResult{
		Entities: []EntityCandidate{entityCandidate("Jean Baudrillard", common.SignificanceMinor)},
	}, doc("Doc1", "2019-01-02"))

	g = Apply(g, &ExtractionResult{
		Entities: []EntityCandidate{entityCandidate("Jean Baudrillard", common.SignificanceMinor)},
		Concepts: []ConceptCandidate{{
			Name:         "Hyperreality",
			Description:  "simulation replacing the real",
			IsNew:        true,
			Significance: common.SignificanceModerate,
		}},
		Relationships: []RelationshipCandidate{{
			Source: "Jean Baudrillard",
			Target: "Hyperreality",
			Type:   common.RelationInfluences,
		}},
	}, doc("Doc2", "2019-02-10"))

	g = Apply(g, &ExtractionResult{}, doc("Doc3", "2019-03-01"))

	e, ok := g.Entities["jean-baudrillard"]
	if !ok {
		t.Fatal("missing entity jean-baudrillard")
	}
	if len(e.Occurrences) != 2 {
		t.Errorf("occurrences = %d, want 2", len(e.Occurrences))
	}
	if e.Significance != common.SignificanceModerate {
		t.Errorf("significance = %s, want moderate", e.Significance)
	}
	if len(g.Relationships) != 1 {
		t.Fatalf("relationships = %d, want 1", len(g.Relationships))
	}
	if len(g.Relationships[0].Evidence) != 1 {
		t.Errorf("evidence = %d, want 1", len(g.Relationships[0].Evidence))
	}
	if g.Metadata.TotalDocumentsProcessed != 3 {
		t.Errorf("documents processed = %d, want 3", g.Metadata.TotalDocumentsProcessed)
	}
}

func TestApplySignificancePromotion(t *testing.T) {
	g := common.NewKnowledgeGraph()
	for i, date := range []string{"2019-01-01", "2019-02-01", "2019-03-01", "2019-04-01", "2019-05-01"} {
		g = Apply(g, &ExtractionResult{
			Entities: []EntityCandidate{entityCandidate("Grimes", common.SignificanceMinor)},
		}, doc("Post", date))

		e := g.Entities["grimes"]
		want := common.SignificanceMinor
		if i >= 1 {
			want = common.SignificanceModerate
		}
		if i >= 4 {
			want = common.SignificanceMajor
		}
		if e.Significance != want {
			t.Errorf("after %d occurrences significance = %s, want %s", i+1, e.Significance, want)
		}
	}
}

func TestApplyRelationshipIdentity(t *testing.T) {
	g := common.NewKnowledgeGraph()
	rel := RelationshipCandidate{
		Source:   "Jean Baudrillard",
		Target:   "Hyperreality",
		Type:     common.RelationInfluences,
		Evidence: "quote one",
	}
	res := &ExtractionResult{
		Entities:      []EntityCandidate{entityCandidate("Jean Baudrillard", common.SignificanceMinor)},
		Concepts:      []ConceptCandidate{{Name: "Hyperreality", Significance: common.SignificanceMinor}},
		Relationships: []RelationshipCandidate{rel},
	}

	g = Apply(g, res, doc("Doc1", "2019-01-02"))

	rel.Evidence = "quote two"
	g = Apply(g, &ExtractionResult{Relationships: []RelationshipCandidate{rel}}, doc("Doc2", "2019-02-10"))

	if len(g.Relationships) != 1 {
		t.Fatalf("relationships = %d, want 1", len(g.Relationships))
	}
	r := g.Relationships[0]
	if r.ID != "jean-baudrillard|influences|hyperreality" {
		t.Errorf("id = %q", r.ID)
	}
	if len(r.Evidence) != 2 {
		t.Errorf("evidence = %d, want 2", len(r.Evidence))
	}
}

func TestApplyRejectsSelfLoops(t *testing.T) {
	g := common.NewKnowledgeGraph()
	g = Apply(g, &ExtractionResult{
		Entities: []EntityCandidate{entityCandidate("Grimes", common.SignificanceMinor)},
		Relationships: []RelationshipCandidate{{
			Source: "Grimes",
			Target: "Grimes!!",
			Type:   common.RelationRelated,
		}},
	}, doc("Doc1", "2019-01-02"))

	if len(g.Relationships) != 0 {
		t.Errorf("relationships = %d, want 0 (self-loop after normalization)", len(g.Relationships))
	}
}

func TestApplySymmetricRelatedSets(t *testing.T) {
	g := common.NewKnowledgeGraph()
	g = Apply(g, &ExtractionResult{
		Entities: []EntityCandidate{entityCandidate("Jean Baudrillard", common.SignificanceMinor)},
		Concepts: []ConceptCandidate{{Name: "Hyperreality", Significance: common.SignificanceMinor}},
		Relationships: []RelationshipCandidate{{
			Source: "Jean Baudrillard",
			Target: "Hyperreality",
			Type:   common.RelationDevelops,
		}},
	}, doc("Doc1", "2019-01-02"))

	e := g.Entities["jean-baudrillard"]
	c := g.Concepts["hyperreality"]
	if len(e.RelatedConceptIDs) != 1 || e.RelatedConceptIDs[0] != "hyperreality" {
		t.Errorf("entity related concepts = %v", e.RelatedConceptIDs)
	}
	if len(c.RelatedEntityIDs) != 1 || c.RelatedEntityIDs[0] != "jean-baudrillard" {
		t.Errorf("concept related entities = %v", c.RelatedEntityIDs)
	}
}

func TestApplyDescriptionLongestWins(t *testing.T) {
	g := common.NewKnowledgeGraph()

	first := entityCandidate("Grimes", common.SignificanceMinor)
	first.Description = "a musician"
	g = Apply(g, &ExtractionResult{Entities: []EntityCandidate{first}}, doc("Doc1", "2019-01-02"))

	shorter := first
	shorter.Description = "artist"
	g = Apply(g, &ExtractionResult{Entities: []EntityCandidate{shorter}}, doc("Doc2", "2019-02-10"))
	if got := g.Entities["grimes"].Description; got != "a musician" {
		t.Errorf("description = %q, want original kept against shorter candidate", got)
	}

	longer := first
	longer.Description = "a Canadian musician and visual artist"
	g = Apply(g, &ExtractionResult{Entities: []EntityCandidate{longer}}, doc("Doc3", "2019-03-01"))
	if got := g.Entities["grimes"].Description; got != longer.Description {
		t.Errorf("description = %q, want longer candidate", got)
	}
}

func TestApplyAliasAccumulation(t *testing.T) {
	g := common.NewKnowledgeGraph()
	g = Apply(g, &ExtractionResult{
		Entities: []EntityCandidate{entityCandidate("Grimes", common.SignificanceMinor)},
	}, doc("Doc1", "2019-01-02"))

	variant := entityCandidate("Grimes!!", common.SignificanceMinor)
	variant.Aliases = []string{"c"}
	g = Apply(g, &ExtractionResult{Entities: []EntityCandidate{variant}}, doc("Doc2", "2019-02-10"))

	e := g.Entities["grimes"]
	if len(g.Entities) != 1 {
		t.Fatalf("entities = %d, want 1 (colliding normalized id)", len(g.Entities))
	}
	wantAliases := map[string]bool{"c": true, "Grimes!!": true}
	for _, a := range e.Aliases {
		delete(wantAliases, a)
	}
	if len(wantAliases) != 0 {
		t.Errorf("aliases = %v, missing %v", e.Aliases, wantAliases)
	}
}

func TestApplyConceptEvolution(t *testing.T) {
	g := common.NewKnowledgeGraph()
	g = Apply(g, &ExtractionResult{
		Concepts: []ConceptCandidate{{Name: "Hyperreality", Significance: common.SignificanceMinor}},
	}, doc("Doc1", "2019-01-02"))

	g = Apply(g, &ExtractionResult{
		Concepts: []ConceptCandidate{{
			Name:          "Hyperreality",
			Significance:  common.SignificanceMinor,
			EvolutionNote: "now applied to social media feeds",
			Domains:       []string{"media theory"},
		}},
	}, doc("Doc2", "2019-02-10"))

	c := g.Concepts["hyperreality"]
	if len(c.Evolution) != 1 {
		t.Fatalf("evolution = %d, want 1", len(c.Evolution))
	}
	if c.Evolution[0].DocumentTitle != "Doc2" {
		t.Errorf("evolution document = %q, want Doc2", c.Evolution[0].DocumentTitle)
	}
	if len(c.Domains) != 1 || c.Domains[0] != "media theory" {
		t.Errorf("domains = %v", c.Domains)
	}
}

func TestApplyDateRangeMonotonic(t *testing.T) {
	g := common.NewKnowledgeGraph()
	dates := []string{"2019-05-01", "2018-03-10", "2021-12-31", "2019-01-01"}
	for _, d := range dates {
		g = Apply(g, &ExtractionResult{}, doc("Post "+d, d))
	}

	if g.Metadata.DateRange.Earliest != "2018-03-10" {
		t.Errorf("earliest = %q, want 2018-03-10", g.Metadata.DateRange.Earliest)
	}
	if g.Metadata.DateRange.Latest != "2021-12-31" {
		t.Errorf("latest = %q, want 2021-12-31", g.Metadata.DateRange.Latest)
	}
}

func TestApplySameDocumentTwice(t *testing.T) {
	g := common.NewKnowledgeGraph()
	res := &ExtractionResult{
		Entities: []EntityCandidate{entityCandidate("Grimes", common.SignificanceMinor)},
	}
	d := doc("Doc1", "2019-01-02")

	g = Apply(g, res, d)
	g = Apply(g, res, d)

	e := g.Entities["grimes"]
	if len(e.Occurrences) != 2 {
		t.Errorf("occurrences = %d, want 2 (re-application is not deduplicated)", len(e.Occurrences))
	}
	if e.Description != "a description of Grimes" {
		t.Errorf("description = %q changed on re-application", e.Description)
	}
	if e.Significance != common.SignificanceModerate {
		t.Errorf("significance = %s, want moderate", e.Significance)
	}
}
