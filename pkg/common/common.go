package common

import "time"

// Significance is a coarse importance tier derived from how often an item
// appears across the corpus, or set explicitly by a verification pass.
type Significance string

const (
	SignificanceMajor    Significance = "major"
	SignificanceModerate Significance = "moderate"
	SignificanceMinor    Significance = "minor"
)

var significanceRank = map[Significance]int{
	SignificanceMinor:    1,
	SignificanceModerate: 2,
	SignificanceMajor:    3,
}

// Rank returns the ordering of a significance tier (minor < moderate < major).
// Unknown values rank below minor.
func (s Significance) Rank() int {
	return significanceRank[s]
}

// EntityType classifies a concrete named thing tracked across documents.
type EntityType string

const (
	EntityTypePerson       EntityType = "person"
	EntityTypeOrganization EntityType = "organization"
	EntityTypePlace        EntityType = "place"
	EntityTypeWork         EntityType = "work"
	EntityTypeEvent        EntityType = "event"
	EntityTypeOther        EntityType = "other"
)

// RelationType describes how the source of a relationship relates to its target.
type RelationType string

const (
	RelationInfluences  RelationType = "influences"
	RelationCritiques   RelationType = "critiques"
	RelationExtends     RelationType = "extends"
	RelationOpposes     RelationType = "opposes"
	RelationApplies     RelationType = "applies"
	RelationCites       RelationType = "cites"
	RelationDevelops    RelationType = "develops"
	RelationSynthesizes RelationType = "synthesizes"
	RelationRelated     RelationType = "related"
)

// Document is one corpus input, ordered by date before processing.
// Date is an ISO-8601 string and may be synthesized by the loader.
type Document struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	Content   string `json:"content"`
	WordCount int    `json:"wordCount"`
}

// Occurrence records one document's contribution of context to an
// existing entity or concept.
type Occurrence struct {
	DocumentTitle     string       `json:"documentTitle"`
	DocumentDate      string       `json:"documentDate"`
	Context           string       `json:"context"`
	LocalSignificance Significance `json:"localSignificance"`
}

// EvolutionNote captures how a concept's meaning shifted in one document.
type EvolutionNote struct {
	DocumentTitle string `json:"documentTitle"`
	DocumentDate  string `json:"documentDate"`
	Note          string `json:"note"`
}

// Entity is a node in the graph representing a person, organization,
// place, work, or event. Occurrences are append-only; aliases and
// related-id sets are union-accumulated.
type Entity struct {
	ID                     string       `json:"id"`
	Name                   string       `json:"name"`
	Type                   EntityType   `json:"type"`
	Description            string       `json:"description"`
	Aliases                []string     `json:"aliases"`
	Occurrences            []Occurrence `json:"occurrences"`
	RelatedEntityIDs       []string     `json:"relatedEntityIds"`
	RelatedConceptIDs      []string     `json:"relatedConceptIds"`
	FirstSeenDocumentTitle string       `json:"firstSeenDocumentTitle"`
	Significance           Significance `json:"significance"`
}

// Concept is an abstract idea, theory, or terminology tracked across
// documents. It carries the same merge shape as Entity plus subject-area
// domains, alternate terms, and an evolution history.
type Concept struct {
	ID                     string          `json:"id"`
	Name                   string          `json:"name"`
	Description            string          `json:"description"`
	Domains                []string        `json:"domains"`
	AlternateTerms         []string        `json:"alternateTerms"`
	Occurrences            []Occurrence    `json:"occurrences"`
	Evolution              []EvolutionNote `json:"evolution"`
	RelatedEntityIDs       []string        `json:"relatedEntityIds"`
	RelatedConceptIDs      []string        `json:"relatedConceptIds"`
	FirstSeenDocumentTitle string          `json:"firstSeenDocumentTitle"`
	Significance           Significance    `json:"significance"`
}

// Relationship is a directed edge between two graph items. Its identity is
// the (SourceID, Type, TargetID) triple; repeated extractions of the same
// triple accumulate evidence instead of creating duplicates.
type Relationship struct {
	ID          string       `json:"id"`
	SourceID    string       `json:"sourceId"`
	TargetID    string       `json:"targetId"`
	Type        RelationType `json:"type"`
	Description string       `json:"description"`
	Evidence    []string     `json:"evidence"`
}

// DateRange tracks the earliest and latest processed document dates.
type DateRange struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}

// GraphMetadata carries bookkeeping updated after every applied document.
type GraphMetadata struct {
	TotalDocumentsProcessed int       `json:"totalDocumentsProcessed"`
	DateRange               DateRange `json:"dateRange"`
	LastUpdated             time.Time `json:"lastUpdated"`
}

// KnowledgeGraph is the cumulative graph built from the corpus. Entities
// and concepts live in separate maps keyed by normalized id, so a name
// that normalizes identically in both namespaces never collides.
type KnowledgeGraph struct {
	Entities      map[string]*Entity  `json:"entities"`
	Concepts      map[string]*Concept `json:"concepts"`
	Relationships []Relationship      `json:"relationships"`
	Metadata      GraphMetadata       `json:"metadata"`
}

// NewKnowledgeGraph returns an empty graph with initialized maps.
func NewKnowledgeGraph() *KnowledgeGraph {
	return &KnowledgeGraph{
		Entities: make(map[string]*Entity),
		Concepts: make(map[string]*Concept),
	}
}

// Clone returns a deep copy of the graph. Apply and consolidation mutate
// an owned copy so callers can retain the pre-call state for diffing.
func (g *KnowledgeGraph) Clone() *KnowledgeGraph {
	out := &KnowledgeGraph{
		Entities:      make(map[string]*Entity, len(g.Entities)),
		Concepts:      make(map[string]*Concept, len(g.Concepts)),
		Relationships: make([]Relationship, len(g.Relationships)),
		Metadata:      g.Metadata,
	}
	for id, e := range g.Entities {
		c := *e
		c.Aliases = append([]string(nil), e.Aliases...)
		c.Occurrences = append([]Occurrence(nil), e.Occurrences...)
		c.RelatedEntityIDs = append([]string(nil), e.RelatedEntityIDs...)
		c.RelatedConceptIDs = append([]string(nil), e.RelatedConceptIDs...)
		out.Entities[id] = &c
	}
	for id, co := range g.Concepts {
		c := *co
		c.Domains = append([]string(nil), co.Domains...)
		c.AlternateTerms = append([]string(nil), co.AlternateTerms...)
		c.Occurrences = append([]Occurrence(nil), co.Occurrences...)
		c.Evolution = append([]EvolutionNote(nil), co.Evolution...)
		c.RelatedEntityIDs = append([]string(nil), co.RelatedEntityIDs...)
		c.RelatedConceptIDs = append([]string(nil), co.RelatedConceptIDs...)
		out.Concepts[id] = &c
	}
	for i, r := range g.Relationships {
		r.Evidence = append([]string(nil), r.Evidence...)
		out.Relationships[i] = r
	}
	return out
}

// UnionStrings appends the values from add that are not already present,
// preserving insertion order. Empty strings are dropped.
func UnionStrings(base []string, add ...string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, v := range base {
		seen[v] = struct{}{}
	}
	for _, v := range add {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		base = append(base, v)
	}
	return base
}

// PromoteSignificance applies the monotonic promotion rule: five or more
// occurrences force major, two or more force at least moderate. The tier
// is never lowered here; only an explicit verification update may demote.
func PromoteSignificance(current Significance, occurrences int) Significance {
	if current.Rank() == 0 {
		current = SignificanceModerate
	}
	switch {
	case occurrences >= 5:
		return SignificanceMajor
	case occurrences >= 2 && current.Rank() < SignificanceModerate.Rank():
		return SignificanceModerate
	default:
		return current
	}
}
