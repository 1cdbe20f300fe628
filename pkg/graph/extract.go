package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/loom-graph/loom/internal/util"
	"github.com/loom-graph/loom/pkg/ai"
	"github.com/loom-graph/loom/pkg/common"
	"github.com/loom-graph/loom/pkg/logger"
)

type extractEntity struct {
	Name              string   `json:"name" jsonschema_description:"Canonical name of the entity"`
	Type              string   `json:"type" jsonschema_description:"One of: person, organization, place, work, event, other"`
	Description       string   `json:"description" jsonschema_description:"What this post reveals about the entity"`
	Aliases           []string `json:"aliases" jsonschema_description:"Alternate names used for this entity"`
	IsNew             bool     `json:"is_new" jsonschema_description:"False when the entity already appears in the graph summary"`
	ContextInThisPost string   `json:"context_in_this_post" jsonschema_description:"How this post discusses the entity"`
	Significance      string   `json:"significance" jsonschema_description:"One of: major, moderate, minor - judged within this post"`
}

type extractConcept struct {
	Name              string   `json:"name" jsonschema_description:"Canonical name of the concept"`
	Description       string   `json:"description" jsonschema_description:"What this post reveals about the concept"`
	Domains           []string `json:"domains" jsonschema_description:"Subject areas the concept belongs to"`
	AlternateTerms    []string `json:"alternate_terms" jsonschema_description:"Alternate terminology for this concept"`
	IsNew             bool     `json:"is_new" jsonschema_description:"False when the concept already appears in the graph summary"`
	ContextInThisPost string   `json:"context_in_this_post" jsonschema_description:"How this post discusses the concept"`
	EvolutionNote     string   `json:"evolution_note" jsonschema_description:"Only for known concepts: how this post shifts the concept's meaning"`
	Significance      string   `json:"significance" jsonschema_description:"One of: major, moderate, minor - judged within this post"`
}

type extractRelationship struct {
	Source      string `json:"source" jsonschema_description:"Name of the source entity or concept"`
	Target      string `json:"target" jsonschema_description:"Name of the target entity or concept"`
	Type        string `json:"type" jsonschema_description:"One of: influences, critiques, extends, opposes, applies, cites, develops, synthesizes, related"`
	Description string `json:"description" jsonschema_description:"Why the source relates to the target"`
	Evidence    string `json:"evidence" jsonschema_description:"Short quote or summary from the post supporting the relationship"`
}

type extractResponse struct {
	Entities      []extractEntity       `json:"entities" jsonschema_description:"Entities identified in the post"`
	Concepts      []extractConcept      `json:"concepts" jsonschema_description:"Concepts identified in the post"`
	Relationships []extractRelationship `json:"relationships" jsonschema_description:"Relationships identified in the post"`
}

// EntityCandidate is one validated entity proposal from an extraction.
type EntityCandidate struct {
	Name              string
	Type              common.EntityType
	Description       string
	Aliases           []string
	IsNew             bool
	ContextInThisPost string
	Significance      common.Significance
}

// ConceptCandidate is one validated concept proposal from an extraction.
// EvolutionNote is empty unless the model flagged a meaning shift for a
// concept it believes already exists.
type ConceptCandidate struct {
	Name              string
	Description       string
	Domains           []string
	AlternateTerms    []string
	IsNew             bool
	ContextInThisPost string
	EvolutionNote     string
	Significance      common.Significance
}

// RelationshipCandidate is one validated relationship proposal. Source and
// Target are display names; normalization to ids happens at apply time.
type RelationshipCandidate struct {
	Source      string
	Target      string
	Type        common.RelationType
	Description string
	Evidence    string
}

// ExtractionResult is the validated output of one per-document extraction
// call. A hard parse failure yields the zero value, never an error.
type ExtractionResult struct {
	Entities      []EntityCandidate
	Concepts      []ConceptCandidate
	Relationships []RelationshipCandidate
}

var validEntityTypes = map[string]common.EntityType{
	"person":       common.EntityTypePerson,
	"organization": common.EntityTypeOrganization,
	"place":        common.EntityTypePlace,
	"work":         common.EntityTypeWork,
	"event":        common.EntityTypeEvent,
	"other":        common.EntityTypeOther,
}

var validRelationTypes = map[string]common.RelationType{
	"influences":  common.RelationInfluences,
	"critiques":   common.RelationCritiques,
	"extends":     common.RelationExtends,
	"opposes":     common.RelationOpposes,
	"applies":     common.RelationApplies,
	"cites":       common.RelationCites,
	"develops":    common.RelationDevelops,
	"synthesizes": common.RelationSynthesizes,
	"related":     common.RelationRelated,
}

func coerceEntityType(raw string) common.EntityType {
	if t, ok := validEntityTypes[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return t
	}
	return common.EntityTypeOther
}

func coerceSignificance(raw string) common.Significance {
	s := common.Significance(strings.ToLower(strings.TrimSpace(raw)))
	if s.Rank() == 0 {
		return common.SignificanceModerate
	}
	return s
}

func coerceRelationType(raw string) common.RelationType {
	if t, ok := validRelationTypes[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return t
	}
	return common.RelationRelated
}

// coerceExtraction validates a raw model response field by field with safe
// defaults. A bad field degrades that one item, never the whole result.
func coerceExtraction(res extractResponse) *ExtractionResult {
	out := &ExtractionResult{}

	for _, e := range res.Entities {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		out.Entities = append(out.Entities, EntityCandidate{
			Name:              name,
			Type:              coerceEntityType(e.Type),
			Description:       strings.TrimSpace(e.Description),
			Aliases:           common.UnionStrings(nil, e.Aliases...),
			IsNew:             e.IsNew,
			ContextInThisPost: strings.TrimSpace(e.ContextInThisPost),
			Significance:      coerceSignificance(e.Significance),
		})
	}

	for _, c := range res.Concepts {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		out.Concepts = append(out.Concepts, ConceptCandidate{
			Name:              name,
			Description:       strings.TrimSpace(c.Description),
			Domains:           common.UnionStrings(nil, c.Domains...),
			AlternateTerms:    common.UnionStrings(nil, c.AlternateTerms...),
			IsNew:             c.IsNew,
			ContextInThisPost: strings.TrimSpace(c.ContextInThisPost),
			EvolutionNote:     strings.TrimSpace(c.EvolutionNote),
			Significance:      coerceSignificance(c.Significance),
		})
	}

	for _, r := range res.Relationships {
		source := strings.TrimSpace(r.Source)
		target := strings.TrimSpace(r.Target)
		if source == "" || target == "" {
			continue
		}
		out.Relationships = append(out.Relationships, RelationshipCandidate{
			Source:      source,
			Target:      target,
			Type:        coerceRelationType(r.Type),
			Description: strings.TrimSpace(r.Description),
			Evidence:    strings.TrimSpace(r.Evidence),
		})
	}

	return out
}

// ExtractFromDocument runs one extraction call for doc against the current
// graph state. Transient failures are retried with exponential backoff;
// output that stays unparseable degrades to an empty result so one bad
// document never halts a run. A fixed delay follows every call to respect
// external rate limits.
func (g *GraphClient) ExtractFromDocument(
	ctx context.Context,
	client ai.ModelClient,
	graph *common.KnowledgeGraph,
	doc common.Document,
) (*ExtractionResult, error) {
	prompt := fmt.Sprintf(
		ai.ExtractPrompt,
		contextSummary(graph),
		doc.Title,
		doc.Date,
		doc.Content,
	)

	res, err := util.RetryWithBackoff(
		ctx, g.maxRetries, g.retryBaseDelay,
		func(ctx context.Context) (extractResponse, error) {
			callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
			defer cancel()

			var r extractResponse
			err := client.GenerateCompletionWithFormat(
				callCtx,
				"extract_graph_items",
				"Extract entities, concepts and relationships from one blog post.",
				prompt,
				&r,
			)
			if err != nil && callCtx.Err() != nil && ctx.Err() == nil {
				// Per-call timeout, retryable; only parent cancellation aborts.
				return r, fmt.Errorf("extraction call timed out after %s", g.callTimeout)
			}
			return r, err
		},
	)

	if delayErr := util.Sleep(ctx, g.postCallDelay); delayErr != nil {
		return nil, delayErr
	}

	if err != nil {
		if errors.Is(err, ai.ErrMalformedResponse) {
			logger.Warn("discarding unparseable extraction",
				"document", doc.Title, "err", err)
			return &ExtractionResult{}, nil
		}
		return nil, fmt.Errorf("extraction failed for %q: %w", doc.Title, err)
	}

	return coerceExtraction(res), nil
}
