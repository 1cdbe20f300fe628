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

type integrationMerge struct {
	Keep   string `json:"keep" jsonschema_description:"Id of the item to keep"`
	Merge  string `json:"merge" jsonschema_description:"Id of the duplicate item to absorb into keep"`
	Reason string `json:"reason" jsonschema_description:"Why these two items are the same thing"`
}

type integrationRelationship struct {
	Source      string `json:"source" jsonschema_description:"Id of the source entity or concept"`
	Target      string `json:"target" jsonschema_description:"Id of the target entity or concept"`
	Type        string `json:"type" jsonschema_description:"One of: influences, critiques, extends, opposes, applies, cites, develops, synthesizes, related"`
	Description string `json:"description" jsonschema_description:"Why the source relates to the target"`
	Evidence    string `json:"evidence" jsonschema_description:"Quote or observation from the aggregate view supporting the relationship"`
}

type integrationSignificance struct {
	ID           string `json:"id" jsonschema_description:"Id of the entity or concept to re-rate"`
	Significance string `json:"significance" jsonschema_description:"One of: major, moderate, minor"`
}

type integrationDescription struct {
	ID          string `json:"id" jsonschema_description:"Id of the entity or concept to update"`
	Description string `json:"description" jsonschema_description:"Improved description replacing the stored one"`
}

type integrationResponse struct {
	Merges              []integrationMerge        `json:"merges" jsonschema_description:"Pairs of duplicate items to merge"`
	NewRelationships    []integrationRelationship `json:"new_relationships" jsonschema_description:"Relationships visible only from the aggregate view"`
	UpdatedSignificance []integrationSignificance `json:"updated_significance" jsonschema_description:"Items whose significance rating should change"`
	DescriptionUpdates  []integrationDescription  `json:"description_updates" jsonschema_description:"Items whose description should be replaced"`
}

// MergeInstruction directs the consolidation engine to absorb one item
// into another. Both ids are normalized; the pair may target either the
// entity or the concept namespace.
type MergeInstruction struct {
	Keep   string
	Merge  string
	Reason string
}

// SignificanceUpdate is a direct overwrite of an item's tier. Unlike the
// occurrence-count rule this may demote; the verifier is trusted.
type SignificanceUpdate struct {
	ID           string
	Significance common.Significance
}

// DescriptionUpdate replaces an item's stored description outright.
type DescriptionUpdate struct {
	ID          string
	Description string
}

// IntegrationResult is the validated correction set returned by one
// verification pass. It only consolidates or connects existing items,
// never introduces raw extractions.
type IntegrationResult struct {
	Merges              []MergeInstruction
	NewRelationships    []RelationshipCandidate
	UpdatedSignificance []SignificanceUpdate
	DescriptionUpdates  []DescriptionUpdate
}

func coerceIntegration(res integrationResponse) *IntegrationResult {
	out := &IntegrationResult{}

	for _, m := range res.Merges {
		keep := common.NormalizeID(m.Keep)
		merge := common.NormalizeID(m.Merge)
		if keep == "" || merge == "" || keep == merge {
			continue
		}
		out.Merges = append(out.Merges, MergeInstruction{
			Keep:   keep,
			Merge:  merge,
			Reason: strings.TrimSpace(m.Reason),
		})
	}

	for _, r := range res.NewRelationships {
		source := strings.TrimSpace(r.Source)
		target := strings.TrimSpace(r.Target)
		if source == "" || target == "" {
			continue
		}
		out.NewRelationships = append(out.NewRelationships, RelationshipCandidate{
			Source:      source,
			Target:      target,
			Type:        coerceRelationType(r.Type),
			Description: strings.TrimSpace(r.Description),
			Evidence:    strings.TrimSpace(r.Evidence),
		})
	}

	for _, s := range res.UpdatedSignificance {
		id := common.NormalizeID(s.ID)
		sig := common.Significance(strings.ToLower(strings.TrimSpace(s.Significance)))
		if id == "" || sig.Rank() == 0 {
			continue
		}
		out.UpdatedSignificance = append(out.UpdatedSignificance, SignificanceUpdate{
			ID:           id,
			Significance: sig,
		})
	}

	for _, d := range res.DescriptionUpdates {
		id := common.NormalizeID(d.ID)
		desc := strings.TrimSpace(d.Description)
		if id == "" || desc == "" {
			continue
		}
		out.DescriptionUpdates = append(out.DescriptionUpdates, DescriptionUpdate{
			ID:          id,
			Description: desc,
		})
	}

	return out
}

// VerifyIntegration runs one verification pass over the accumulated graph,
// giving the model a bounded snapshot plus the titles processed since the
// last pass. Unparseable output degrades to an empty correction set.
func (g *GraphClient) VerifyIntegration(
	ctx context.Context,
	client ai.ModelClient,
	graph *common.KnowledgeGraph,
	recentTitles []string,
) (*IntegrationResult, error) {
	snapshot, err := graphSnapshot(graph)
	if err != nil {
		return nil, fmt.Errorf("snapshot failed: %w", err)
	}

	prompt := fmt.Sprintf(
		ai.IntegratePrompt,
		snapshot,
		"- "+strings.Join(recentTitles, "\n- "),
	)

	res, err := util.RetryWithBackoff(
		ctx, g.maxRetries, g.retryBaseDelay,
		func(ctx context.Context) (integrationResponse, error) {
			callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
			defer cancel()

			var r integrationResponse
			err := client.GenerateCompletionWithFormat(
				callCtx,
				"consolidate_graph",
				"Review the accumulated knowledge graph for duplicates, missing relationships and stale ratings.",
				prompt,
				&r,
			)
			if err != nil && callCtx.Err() != nil && ctx.Err() == nil {
				return r, fmt.Errorf("verification call timed out after %s", g.callTimeout)
			}
			return r, err
		},
	)

	if delayErr := util.Sleep(ctx, g.postCallDelay); delayErr != nil {
		return nil, delayErr
	}

	if err != nil {
		if errors.Is(err, ai.ErrMalformedResponse) {
			logger.Warn("discarding unparseable verification output", "err", err)
			return &IntegrationResult{}, nil
		}
		return nil, fmt.Errorf("integration verification failed: %w", err)
	}

	return coerceIntegration(res), nil
}
