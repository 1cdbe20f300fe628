package graph

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/loom-graph/loom/pkg/ai"
	"github.com/loom-graph/loom/pkg/common"
)

// mockModelClient replays canned responses in order. A response entry may
// be raw model content or an error to simulate a transport failure.
type mockModelClient struct {
	responses []mockResponse
	calls     int
}

type mockResponse struct {
	content string
	err     error
}

func (m *mockModelClient) GenerateCompletion(
	ctx context.Context, prompt string, opts ...ai.GenerateOption,
) (string, error) {
	return "", errors.New("not used")
}

func (m *mockModelClient) GenerateCompletionWithFormat(
	ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption,
) error {
	if m.calls >= len(m.responses) {
		return errors.New("no more canned responses")
	}
	r := m.responses[m.calls]
	m.calls++
	if r.err != nil {
		return r.err
	}
	return ai.UnmarshalFlexible(r.content, out)
}

func (m *mockModelClient) ResetMetrics()               {}
func (m *mockModelClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func testGraphClient(t *testing.T) *GraphClient {
	t.Helper()
	g, err := NewGraphClient(NewGraphClientParams{
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
		PostCallDelay:  -1,
	})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestExtractFromDocument(t *testing.T) {
	client := &mockModelClient{responses: []mockResponse{{content: "```json\n" + `{
		"entities": [
			{"name": "Jean Baudrillard", "type": "person", "description": "French theorist", "is_new": true, "significance": "major"},
			{"name": "  ", "type": "person"},
			{"name": "Mars Colony", "type": "starbase", "significance": "cosmic"}
		],
		"concepts": [
			{"name": "Hyperreality", "description": "simulation", "domains": ["media theory"], "evolution_note": ""}
		],
		"relationships": [
			{"source": "Jean Baudrillard", "target": "Hyperreality", "type": "develops", "evidence": "he coined it"},
			{"source": "Jean Baudrillard", "target": "Hyperreality", "type": "summons"},
			{"source": "", "target": "Hyperreality", "type": "related"}
		]
	}` + "\n```"}}}

	g := testGraphClient(t)
	res, err := g.ExtractFromDocument(context.Background(), client, common.NewKnowledgeGraph(), doc("Doc1", "2019-01-02"))
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Entities) != 2 {
		t.Fatalf("entities = %d, want 2 (blank name dropped)", len(res.Entities))
	}
	if res.Entities[0].Type != common.EntityTypePerson || res.Entities[0].Significance != common.SignificanceMajor {
		t.Errorf("first entity = %+v", res.Entities[0])
	}
	if res.Entities[1].Type != common.EntityTypeOther {
		t.Errorf("unknown type = %s, want other", res.Entities[1].Type)
	}
	if res.Entities[1].Significance != common.SignificanceModerate {
		t.Errorf("unknown significance = %s, want moderate", res.Entities[1].Significance)
	}
	if len(res.Concepts) != 1 {
		t.Fatalf("concepts = %d, want 1", len(res.Concepts))
	}
	if len(res.Relationships) != 2 {
		t.Fatalf("relationships = %d, want 2 (blank source dropped)", len(res.Relationships))
	}
	if res.Relationships[1].Type != common.RelationRelated {
		t.Errorf("unknown relation type = %s, want related", res.Relationships[1].Type)
	}
}

func TestExtractDegradesOnUnparseableOutput(t *testing.T) {
	client := &mockModelClient{responses: []mockResponse{
		{content: ""}, {content: ""}, {content: ""},
	}}

	g := testGraphClient(t)
	res, err := g.ExtractFromDocument(context.Background(), client, common.NewKnowledgeGraph(), doc("Doc1", "2019-01-02"))
	if err != nil {
		t.Fatalf("unparseable output must degrade, got error: %v", err)
	}
	if len(res.Entities) != 0 || len(res.Concepts) != 0 || len(res.Relationships) != 0 {
		t.Errorf("result = %+v, want empty", res)
	}
	if client.calls != 3 {
		t.Errorf("calls = %d, want 3 (retried before degrading)", client.calls)
	}
}

func TestExtractRetriesTransientFailure(t *testing.T) {
	client := &mockModelClient{responses: []mockResponse{
		{err: errors.New("rate limited")},
		{content: `{"entities": [], "concepts": [], "relationships": []}`},
	}}

	g := testGraphClient(t)
	res, err := g.ExtractFromDocument(context.Background(), client, common.NewKnowledgeGraph(), doc("Doc1", "2019-01-02"))
	if err != nil {
		t.Fatal(err)
	}
	if client.calls != 2 {
		t.Errorf("calls = %d, want 2", client.calls)
	}
	if res == nil {
		t.Fatal("nil result")
	}
}

func TestExtractSurfacesExhaustedRetries(t *testing.T) {
	client := &mockModelClient{responses: []mockResponse{
		{err: errors.New("down")}, {err: errors.New("down")}, {err: errors.New("down")},
	}}

	g := testGraphClient(t)
	_, err := g.ExtractFromDocument(context.Background(), client, common.NewKnowledgeGraph(), doc("Doc1", "2019-01-02"))
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if client.calls != 3 {
		t.Errorf("calls = %d, want 3", client.calls)
	}
}

func TestContextSummaryBounds(t *testing.T) {
	g := common.NewKnowledgeGraph()
	if got := contextSummary(g); got != "(empty - this is the first post)" {
		t.Errorf("empty graph summary = %q", got)
	}

	for i := 0; i < 80; i++ {
		name := "Entity " + string(rune('A'+i%26)) + string(rune('a'+i/26))
		g = Apply(g, &ExtractionResult{
			Entities: []EntityCandidate{entityCandidate(name, common.SignificanceMinor)},
		}, doc("Doc", "2019-01-01"))
	}

	summary := contextSummary(g)
	count := 0
	for _, line := range strings.Split(summary, "\n") {
		if strings.HasPrefix(line, "- ") {
			count++
		}
	}
	if count > contextMaxEntities {
		t.Errorf("summary lists %d items, cap is %d", count, contextMaxEntities)
	}
}
