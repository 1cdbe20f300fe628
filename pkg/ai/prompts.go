package ai

// ExtractPrompt shapes the per-document extraction call. Placeholders:
// graph context summary, document title, document date, document content.
const ExtractPrompt = `
# Task Context
You are a careful assistant that builds a cumulative knowledge graph from a
corpus of blog posts. You will be given one post plus a summary of the graph
built from all earlier posts.

# Background Data
Knowledge graph so far:
%s

# Detailed Task Description & Rules
- Extract entities (people, organizations, places, works, events), concepts
  (ideas, theories, terminology), and relationships from the post below.
- Re-use the canonical names from the graph summary when the post refers to
  something already known, even if the post uses a variant spelling.
- Mark each entity/concept with is_new = false when it already appears in
  the graph summary, true otherwise.
- For a concept that already exists, supply an evolution_note only when this
  post genuinely adds nuance to its meaning.
- Entity types: person, organization, place, work, event, other.
- Significance: major, moderate, minor - judged within this post only.
- Relationship types: influences, critiques, extends, opposes, applies,
  cites, develops, synthesizes, related.
- Only propose relationships between items named in this post or in the
  graph summary. Never relate an item to itself.

# Immediate Task Description or Request
Post title: %s
Post date: %s

Post content:
%s

# Output Formatting
Return a JSON object with "entities", "concepts" and "relationships" arrays
matching the provided schema. Return empty arrays when nothing qualifies.
`

// IntegratePrompt shapes the periodic verification call. Placeholders:
// graph snapshot, recent document titles.
const IntegratePrompt = `
# Task Context
You are a meticulous curator reviewing a knowledge graph that was built
incrementally, one blog post at a time. Items extracted from different posts
may describe the same real-world thing under different names.

# Background Data
Current graph:
%s

Recently processed posts:
%s

# Detailed Task Description & Rules
- Identify pairs of entities or pairs of concepts that are the same
  real-world thing and should be merged. Name the id to keep and the id to
  absorb, with a short reason.
- Propose relationships that are visible from the aggregate view but were
  not visible from any single post.
- Flag items whose significance rating no longer matches their role in the
  graph. You may demote as well as promote.
- Provide improved descriptions where the stored one is stale or thin.
- Do not invent new entities or concepts; only consolidate or connect what
  already exists. Leave well-formed items alone.

# Immediate Task Description or Request
Return the corrections needed to consolidate this graph.

# Output Formatting
Return a JSON object with "merges", "new_relationships",
"updated_significance" and "description_updates" arrays matching the
provided schema. Return empty arrays when no correction is needed.
`
