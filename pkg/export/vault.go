package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/loom-graph/loom/pkg/common"
)

// WriteVault renders one markdown note per entity and concept under dir,
// cross-linked with [[id]] wiki links so the output opens as a vault in
// any backlink-aware editor. Notes are independent, so they are written
// in parallel.
func WriteVault(g *common.KnowledgeGraph, dir string) error {
	entityDir := filepath.Join(dir, "entities")
	conceptDir := filepath.Join(dir, "concepts")
	for _, d := range []string{entityDir, conceptDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", d, err)
		}
	}

	var eg errgroup.Group
	eg.SetLimit(8)

	for _, e := range g.Entities {
		eg.Go(func() error {
			path := filepath.Join(entityDir, e.ID+".md")
			return os.WriteFile(path, []byte(entityNote(e)), 0o644)
		})
	}
	for _, c := range g.Concepts {
		eg.Go(func() error {
			path := filepath.Join(conceptDir, c.ID+".md")
			return os.WriteFile(path, []byte(conceptNote(c)), 0o644)
		})
	}

	if err := eg.Wait(); err != nil {
		return fmt.Errorf("writing vault notes: %w", err)
	}

	index := indexNote(g)
	return os.WriteFile(filepath.Join(dir, "index.md"), []byte(index), 0o644)
}

func entityNote(e *common.Entity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", e.Name)
	fmt.Fprintf(&b, "**Type:** %s · **Significance:** %s\n\n", e.Type, e.Significance)
	if len(e.Aliases) > 0 {
		fmt.Fprintf(&b, "**Also known as:** %s\n\n", strings.Join(e.Aliases, ", "))
	}
	if e.Description != "" {
		b.WriteString(e.Description + "\n\n")
	}

	writeRelatedSection(&b, e.RelatedEntityIDs, e.RelatedConceptIDs)
	writeOccurrenceSection(&b, e.FirstSeenDocumentTitle, e.Occurrences)
	return b.String()
}

func conceptNote(c *common.Concept) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", c.Name)
	fmt.Fprintf(&b, "**Significance:** %s\n\n", c.Significance)
	if len(c.Domains) > 0 {
		fmt.Fprintf(&b, "**Domains:** %s\n\n", strings.Join(c.Domains, ", "))
	}
	if len(c.AlternateTerms) > 0 {
		fmt.Fprintf(&b, "**Also known as:** %s\n\n", strings.Join(c.AlternateTerms, ", "))
	}
	if c.Description != "" {
		b.WriteString(c.Description + "\n\n")
	}

	if len(c.Evolution) > 0 {
		b.WriteString("## Evolution\n\n")
		for _, ev := range c.Evolution {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", ev.DocumentTitle, ev.DocumentDate, ev.Note)
		}
		b.WriteString("\n")
	}

	writeRelatedSection(&b, c.RelatedEntityIDs, c.RelatedConceptIDs)
	writeOccurrenceSection(&b, c.FirstSeenDocumentTitle, c.Occurrences)
	return b.String()
}

func writeRelatedSection(b *strings.Builder, entityIDs, conceptIDs []string) {
	if len(entityIDs) == 0 && len(conceptIDs) == 0 {
		return
	}
	b.WriteString("## Related\n\n")
	for _, id := range entityIDs {
		fmt.Fprintf(b, "- [[%s]]\n", id)
	}
	for _, id := range conceptIDs {
		fmt.Fprintf(b, "- [[%s]]\n", id)
	}
	b.WriteString("\n")
}

func writeOccurrenceSection(b *strings.Builder, firstSeen string, occurrences []common.Occurrence) {
	fmt.Fprintf(b, "## Appearances\n\nFirst seen in *%s*.\n\n", firstSeen)
	for _, o := range occurrences {
		fmt.Fprintf(b, "- **%s** (%s): %s\n", o.DocumentTitle, o.DocumentDate, o.Context)
	}
}

func indexNote(g *common.KnowledgeGraph) string {
	var b strings.Builder
	b.WriteString("# Knowledge Graph\n\n")
	fmt.Fprintf(&b, "%d entities, %d concepts, %d relationships from %d documents (%s to %s).\n\n",
		len(g.Entities), len(g.Concepts), len(g.Relationships),
		g.Metadata.TotalDocumentsProcessed,
		g.Metadata.DateRange.Earliest, g.Metadata.DateRange.Latest)

	b.WriteString("## Entities\n\n")
	for _, id := range sortedEntityIDs(g) {
		fmt.Fprintf(&b, "- [[%s]] (%s)\n", id, g.Entities[id].Significance)
	}
	b.WriteString("\n## Concepts\n\n")
	for _, id := range sortedConceptIDs(g) {
		fmt.Fprintf(&b, "- [[%s]] (%s)\n", id, g.Concepts[id].Significance)
	}
	return b.String()
}
