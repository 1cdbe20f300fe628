package common

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxIDLength = 100

// NormalizeID derives a stable content-addressed key from a free-text name:
// lower-case, runs of non-alphanumeric characters collapsed to a single
// hyphen, leading/trailing hyphens trimmed, truncated to 100 characters so
// ids stay usable as filenames and map keys.
//
// Two display names that normalize identically are treated as the same item
// at apply time. That is a deliberate approximation; names that differ
// beyond punctuation ("Grimes" vs "Claire Boucher") must be reconciled by
// the integration verifier instead.
func NormalizeID(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		} else {
			pendingHyphen = true
		}
	}

	id := b.String()
	if len(id) > maxIDLength {
		// Cut on a rune boundary; a byte slice could split a multibyte
		// letter and leave the id invalid UTF-8.
		cut := maxIDLength
		for cut > 0 && !utf8.RuneStart(id[cut]) {
			cut--
		}
		id = strings.TrimRight(id[:cut], "-")
	}
	return id
}

// RelationshipID derives the deterministic id for a relationship from its
// identity triple. A second extraction proposing the same triple maps to
// the same id and merges evidence instead of duplicating the edge.
func RelationshipID(sourceID string, relType RelationType, targetID string) string {
	return sourceID + "|" + string(relType) + "|" + targetID
}
