// Package ruleid turns corpus positions into display rule identifiers such as
// "Rule 6.09(b) (Dropped Third Strike)".
package ruleid

import (
	"regexp"
	"strings"

	"umpire-rules-rag/internal/models"
)

// Lookup resolves an ID map row for a corpus offset
type Lookup interface {
	Lookup(offset int) (models.IDMapEntry, bool)
}

var (
	// "– Balk: an illegal act" or "— Infield Fly. A fair fly ball"
	dashTermPattern = regexp.MustCompile(`[–—]\s*([^–—.:\n]+?)\s*[.:]`)
	// an id that has already been through Standardize
	standardPattern = regexp.MustCompile(`^Rule\s+(.+?)(?:\s+\([^()]*\))?$`)
)

// Standardize builds the display identifier for chunk. The ID map row for the
// chunk's offset wins; documentID is used only when no row carries a rule number.
func Standardize(documentID string, chunk models.RuleChunk, idmap Lookup) string {
	id := ""
	if idmap != nil {
		if row, ok := idmap.Lookup(chunk.Offset); ok {
			if row.Rule != "" {
				id = row.Rule + NormalizeSub(row.RuleSub)
			} else {
				id = stripStandard(row.CanonicalID)
			}
		}
	}
	if id == "" {
		id = stripStandard(documentID)
	}

	if term := Term(chunk); term != "" {
		return "Rule " + id + " (" + term + ")"
	}
	return "Rule " + id
}

// NormalizeSub converts a rule_sub value into its dotted suffix. A leading
// "0." keeps only the dot, so "0.05" becomes ".05" and "0.00" becomes ".00".
// Any other value is appended as-is.
func NormalizeSub(sub string) string {
	sub = strings.TrimSpace(sub)
	if strings.HasPrefix(sub, "0.") {
		return sub[1:]
	}
	return sub
}

// Term returns the defined term for chunk: Define, then VerbatimTerm, then the
// first dash-delimited phrase in the text.
func Term(chunk models.RuleChunk) string {
	if t := strings.TrimSpace(chunk.Define); t != "" {
		return t
	}
	if t := strings.TrimSpace(chunk.VerbatimTerm); t != "" {
		return t
	}
	if m := dashTermPattern.FindStringSubmatch(chunk.Text); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func stripStandard(id string) string {
	id = strings.TrimSpace(id)
	if m := standardPattern.FindStringSubmatch(id); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return id
}
