// Package keywords provides phrase-presence matching over query text.
package keywords

import (
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

// Matcher reports which groups of phrases occur in a text.
// Groups are kept in registration order.
type Matcher struct {
	groups        []string
	patternGroups []int
	ac            ahocorasick.AhoCorasick
}

// Group is a named list of phrases
type Group struct {
	Name    string
	Phrases []string
}

// NewMatcher compiles every phrase of every group into one automaton.
// Phrases are matched as lower-case substrings, so trailing spaces are significant.
func NewMatcher(groups ...Group) *Matcher {
	m := &Matcher{}
	var patterns []string

	for gi, g := range groups {
		m.groups = append(m.groups, g.Name)
		for _, p := range g.Phrases {
			if p == "" {
				continue
			}
			patterns = append(patterns, strings.ToLower(p))
			m.patternGroups = append(m.patternGroups, gi)
		}
	}

	if len(patterns) == 0 {
		return m
	}

	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.StandardMatch, // required for IterOverlapping
		DFA:                  false,
	})
	m.ac = builder.Build(patterns)

	return m
}

// Present returns the set of group names with at least one phrase in text
func (m *Matcher) Present(text string) map[string]bool {
	found := make(map[string]bool, len(m.groups))
	if len(m.patternGroups) == 0 {
		return found
	}

	iter := m.ac.IterOverlapping(strings.ToLower(text))
	for {
		match := iter.Next()
		if match == nil {
			break
		}
		idx := match.Pattern()
		if idx < 0 || idx >= len(m.patternGroups) {
			continue
		}
		found[m.groups[m.patternGroups[idx]]] = true
	}

	return found
}

// Missing returns the group names with no phrase in text, in registration order
func (m *Matcher) Missing(text string) []string {
	present := m.Present(text)
	missing := []string{}
	for _, g := range m.groups {
		if !present[g] {
			missing = append(missing, g)
		}
	}
	return missing
}

// Any reports whether any phrase of any group occurs in text
func (m *Matcher) Any(text string) bool {
	return len(m.Present(text)) > 0
}
