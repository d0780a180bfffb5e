// Package scenario checks whether a game-situation question carries the facts
// needed to validate a call.
package scenario

import (
	"umpire-rules-rag/internal/keywords"
)

// Required slot names, in the order they are reported
const (
	SlotOuts     = "outs"
	SlotRunners  = "runners"
	SlotCallMade = "call_made"
)

// RequiredSlots is the full set of situational facts for a scenario question
var RequiredSlots = []string{SlotOuts, SlotRunners, SlotCallMade}

// SlotPhrases lists the phrases that satisfy each slot
var SlotPhrases = map[string][]string{
	SlotOuts: {
		"out ", "no outs", "nobody out", "one out", "two outs",
		"0 outs", "1 out", "2 outs",
	},
	SlotRunners: {
		"runner", "on first", "on second", "on third", "on 1st", "on 2nd", "on 3rd",
		"bases loaded", "bases empty", "nobody on", "man on", "on base",
	},
	SlotCallMade: {
		"umpire", "ump ", "ump's", "correct", "called", "ruled", "ruling",
		"signaled", "declared", "awarded",
	},
}

// Checker reports required slots absent from a query
type Checker struct {
	matcher *keywords.Matcher
}

// NewChecker builds a checker over RequiredSlots and SlotPhrases
func NewChecker() *Checker {
	groups := make([]keywords.Group, 0, len(RequiredSlots))
	for _, slot := range RequiredSlots {
		groups = append(groups, keywords.Group{Name: slot, Phrases: SlotPhrases[slot]})
	}
	return &Checker{matcher: keywords.NewMatcher(groups...)}
}

// MissingSlots returns the required slots not mentioned in query, in
// RequiredSlots order. An empty slice means the scenario is complete.
func (c *Checker) MissingSlots(query string) []string {
	return c.matcher.Missing(query)
}
