package models

import "strings"

// RuleChunk represents one indexed passage of the rulebook
type RuleChunk struct {
	ID           string `json:"id,omitempty"`
	Text         string `json:"text"`
	Define       string `json:"define,omitempty"`
	VerbatimTerm string `json:"verbatimTerm,omitempty"`
	Offset       int    `json:"-"`
}

// IDMapEntry maps a corpus offset to the rulebook numbering scheme
type IDMapEntry struct {
	Offset      int    `json:"offset"`
	Rule        string `json:"rule"`
	RuleSub     string `json:"rule_sub"`
	CanonicalID string `json:"canonical_id"`
}

// IndexHit is a single nearest-neighbour result from a vector index
type IndexHit struct {
	Offset   int     `json:"offset"`
	Distance float32 `json:"distance"`
}

// RetrievedDocument is a rule chunk ranked for a specific query
type RetrievedDocument struct {
	RuleChunk
	Distance   float32 `json:"distance"`
	ResolvedID string  `json:"resolved_id"`
}

// Intent is the classified purpose of a user query
type Intent string

const (
	IntentScenarioBased Intent = "scenario_based"
	IntentRuleReference Intent = "rule_reference"
	IntentPhilosophical Intent = "philosophical"
	IntentOpinion       Intent = "opinion"
	IntentOffTopic      Intent = "off_topic"
)

// Intents lists every intent in the order presented to the classifier
var Intents = []Intent{
	IntentScenarioBased,
	IntentRuleReference,
	IntentPhilosophical,
	IntentOpinion,
	IntentOffTopic,
}

// Valid reports whether the intent is one of the enumerated values
func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

// ParseIntent normalizes raw model output into an Intent
func ParseIntent(raw string) (Intent, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, "\"'`.")
	intent := Intent(strings.TrimSpace(s))
	return intent, intent.Valid()
}

// State is the terminal (or in-flight) state of the answer generator
type State string

const (
	StateNoContext   State = "NO_CONTEXT"
	StateMissingData State = "MISSING_DATA"
	StateNeedsSlots  State = "NEEDS_SLOTS"
	StateOffTopic    State = "OFF_TOPIC"
	StateNotScenario State = "NOT_SCENARIO"
	StateGenerating  State = "GENERATING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

// Answer is the result handed back for a single query
type Answer struct {
	Text       string `json:"text"`
	TokensUsed int    `json:"tokens_used"`
	State      State  `json:"state"`
	Intent     Intent `json:"intent,omitempty"`
	Provider   string `json:"provider,omitempty"`
}

// Message is a role-tagged chat message for a language model
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Completion is generated text plus the provider's token accounting
type Completion struct {
	Text       string `json:"text"`
	TokensUsed int    `json:"tokens_used"`
}

// Turn is one earlier question/answer pair supplied by the caller
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
