// Package intent labels a rules question with one of the fixed intents.
package intent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"umpire-rules-rag/internal/keywords"
	"umpire-rules-rag/internal/models"
)

// ErrClassification marks a failed or unusable classifier call. It is logged
// and never returned to callers of Classify.
var ErrClassification = errors.New("intent classification failed")

// DefaultIntent is used whenever the model cannot give a usable answer
const DefaultIntent = models.IntentRuleReference

// SystemInstruction is the fixed classifier prompt
const SystemInstruction = `You classify questions sent to a baseball rules assistant.
Reply with exactly one of these intent names and nothing else:
scenario_based - the user describes a specific game situation (outs, runners, a call that was made) and wants a ruling
rule_reference - the user asks what a rule says or where it is found
philosophical - the user asks why a rule exists or what it is meant to achieve
opinion - the user asks for advice, judgement or a teaching point the rulebook may not settle
off_topic - the question is not about baseball rules`

// SituationalPhrases force scenario_based regardless of the model's answer
var SituationalPhrases = map[string][]string{
	"out_count": {
		"no outs", "nobody out", "one out", "two outs", "0 outs", "1 out", "2 outs",
	},
	"base_state": {
		"runner on", "runners on", "on first", "on second", "on third",
		"bases loaded", "bases empty", "man on",
	},
	"call": {
		"umpire called", "ump called", "the umpire ruled", "was that call",
		"was the call", "right call", "wrong call", "blew the call", "made the call",
	},
}

// Completer is the language-model call the classifier depends on
type Completer interface {
	Complete(ctx context.Context, messages []models.Message) (models.Completion, error)
}

// Classifier maps queries to intents
type Classifier struct {
	LLM     Completer
	Timeout time.Duration

	situational *keywords.Matcher
}

// NewClassifier creates a classifier backed by llm
func NewClassifier(llm Completer, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	groups := make([]keywords.Group, 0, len(SituationalPhrases))
	for _, name := range []string{"out_count", "base_state", "call"} {
		groups = append(groups, keywords.Group{Name: name, Phrases: SituationalPhrases[name]})
	}

	return &Classifier{
		LLM:         llm,
		Timeout:     timeout,
		situational: keywords.NewMatcher(groups...),
	}
}

// Classify returns the intent for query. It never fails: unknown answers and
// call errors both map to DefaultIntent.
func (c *Classifier) Classify(ctx context.Context, query string) models.Intent {
	if c.IsSituational(query) {
		return models.IntentScenarioBased
	}

	intent, err := c.classifyWithModel(ctx, query)
	if err != nil {
		log.Printf("Intent classification defaulted to %s: %v", DefaultIntent, err)
		return DefaultIntent
	}
	return intent
}

// IsSituational reports whether query contains a game-situation phrase
func (c *Classifier) IsSituational(query string) bool {
	return c.situational.Any(query)
}

func (c *Classifier) classifyWithModel(ctx context.Context, query string) (models.Intent, error) {
	if c.LLM == nil {
		return "", fmt.Errorf("%w: no language model configured", ErrClassification)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	resp, err := c.LLM.Complete(callCtx, []models.Message{
		{Role: models.RoleSystem, Content: SystemInstruction},
		{Role: models.RoleUser, Content: strings.TrimSpace(query)},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrClassification, err)
	}

	intent, ok := models.ParseIntent(resp.Text)
	if !ok {
		return "", fmt.Errorf("%w: unrecognized intent %q", ErrClassification, resp.Text)
	}
	return intent, nil
}
