// Package answer decides how a query is answered: short-circuit replies for
// missing context, incomplete scenarios and off-topic questions, or an
// intent-specific generation request to the language model.
package answer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"umpire-rules-rag/internal/llm"
	"umpire-rules-rag/internal/models"
	"umpire-rules-rag/internal/prompt"
	"umpire-rules-rag/internal/ruleid"
)

// Fixed replies
const (
	NoContextMessage   = "Sorry, I couldn't find a rule matching your query."
	MissingDataMessage = "Sorry, the rulebook data is unavailable right now. Please try again later."
	OffTopicMessage    = "I'm UmpGPT, and I can only help with baseball rules and umpire calls. Ask me about a rule or describe a game situation!"
	NotScenarioMessage = "This endpoint is for validating umpire calls in specific game scenarios. Please describe a game situation (e.g., outs, runners, call made)."
	ApologyMessage     = "Sorry, I'm having trouble searching the rulebook right now. Please try again in a moment."
)

// MaxHistoryTurns bounds the conversation window added to the prompt
const MaxHistoryTurns = 3

// NeedsSlotsMessage asks for the missing scenario facts
func NeedsSlotsMessage(missing []string) string {
	return fmt.Sprintf("Hey coach, I need a bit more info to validate this call! Can you tell me about %s? For example, how many outs are there, and who's on base?",
		strings.Join(missing, ", "))
}

// FailedMessage is the reply when generation fails
func FailedMessage(err error) string {
	return fmt.Sprintf("Sorry, I ran into a problem generating an answer: %v. Please try again.", err)
}

// Classifier labels a query with an intent
type Classifier interface {
	Classify(ctx context.Context, query string) models.Intent
}

// SlotChecker reports missing scenario facts
type SlotChecker interface {
	MissingSlots(query string) []string
}

// DataChecker reports whether the corpus and index are reachable
type DataChecker interface {
	Available(ctx context.Context) error
}

// Generator runs the answer state machine for one query at a time. It holds no
// per-request state and is safe for concurrent use.
type Generator struct {
	LLM        llm.Provider
	Classifier Classifier
	Slots      SlotChecker
	Data       DataChecker
	IDMap      ruleid.Lookup

	Timeout      time.Duration
	RetryBackoff time.Duration
}

// NewGenerator creates a generator. data may be nil to skip the availability check.
func NewGenerator(provider llm.Provider, classifier Classifier, slots SlotChecker, data DataChecker) *Generator {
	return &Generator{
		LLM:          provider,
		Classifier:   classifier,
		Slots:        slots,
		Data:         data,
		Timeout:      30 * time.Second,
		RetryBackoff: 500 * time.Millisecond,
	}
}

type request struct {
	requireScenario bool
	history         []models.Turn
	division        string
}

// Option adjusts a single Generate call
type Option func(*request)

// RequireScenario rejects queries that are not game situations
func RequireScenario() Option {
	return func(r *request) { r.requireScenario = true }
}

// WithHistory adds earlier turns to the prompt. Only the last MaxHistoryTurns are used.
func WithHistory(turns []models.Turn) Option {
	return func(r *request) { r.history = turns }
}

// WithDivision names the league division the question is about
func WithDivision(division string) Option {
	return func(r *request) { r.division = division }
}

// Generate answers query from docs. It never returns an error: every failure
// is reported as an Answer with a terminal State.
func (g *Generator) Generate(ctx context.Context, query string, docs []models.RetrievedDocument, opts ...Option) models.Answer {
	var req request
	for _, opt := range opts {
		opt(&req)
	}

	if len(docs) == 0 {
		return models.Answer{Text: NoContextMessage, State: models.StateNoContext}
	}

	if g.Data != nil {
		if err := g.Data.Available(ctx); err != nil {
			log.Printf("Rulebook data unavailable: %v", err)
			return g.Unavailable()
		}
	}

	intent := g.Classifier.Classify(ctx, query)

	if req.requireScenario && intent != models.IntentScenarioBased {
		return models.Answer{Text: NotScenarioMessage, State: models.StateNotScenario, Intent: intent}
	}

	if intent == models.IntentScenarioBased {
		if missing := g.Slots.MissingSlots(query); len(missing) > 0 {
			return models.Answer{Text: NeedsSlotsMessage(missing), State: models.StateNeedsSlots, Intent: intent}
		}
	}

	if intent == models.IntentOffTopic {
		return models.Answer{Text: OffTopicMessage, State: models.StateOffTopic, Intent: intent}
	}

	messages, err := prompt.Build(intent, prompt.Params{
		Context: g.contextText(docs),
		Query:   promptQuery(query, req),
	})
	if err != nil {
		return models.Answer{Text: FailedMessage(err), State: models.StateFailed, Intent: intent}
	}

	resp, err := g.complete(ctx, messages)
	if err != nil {
		log.Printf("Generation failed: %v", err)
		return models.Answer{Text: FailedMessage(err), State: models.StateFailed, Intent: intent}
	}

	return models.Answer{
		Text:       resp.Text,
		TokensUsed: resp.TokensUsed,
		State:      models.StateDone,
		Intent:     intent,
		Provider:   g.LLM.Name(),
	}
}

// Unavailable is the reply when the corpus or index cannot be read
func (g *Generator) Unavailable() models.Answer {
	return models.Answer{Text: MissingDataMessage, State: models.StateMissingData}
}

// Apology is the reply when retrieval fails before generation starts
func (g *Generator) Apology() models.Answer {
	return models.Answer{Text: ApologyMessage, State: models.StateFailed}
}

// contextText joins "<rule id>: <text>" for each document in rank order
func (g *Generator) contextText(docs []models.RetrievedDocument) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		id := d.ResolvedID
		if id == "" {
			id = ruleid.Standardize(fmt.Sprintf("doc_%d", d.Offset), d.RuleChunk, g.IDMap)
		}
		parts = append(parts, id+": "+d.Text)
	}
	return strings.Join(parts, " ")
}

func promptQuery(query string, req request) string {
	var sb strings.Builder

	history := req.history
	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
	}
	if len(history) > 0 {
		sb.WriteString("Previous conversation:\n")
		for _, t := range history {
			sb.WriteString("Q: " + t.Question + "\n")
			sb.WriteString("A: " + t.Answer + "\n")
		}
		sb.WriteString("\n")
	}

	if req.division != "" && !strings.EqualFold(req.division, "All") {
		sb.WriteString("Division: " + req.division + "\n")
	}

	sb.WriteString(query)
	return sb.String()
}

// complete calls the model, retrying once after RetryBackoff when the failure
// is transient and the caller is still waiting
func (g *Generator) complete(ctx context.Context, messages []models.Message) (models.Completion, error) {
	resp, err := g.call(ctx, messages)
	if err == nil || !llm.IsTransient(err) || ctx.Err() != nil {
		return resp, err
	}

	log.Printf("Transient generation error, retrying: %v", err)

	timer := time.NewTimer(g.RetryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return resp, err
	case <-timer.C:
	}

	return g.call(ctx, messages)
}

func (g *Generator) call(ctx context.Context, messages []models.Message) (models.Completion, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()
	return g.LLM.Complete(callCtx, messages)
}
