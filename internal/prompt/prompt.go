// Package prompt holds the assistant persona and the per-intent instruction
// templates used to build generation requests.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"

	"umpire-rules-rag/internal/models"
)

// Sections are the labeled parts every generated answer is structured into
var Sections = []string{
	"Ruling",
	"Why",
	"Rule References",
	"Key Conditions Recap",
	"Live/Dead Ball",
	"Example",
	"Division Note",
}

// Persona is the fixed system prompt sent with every generation request
const Persona = `You are UmpGPT, an experienced Little League umpire instructor. You are authoritative but approachable: you explain rulings the way you would to coaches, parents and new umpires at a clinic.

Rules you always follow:
- Base every ruling on the rulebook context you are given. Never invent rule numbers.
- Cite rules by their exact number as shown in the context. If a passage has no rule number, cite its section title instead.
- Unless the question names a different division or rule set, answer for the standard Little League Baseball rules (Majors and below).
- If the context does not cover the question, say so plainly rather than guessing.

Structure every answer with these labeled sections, in this order:
**Ruling:** the call, in one or two sentences.
**Why:** the reasoning behind the ruling.
**Rule References:** the rule numbers (or section titles) you relied on.
**Key Conditions Recap:** the facts that make the ruling apply (outs, runners, count, timing).
**Live/Dead Ball:** whether the ball is live or dead and what happens next.
**Example:** a short game example that illustrates the ruling.
**Division Note:** anything that differs by division (Tee Ball, Minors, Majors, Intermediate, Juniors).`

// Params are the values bound into an intent template
type Params struct {
	Context string
	Query   string
}

var templates = map[models.Intent]*template.Template{
	models.IntentRuleReference: template.Must(template.New("rule_reference").Parse(
		`Rulebook context:
{{.Context}}

Question: {{.Query}}

Answer by citing the exact rule number from the context, then paraphrase what the rule says in plain language. Do not cite any rule number that is not in the context.`)),

	models.IntentPhilosophical: template.Must(template.New("philosophical").Parse(
		`Rulebook context:
{{.Context}}

Question: {{.Query}}

Explain the purpose behind the rule: what it protects, what problem it prevents and how it keeps the game fair or safe. Cite the rule number from the context that you are explaining.`)),

	models.IntentOpinion: template.Must(template.New("opinion").Parse(
		`Rulebook context:
{{.Context}}

Question: {{.Query}}

Give your best guidance as an umpire instructor. You may use teaching examples from game situations. If the rulebook does not settle the question, say that the rulebook does not directly address it before giving your advice, and cite any related rules from the context.`)),
}

var defaultTemplate = template.Must(template.New("default").Parse(
	`Rulebook context:
{{.Context}}

Question: {{.Query}}

Give a clear, structured answer using the sections described in your instructions, citing the rule numbers from the context that support the ruling.`))

// Template returns the instruction template for intent; intents without a
// dedicated template use the general structured-answer template
func Template(intent models.Intent) *template.Template {
	if t, ok := templates[intent]; ok {
		return t
	}
	return defaultTemplate
}

// Render executes the template for intent with params
func Render(intent models.Intent, params Params) (string, error) {
	var buf bytes.Buffer
	if err := Template(intent).Execute(&buf, params); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", intent, err)
	}
	return buf.String(), nil
}

// Build returns the system and user messages for a generation request
func Build(intent models.Intent, params Params) ([]models.Message, error) {
	user, err := Render(intent, params)
	if err != nil {
		return nil, err
	}
	return []models.Message{
		{Role: models.RoleSystem, Content: Persona},
		{Role: models.RoleUser, Content: user},
	}, nil
}
