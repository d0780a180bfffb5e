package main

import (
	"testing"
	"time"

	"umpire-rules-rag/internal/models"
	"umpire-rules-rag/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestFormatAnswer(t *testing.T) {
	out := formatAnswer(service.Result{
		Division:      "Majors",
		RuleReference: "Rule 6.02(a)",
		ResponseTime:  1500 * time.Millisecond,
		Answer: models.Answer{
			Text:       "**Ruling:** Balk.",
			State:      models.StateDone,
			Provider:   "Ollama",
			TokensUsed: 120,
		},
	})

	assert.Contains(t, out, "**Ruling:** Balk.")
	assert.Contains(t, out, "Reference: Rule 6.02(a)")
	assert.Contains(t, out, "Division: Majors")
	assert.Contains(t, out, "[Ollama, 120 tokens, 1.5s]")
}

func TestFormatAnswer_ShortCircuit(t *testing.T) {
	out := formatAnswer(service.Result{
		Division: service.DefaultDivision,
		Answer:   models.Answer{Text: "Sorry, I couldn't find a rule matching your query.", State: models.StateNoContext},
	})

	assert.Contains(t, out, "couldn't find a rule")
	assert.NotContains(t, out, "Division:")
	assert.NotContains(t, out, "tokens")
}
