package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissingSlots(t *testing.T) {
	c := NewChecker()

	cases := []struct {
		query string
		want  []string
	}{
		{"Two outs, runner on first, was that call right?", []string{SlotCallMade}},
		{"What is a balk?", []string{SlotOuts, SlotRunners, SlotCallMade}},
		{"No outs, bases loaded, the umpire called an infield fly. Correct?", []string{}},
		{"Runner on third, the ump ruled a balk", []string{SlotOuts}},
		{"With one out the umpire called the batter out", []string{SlotRunners}},
		{"TWO OUTS, RUNNER ON SECOND, UMPIRE CALLED INTERFERENCE", []string{}},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, c.MissingSlots(tc.query), tc.query)
	}
}

func TestMissingSlots_SubsetOfRequired(t *testing.T) {
	c := NewChecker()
	for _, q := range []string{"", "x", "runner", "umpire called it with 2 outs"} {
		for _, slot := range c.MissingSlots(q) {
			assert.Contains(t, RequiredSlots, slot)
		}
	}
}
