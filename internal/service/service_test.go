package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"umpire-rules-rag/internal/answer"
	"umpire-rules-rag/internal/models"
	"umpire-rules-rag/internal/retriever"
	"umpire-rules-rag/internal/scenario"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetriever struct {
	docs     []models.RetrievedDocument
	err      error
	gotQuery string
	gotK     int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedDocument, error) {
	f.gotQuery = query
	f.gotK = k
	return f.docs, f.err
}

type fakeProvider struct {
	text     string
	tokens   int
	err      error
	calls    int
	lastUser string
}

func (f *fakeProvider) Name() string { return "OpenAI" }

func (f *fakeProvider) Complete(ctx context.Context, messages []models.Message) (models.Completion, error) {
	f.calls++
	f.lastUser = messages[len(messages)-1].Content
	if f.err != nil {
		return models.Completion{}, f.err
	}
	return models.Completion{Text: f.text, TokensUsed: f.tokens}, nil
}

type fixedClassifier models.Intent

func (f fixedClassifier) Classify(ctx context.Context, query string) models.Intent {
	return models.Intent(f)
}

type fakeLogger struct {
	rows     []models.Interaction
	err      error
	feedback map[int64]string
}

func (f *fakeLogger) Log(ctx context.Context, in *models.Interaction) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.rows = append(f.rows, *in)
	return int64(len(f.rows)), nil
}

func (f *fakeLogger) UpdateFeedback(ctx context.Context, id int64, up, down bool, text string) error {
	if id < 1 || int(id) > len(f.rows) {
		return fmt.Errorf("interaction %d not found", id)
	}
	if f.feedback == nil {
		f.feedback = map[int64]string{}
	}
	f.feedback[id] = fmt.Sprintf("%t/%t/%s", up, down, text)
	return nil
}

var docs = []models.RetrievedDocument{{
	RuleChunk:  models.RuleChunk{Text: "– Balk: an illegal act by the pitcher."},
	ResolvedID: "Rule 2.00 (Balk)",
}}

func newTestService(r *fakeRetriever, p *fakeProvider, in models.Intent) (*Service, *fakeLogger) {
	g := answer.NewGenerator(p, fixedClassifier(in), scenario.NewChecker(), nil)
	g.RetryBackoff = time.Millisecond
	l := &fakeLogger{}
	return NewService(r, g, l, 0), l
}

func TestAsk_Done(t *testing.T) {
	r := &fakeRetriever{docs: docs}
	p := &fakeProvider{text: "**Ruling:** That is a balk under Rule 2.00 and Rule 8.05(a).", tokens: 120}
	s, l := newTestService(r, p, models.IntentRuleReference)

	res := s.Ask(context.Background(), Request{Question: "Division: Majors\nWhat is a balk?"})

	assert.Equal(t, "What is a balk?", r.gotQuery)
	assert.Equal(t, retriever.DefaultK, r.gotK)
	assert.Equal(t, "Majors", res.Division)
	assert.Equal(t, models.StateDone, res.Answer.State)
	assert.Equal(t, "Rule 2.00", res.RuleReference)
	assert.Equal(t, int64(1), res.InteractionID)
	_, err := uuid.Parse(res.SessionID)
	assert.NoError(t, err)
	assert.Contains(t, p.lastUser, "Division: Majors\nWhat is a balk?")

	require.Len(t, l.rows, 1)
	row := l.rows[0]
	assert.Equal(t, "What is a balk?", row.QueryText)
	assert.Equal(t, "Majors", row.Division)
	assert.Equal(t, "OpenAI", row.APIUsed)
	assert.Equal(t, 120, row.TokensUsed)
	assert.Equal(t, "rule_reference", row.QueryType)
	assert.Equal(t, res.SessionID, row.SessionID)
	require.NotNil(t, row.RuleReference)
	assert.Equal(t, "Rule 2.00", *row.RuleReference)
}

func TestAsk_ShortCircuitsAreCached(t *testing.T) {
	r := &fakeRetriever{docs: docs}
	p := &fakeProvider{}
	s, l := newTestService(r, p, models.IntentOffTopic)

	res := s.Ask(context.Background(), Request{Question: "Best pizza in town?", SessionID: "abc"})
	assert.Equal(t, answer.OffTopicMessage, res.Answer.Text)
	assert.Equal(t, "abc", res.SessionID)
	assert.Equal(t, DefaultDivision, res.Division)
	assert.Zero(t, p.calls)

	require.Len(t, l.rows, 1)
	assert.Equal(t, APICached, l.rows[0].APIUsed)
	assert.Zero(t, l.rows[0].TokensUsed)
	assert.Nil(t, l.rows[0].RuleReference)
}

func TestAsk_NoContext(t *testing.T) {
	r := &fakeRetriever{}
	s, l := newTestService(r, &fakeProvider{}, models.IntentRuleReference)

	res := s.Ask(context.Background(), Request{Question: "What is a balk?"})
	assert.Equal(t, answer.NoContextMessage, res.Answer.Text)
	require.Len(t, l.rows, 1)
	assert.Equal(t, "no_context", l.rows[0].QueryType)
}

func TestAsk_RetrievalErrors(t *testing.T) {
	r := &fakeRetriever{err: fmt.Errorf("%w: index file missing", retriever.ErrDataUnavailable)}
	s, l := newTestService(r, &fakeProvider{}, models.IntentRuleReference)

	res := s.Ask(context.Background(), Request{Question: "What is a balk?"})
	assert.Equal(t, models.StateMissingData, res.Answer.State)
	assert.Equal(t, answer.MissingDataMessage, res.Answer.Text)

	r.err = fmt.Errorf("%w: connection refused", retriever.ErrEmbedding)
	res = s.Ask(context.Background(), Request{Question: "What is a balk?"})
	assert.Equal(t, answer.ApologyMessage, res.Answer.Text)
	assert.Zero(t, res.Answer.TokensUsed)

	assert.Len(t, l.rows, 2)
}

func TestAsk_LogFailureNotSurfaced(t *testing.T) {
	r := &fakeRetriever{docs: docs}
	p := &fakeProvider{text: "ok", tokens: 3}
	s, l := newTestService(r, p, models.IntentRuleReference)
	l.err = errors.New("disk full")

	res := s.Ask(context.Background(), Request{Question: "What is a balk?"})
	assert.Equal(t, models.StateDone, res.Answer.State)
	assert.Zero(t, res.InteractionID)
}

func TestAsk_NilLogger(t *testing.T) {
	g := answer.NewGenerator(&fakeProvider{text: "ok"}, fixedClassifier(models.IntentRuleReference), scenario.NewChecker(), nil)
	s := NewService(&fakeRetriever{docs: docs}, g, nil, 3)

	res := s.Ask(context.Background(), Request{Question: "What is a balk?"})
	assert.Equal(t, models.StateDone, res.Answer.State)
	assert.Error(t, s.Feedback(context.Background(), 1, true, false, ""))
}

func TestValidateCall(t *testing.T) {
	r := &fakeRetriever{docs: docs}
	p := &fakeProvider{text: "**Ruling:** correct call", tokens: 40}

	s, l := newTestService(r, p, models.IntentRuleReference)
	res := s.ValidateCall(context.Background(), Request{Question: "What is a balk?"})
	assert.Equal(t, answer.NotScenarioMessage, res.Answer.Text)
	assert.Zero(t, p.calls)
	assert.Equal(t, APICached, l.rows[0].APIUsed)

	s, l = newTestService(r, p, models.IntentScenarioBased)
	res = s.ValidateCall(context.Background(), Request{Question: "Two outs, runner on first, was that call right?"})
	assert.Equal(t, models.StateNeedsSlots, res.Answer.State)
	assert.Contains(t, res.Answer.Text, "call_made")
	assert.Zero(t, p.calls)

	res = s.ValidateCall(context.Background(), Request{Question: "Two outs, runner on first, the umpire called a balk. Correct?"})
	assert.Equal(t, models.StateDone, res.Answer.State)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, "scenario_based", l.rows[len(l.rows)-1].QueryType)
}

func TestAsk_HistoryWindow(t *testing.T) {
	r := &fakeRetriever{docs: docs}
	p := &fakeProvider{text: "ok"}
	s, _ := newTestService(r, p, models.IntentRuleReference)

	history := []models.Turn{
		{Question: "first", Answer: "1"},
		{Question: "second", Answer: "2"},
		{Question: "third", Answer: "3"},
		{Question: "fourth", Answer: "4"},
	}
	s.Ask(context.Background(), Request{Question: "and then?", History: history})

	assert.Equal(t, "and then?", r.gotQuery)
	assert.NotContains(t, p.lastUser, "Q: first")
	assert.Contains(t, p.lastUser, "Q: fourth")
}

func TestFeedback(t *testing.T) {
	r := &fakeRetriever{docs: docs}
	s, l := newTestService(r, &fakeProvider{text: "ok"}, models.IntentRuleReference)

	res := s.Ask(context.Background(), Request{Question: "What is a balk?"})
	require.NoError(t, s.Feedback(context.Background(), res.InteractionID, false, true, "  wrong rule  "))
	assert.Equal(t, "false/true/wrong rule", l.feedback[res.InteractionID])

	assert.Error(t, s.Feedback(context.Background(), 99, true, false, ""))
}

func TestParseDivision(t *testing.T) {
	cases := []struct {
		in, division, query string
	}{
		{"What is a balk?", "All", "What is a balk?"},
		{"Division: Minors\nWhat is a balk?", "Minors", "What is a balk?"},
		{"What is a balk?\nDivision: Juniors", "Juniors", "What is a balk?"},
		{"Division:\nWhat is a balk?", "All", "What is a balk?"},
		{"The Division: line is inline", "All", "The Division: line is inline"},
	}
	for _, tc := range cases {
		division, query := ParseDivision(tc.in)
		assert.Equal(t, tc.division, division, tc.in)
		assert.Equal(t, tc.query, query, tc.in)
	}
}

func TestRuleReference(t *testing.T) {
	assert.Equal(t, "Rule 6.09(b)", RuleReference("**Rule References:** Rule 6.09(b) (Dropped Third Strike)"))
	assert.Equal(t, "Rule 2.00.05", RuleReference("see Rule 2.00.05 and Rule 8.05"))
	assert.Equal(t, "Rule 7", RuleReference("Rule 7 covers it"))
	assert.Equal(t, "", RuleReference("no citation here"))
}
