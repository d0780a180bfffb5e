// Package service runs a rules question end to end: retrieval, answer
// generation and interaction logging.
package service

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
	"time"

	"umpire-rules-rag/internal/answer"
	"umpire-rules-rag/internal/models"
	"umpire-rules-rag/internal/retriever"

	"github.com/google/uuid"
)

const (
	// DefaultDivision is logged when the question names no division
	DefaultDivision = "All"
	// APICached marks answers produced without a model call
	APICached = "Cached"
)

// Retriever ranks rulebook passages for a query
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedDocument, error)
}

// Generator produces the final answer
type Generator interface {
	Generate(ctx context.Context, query string, docs []models.RetrievedDocument, opts ...answer.Option) models.Answer
	Unavailable() models.Answer
	Apology() models.Answer
}

// InteractionLogger persists requests and feedback
type InteractionLogger interface {
	Log(ctx context.Context, in *models.Interaction) (int64, error)
	UpdateFeedback(ctx context.Context, id int64, thumbsUp, thumbsDown bool, text string) error
}

// Request is one incoming question
type Request struct {
	Question  string
	Division  string
	SessionID string
	History   []models.Turn
}

// Result is the answer plus the bookkeeping recorded for it
type Result struct {
	Question      string
	QueryText     string
	Division      string
	SessionID     string
	Answer        models.Answer
	InteractionID int64
	RuleReference string
	ResponseTime  time.Duration
}

// Service orchestrates a request
type Service struct {
	Retriever Retriever
	Generator Generator
	Logger    InteractionLogger
	K         int
}

// NewService wires the request pipeline. logger may be nil.
func NewService(r Retriever, g Generator, logger InteractionLogger, k int) *Service {
	if k <= 0 {
		k = retriever.DefaultK
	}
	return &Service{
		Retriever: r,
		Generator: g,
		Logger:    logger,
		K:         k,
	}
}

// Ask answers a general rules question
func (s *Service) Ask(ctx context.Context, req Request) Result {
	return s.handle(ctx, req)
}

// ValidateCall answers only game-situation questions and redirects the rest
func (s *Service) ValidateCall(ctx context.Context, req Request) Result {
	return s.handle(ctx, req, answer.RequireScenario())
}

// Feedback records thumbs up/down and comments for a logged interaction
func (s *Service) Feedback(ctx context.Context, id int64, thumbsUp, thumbsDown bool, text string) error {
	if s.Logger == nil {
		return errors.New("interaction log not configured")
	}
	return s.Logger.UpdateFeedback(ctx, id, thumbsUp, thumbsDown, strings.TrimSpace(text))
}

func (s *Service) handle(ctx context.Context, req Request, opts ...answer.Option) Result {
	startTime := time.Now()

	division, query := ParseDivision(req.Question)
	if req.Division != "" {
		division = req.Division
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var ans models.Answer
	docs, err := s.Retriever.Retrieve(ctx, query, s.K)
	switch {
	case errors.Is(err, retriever.ErrDataUnavailable):
		log.Printf("Retrieval failed: %v", err)
		ans = s.Generator.Unavailable()
	case err != nil:
		log.Printf("Retrieval failed: %v", err)
		ans = s.Generator.Apology()
	default:
		opts = append(opts, answer.WithHistory(req.History), answer.WithDivision(division))
		ans = s.Generator.Generate(ctx, query, docs, opts...)
	}

	elapsedTime := time.Since(startTime)
	log.Printf("Query processed in %v (%s)", elapsedTime, ans.State)

	result := Result{
		Question:      req.Question,
		QueryText:     query,
		Division:      division,
		SessionID:     sessionID,
		Answer:        ans,
		RuleReference: RuleReference(ans.Text),
		ResponseTime:  elapsedTime,
	}
	result.InteractionID = s.logInteraction(ctx, result)
	return result
}

func (s *Service) logInteraction(ctx context.Context, r Result) int64 {
	if s.Logger == nil {
		return 0
	}

	apiUsed := APICached
	if r.Answer.State == models.StateDone && r.Answer.Provider != "" {
		apiUsed = r.Answer.Provider
	}
	queryType := string(r.Answer.Intent)
	if queryType == "" {
		queryType = strings.ToLower(string(r.Answer.State))
	}

	in := &models.Interaction{
		QueryText:    r.QueryText,
		Division:     r.Division,
		Response:     r.Answer.Text,
		SessionID:    r.SessionID,
		ResponseTime: r.ResponseTime.Seconds(),
		QueryType:    queryType,
		APIUsed:      apiUsed,
		TokensUsed:   r.Answer.TokensUsed,
	}
	if r.RuleReference != "" {
		ref := r.RuleReference
		in.RuleReference = &ref
	}

	// the row is written even when the caller has gone away
	id, err := s.Logger.Log(context.WithoutCancel(ctx), in)
	if err != nil {
		log.Printf("Failed to log interaction: %v", err)
		return 0
	}
	return id
}

// ParseDivision splits a "Division: X" line out of question. Without one the
// division is DefaultDivision and the question is returned unchanged.
func ParseDivision(question string) (division, query string) {
	division, query = DefaultDivision, question
	if !strings.Contains(question, "Division:") {
		return division, query
	}

	parts := strings.Split(question, "\n")
	rest := make([]string, 0, len(parts))
	found := false
	for _, part := range parts {
		if strings.HasPrefix(part, "Division:") {
			division = strings.TrimSpace(strings.TrimPrefix(part, "Division:"))
			found = true
			continue
		}
		rest = append(rest, part)
	}
	if found {
		query = strings.TrimSpace(strings.Join(rest, "\n"))
	}
	if division == "" {
		division = DefaultDivision
	}
	return division, query
}

var rulePattern = regexp.MustCompile(`Rule\s+\d+(?:\.\d+)*[a-z]?(?:\([a-z0-9]+\))?`)

// RuleReference returns the first rule citation in text, or ""
func RuleReference(text string) string {
	return rulePattern.FindString(text)
}
