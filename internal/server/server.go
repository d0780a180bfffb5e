// Package server exposes the rules assistant over HTTP.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"umpire-rules-rag/internal/database"
	"umpire-rules-rag/internal/service"

	"github.com/gin-gonic/gin"
)

// Service is the request pipeline behind the handlers
type Service interface {
	Ask(ctx context.Context, req service.Request) service.Result
	ValidateCall(ctx context.Context, req service.Request) service.Result
	Feedback(ctx context.Context, id int64, thumbsUp, thumbsDown bool, text string) error
}

// HealthChecker reports whether rulebook data is reachable
type HealthChecker interface {
	Available(ctx context.Context) error
}

// QueryResponse is returned by /query and /validate_call
type QueryResponse struct {
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	InteractionID int64  `json:"interaction_id,omitempty"`
	SessionID     string `json:"session_id"`
	QueryType     string `json:"query_type,omitempty"`
	TokensUsed    int    `json:"tokens_used"`
}

// FeedbackRequest is the body of POST /feedback
type FeedbackRequest struct {
	InteractionID int64  `json:"interaction_id" binding:"required"`
	ThumbsUp      bool   `json:"thumbs_up"`
	ThumbsDown    bool   `json:"thumbs_down"`
	FeedbackText  string `json:"feedback_text"`
}

// Server routes HTTP requests to the service
type Server struct {
	Service Service
	Health  HealthChecker
	engine  *gin.Engine
}

// New builds the router
func New(svc Service, health HealthChecker) *Server {
	s := &Server{Service: svc, Health: health}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/query", s.handleQuery)
	r.GET("/validate_call", s.handleValidateCall)
	r.POST("/feedback", s.handleFeedback)
	r.GET("/healthz", s.handleHealth)

	s.engine = r
	return s
}

// Handler returns the router as an http.Handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleQuery(c *gin.Context) {
	req, ok := bindQuestion(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toResponse(s.Service.Ask(c.Request.Context(), req)))
}

func (s *Server) handleValidateCall(c *gin.Context) {
	req, ok := bindQuestion(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toResponse(s.Service.ValidateCall(c.Request.Context(), req)))
}

func (s *Server) handleFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "interaction_id is required"})
		return
	}

	err := s.Service.Feedback(c.Request.Context(), req.InteractionID, req.ThumbsUp, req.ThumbsDown, req.FeedbackText)
	switch {
	case errors.Is(err, database.ErrInteractionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Interaction not found"})
	case err != nil:
		log.Printf("Failed to record feedback: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to record feedback"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "recorded"})
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.Health != nil {
		if err := s.Health.Available(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "detail": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func bindQuestion(c *gin.Context) (service.Request, bool) {
	question := c.Query("question")
	if strings.TrimSpace(question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No question provided"})
		return service.Request{}, false
	}
	return service.Request{
		Question:  question,
		Division:  c.Query("division"),
		SessionID: c.Query("session_id"),
	}, true
}

func toResponse(r service.Result) QueryResponse {
	return QueryResponse{
		Question:      r.Question,
		Answer:        r.Answer.Text,
		InteractionID: r.InteractionID,
		SessionID:     r.SessionID,
		QueryType:     string(r.Answer.Intent),
		TokensUsed:    r.Answer.TokensUsed,
	}
}
