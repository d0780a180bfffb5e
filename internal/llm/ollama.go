package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"umpire-rules-rag/internal/models"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// OllamaLLM handles interactions with the Ollama chat API
type OllamaLLM struct {
	Client      *api.Client
	Model       string
	Temperature float64
	MaxTokens   int
}

// NewOllamaLLM creates a new Ollama LLM client. An empty host falls back to
// OLLAMA_HOST.
func NewOllamaLLM(host string, model string) (*OllamaLLM, error) {
	hostURL := envconfig.Host()
	if host != "" {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
		}
		hostURL = u
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	return &OllamaLLM{
		Client:      client,
		Model:       model,
		Temperature: 0.1,
		MaxTokens:   1024,
	}, nil
}

// Name identifies the provider in the interaction log
func (o *OllamaLLM) Name() string {
	return "Ollama"
}

// Complete sends messages to the chat endpoint and returns the full response
// with prompt and completion token counts summed
func (o *OllamaLLM) Complete(ctx context.Context, messages []models.Message) (models.Completion, error) {
	msgs := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, api.Message{Role: m.Role, Content: m.Content})
	}

	req := api.ChatRequest{
		Model:    o.Model,
		Messages: msgs,
		Options: map[string]interface{}{
			"temperature": o.Temperature,
			"num_predict": o.MaxTokens,
		},
	}

	var responseBuilder strings.Builder
	tokens := 0

	err := o.Client.Chat(ctx, &req, func(resp api.ChatResponse) error {
		if _, err := responseBuilder.WriteString(resp.Message.Content); err != nil {
			return err
		}
		if resp.Done {
			tokens = resp.PromptEvalCount + resp.EvalCount
		}
		return nil
	})
	if err != nil {
		status := 0
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			status = statusErr.StatusCode
		}
		return models.Completion{}, classify(fmt.Errorf("failed to generate response: %w", err), status)
	}

	return models.Completion{
		Text:       responseBuilder.String(),
		TokensUsed: tokens,
	}, nil
}
