package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"umpire-rules-rag/internal/models"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAILLM generates answers with the OpenAI chat completions API
type OpenAILLM struct {
	client      *openai.Client
	Model       string
	Temperature float32
	MaxTokens   int
}

// NewOpenAILLM creates an OpenAI chat client. baseURL may be empty.
func NewOpenAILLM(apiKey, baseURL, model string) (*OpenAILLM, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key not set")
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{}

	return &OpenAILLM{
		client:      openai.NewClientWithConfig(cfg),
		Model:       model,
		Temperature: 0.2,
		MaxTokens:   1024,
	}, nil
}

// Name identifies the provider in the interaction log
func (o *OpenAILLM) Name() string {
	return "OpenAI"
}

// Complete sends messages as a single chat completion request
func (o *OpenAILLM) Complete(ctx context.Context, messages []models.Message) (models.Completion, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.Model,
		Messages:    msgs,
		Temperature: o.Temperature,
		MaxTokens:   o.MaxTokens,
	})
	if err != nil {
		return models.Completion{}, classify(fmt.Errorf("OpenAI API error: %w", err), openAIStatus(err))
	}

	if len(resp.Choices) == 0 {
		return models.Completion{}, errors.New("no choices returned from API")
	}

	return models.Completion{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
