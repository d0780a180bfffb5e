package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// OllamaEmbedder generates embeddings using Ollama API
type OllamaEmbedder struct {
	Client  *api.Client
	Model   string
	Dim     int
	Timeout time.Duration
}

// NewOllamaEmbedder creates a new Ollama embedder producing dim-length vectors
func NewOllamaEmbedder(host string, model string, dim int) (*OllamaEmbedder, error) {
	hostURL := envconfig.Host()
	if host != "" {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
		}
		hostURL = u
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	return &OllamaEmbedder{
		Client:  client,
		Model:   model,
		Dim:     dim,
		Timeout: time.Second * 30,
	}, nil
}

// Dimension returns the configured embedding length
func (e *OllamaEmbedder) Dimension() int {
	return e.Dim
}

// Embed generates an embedding for a text. Failures are not retried here.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := api.EmbeddingRequest{
		Model:   e.Model,
		Prompt:  text,
		Options: map[string]any{},
	}

	// Create a context with timeout
	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	resp, err := e.Client.Embeddings(ctxWithTimeout, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned for model %s", e.Model)
	}

	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
