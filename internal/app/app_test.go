package app

import (
	"context"
	"testing"

	"umpire-rules-rag/internal/config"
	"umpire-rules-rag/internal/embedding"
	"umpire-rules-rag/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedder(t *testing.T) {
	t.Setenv("UMP_TEST_KEY", "sk-test")

	e, err := NewEmbedder(config.EmbeddingConfig{Provider: "openai", APIKeyEnv: "UMP_TEST_KEY", TimeoutSecs: 5})
	require.NoError(t, err)
	assert.IsType(t, &embedding.OpenAIEmbedder{}, e)
	assert.Equal(t, 3072, e.Dimension())

	e, err = NewEmbedder(config.EmbeddingConfig{Provider: "ollama", Host: "http://localhost:11434", Model: "nomic-embed-text", Dimension: 768})
	require.NoError(t, err)
	assert.Equal(t, 768, e.Dimension())

	_, err = NewEmbedder(config.EmbeddingConfig{Provider: "faiss"})
	assert.Error(t, err)

	_, err = NewEmbedder(config.EmbeddingConfig{Provider: "openai", APIKeyEnv: "UMP_TEST_MISSING_KEY"})
	assert.Error(t, err)
}

func TestNewLLM(t *testing.T) {
	t.Setenv("UMP_TEST_KEY", "sk-test")

	p, err := NewLLM(config.LLMConfig{Provider: "openai", APIKeyEnv: "UMP_TEST_KEY", Temperature: 0.4, MaxTokens: 256})
	require.NoError(t, err)
	o, ok := p.(*llm.OpenAILLM)
	require.True(t, ok)
	assert.InDelta(t, 0.4, o.Temperature, 1e-6)
	assert.Equal(t, 256, o.MaxTokens)
	assert.Equal(t, "OpenAI", p.Name())

	p, err = NewLLM(config.LLMConfig{Provider: "ollama", Host: "http://localhost:11434", Model: "llama3.1"})
	require.NoError(t, err)
	assert.Equal(t, "Ollama", p.Name())

	_, err = NewLLM(config.LLMConfig{Provider: "claude"})
	assert.Error(t, err)
}

func TestOpenLog_Memory(t *testing.T) {
	l, err := OpenLog(":memory:")
	require.NoError(t, err)
	defer l.Close()

	all, err := l.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
