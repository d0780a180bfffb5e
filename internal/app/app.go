// Package app builds the long-lived objects shared by the commands: providers,
// corpus, index, retriever, generator, interaction log and service.
package app

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"umpire-rules-rag/internal/answer"
	"umpire-rules-rag/internal/config"
	"umpire-rules-rag/internal/corpus"
	"umpire-rules-rag/internal/database"
	"umpire-rules-rag/internal/embedding"
	"umpire-rules-rag/internal/index"
	"umpire-rules-rag/internal/intent"
	"umpire-rules-rag/internal/llm"
	"umpire-rules-rag/internal/retriever"
	"umpire-rules-rag/internal/scenario"
	"umpire-rules-rag/internal/service"

	"github.com/hack-pad/hackpadfs"
	hackos "github.com/hack-pad/hackpadfs/os"
)

// App holds everything a request needs
type App struct {
	Config    *config.AppConfig
	Retriever *retriever.Retriever
	Generator *answer.Generator
	Service   *service.Service
	Log       *database.InteractionLog

	index index.Store
}

// New loads the corpus, ID map and index once and wires the request pipeline.
// A dimension mismatch between embedder and index is fatal here.
func New(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	fsys := hackos.NewFS()

	corpusPath, err := fsPath(fsys, cfg.Data.Corpus)
	if err != nil {
		return nil, err
	}
	rules, err := corpus.LoadCorpus(fsys, corpusPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	idmapPath, err := fsPath(fsys, cfg.Data.IDMap)
	if err != nil {
		return nil, err
	}
	idmap, err := corpus.LoadIDMap(fsys, idmapPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load id map: %w", err)
	}
	log.Printf("Loaded %d rule chunks and %d id map rows", rules.Len(), idmap.Len())

	opts := index.Options{
		Backend:   cfg.Index.Backend,
		Dimension: cfg.Index.Dimension,
		DSN:       cfg.Index.DSN,
		FS:        fsys,
	}
	if cfg.Index.Path != "" {
		if opts.Path, err = fsPath(fsys, cfg.Index.Path); err != nil {
			return nil, err
		}
	}
	store, err := index.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s index: %w", cfg.Index.Backend, err)
	}

	embedder, err := NewEmbedder(cfg.Embedding)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	provider, err := NewLLM(cfg.LLM)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	r := retriever.NewRetriever(embedder, store, rules, idmap)
	r.Timeout = config.Timeout(cfg.Embedding.TimeoutSecs)
	if err := r.CheckDimensions(); err != nil {
		store.Close()
		return nil, err
	}

	g := answer.NewGenerator(provider, intent.NewClassifier(provider, config.Timeout(cfg.LLM.TimeoutSecs)), scenario.NewChecker(), r)
	g.IDMap = idmap
	g.Timeout = config.Timeout(cfg.LLM.TimeoutSecs)
	g.RetryBackoff = time.Duration(cfg.LLM.RetryBackoffMS) * time.Millisecond

	interactions, err := OpenLog(cfg.Log.DBPath)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &App{
		Config:    cfg,
		Retriever: r,
		Generator: g,
		Service:   service.NewService(r, g, interactions, cfg.TopK),
		Log:       interactions,
		index:     store,
	}, nil
}

// Close releases the index and the interaction log
func (a *App) Close() {
	if err := a.index.Close(); err != nil {
		log.Printf("Failed to close index: %v", err)
	}
	if a.Log != nil {
		if err := a.Log.Close(); err != nil {
			log.Printf("Failed to close interaction log: %v", err)
		}
	}
}

// NewEmbedder creates the configured embedding provider
func NewEmbedder(cfg config.EmbeddingConfig) (retriever.Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(config.APIKey(cfg.APIKeyEnv), cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, err
		}
		e.Timeout = config.Timeout(cfg.TimeoutSecs)
		return e, nil
	case "ollama", "":
		e, err := embedding.NewOllamaEmbedder(cfg.Host, cfg.Model, cfg.Dimension)
		if err != nil {
			return nil, err
		}
		e.Timeout = config.Timeout(cfg.TimeoutSecs)
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// NewLLM creates the configured language model provider
func NewLLM(cfg config.LLMConfig) (llm.Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		o, err := llm.NewOpenAILLM(config.APIKey(cfg.APIKeyEnv), cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, err
		}
		if cfg.Temperature > 0 {
			o.Temperature = cfg.Temperature
		}
		if cfg.MaxTokens > 0 {
			o.MaxTokens = cfg.MaxTokens
		}
		return o, nil
	case "ollama", "":
		o, err := llm.NewOllamaLLM(cfg.Host, cfg.Model)
		if err != nil {
			return nil, err
		}
		if cfg.Temperature > 0 {
			o.Temperature = float64(cfg.Temperature)
		}
		if cfg.MaxTokens > 0 {
			o.MaxTokens = cfg.MaxTokens
		}
		return o, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// OpenLog opens the interaction log, creating its directory when needed
func OpenLog(dbPath string) (*database.InteractionLog, error) {
	if dbPath != ":memory:" {
		fsys := hackos.NewFS()
		dir, err := fsPath(fsys, filepath.Dir(dbPath))
		if err != nil {
			return nil, err
		}
		if err := hackpadfs.MkdirAll(fsys, dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	l, err := database.NewInteractionLog(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open interaction log: %w", err)
	}
	return l, nil
}

// fsPath converts an OS path into a path on the root hackpadfs OS filesystem
func fsPath(fsys *hackos.FS, p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", p, err)
	}
	fp, err := fsys.FromOSPath(abs)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", p, err)
	}
	return fp, nil
}
