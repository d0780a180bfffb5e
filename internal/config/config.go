package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DataConfig locates the rulebook corpus and its ID map
type DataConfig struct {
	Corpus string `yaml:"corpus"`
	IDMap  string `yaml:"idmap"`
}

// IndexConfig selects and configures the vector index backend
type IndexConfig struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	DSN       string `yaml:"dsn"`
	Dimension int    `yaml:"dimension"`
}

// EmbeddingConfig selects and configures the embedding provider
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	Host        string `yaml:"host"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// LLMConfig selects and configures the language model provider
type LLMConfig struct {
	Provider       string  `yaml:"provider"`
	Model          string  `yaml:"model"`
	Host           string  `yaml:"host"`
	BaseURL        string  `yaml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	Temperature    float32 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSecs    int     `yaml:"timeout_secs"`
	RetryBackoffMS int     `yaml:"retry_backoff_ms"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig locates the interaction log and its CSV backups
type LogConfig struct {
	DBPath    string `yaml:"db_path"`
	BackupDir string `yaml:"backup_dir"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Data      DataConfig      `yaml:"data"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	TopK      int             `yaml:"top_k"`
}

// Load reads a config from path and applies environment overrides. A missing
// file yields the defaults.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	ApplyEnv(cfg, os.Getenv)
	applyConfigDefaults(cfg)
	return cfg, nil
}

// Parse decodes YAML and fills defaults, without environment overrides
func Parse(data []byte) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// ApplyEnv overrides config values from the environment
func ApplyEnv(cfg *AppConfig, getenv func(string) string) {
	if v := getenv("USE_OPENAI"); v != "" {
		if useOpenAI, err := strconv.ParseBool(v); err == nil {
			if useOpenAI {
				cfg.Embedding.Provider = "openai"
				cfg.LLM.Provider = "openai"
			} else {
				cfg.Embedding.Provider = "ollama"
				cfg.LLM.Provider = "ollama"
			}
		}
	}
	if v := getenv("OLLAMA_HOST"); v != "" {
		if cfg.Embedding.Host == "" {
			cfg.Embedding.Host = v
		}
		if cfg.LLM.Host == "" {
			cfg.LLM.Host = v
		}
	}
	if v := getenv("KB_PATH"); v != "" {
		cfg.Data.Corpus = v
	}
	if v := getenv("UMP_DB_PATH"); v != "" {
		cfg.Log.DBPath = v
	}
	if v := getenv("UMP_PG_URL"); v != "" {
		cfg.Index.Backend = "pgvector"
		cfg.Index.DSN = v
	}
}

// APIKey returns the OpenAI key named by the provider's api_key_env
func APIKey(envName string) string {
	return strings.TrimSpace(os.Getenv(envName))
}

// Timeout converts a seconds setting to a duration
func Timeout(secs int) time.Duration {
	return time.Duration(secs) * time.Second
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Data.Corpus == "" {
		cfg.Data.Corpus = "data/chunks/rules.chunks.jsonl"
	}
	if cfg.Data.IDMap == "" {
		cfg.Data.IDMap = "data/chunks/rules.idmap.csv"
	}
	if cfg.TopK == 0 {
		cfg.TopK = 5
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.TimeoutSecs == 0 {
		cfg.Embedding.TimeoutSecs = 30
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	switch cfg.Embedding.Provider {
	case "openai":
		if cfg.Embedding.Model == "" {
			cfg.Embedding.Model = "text-embedding-3-large"
		}
		if cfg.Embedding.Dimension == 0 {
			cfg.Embedding.Dimension = 3072
		}
	default:
		if cfg.Embedding.Model == "" {
			cfg.Embedding.Model = "nomic-embed-text"
		}
		if cfg.Embedding.Dimension == 0 {
			cfg.Embedding.Dimension = 768
		}
	}

	if cfg.Index.Backend == "" {
		cfg.Index.Backend = "hnsw"
	}
	if cfg.Index.Backend == "hnsw" && cfg.Index.Path == "" {
		cfg.Index.Path = "data/chunks/index/rules.hnsw"
	}
	if cfg.Index.Backend == "sqlitevec" && cfg.Index.DSN == "" {
		cfg.Index.DSN = "data/chunks/index/rules.vec.db"
	}
	if cfg.Index.Dimension == 0 {
		cfg.Index.Dimension = cfg.Embedding.Dimension
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "ollama"
	}
	if cfg.LLM.Model == "" {
		if cfg.LLM.Provider == "openai" {
			cfg.LLM.Model = "gpt-4o-mini"
		} else {
			cfg.LLM.Model = "llama3.1"
		}
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 30
	}
	if cfg.LLM.RetryBackoffMS == 0 {
		cfg.LLM.RetryBackoffMS = 500
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Log.DBPath == "" {
		cfg.Log.DBPath = "logs/app_data.db"
	}
	if cfg.Log.BackupDir == "" {
		cfg.Log.BackupDir = "logs/backups"
	}
}
