package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"articleqa/internal/rag/errs"
)

// ChunkingConfig controls how document text is cut into passages.
type ChunkingConfig struct {
	ChunkSize int `yaml:"chunkSize"` // maximum passage length in characters
	Overlap   int `yaml:"overlap"`   // trailing characters repeated at the start of the next passage
}

// RetrievalConfig controls query-time retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"topK"` // number of passages supplied as context per question
}

// ModelConfig identifies one provider-hosted model.
type ModelConfig struct {
	Provider string `yaml:"provider"` // "gemini", "openai" or "ollama"
	Model    string `yaml:"model"`    // model name at the provider
	APIKey   string `yaml:"apiKey"`   // API key; falls back to APIKeyEnv when empty
	KeyEnv   string `yaml:"keyEnv"`   // environment variable holding the API key
	BaseURL  string `yaml:"baseURL"`  // service address, for self-hosted providers
}

// Key resolves the API key, preferring the literal value over the
// environment variable.
func (m ModelConfig) Key() string {
	if m.APIKey != "" {
		return m.APIKey
	}
	if m.KeyEnv != "" {
		return os.Getenv(m.KeyEnv)
	}
	return ""
}

// IndexConfig controls where built passage indexes are persisted.
type IndexConfig struct {
	CacheDir string `yaml:"cacheDir"` // directory holding one subdirectory per content key
}

// MilvusConfig configures the optional remote vector index backend.
type MilvusConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Address    string `yaml:"address"`
	Collection string `yaml:"collection"`
}

// PubMedConfig configures the article metadata lookup.
type PubMedConfig struct {
	BaseURL        string `yaml:"baseURL"`        // E-utilities base URL; defaults to the NCBI endpoint
	TimeoutSeconds int    `yaml:"timeoutSeconds"` // per-request timeout
}

// FilesConfig names the input and output tables of the batch driver.
type FilesConfig struct {
	Questions string `yaml:"questions"` // question table, .csv or .xlsx
	Answers   string `yaml:"answers"`   // answers table to write, .csv or .xlsx
}

// ArticleConfig names one article to process.
type ArticleConfig struct {
	Path string `yaml:"path"` // document file, .pdf or .txt
	DOI  string `yaml:"doi"`  // optional DOI for the PubMed metadata lookup
}

// AppConfig is the root configuration, loaded from a YAML file.
type AppConfig struct {
	LogLevel  string          `yaml:"logLevel"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Embedding ModelConfig     `yaml:"embedding"`
	LLM       ModelConfig     `yaml:"llm"`
	Index     IndexConfig     `yaml:"index"`
	Milvus    MilvusConfig    `yaml:"milvus"`
	PubMed    PubMedConfig    `yaml:"pubmed"`
	Files     FilesConfig     `yaml:"files"`
	Articles  []ArticleConfig `yaml:"articles"`
}

// LoadConfig reads and parses the YAML configuration file and validates the
// engine parameters. Invalid chunking or retrieval parameters abort startup
// before any provider is contacted.
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the engine parameters. It mirrors the component-level
// checks so that a bad configuration fails at startup rather than halfway
// through a batch.
func (c *AppConfig) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return errs.Configf("chunking.chunkSize must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return errs.Configf("chunking.overlap must satisfy 0 <= overlap < chunkSize, got %d", c.Chunking.Overlap)
	}
	if c.Retrieval.TopK < 0 {
		return errs.Configf("retrieval.topK must not be negative, got %d", c.Retrieval.TopK)
	}
	return nil
}
