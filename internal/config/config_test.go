package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"articleqa/internal/rag/errs"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
logLevel: debug
chunking:
  chunkSize: 1000
  overlap: 200
retrieval:
  topK: 4
embedding:
  provider: gemini
  model: text-embedding-004
  keyEnv: GEMINI_API_KEY
llm:
  provider: ollama
  model: llama3
  baseURL: http://localhost:11434
index:
  cacheDir: .indexes
articles:
  - path: paper.pdf
    doi: 10.1038/s41436-018-0299-7
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 1000, cfg.Chunking.ChunkSize)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, "gemini", cfg.Embedding.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.BaseURL)
	require.Len(t, cfg.Articles, 1)
	assert.Equal(t, "10.1038/s41436-018-0299-7", cfg.Articles[0].DOI)
}

func TestLoadConfig_InvalidParameters(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{
			name: "zero chunk size",
			content: `
chunking:
  chunkSize: 0
  overlap: 0
`,
		},
		{
			name: "overlap not smaller than chunk size",
			content: `
chunking:
  chunkSize: 100
  overlap: 100
`,
		},
		{
			name: "negative topK",
			content: `
chunking:
  chunkSize: 100
  overlap: 10
retrieval:
  topK: -1
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.content))
			require.Error(t, err)
			assert.True(t, errs.IsConfig(err))
		})
	}
}

func TestValidate_NegativeTopKMessage(t *testing.T) {
	cfg := &AppConfig{
		Chunking:  ChunkingConfig{ChunkSize: 100, Overlap: 10},
		Retrieval: RetrievalConfig{TopK: -1},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be negative",
		"zero means the default, so only negative values are rejected")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestModelConfig_KeyResolution(t *testing.T) {
	t.Setenv("ARTICLEQA_TEST_KEY", "from-env")

	assert.Equal(t, "literal", ModelConfig{APIKey: "literal", KeyEnv: "ARTICLEQA_TEST_KEY"}.Key())
	assert.Equal(t, "from-env", ModelConfig{KeyEnv: "ARTICLEQA_TEST_KEY"}.Key())
	assert.Equal(t, "", ModelConfig{}.Key())
}
