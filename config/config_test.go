package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3, cfg.Retrieve.TopN)
	assert.Equal(t, 0.5, cfg.Retrieve.MinSimilarity)
	assert.Equal(t, 1.2, cfg.Retrieve.K1)
	assert.Equal(t, 0.75, cfg.Retrieve.B)
	assert.Equal(t, 0.5, cfg.Escalation.Threshold)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Model)
	assert.Equal(t, 10, cfg.Session.MaxTurns)
	assert.Contains(t, cfg.Escalation.Phrases, "talk to human")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "supportrag.yaml")

	content := `
retrieve:
  top_n: 5
  lexical_fallback: false
escalation:
  threshold: 0.6
  phrases: ["agent please"]
session:
  idle_ttl: 45m
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Retrieve.TopN)
	assert.False(t, cfg.Retrieve.LexicalFallback)
	assert.Equal(t, 0.6, cfg.Escalation.Threshold)
	assert.Equal(t, []string{"agent please"}, cfg.Escalation.Phrases)
	assert.Equal(t, 45*time.Minute, cfg.Session.IdleTTL)
	// untouched sections keep their defaults
	assert.Equal(t, 0.5, cfg.Retrieve.MinSimilarity)
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "supportrag.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("retrieve: ["), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, ".supportrag"), 0755))
	configPath := filepath.Join(tmpDir, ".supportrag", "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("context:\n  max_total_chars: 8000\n"), 0644))

	cfg, err := LoadFromDir(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Context.MaxTotalChars)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supportrag.yaml")
	cfg := DefaultConfig()
	cfg.Retrieve.TopN = 7

	require.NoError(t, cfg.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero top n", func(c *Config) { c.Retrieve.TopN = 0 }, "retrieve.top_n"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "pinecone" }, "store.backend"},
		{"zero candidate score too high", func(c *Config) { c.Confidence.ZeroCandidateScore = 0.4 }, "zero_candidate_score"},
		{"threshold below floor", func(c *Config) {
			c.Confidence.ZeroCandidateScore = 0.2
			c.Escalation.Threshold = 0.1
		}, "below escalation.threshold"},
		{"context budget", func(c *Config) { c.Context.MaxTotalChars = 10 }, "context.max_total_chars"},
		{"no attempts", func(c *Config) { c.Generation.MaxAttempts = 0 }, "generation.max_attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".env"), []byte("SUPPORTRAG_TEST_KEY=secret\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("SUPPORTRAG_TEST_KEY") })

	require.NoError(t, LoadEnv(tmpDir))
	assert.Equal(t, "secret", APIKey("SUPPORTRAG_TEST_KEY"))
	assert.Empty(t, APIKey(""))

	assert.NoError(t, LoadEnv(t.TempDir()), "missing .env is not an error")
}

func TestIndexDBPath(t *testing.T) {
	path := IndexDBPath("/home/user/project")
	assert.Equal(t, filepath.Join("/home/user/project", ".supportrag", "knowledge.db"), path)
}
