package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the support engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Store      StoreConfig      `yaml:"store"`
	LLM        LLMConfig        `yaml:"llm"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Context    ContextConfig    `yaml:"context"`
	Generation GenerationConfig `yaml:"generation"`
	Confidence ConfidenceConfig `yaml:"confidence"`
	Escalation EscalationConfig `yaml:"escalation"`
	Session    SessionConfig    `yaml:"session"`
	Notify     NotifyConfig     `yaml:"notify"`
	Load       LoadConfig       `yaml:"load"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider       string        `yaml:"provider"` // "local", "openai", "jina", "ollama"
	Model          string        `yaml:"model"`
	BaseURL        string        `yaml:"base_url"`
	APIKeyEnv      string        `yaml:"api_key_env"` // Environment variable for API key
	Dimension      int           `yaml:"dimension"`
	BatchSize      int           `yaml:"batch_size"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	Backoff        time.Duration `yaml:"backoff"`
	QuestionWeight float64       `yaml:"question_weight"` // Share of the question vector in an entry embedding
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	Backend       string        `yaml:"backend"` // "bolt" or "memory"
	Path          string        `yaml:"path"`    // Defaults to .supportrag/knowledge.db
	SearchTimeout time.Duration `yaml:"search_timeout"`
}

// LLMConfig holds completion provider configuration.
type LLMConfig struct {
	Provider  string        `yaml:"provider"` // "groq", "openai", "deepseek", "ollama", "none"
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopN              int           `yaml:"top_n"`
	OverFetch         int           `yaml:"over_fetch"`
	MinSimilarity     float64       `yaml:"min_similarity"`
	DedupJaccard      float64       `yaml:"dedup_jaccard"` // Collapse near-identical questions above this overlap (0 = disabled)
	LexicalFallback   bool          `yaml:"lexical_fallback"`
	LexicalScoreScale float64       `yaml:"lexical_score_scale"`
	K1                float64       `yaml:"k1"`
	B                 float64       `yaml:"b"`
	CacheSize         int           `yaml:"cache_size"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
}

// ContextConfig bounds the grounding context handed to the generator.
type ContextConfig struct {
	MaxEntryChars   int    `yaml:"max_entry_chars"`
	MaxTotalChars   int    `yaml:"max_total_chars"`
	NoContextMarker string `yaml:"no_context_marker"`
}

// GenerationConfig holds answer generation policy.
type GenerationConfig struct {
	Temperature    float64       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	HistoryTurns   int           `yaml:"history_turns"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	NoAnswerText   string        `yaml:"no_answer_text"` // Served when generation fails and nothing was retrieved
	StoreName      string        `yaml:"store_name"`
}

// ConfidenceConfig holds the weights of the confidence score.
type ConfidenceConfig struct {
	SimilarityWeight    float64 `yaml:"similarity_weight"`
	CorroborationWeight float64 `yaml:"corroboration_weight"`
	GenerationWeight    float64 `yaml:"generation_weight"`
	CorroborationTarget int     `yaml:"corroboration_target"`
	ZeroCandidateScore  float64 `yaml:"zero_candidate_score"`
}

// EscalationConfig holds the hand-off policy.
type EscalationConfig struct {
	Threshold         float64  `yaml:"threshold"`
	Phrases           []string `yaml:"phrases"`
	ResolutionPhrases []string `yaml:"resolution_phrases"`
	AskForContact     bool     `yaml:"ask_for_contact"`
	ContactPrompt     string   `yaml:"contact_prompt"`
	TranscriptTurns   int      `yaml:"transcript_turns"`
	Workers           int      `yaml:"workers"`
	QueueSize         int      `yaml:"queue_size"`
}

// SessionConfig holds conversation history limits.
type SessionConfig struct {
	MaxTurns      int           `yaml:"max_turns"`
	IdleTTL       time.Duration `yaml:"idle_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// NotifyConfig holds the workflow webhook configuration.
type NotifyConfig struct {
	WebhookURLEnv string        `yaml:"webhook_url_env"`
	Timeout       time.Duration `yaml:"timeout"`
}

// LoadConfig holds dataset loading configuration.
type LoadConfig struct {
	Includes  []string `yaml:"includes"`
	Excludes  []string `yaml:"excludes"`
	BatchSize int      `yaml:"batch_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Embedding: EmbeddingConfig{
			Provider:       "local",
			Model:          "hash-bow-v1",
			APIKeyEnv:      "OPENAI_API_KEY",
			Dimension:      384,
			BatchSize:      100,
			Timeout:        20 * time.Second,
			MaxAttempts:    3,
			Backoff:        500 * time.Millisecond,
			QuestionWeight: 0.8,
		},
		Store: StoreConfig{
			Backend:       "bolt",
			SearchTimeout: 5 * time.Second,
		},
		LLM: LLMConfig{
			Provider:  "groq",
			Model:     "llama-3.3-70b-versatile",
			APIKeyEnv: "GROQ_API_KEY",
			Timeout:   30 * time.Second,
		},
		Retrieve: RetrieveConfig{
			TopN:              3,
			OverFetch:         2,
			MinSimilarity:     0.5,
			DedupJaccard:      0.9,
			LexicalFallback:   true,
			LexicalScoreScale: 0.6,
			K1:                1.2,
			B:                 0.75,
			CacheSize:         256,
			CacheTTL:          5 * time.Minute,
		},
		Context: ContextConfig{
			MaxEntryChars:   800,
			MaxTotalChars:   3000,
			NoContextMarker: "No relevant knowledge base entries were found.",
		},
		Generation: GenerationConfig{
			Temperature:    0.2,
			MaxTokens:      512,
			HistoryTurns:   6,
			MaxAttempts:    3,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     4 * time.Second,
			NoAnswerText:   "I'm sorry, I couldn't find an answer to that right now.",
			StoreName:      "TechStore",
		},
		Confidence: ConfidenceConfig{
			SimilarityWeight:    0.7,
			CorroborationWeight: 0.2,
			GenerationWeight:    0.1,
			CorroborationTarget: 3,
			ZeroCandidateScore:  0,
		},
		Escalation: EscalationConfig{
			Threshold: 0.5,
			Phrases: []string{
				"talk to human", "talk to a human", "speak to agent", "speak to an agent",
				"speak to a human", "human agent", "real person", "support team",
				"escalate", "not helpful", "still need help", "manager", "supervisor",
				"complaint",
			},
			ResolutionPhrases: []string{
				"that helped", "that solved it", "problem solved", "issue resolved",
				"it's resolved", "its resolved", "all good now", "works now", "never mind",
			},
			AskForContact:   true,
			ContactPrompt:   "\n\n---\nI'd be happy to connect you with our support team! Please provide your email address, and someone will reach out to you shortly.",
			TranscriptTurns: 10,
			Workers:         2,
			QueueSize:       64,
		},
		Session: SessionConfig{
			MaxTurns:      10,
			IdleTTL:       30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Notify: NotifyConfig{
			WebhookURLEnv: "N8N_WEBHOOK_URL",
			Timeout:       30 * time.Second,
		},
		Load: LoadConfig{
			Includes:  []string{"**/*.csv", "**/*.json", "**/*.jsonl"},
			Excludes:  []string{"**/.git/**", "**/node_modules/**", "**/.supportrag/**"},
			BatchSize: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for supportrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "supportrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".supportrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// LoadEnv reads a .env file from dir into the process environment.
// Variables already set are left alone; a missing file is not an error.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks that tunables are within their meaningful ranges.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Embedding.Dimension > 0, "embedding.dimension must be positive")
	check(c.Embedding.QuestionWeight >= 0 && c.Embedding.QuestionWeight <= 1, "embedding.question_weight must be in [0,1]")
	check(c.Store.Backend == "bolt" || c.Store.Backend == "memory", "store.backend must be bolt or memory, got %q", c.Store.Backend)
	check(c.Retrieve.TopN > 0, "retrieve.top_n must be positive")
	check(c.Retrieve.OverFetch >= 1, "retrieve.over_fetch must be at least 1")
	check(c.Retrieve.MinSimilarity >= -1 && c.Retrieve.MinSimilarity <= 1, "retrieve.min_similarity must be in [-1,1]")
	check(c.Retrieve.DedupJaccard >= 0 && c.Retrieve.DedupJaccard <= 1, "retrieve.dedup_jaccard must be in [0,1]")
	check(c.Retrieve.LexicalScoreScale > 0 && c.Retrieve.LexicalScoreScale <= 1, "retrieve.lexical_score_scale must be in (0,1]")
	check(c.Context.MaxEntryChars > 0, "context.max_entry_chars must be positive")
	check(c.Context.MaxTotalChars >= c.Context.MaxEntryChars, "context.max_total_chars must be at least max_entry_chars")
	check(c.Context.NoContextMarker != "", "context.no_context_marker must not be empty")
	check(c.Generation.MaxAttempts >= 1, "generation.max_attempts must be at least 1")
	check(c.Generation.Temperature >= 0 && c.Generation.Temperature <= 2, "generation.temperature must be in [0,2]")
	check(c.Generation.HistoryTurns >= 0, "generation.history_turns must not be negative")
	check(c.Confidence.CorroborationTarget > 0, "confidence.corroboration_target must be positive")
	check(c.Confidence.ZeroCandidateScore >= 0 && c.Confidence.ZeroCandidateScore <= 0.3,
		"confidence.zero_candidate_score must be in [0,0.3]")
	check(c.Escalation.Threshold > 0 && c.Escalation.Threshold <= 1, "escalation.threshold must be in (0,1]")
	check(c.Confidence.ZeroCandidateScore < c.Escalation.Threshold,
		"confidence.zero_candidate_score must be below escalation.threshold")
	check(c.Session.MaxTurns > 0, "session.max_turns must be positive")
	check(c.Session.IdleTTL > 0, "session.idle_ttl must be positive")

	return errors.Join(errs...)
}

// DataDir returns the directory holding local state.
func DataDir(dir string) string {
	return filepath.Join(dir, ".supportrag")
}

// IndexDBPath returns the path to the knowledge database.
func IndexDBPath(dir string) string {
	return filepath.Join(DataDir(dir), "knowledge.db")
}

// EnsureDataDir ensures the .supportrag directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(DataDir(dir), 0755)
}

// APIKey resolves a key from the environment variable named by envName.
func APIKey(envName string) string {
	if envName == "" {
		return ""
	}
	return os.Getenv(envName)
}
