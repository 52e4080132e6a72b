// Package app wires the support engine from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/EmonKarmaker/ai-support-system/config"
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/analyzer"
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/cache"
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/embedding"
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/fs"
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/llm"
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/memstore"
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/notify"
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/retriever"
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/session"
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/store"
	"github.com/EmonKarmaker/ai-support-system/internal/port"
	"github.com/EmonKarmaker/ai-support-system/internal/retry"
	"github.com/EmonKarmaker/ai-support-system/internal/usecase"
)

// ErrNeedsRebuild is returned when the stored vectors were produced by a
// different embedding model or dimension.
var ErrNeedsRebuild = errors.New("knowledge base needs rebuild")

// Options controls how the dependencies are opened.
type Options struct {
	Root    string // project directory holding .supportrag/
	Rebuild bool   // clear an incompatible knowledge base instead of failing
}

// Dependencies holds the wired application.
type Dependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Embedder port.Embedder
	Store    port.VectorStore
	LLM      port.LLM // nil when no completion provider is configured
	Notifier port.Notifier
	Sessions *session.MemoryStore
	Walker   *fs.Walker
	Engine   *usecase.Engine
	Loader   *usecase.LoadUseCase

	closers []func(context.Context) error
}

// NewDependencies creates and wires every component.
func NewDependencies(cfg *config.Config, opts Options, logger *zap.Logger) (*Dependencies, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dependencies{Config: cfg, Logger: logger}

	if err := d.initEmbedder(); err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	if err := d.initStore(opts); err != nil {
		d.Close(context.Background())
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	d.initLLM()
	d.initNotifier()

	if err := d.initEngine(); err != nil {
		d.Close(context.Background())
		return nil, err
	}

	logger.Debug("dependencies initialized",
		zap.String("embedder", d.Embedder.ModelName()),
		zap.Int("dimension", d.Embedder.Dimension()),
		zap.String("store", cfg.Store.Backend),
		zap.Bool("llm", d.LLM != nil))
	return d, nil
}

func (d *Dependencies) initEmbedder() error {
	c := d.Config.Embedding
	opts := embedding.Options{
		Dimension: c.Dimension,
		BatchSize: c.BatchSize,
		Timeout:   c.Timeout,
		Retry: retry.Policy{
			MaxAttempts:    c.MaxAttempts,
			InitialBackoff: c.Backoff,
			MaxBackoff:     8 * c.Backoff,
		},
	}

	var err error
	switch c.Provider {
	case "local", "":
		d.Embedder = embedding.NewHashEmbedder(c.Dimension)
	case "openai":
		d.Embedder, err = embedding.NewOpenAIEmbedder(c.APIKeyEnv, c.Model, opts)
	case "jina":
		d.Embedder, err = embedding.NewJinaEmbedder(c.APIKeyEnv, c.Model, opts)
	case "ollama":
		d.Embedder = embedding.NewOllamaEmbedder(c.Model, c.BaseURL, opts)
	case "openai-compatible":
		d.Embedder, err = embedding.NewOpenAICompatibleEmbedder(c.APIKeyEnv, c.Model, c.BaseURL, opts)
	default:
		return fmt.Errorf("unknown embedding provider: %s", c.Provider)
	}
	return err
}

func (d *Dependencies) initStore(opts Options) error {
	switch d.Config.Store.Backend {
	case "memory":
		d.Store = memstore.NewMemoryVectorStore(d.Embedder.Dimension())
		return nil
	case "bolt":
	default:
		return fmt.Errorf("unknown store backend: %s", d.Config.Store.Backend)
	}

	path := d.Config.Store.Path
	if path == "" {
		if err := config.EnsureDataDir(opts.Root); err != nil {
			return err
		}
		path = config.IndexDBPath(opts.Root)
	}

	bolt, err := store.OpenBoltVectorStore(path, d.Embedder.Dimension(), d.Embedder.ModelName())
	if err != nil {
		return err
	}
	d.Store = bolt
	d.closers = append(d.closers, func(context.Context) error { return bolt.Close() })

	check, err := bolt.CheckCompatibility()
	if err != nil {
		return err
	}
	if !check.NeedsRebuild {
		return nil
	}
	if !opts.Rebuild {
		return fmt.Errorf("%w: %s", ErrNeedsRebuild, check.Reason)
	}
	d.Logger.Warn("clearing incompatible knowledge base", zap.String("reason", check.Reason))
	return bolt.Clear(context.Background())
}

// initLLM leaves LLM nil when the provider is disabled or cannot be set up;
// the engine then answers with stored answers.
func (d *Dependencies) initLLM() {
	c := d.Config.LLM
	if c.Provider == "none" {
		return
	}
	client, err := llm.NewChatClient(c.Provider, c.Model, c.BaseURL, c.APIKeyEnv, c.Timeout)
	if err != nil {
		d.Logger.Warn("completion provider unavailable, answers will use stored entries", zap.Error(err))
		return
	}
	d.LLM = client
}

func (d *Dependencies) initNotifier() {
	url := config.APIKey(d.Config.Notify.WebhookURLEnv)
	if url == "" {
		d.Notifier = notify.NewLogNotifier(d.Logger)
		return
	}
	d.Notifier = notify.NewWebhook(url, d.Config.Notify.Timeout)
}

func (d *Dependencies) initEngine() error {
	cfg := d.Config
	tok := analyzer.NewTokenizer(true)

	var lexical *retriever.LexicalRetriever
	if cfg.Retrieve.LexicalFallback {
		lexical = retriever.NewLexicalRetriever(tok, cfg.Retrieve.K1, cfg.Retrieve.B, cfg.Retrieve.LexicalScoreScale)
	}
	var dedup *retriever.NearDuplicateFilter
	if cfg.Retrieve.DedupJaccard > 0 {
		dedup = retriever.NewNearDuplicateFilter(tok, cfg.Retrieve.DedupJaccard)
	}
	var qc *cache.QueryCache
	if cfg.Retrieve.CacheSize > 0 {
		qc = cache.NewQueryCache(cfg.Retrieve.CacheSize, cfg.Retrieve.CacheTTL)
	}

	ret := usecase.NewRetriever(d.Embedder, d.Store, lexical, dedup, qc, usecase.RetrieveOptions{
		TopN:            cfg.Retrieve.TopN,
		OverFetch:       cfg.Retrieve.OverFetch,
		MinSimilarity:   cfg.Retrieve.MinSimilarity,
		LexicalMinScore: cfg.Retrieve.MinSimilarity * cfg.Retrieve.LexicalScoreScale,
		EmbedTimeout:    cfg.Embedding.Timeout,
		SearchTimeout:   cfg.Store.SearchTimeout,
	}, d.Logger.Named("retrieve"))

	gen, err := usecase.NewGenerator(d.LLM, usecase.GenerationOptions{
		StoreName:    cfg.Generation.StoreName,
		Temperature:  cfg.Generation.Temperature,
		MaxTokens:    cfg.Generation.MaxTokens,
		HistoryTurns: cfg.Generation.HistoryTurns,
		Timeout:      cfg.LLM.Timeout,
		Retry: retry.Policy{
			MaxAttempts:    cfg.Generation.MaxAttempts,
			InitialBackoff: cfg.Generation.InitialBackoff,
			MaxBackoff:     cfg.Generation.MaxBackoff,
		},
	}, d.Logger.Named("generate"))
	if err != nil {
		return fmt.Errorf("failed to initialize generator: %w", err)
	}

	d.Sessions = session.NewMemoryStore(cfg.Session.MaxTurns, cfg.Session.IdleTTL)
	dispatcher := usecase.NewEscalationDispatcher(d.Notifier, usecase.DispatcherOptions{
		Workers:     cfg.Escalation.Workers,
		QueueSize:   cfg.Escalation.QueueSize,
		SendTimeout: cfg.Notify.Timeout,
	}, d.Logger.Named("escalation"))

	d.Engine, err = usecase.NewEngine(usecase.EngineComponents{
		Embedder:  d.Embedder,
		Store:     d.Store,
		Cache:     qc,
		Retriever: ret,
		Assembler: usecase.NewContextAssembler(usecase.ContextOptions{
			MaxEntryChars:   cfg.Context.MaxEntryChars,
			MaxTotalChars:   cfg.Context.MaxTotalChars,
			NoContextMarker: cfg.Context.NoContextMarker,
		}),
		Generator: gen,
		Scorer: usecase.NewConfidenceScorer(usecase.ConfidenceOptions{
			SimilarityWeight:    cfg.Confidence.SimilarityWeight,
			CorroborationWeight: cfg.Confidence.CorroborationWeight,
			GenerationWeight:    cfg.Confidence.GenerationWeight,
			CorroborationTarget: cfg.Confidence.CorroborationTarget,
			ZeroCandidateScore:  cfg.Confidence.ZeroCandidateScore,
		}),
		Policy: usecase.NewEscalationPolicy(cfg.Escalation.Threshold,
			usecase.NewIntentDetector(cfg.Escalation.Phrases, cfg.Escalation.ResolutionPhrases)),
		Sessions:   d.Sessions,
		Dispatcher: dispatcher,
	}, usecase.EngineOptions{
		TopN:            cfg.Retrieve.TopN,
		QuestionWeight:  cfg.Embedding.QuestionWeight,
		TranscriptTurns: cfg.Escalation.TranscriptTurns,
		AskForContact:   cfg.Escalation.AskForContact,
		ContactPrompt:   cfg.Escalation.ContactPrompt,
		NoAnswerText:    cfg.Generation.NoAnswerText,
		IngestBatchSize: cfg.Load.BatchSize,
	}, d.Logger.Named("engine"))
	if err != nil {
		dispatcher.Close(context.Background())
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	d.closers = append(d.closers, d.Engine.Close)

	d.Walker = fs.NewWalker(cfg.Load.Includes, cfg.Load.Excludes)
	d.Loader = usecase.NewLoadUseCase(d.Engine, d.Walker, d.Logger.Named("load"))
	return nil
}

// RunBackground starts the session sweeper. It returns when ctx ends.
func (d *Dependencies) RunBackground(ctx context.Context) {
	d.Sessions.Run(ctx, d.Config.Session.SweepInterval, d.Logger.Named("session"))
}

// Close drains pending escalations and closes the store, in reverse order of
// creation.
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
