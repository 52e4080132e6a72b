package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EmonKarmaker/ai-support-system/internal/server"
	"github.com/EmonKarmaker/ai-support-system/internal/usecase"
)

var (
	serveAddr string
	serveSeed string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the support API. With --seed, the dataset directory is loaded
when the knowledge base is empty.

Examples:
  supportrag serve
  supportrag serve --addr :9000 --seed ./data`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveSeed, "seed", "", "dataset directory to load into an empty knowledge base")
}

func runServe(cmd *cobra.Command, args []string) error {
	deps, err := openDependencies(false)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serveSeed != "" {
		if err := seedKnowledgeBase(ctx, deps.Loader, deps.Store.Count, serveSeed); err != nil {
			deps.Close(context.Background())
			return err
		}
	}

	srvCfg := cfg.Server
	if serveAddr != "" {
		srvCfg.Addr = serveAddr
	}
	llmModel := "none"
	if deps.LLM != nil {
		llmModel = deps.LLM.ModelName()
	}
	srv := server.New(deps.Engine, srvCfg, server.Info{
		Version:        Version,
		EmbeddingModel: deps.Embedder.ModelName(),
		LLMModel:       llmModel,
		VectorStore:    cfg.Store.Backend,
	}, logger.Named("http"))

	go deps.RunBackground(ctx)

	serveErr := srv.ListenAndServe(ctx)

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := deps.Close(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
	return serveErr
}

// seedKnowledgeBase loads dir when the knowledge base holds no entries.
func seedKnowledgeBase(ctx context.Context, l *usecase.LoadUseCase, count func(context.Context) (int, error), dir string) error {
	n, err := count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}
	if n > 0 {
		logger.Info("knowledge base already populated", zap.Int("entries", n))
		return nil
	}

	result, err := l.Load(ctx, dir, false, nil)
	if err != nil {
		return fmt.Errorf("failed to seed knowledge base: %w", err)
	}
	for _, e := range result.Errors {
		logger.Warn("dataset problem", zap.String("error", e))
	}
	return nil
}
