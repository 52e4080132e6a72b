// Package cli implements the supportrag command line.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EmonKarmaker/ai-support-system/config"
	"github.com/EmonKarmaker/ai-support-system/internal/app"
	"github.com/EmonKarmaker/ai-support-system/internal/logging"
)

// Version is set at build time.
var Version = "dev"

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	logger   *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "supportrag",
	Short: "Retrieval-augmented customer support assistant",
	Long: `supportrag answers customer questions from a knowledge base of
question/answer pairs, and hands conversations to a human agent when it
is not confident or the customer asks for one.

Example usage:
  supportrag load ./data                   # Load a dataset
  supportrag ask "How do I return an item?"
  supportrag search -q "refund" -c returns
  supportrag serve                         # Start the HTTP API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if err := config.LoadEnv(rootDir); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./supportrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "project directory holding .supportrag/ (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

// openDependencies wires the engine for a command. The caller closes it.
func openDependencies(rebuild bool) (*app.Dependencies, error) {
	deps, err := app.NewDependencies(cfg, app.Options{Root: rootDir, Rebuild: rebuild}, logger)
	if errors.Is(err, app.ErrNeedsRebuild) {
		return nil, fmt.Errorf("%w\nRun 'supportrag load --rebuild' to reload the dataset", err)
	}
	return deps, err
}
