package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EmonKarmaker/ai-support-system/internal/adapter/loader"
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/watcher"
	"github.com/EmonKarmaker/ai-support-system/internal/usecase"
)

var (
	loadRebuild bool
	loadWatch   bool
)

var loadCmd = &cobra.Command{
	Use:   "load [path]",
	Short: "Load a dataset into the knowledge base",
	Long: `Load CSV, JSON and JSONL files of question/answer pairs into the
knowledge base. Records are upserted by ID, so loading a file twice does not
duplicate entries.

Examples:
  supportrag load ./data             # Load every dataset file below ./data
  supportrag load ./data --rebuild   # Clear the knowledge base first
  supportrag load ./data --watch     # Keep reloading files as they change`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().BoolVar(&loadRebuild, "rebuild", false, "clear the knowledge base before loading")
	loadCmd.Flags().BoolVarP(&loadWatch, "watch", "w", false, "watch the dataset directory and reload changed files")
}

func runLoad(cmd *cobra.Command, args []string) error {
	path := rootDir
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	deps, err := openDependencies(loadRebuild)
	if err != nil {
		return err
	}
	defer deps.Close(context.Background())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Scanning %s...\n", path)
	result, err := deps.Loader.Load(ctx, path, loadRebuild, newLoadProgress())
	if result != nil {
		printLoadResult(result)
	}
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	if result.FilesLoaded+result.FilesFailed == 0 {
		fmt.Printf("No dataset files found (supported: %s)\n", strings.Join(loader.SupportedExtensions(), ", "))
	}

	if !loadWatch {
		return nil
	}
	return watchDataset(ctx, path, deps.Loader, deps.Walker.Match)
}

// newLoadProgress renders a progress bar with an ETA. The bar is created on
// the first callback, once the file count is known.
func newLoadProgress() func(usecase.LoadProgress) {
	var (
		bar       *progressbar.ProgressBar
		mu        sync.Mutex
		startTime time.Time
	)

	return func(p usecase.LoadProgress) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(p.FilesTotal,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Loading[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		_ = bar.Set(p.FilesDone)

		if p.FilesDone > 0 && p.FilesDone < p.FilesTotal {
			rate := float64(p.FilesDone) / time.Since(startTime).Seconds()
			if rate > 0 {
				eta := time.Duration(float64(p.FilesTotal-p.FilesDone)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Loading[reset] %s ETA: %s", p.CurrentFile, formatDuration(eta)))
			}
		}
	}
}

func printLoadResult(result *usecase.LoadResult) {
	fmt.Printf("\nLoading complete:\n")
	fmt.Printf("  Files loaded:    %d\n", result.FilesLoaded)
	fmt.Printf("  Files failed:    %d\n", result.FilesFailed)
	fmt.Printf("  Entries stored:  %d\n", result.EntriesIngested)
	fmt.Printf("  Records skipped: %d\n", result.RecordsSkipped)

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
}

// watchDataset reloads dataset files as they change until ctx ends. Entries of
// removed files stay in the knowledge base until the next rebuild.
func watchDataset(ctx context.Context, root string, lu *usecase.LoadUseCase, match func(string) bool) error {
	w, err := watcher.New(match, 0, logger.Named("watch"))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Stop()

	events, err := w.Watch(ctx, root)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	fmt.Printf("\nWatching %s for changes (Ctrl+C to stop)...\n", root)

	for ev := range events {
		switch ev.Operation {
		case watcher.FileChanged:
			result, err := lu.LoadFile(ctx, ev.Path)
			if err != nil {
				logger.Error("reload failed", zap.String("path", ev.Path), zap.Error(err))
				continue
			}
			logger.Info("reloaded dataset file",
				zap.String("path", ev.Path),
				zap.Int("entries", result.EntriesIngested),
				zap.Int("skipped", result.RecordsSkipped),
				zap.Strings("errors", result.Errors))
		case watcher.FileRemoved:
			logger.Warn("dataset file removed; its entries remain until the next rebuild", zap.String("path", ev.Path))
		}
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
