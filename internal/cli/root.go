// Package cli provides the command-line interface for guidectl.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/guidelinehq/guidectl/internal/client"
	"github.com/guidelinehq/guidectl/internal/config"
	"github.com/guidelinehq/guidectl/internal/metrics"
	"github.com/guidelinehq/guidectl/internal/session"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Shared wiring, built once in PersistentPreRunE.
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
	store      *session.Store
	api        *client.Client
	collector  *metrics.Collector
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "guidectl",
	Short: "Mortgage guideline extraction and comparison client",
	Long: `Guidectl is the terminal client for the guideline analysis backend.

Upload mortgage guideline PDFs for LLM-driven extraction, compare two
guidelines side by side, browse results in an interactive grid, export
them to spreadsheets, and chat with an assistant about the data.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Version and help need no backend wiring
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger, logCleanup = config.SetupLogger(cfg.LogFile, cfg.LogLevel)

		var err error
		store, err = session.NewStore()
		if err != nil {
			return fmt.Errorf("open session store: %w", err)
		}

		collector = metrics.NewCollector()
		api = client.New(client.Options{
			BaseURL: cfg.ServerURL,
			Timeout: cfg.RequestTimeout,
			Session: store,
			Notifier: client.NotifierFunc(func(msg string) {
				fmt.Fprintln(os.Stderr, msg)
			}),
			Logger:  logger,
			Metrics: collector,
		})

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if collector != nil && logger != nil {
			collector.LogSnapshot(logger)
		}
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(exportCmd)
}
