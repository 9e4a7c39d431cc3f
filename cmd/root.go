package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docvault/internal/app"
	"docvault/internal/config"
	"docvault/internal/logging"
)

var (
	flagConfig     string
	flagVerbose    bool
	flagCollection string
)

var rootCmd = &cobra.Command{
	Use:          "docvault",
	Short:        "Ingest documents into a vector store and browse what it holds",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "TOML config file (default ./docvault.toml if present)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&flagCollection, "collection", "", "collection name (overrides config)")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// loadConfig reads the config and applies the persistent flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagCollection != "" {
		cfg.Collection = flagCollection
	}
	return cfg, nil
}

// openApp builds the app for cfg. A nil log selects the default logger.
func openApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app.App, error) {
	if log == nil {
		var err error
		if log, err = logging.New(flagVerbose); err != nil {
			return nil, err
		}
	}
	return app.New(ctx, cfg, log)
}
