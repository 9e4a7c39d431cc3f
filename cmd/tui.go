package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docvault/internal/index"
	"docvault/internal/tui"
)

func runTUI(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Log lines would tear the alternate screen; progress is shown in the UI.
	a, err := openApp(cmd.Context(), cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer a.Close()

	return tui.Run(tui.Config{
		SourceDir:  cfg.DataDir,
		Collection: cfg.Collection,
		Inspector:  a.Inspector(),
		NewIndexer: func(ctx context.Context, onProgress index.ProgressFunc) (*index.Indexer, error) {
			return a.Indexer(ctx, onProgress)
		},
	})
}
