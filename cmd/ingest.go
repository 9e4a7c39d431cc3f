package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docvault/internal/index"
	"docvault/internal/source"
)

var (
	flagChunkSize int
	flagOverlap   int
	flagBatchSize int
	flagStaged    bool
	flagWatch     bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Chunk, embed and store every document in a directory",
	Long: `Rebuilds the collection from the documents in dir (default: data_dir from
config). Every run clears the collection first; use --staged to keep the old
contents readable until the new ones are written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("chunk-size") {
			cfg.ChunkSize = flagChunkSize
		}
		if flags.Changed("overlap") {
			cfg.ChunkOverlap = flagOverlap
		}
		if flags.Changed("batch-size") {
			cfg.BatchSize = flagBatchSize
		}
		if flags.Changed("staged") {
			cfg.Staged = flagStaged
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		dir := cfg.DataDir
		if len(args) == 1 {
			dir = args[0]
		}

		a, err := openApp(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		idx, err := a.Indexer(ctx, nil)
		if err != nil {
			return err
		}

		run := func(ctx context.Context) error {
			fmt.Printf("Ingesting %s into collection %q...\n", dir, cfg.Collection)
			stats, err := idx.Ingest(ctx, dir, cfg.Collection)
			if err != nil {
				return err
			}
			printStats(stats)
			return nil
		}

		if err := run(ctx); err != nil && !flagWatch {
			return err
		} else if err != nil {
			a.Log.Sugar().Errorf("initial ingest failed: %v", err)
		}
		if !flagWatch {
			return nil
		}
		return source.Watch(ctx, dir, cfg.Extensions, source.DefaultDebounce, a.Log, run)
	},
}

func printStats(s *index.Stats) {
	mode := "in place"
	if s.Staged {
		mode = "staged"
	}
	fmt.Printf("\nDone in %s\n", s.Duration.Round(time.Millisecond))
	fmt.Printf("  Files:   %d\n", s.Files)
	fmt.Printf("  Chunks:  %d in %d batches (model %s, %s)\n", s.Chunks, s.Batches, s.Model, mode)
	fmt.Printf("Successfully ingested %d chunks into collection '%s'\n", s.Chunks, s.Collection)
}

func init() {
	ingestCmd.Flags().IntVar(&flagChunkSize, "chunk-size", 0, "words per chunk (default from config, 1000)")
	ingestCmd.Flags().IntVar(&flagOverlap, "overlap", 0, "words shared by consecutive chunks (default from config, 200)")
	ingestCmd.Flags().IntVar(&flagBatchSize, "batch-size", 0, "texts per embedding request (default from config, 100)")
	ingestCmd.Flags().BoolVar(&flagStaged, "staged", false, "build in a staging collection and swap it in")
	ingestCmd.Flags().BoolVar(&flagWatch, "watch", false, "re-ingest whenever a matching file changes")
	rootCmd.AddCommand(ingestCmd)
}
