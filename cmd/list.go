package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"docvault/internal/inspect"
	"docvault/internal/web"
)

var flagJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested files and their chunk counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := openApp(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		l, err := a.Inspector().ListFiles(ctx, cfg.Collection)
		if err != nil {
			return err
		}
		if flagJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(l)
		}

		md := listingMarkdown(cfg.Collection, l)
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err != nil {
			fmt.Print(md)
			return nil
		}
		out, err := r.Render(md)
		if err != nil {
			fmt.Print(md)
			return nil
		}
		fmt.Print(out)
		return nil
	},
}

// listingMarkdown renders l as a Markdown document.
func listingMarkdown(collection string, l *inspect.Listing) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Document Collection: %s\n\n", collection)

	if msg := web.Message(collection, l, nil); msg != "" {
		sb.WriteString(msg + "\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "**Total Files:** %d  \n**Total Chunks:** %d\n\n", l.TotalFiles, l.TotalChunks)
	sb.WriteString("| File | Chunks |\n|---|---:|\n")
	for _, f := range l.Files {
		fmt.Fprintf(&sb, "| %s | %d |\n", strings.ReplaceAll(f.Filename, "|", `\|`), f.ChunkCount)
	}
	return sb.String()
}

func init() {
	listCmd.Flags().BoolVar(&flagJSON, "json", false, "print the listing as JSON")
	rootCmd.AddCommand(listCmd)
}
