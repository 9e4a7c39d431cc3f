package cmd

import (
	"net"

	"github.com/spf13/cobra"

	"docvault/internal/web"
)

var flagPort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve an HTML listing of the collection's files",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = flagPort
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		a, err := openApp(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := web.NewServer(a.Inspector(), cfg.Collection, a.Log)
		return srv.ListenAndServe(ctx, net.JoinHostPort("0.0.0.0", cfg.Port))
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagPort, "port", "", "listen port (default from PORT, 5000)")
	rootCmd.AddCommand(serveCmd)
}
