package piiscan

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/redactyl/piiscan/internal/server"
)

var flagAddr string

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		Long: "Serve POST /analyze, POST /anonymize, GET /recognizers, GET /supportedentities and GET /health. " +
			"SIGINT or SIGTERM drain in-flight requests before exiting.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := buildRuntime(fileCfg)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			addr := pickString(flagAddr, fileCfg.Addr, ":8080")
			return server.Serve(ctx, addr, server.NewMux(rt.analyzer, logger), logger)
		},
	}
	cmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default :8080)")
	rootCmd.AddCommand(cmd)
}
