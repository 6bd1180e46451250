package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"flowlab/grader/internal/grading"
	"flowlab/grader/internal/server"
)

var (
	serveAddr     string
	serveNoRecord bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the grading HTTP API",
	Long:  "Routes: POST /validate, POST /analyze, GET /exercises, GET /exercises/{id}, GET /health, GET /metrics.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}

		var opts []grading.Option
		if !serveNoRecord {
			d, err := OpenDatabase()
			if err != nil {
				return err
			}
			defer d.Close()
			opts = append(opts, grading.WithRecorder(d))
		}

		addr := serveAddr
		if addr == "" {
			addr = cfg.ListenAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(grading.New(newEngine(), cat, opts...))
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: config listen_addr)")
	serveCmd.Flags().BoolVar(&serveNoRecord, "no-record", false, "Do not record attempts")
	rootCmd.AddCommand(serveCmd)
}
