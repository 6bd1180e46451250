package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"flowlab/grader/internal/grading"
	"flowlab/grader/internal/mcpserver"
)

var mcpRecord bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve grading tools over MCP (stdio)",
	Long:  "Tools: validate_workflow, list_exercises, analyze_workflow. Logs go to stderr; stdout carries the protocol.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}

		var opts []grading.Option
		if mcpRecord {
			d, err := OpenDatabase()
			if err != nil {
				return err
			}
			defer d.Close()
			opts = append(opts, grading.WithRecorder(d))
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := mcpserver.NewServer(grading.New(newEngine(), cat, opts...), Version)
		return srv.Run(ctx)
	},
}

func init() {
	mcpCmd.Flags().BoolVar(&mcpRecord, "record", false, "Record attempts in the database")
	rootCmd.AddCommand(mcpCmd)
}
