package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"flowlab/grader/internal/db"
	"flowlab/grader/internal/format"
)

var (
	historyExercise string
	historyUser     string
	historyLimit    int
	historyJSON     bool
	historyStats    bool
	historyFormat   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded validation attempts, or per-exercise stats with --stats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		filter := db.AttemptFilter{ExerciseID: historyExercise, UserID: historyUser, Limit: historyLimit}
		w := cmd.OutOrStdout()
		mode := format.ParseMode(historyFormat)

		if historyStats {
			stats, err := d.Stats(filter)
			if err != nil {
				return fmt.Errorf("attempt stats: %w", err)
			}
			if historyJSON {
				if stats == nil {
					stats = []db.AttemptStats{}
				}
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			if len(stats) == 0 {
				fmt.Fprintln(w, "No attempts recorded.")
				return nil
			}
			fmt.Fprintln(w, format.StatsTable(mode, stats))
			return nil
		}

		attempts, err := d.ListAttempts(filter)
		if err != nil {
			return fmt.Errorf("listing attempts: %w", err)
		}
		if historyJSON {
			if attempts == nil {
				attempts = []db.Attempt{}
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(attempts)
		}
		if len(attempts) == 0 {
			fmt.Fprintln(w, "No attempts recorded.")
			return nil
		}
		fmt.Fprintln(w, format.AttemptTable(mode, attempts))
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyExercise, "exercise", "", "Only attempts at this exercise")
	historyCmd.Flags().StringVar(&historyUser, "user", "", "Only attempts by this learner")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum attempts to list (0 = all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")
	historyCmd.Flags().BoolVar(&historyStats, "stats", false, "Aggregate per exercise instead of listing")
	historyCmd.Flags().StringVar(&historyFormat, "format", "ascii", "Table format: ascii or markdown")
	rootCmd.AddCommand(historyCmd)
}
