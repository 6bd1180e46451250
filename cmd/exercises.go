package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"flowlab/grader/internal/catalog"
	"flowlab/grader/internal/format"
)

var (
	exercisesJSON       bool
	exercisesFormat     string
	exercisesDifficulty string
)

var exercisesCmd = &cobra.Command{
	Use:   "exercises",
	Short: "Browse the tutorial exercise catalog",
}

var exercisesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List exercises, easiest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}

		list := cat.List()
		if exercisesDifficulty != "" {
			list = cat.ByDifficulty(exercisesDifficulty)
		}
		if list == nil {
			list = []catalog.Exercise{}
		}

		w := cmd.OutOrStdout()
		if exercisesJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		fmt.Fprintln(w, format.ExerciseTable(format.ParseMode(exercisesFormat), list))
		return nil
	},
}

var exercisesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one exercise with its instructions and hints",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		ex, ok := cat.Get(args[0])
		if !ok {
			return fmt.Errorf("exercise not found: %s", args[0])
		}

		w := cmd.OutOrStdout()
		if exercisesJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(ex)
		}
		fmt.Fprintln(w, format.ExerciseDetail(format.ParseMode(exercisesFormat), ex))
		return nil
	},
}

func init() {
	exercisesCmd.PersistentFlags().BoolVar(&exercisesJSON, "json", false, "Output as JSON")
	exercisesCmd.PersistentFlags().StringVar(&exercisesFormat, "format", "ascii", "Table format: ascii or markdown")
	exercisesListCmd.Flags().StringVar(&exercisesDifficulty, "difficulty", "", "Only beginner, intermediate or advanced exercises")
	exercisesCmd.AddCommand(exercisesListCmd, exercisesShowCmd)
	rootCmd.AddCommand(exercisesCmd)
}
