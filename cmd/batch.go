package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"flowlab/grader/internal/format"
	"flowlab/grader/internal/grading"
	"flowlab/grader/internal/rules"
)

var (
	batchRule     string
	batchExercise string
	batchParallel int
	batchJSON     bool
	batchFormat   string
	batchUser     string
	batchRecord   bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <graph-file|glob>...",
	Short: "Validate many graph files against one rule in parallel",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (batchRule == "") == (batchExercise == "") {
			return fmt.Errorf("exactly one of --rule or --exercise is required")
		}

		var paths []string
		for _, arg := range args {
			matches, err := filepath.Glob(arg)
			if err != nil {
				return fmt.Errorf("bad pattern %q: %w", arg, err)
			}
			if len(matches) == 0 {
				matches = []string{arg}
			}
			paths = append(paths, matches...)
		}

		tmpl := grading.Request{ExerciseID: batchExercise, UserID: batchUser}
		if batchRule != "" {
			rule, err := rules.LoadCriteriaFile(batchRule)
			if err != nil {
				return err
			}
			tmpl.Rule = &rule
		}

		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		var opts []grading.Option
		if batchRecord {
			d, err := OpenDatabase()
			if err != nil {
				return err
			}
			defer d.Close()
			opts = append(opts, grading.WithRecorder(d))
		}

		parallel := batchParallel
		if parallel == 0 {
			parallel = cfg.Parallel
		}

		svc := grading.New(newEngine(), cat, opts...)
		results, err := svc.ValidateFiles(cmd.Context(), paths, tmpl, parallel)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if batchJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		tb := format.NewTable(format.ParseMode(batchFormat))
		tb.Header("File", "Valid", "Score", "Message")
		passed, failed := 0, 0
		for _, r := range results {
			if r.Result == nil {
				failed++
				tb.Row(r.Path, "!", "-", format.Truncate(r.Error, 60))
				continue
			}
			if r.Result.IsValid {
				passed++
			} else {
				failed++
			}
			tb.Row(r.Path, format.BoolMark(r.Result.IsValid), r.Result.Score, format.Truncate(r.Result.Message, 60))
		}
		tb.Footer("", fmt.Sprintf("%d/%d", passed, len(results)), "", "")
		tb.Columns(format.ColumnConfig{Number: 3, Align: format.AlignRight})
		fmt.Fprintln(w, tb.String())

		if failed > 0 {
			return fmt.Errorf("%d of %d workflows did not pass", failed, len(results))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchRule, "rule", "", "Rule file (YAML or JSON)")
	batchCmd.Flags().StringVar(&batchExercise, "exercise", "", "Catalog exercise ID")
	batchCmd.Flags().IntVar(&batchParallel, "parallel", 0, "Concurrent validations (default: config parallel)")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "Output as JSON")
	batchCmd.Flags().StringVar(&batchFormat, "format", "ascii", "Table format: ascii or markdown")
	batchCmd.Flags().StringVar(&batchUser, "user", "", "Learner ID stored with --record")
	batchCmd.Flags().BoolVar(&batchRecord, "record", false, "Record every attempt in the database")
	rootCmd.AddCommand(batchCmd)
}
