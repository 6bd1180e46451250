package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"flowlab/grader/internal/format"
	"flowlab/grader/internal/grading"
	"flowlab/grader/internal/rules"
)

var (
	validateGraph       string
	validateWorkflow    string
	validateRule        string
	validateExercise    string
	validateJSON        bool
	validateFormat      string
	validateRecord      bool
	validateUser        string
	validateFailInvalid bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Score a workflow graph against a rule file or a catalog exercise",
	Long: "Loads a workflow graph from --graph or the database (--workflow) and validates it " +
		"against --rule FILE or --exercise ID. With --record the attempt is written to the attempt log.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (validateRule == "") == (validateExercise == "") {
			return fmt.Errorf("exactly one of --rule or --exercise is required")
		}

		g, workflowID, err := loadGraph(validateGraph, validateWorkflow)
		if err != nil {
			return err
		}

		req := grading.Request{Graph: g, ExerciseID: validateExercise, UserID: validateUser, WorkflowID: workflowID}
		if validateRule != "" {
			rule, err := rules.LoadCriteriaFile(validateRule)
			if err != nil {
				return err
			}
			req.Rule = &rule
		}

		cat, err := loadCatalog()
		if err != nil {
			return err
		}

		var opts []grading.Option
		if validateRecord {
			d, err := OpenDatabase()
			if err != nil {
				return err
			}
			defer d.Close()
			opts = append(opts, grading.WithRecorder(d))
		}

		svc := grading.New(newEngine(), cat, opts...)
		out, err := svc.Validate(cmd.Context(), req)
		if err != nil {
			return err
		}
		if out.RecordErr != nil {
			return fmt.Errorf("recording attempt: %w", out.RecordErr)
		}

		w := cmd.OutOrStdout()
		if validateJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(out.Result); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(w, format.ResultTable(format.ParseMode(validateFormat), out.Result))
			if out.AttemptID != "" {
				fmt.Fprintf(w, "Recorded attempt %s\n", truncID(out.AttemptID))
			}
		}

		if validateFailInvalid && !out.Result.IsValid {
			return fmt.Errorf("validation failed: score %d/100", out.Result.Score)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateGraph, "graph", "", "Workflow graph file (YAML or JSON)")
	validateCmd.Flags().StringVar(&validateWorkflow, "workflow", "", "Stored workflow ID, ID prefix or name")
	validateCmd.Flags().StringVar(&validateRule, "rule", "", "Rule file (YAML or JSON)")
	validateCmd.Flags().StringVar(&validateExercise, "exercise", "", "Catalog exercise ID")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output as JSON")
	validateCmd.Flags().StringVar(&validateFormat, "format", "ascii", "Table format: ascii or markdown")
	validateCmd.Flags().BoolVar(&validateRecord, "record", false, "Record the attempt in the database")
	validateCmd.Flags().StringVar(&validateUser, "user", "", "Learner ID stored with --record")
	validateCmd.Flags().BoolVar(&validateFailInvalid, "fail-invalid", false, "Exit non-zero when the workflow does not pass")
	rootCmd.AddCommand(validateCmd)
}
