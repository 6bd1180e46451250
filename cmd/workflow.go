package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"flowlab/grader/internal/db"
	"flowlab/grader/internal/format"
	"flowlab/grader/internal/graph"
)

var (
	workflowName   string
	workflowID     string
	workflowSearch string
	workflowJSON   bool
	workflowFormat string
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Store and inspect workflow graphs",
}

var workflowSaveCmd = &cobra.Command{
	Use:   "save <file>",
	Short: "Save a graph file to the database",
	Long:  "Saves a YAML or JSON graph. --id replaces an existing workflow; without it a new ID is assigned.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := graph.LoadFile(args[0])
		if err != nil {
			return err
		}

		name := workflowName
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}

		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		id, err := graph.SaveToDB(d, workflowID, name, g)
		if err != nil {
			return fmt.Errorf("saving workflow: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s): %d nodes, %d edges\n",
			truncID(id), name, len(g.Nodes), len(g.Edges))
		return nil
	},
}

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored workflows, most recently updated first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		var list []db.Workflow
		if workflowSearch != "" {
			list, err = d.SearchWorkflows(workflowSearch)
		} else {
			list, err = d.ListWorkflows()
		}
		if err != nil {
			return fmt.Errorf("listing workflows: %w", err)
		}
		if list == nil {
			list = []db.Workflow{}
		}

		w := cmd.OutOrStdout()
		if workflowJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		if len(list) == 0 {
			fmt.Fprintln(w, "No workflows.")
			return nil
		}
		fmt.Fprintln(w, format.WorkflowTable(format.ParseMode(workflowFormat), list))
		return nil
	},
}

var workflowShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored workflow as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		wf, err := ResolveWorkflow(d, args[0])
		if err != nil {
			return err
		}
		g, err := graph.LoadFromDB(d, wf.ID)
		if err != nil {
			return fmt.Errorf("loading workflow: %w", err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*db.Workflow
			Graph *graph.Graph `json:"graph"`
		}{wf, g})
	},
}

var workflowDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored workflow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		wf, err := ResolveWorkflow(d, args[0])
		if err != nil {
			return err
		}
		if err := d.DeleteWorkflow(wf.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", truncID(wf.ID), wf.Name)
		return nil
	},
}

func init() {
	workflowSaveCmd.Flags().StringVar(&workflowName, "name", "", "Workflow name (default: file name)")
	workflowSaveCmd.Flags().StringVar(&workflowID, "id", "", "Replace the workflow with this ID")
	workflowListCmd.Flags().StringVar(&workflowSearch, "search", "", "Only workflows whose name or node types match")
	workflowListCmd.Flags().BoolVar(&workflowJSON, "json", false, "Output as JSON")
	workflowListCmd.Flags().StringVar(&workflowFormat, "format", "ascii", "Table format: ascii or markdown")
	workflowCmd.AddCommand(workflowSaveCmd, workflowListCmd, workflowShowCmd, workflowDeleteCmd)
	rootCmd.AddCommand(workflowCmd)
}
