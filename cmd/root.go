package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"flowlab/grader/internal/catalog"
	"flowlab/grader/internal/config"
	"flowlab/grader/internal/db"
	"flowlab/grader/internal/graph"
	"flowlab/grader/internal/logging"
	"flowlab/grader/internal/rules"
)

// Version is set at build time with -ldflags
var Version = "dev"

var (
	dbPath     string
	configPath string
	logLevel   string
	logFormat  string

	cfg = config.Default()
)

var rootCmd = &cobra.Command{
	Use:           "grader",
	Short:         "Workflow graph validation, scoring and analysis",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, path, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		if logFormat != "" {
			loaded.LogFormat = logFormat
		}
		level, err := logging.ParseLevel(loaded.LogLevel)
		if err != nil {
			return err
		}
		logging.Init(level, loaded.LogFormat, cmd.ErrOrStderr())
		if path != "" {
			logging.New("config").Debug("loaded config", "path", path)
		}
		cfg = loaded
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the grader database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (default: .grader.yaml, walking up)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "text or json")
	rootCmd.Version = Version
}

// DiscoverDB finds the database path using priority: env > flag > config > walk-up > XDG
func DiscoverDB() (string, error) {
	return config.DiscoverDB(dbPath, cfg.DBPath)
}

// OpenDatabase discovers and opens the database
func OpenDatabase() (*db.DB, error) {
	path, err := DiscoverDB()
	if err != nil {
		return nil, err
	}
	return db.OpenDB(path)
}

// newEngine builds an engine from the loaded config
func newEngine() *rules.Engine {
	return rules.NewEngine(cfg.EngineOptions()...)
}

// loadCatalog returns the built-in catalog overlaid with the configured file
func loadCatalog() (*catalog.Catalog, error) {
	c, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return c, nil
}

// ResolveWorkflow finds a stored workflow by full ID, ID prefix, or name search.
func ResolveWorkflow(d *db.DB, reference string) (*db.Workflow, error) {
	// 1. Exact ID match
	wf, err := d.GetWorkflow(reference)
	if err == nil {
		return wf, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	// 2. ID prefix match (≥6 hex/dash chars)
	if len(reference) >= 6 && isHexDash(reference) {
		matches, err := d.SearchByIDPrefix(reference, 10)
		if err == nil {
			switch len(matches) {
			case 1:
				return &matches[0], nil
			case 0:
				// fall through to name search
			default:
				return nil, ambiguous(reference, matches, "Use a full workflow ID instead.")
			}
		}
	}

	// 3. Name / node type search
	found, err := d.SearchWorkflows(reference)
	if err == nil {
		switch len(found) {
		case 1:
			return &found[0], nil
		case 0:
		default:
			if len(found) > 10 {
				found = found[:10]
			}
			return nil, ambiguous(reference, found, "Use a workflow ID instead.")
		}
	}

	return nil, fmt.Errorf("workflow not found: %s", reference)
}

// loadGraph reads the graph from a file or, when workflowRef is set, from the database
func loadGraph(file, workflowRef string) (*graph.Graph, string, error) {
	switch {
	case file != "" && workflowRef != "":
		return nil, "", fmt.Errorf("use either --graph or --workflow, not both")
	case file != "":
		g, err := graph.LoadFile(file)
		if err != nil {
			return nil, "", err
		}
		return g, "", nil
	case workflowRef != "":
		d, err := OpenDatabase()
		if err != nil {
			return nil, "", err
		}
		defer d.Close()
		wf, err := ResolveWorkflow(d, workflowRef)
		if err != nil {
			return nil, "", err
		}
		g, err := graph.LoadFromDB(d, wf.ID)
		if err != nil {
			return nil, "", fmt.Errorf("loading workflow: %w", err)
		}
		return g, wf.ID, nil
	}
	return nil, "", fmt.Errorf("a graph is required (--graph FILE or --workflow ID)")
}

func ambiguous(reference string, matches []db.Workflow, advice string) error {
	lines := make([]string, len(matches))
	for i, m := range matches {
		lines[i] = fmt.Sprintf("  %s %s", truncID(m.ID), m.Name)
	}
	return fmt.Errorf("ambiguous reference '%s'. %d matches:\n%s\n%s",
		reference, len(matches), joinLines(lines), advice)
}

func isHexDash(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || c == '-') {
			return false
		}
	}
	return true
}

func joinLines(lines []string) string {
	result := ""
	for i, l := range lines {
		if i > 0 {
			result += "\n"
		}
		result += l
	}
	return result
}
