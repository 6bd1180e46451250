package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"flowlab/grader/internal/graph"
	"flowlab/grader/internal/logging"
	"flowlab/grader/internal/rules"
)

const (
	configFileName = ".grader.yaml"
	dbFileName     = ".grader.db"
)

// Config holds settings shared by every grader command
type Config struct {
	DBPath             string              `yaml:"db_path"`
	LogLevel           string              `yaml:"log_level"`
	LogFormat          string              `yaml:"log_format"`
	ListenAddr         string              `yaml:"listen_addr"`
	StubPolicy         string              `yaml:"stub_policy"`
	CatalogPath        string              `yaml:"catalog_path"`
	Parallel           int                 `yaml:"parallel"`
	CheckOptimizations bool                `yaml:"check_optimizations"`
	NodeTypes          []graph.NodeTypeDef `yaml:"node_types"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		LogLevel:   "info",
		LogFormat:  "text",
		ListenAddr: ":8080",
		StubPolicy: string(rules.StubGrant),
		Parallel:   4,
	}
}

// Load discovers the config file and returns the merged settings: defaults,
// then the file, then GRADER_* environment overrides. The path of the file
// used is returned, or "" when none was found.
func Load(flagPath string) (Config, string, error) {
	cfg := Default()
	path, err := Discover(flagPath)
	if err != nil {
		return cfg, "", err
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, path, err
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, path, err
	}
	return cfg, path, cfg.Validate()
}

// Discover finds the config file using priority: env > flag > walk-up > XDG.
// Finding nothing is not an error.
func Discover(flagPath string) (string, error) {
	if envPath := os.Getenv("GRADER_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	if flagPath != "" {
		if _, err := os.Stat(flagPath); err != nil {
			return "", fmt.Errorf("config not found at --config path: %s", flagPath)
		}
		return flagPath, nil
	}

	if dir, err := os.Getwd(); err == nil {
		if found := walkUp(dir, configFileName); found != "" {
			return found, nil
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "grader", "config.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}
	return "", nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from GRADER_* variables
func (c *Config) ApplyEnv(getenv func(string) string) error {
	strs := map[string]*string{
		"GRADER_DB":          &c.DBPath,
		"GRADER_LOG_LEVEL":   &c.LogLevel,
		"GRADER_LOG_FORMAT":  &c.LogFormat,
		"GRADER_LISTEN_ADDR": &c.ListenAddr,
		"GRADER_STUB_POLICY": &c.StubPolicy,
		"GRADER_CATALOG":     &c.CatalogPath,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	if v := getenv("GRADER_PARALLEL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GRADER_PARALLEL: %w", err)
		}
		c.Parallel = n
	}
	if v := getenv("GRADER_CHECK_OPTIMIZATIONS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GRADER_CHECK_OPTIMIZATIONS: %w", err)
		}
		c.CheckOptimizations = b
	}
	return nil
}

// Validate checks enumerated fields
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if _, err := rules.ParseStubPolicy(c.StubPolicy); err != nil {
		errs = append(errs, err)
	}
	if c.Parallel < 1 {
		errs = append(errs, fmt.Errorf("parallel must be at least 1, got %d", c.Parallel))
	}
	for _, nt := range c.NodeTypes {
		if nt.Type == "" || !nt.Category.Valid() {
			errs = append(errs, fmt.Errorf("node type %q: invalid category %q", nt.Type, nt.Category))
		}
	}
	return errors.Join(errs...)
}

// Classifier returns the builtin node type registry extended with NodeTypes
func (c Config) Classifier() *graph.Classifier {
	cl := graph.DefaultClassifier()
	for _, nt := range c.NodeTypes {
		cl.Register(nt)
	}
	return cl
}

// EngineOptions translates the settings into engine options
func (c Config) EngineOptions() []rules.Option {
	policy, _ := rules.ParseStubPolicy(c.StubPolicy)
	opts := []rules.Option{
		rules.WithStubPolicy(policy),
		rules.WithClassifier(c.Classifier()),
		rules.WithLogger(logging.New("rules")),
	}
	if c.CheckOptimizations {
		opts = append(opts,
			rules.WithOptimizationCheck(rules.DuplicateConnections),
			rules.WithOptimizationCheck(rules.DeadEnds),
		)
	}
	return opts
}

// DiscoverDB finds the database path using priority: env > flag > config >
// walk-up > XDG data dir. The XDG location is used even when it does not
// exist yet; OpenDB creates it.
func DiscoverDB(flagPath, configured string) (string, error) {
	if envPath := os.Getenv("GRADER_DB"); envPath != "" {
		return envPath, nil
	}
	if flagPath != "" {
		return flagPath, nil
	}
	if configured != "" {
		return configured, nil
	}

	if dir, err := os.Getwd(); err == nil {
		if found := walkUp(dir, dbFileName); found != "" {
			return found, nil
		}
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("no database location (set GRADER_DB or use --db): %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "grader", "grader.db"), nil
}

// walkUp looks for name in dir and each parent, returning the first match
func walkUp(dir, name string) string {
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
