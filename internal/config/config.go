package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lehigh-university-libraries/report-comparator/internal/report"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the comparison config is looked up when none is given.
const DefaultPath = "conf/comparison.yml"

// DefaultPrecision is the number of decimals written when precision is not configured.
const DefaultPrecision = 2

// Environment overrides, typically set through a .env file.
const (
	EnvInputDir  = "REPORT_COMPARATOR_INPUT_DIR"
	EnvOutputDir = "REPORT_COMPARATOR_OUTPUT_DIR"
)

var ErrConfiguration = errors.New("configuration error")

// MetricPaths locates the two reports compared for one metric.
// Relative paths are resolved against the input directory.
type MetricPaths struct {
	Existing       string  `json:"existing" yaml:"existing" toml:"existing"`
	New            string  `json:"new" yaml:"new" toml:"new"`
	ExistingColumn string  `json:"existing_column,omitempty" yaml:"existing_column,omitempty" toml:"existing_column"`
	NewColumn      string  `json:"new_column,omitempty" yaml:"new_column,omitempty" toml:"new_column"`
	ExistingScale  float64 `json:"existing_scale,omitempty" yaml:"existing_scale,omitempty" toml:"existing_scale"`
	NewScale       float64 `json:"new_scale,omitempty" yaml:"new_scale,omitempty" toml:"new_scale"`
}

// Config is the resolved comparison configuration.
type Config struct {
	InputDirectory  string                 `json:"input_directory" yaml:"input_directory" toml:"input_directory"`
	OutputDirectory string                 `json:"output_directory" yaml:"output_directory" toml:"output_directory"`
	Precision       *int                   `json:"precision,omitempty" yaml:"precision,omitempty" toml:"precision"`
	Metrics         map[string]MetricPaths `json:"metrics" yaml:"metrics" toml:"metrics"`
}

// Load reads a TOML, YAML or JSON config file and applies environment overrides.
func Load(filePath string) (*Config, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: error accessing config file: %v", ErrConfiguration, err)
	}
	if fileInfo.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory, not a file", ErrConfiguration, filePath)
	}

	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: error reading config file: %v", ErrConfiguration, err)
	}

	return Parse(fileData, strings.ToLower(filepath.Ext(filePath)))
}

// Parse decodes config data in the format named by ext (".yaml", ".toml", ...).
func Parse(data []byte, ext string) (*Config, error) {
	var cfg Config

	switch ext {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: error parsing TOML file: %v", ErrConfiguration, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: error parsing YAML file: %v", ErrConfiguration, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: error parsing JSON file: %v", ErrConfiguration, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config file format: %s", ErrConfiguration, ext)
	}

	normalized := make(map[string]MetricPaths, len(cfg.Metrics))
	for name, paths := range cfg.Metrics {
		normalized[strings.ToLower(strings.TrimSpace(name))] = paths
	}
	cfg.Metrics = normalized

	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if dir := os.Getenv(EnvInputDir); dir != "" {
		c.InputDirectory = dir
	}
	if dir := os.Getenv(EnvOutputDir); dir != "" {
		c.OutputDirectory = dir
	}
}

// Validate checks everything needed to compare kinds, before any report is read.
func (c *Config) Validate(kinds []report.MetricKind) error {
	var problems []string

	switch info, err := os.Stat(c.InputDirectory); {
	case c.InputDirectory == "":
		problems = append(problems, "input_directory is not set")
	case err != nil:
		problems = append(problems, fmt.Sprintf("input directory %s: %v", c.InputDirectory, err))
	case !info.IsDir():
		problems = append(problems, fmt.Sprintf("input directory %s is not a directory", c.InputDirectory))
	}

	if c.OutputDirectory == "" {
		problems = append(problems, "output_directory is not set")
	}
	if c.Precision != nil && *c.Precision < -1 {
		problems = append(problems, fmt.Sprintf("precision must be -1 or greater, got %d", *c.Precision))
	}

	var unknown []string
	for name := range c.Metrics {
		if _, ok := report.ParseKind(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		problems = append(problems, fmt.Sprintf("unknown metric %q", name))
	}

	for _, kind := range kinds {
		paths, ok := c.Metrics[string(kind)]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("metrics.%s is not configured", kind))
		case paths.Existing == "":
			problems = append(problems, fmt.Sprintf("metrics.%s.existing is not set", kind))
		case paths.New == "":
			problems = append(problems, fmt.Sprintf("metrics.%s.new is not set", kind))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// EnsureOutputDirectory creates the output directory if needed.
func (c *Config) EnsureOutputDirectory() error {
	if err := os.MkdirAll(c.OutputDirectory, 0755); err != nil {
		return fmt.Errorf("%w: failed to create output directory: %v", ErrConfiguration, err)
	}
	return nil
}

// OutputPrecision returns the configured number of decimals, -1 meaning shortest form.
func (c *Config) OutputPrecision() int {
	if c.Precision == nil {
		return DefaultPrecision
	}
	return *c.Precision
}

// Sources resolves the existing and new report for kind.
func (c *Config) Sources(kind report.MetricKind) (report.Source, report.Source, error) {
	paths, ok := c.Metrics[string(kind)]
	if !ok || paths.Existing == "" || paths.New == "" {
		return report.Source{}, report.Source{}, fmt.Errorf("%w: metrics.%s is not fully configured", ErrConfiguration, kind)
	}

	existing := report.Source{
		Path:   c.resolve(paths.Existing),
		Column: paths.ExistingColumn,
		Scale:  paths.ExistingScale,
	}
	newReport := report.Source{
		Path:   c.resolve(paths.New),
		Column: paths.NewColumn,
		Scale:  paths.NewScale,
	}
	return existing, newReport, nil
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.InputDirectory, p)
}
