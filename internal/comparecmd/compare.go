package comparecmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/report-comparator/internal/comparison"
	"github.com/lehigh-university-libraries/report-comparator/internal/config"
	"github.com/lehigh-university-libraries/report-comparator/internal/report"
	"github.com/lehigh-university-libraries/report-comparator/internal/results"
	"github.com/spf13/cobra"
)

// compareOptions carries the parsed flags of the compare command.
type compareOptions struct {
	configPath string
	metric     string
	parallel   int
	precision  *int
	verbose    bool
	logOutput  io.Writer
}

// NewCompareCmd creates the compare command
func NewCompareCmd() *cobra.Command {
	var opts compareOptions
	var precision int

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare existing and new address-quality reports",
		Long: `Compare an existing baseline report against a new report for one or all
address-quality metrics (ASF, APA, PSF, SSF).

Rows are aligned on (country, provider, product). Each metric produces
<metric>_comparison.csv in the output directory, and a run summary is written
to comparison_summary.yaml. When every metric is compared, a failure on one
metric does not stop the others.`,
		Example: `  # Pick the metric from an interactive menu
  report-comparator compare

  # Compare a single metric
  report-comparator compare --metric asf

  # Compare every metric with a TOML config, two at a time
  report-comparator compare --config conf/comparison.toml --metric all --parallel 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("precision") {
				opts.precision = &precision
			}
			opts.logOutput = cmd.OutOrStdout()
			return executeCompare(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Path to a YAML, TOML or JSON configuration file")
	cmd.Flags().StringVarP(&opts.metric, "metric", "m", "", "Metric to compare: asf, apa, psf, ssf or all (prompts when omitted)")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 1, "Number of metrics compared at once when --metric=all")
	cmd.Flags().IntVar(&precision, "precision", config.DefaultPrecision, "Decimals written to the CSV output (-1 for shortest form, overrides config)")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Verbose logging")

	return cmd
}

func executeCompare(opts compareOptions) error {
	if opts.logOutput == nil {
		opts.logOutput = os.Stdout
	}
	logger := newLogger(opts.logOutput, opts.verbose)

	metric := opts.metric
	if metric == "" {
		picked, err := promptSelection()
		if err != nil {
			return err
		}
		metric = picked
	}

	sel, err := report.ParseSelection(metric)
	if err != nil {
		return err
	}
	logger.Info("Metric choice", "selection", sel.String())

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(sel.Kinds()); err != nil {
		return err
	}
	if err := cfg.EnsureOutputDirectory(); err != nil {
		return err
	}
	logger.Info("Configuration loaded",
		"config", opts.configPath,
		"input_directory", cfg.InputDirectory,
		"output_directory", cfg.OutputDirectory)

	precision := cfg.OutputPrecision()
	if opts.precision != nil {
		precision = *opts.precision
	}

	runner := comparison.NewRunner(
		cfg,
		report.NewLoader(logger),
		results.NewCSVWriter(cfg.OutputDirectory, precision),
		logger,
		comparison.WithParallelism(opts.parallel),
	)

	summary, runErr := runner.Run(sel)
	if summary != nil {
		printSummary(summary)
		saveSummary(opts.logOutput, logger, cfg.OutputDirectory, summary)
	}

	return runErr
}

func saveSummary(out io.Writer, logger *slog.Logger, outputDir string, summary *comparison.Summary) {
	path, err := results.SaveSummary(outputDir, summary)
	if err != nil {
		logger.Warn("Failed to save run summary", "error", err)
		return
	}
	fmt.Fprintf(out, "\nRun summary saved to: %s\n", path)
}
