package comparecmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/lehigh-university-libraries/report-comparator/internal/report"
	"github.com/lehigh-university-libraries/report-comparator/internal/results"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

type inspectOptions struct {
	reportPath string
	metric     string
	column     string
	scale      float64
	limit      int
	verbose    bool
}

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var opts inspectOptions

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect the rows a report yields for a metric",
		Long: `Load a single report (CSV, JSONL or Parquet) exactly as compare would and
print the typed rows plus any rows dropped as malformed.

This is useful for checking column names, value scaling and metric filtering
before running a comparison.`,
		Example: `  # Show the first 10 ASF rows of a report
  report-comparator inspect --report ./data/asf_apa_new.csv --metric asf

  # Read a fraction column and scale it to a percentage
  report-comparator inspect --report ./data/psf_new.parquet --metric psf --column match --scale 100

  # Show every row
  report-comparator inspect --report ./data/ssf_new.csv --metric ssf --limit 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.reportPath == "" {
				return fmt.Errorf("--report is required")
			}
			return executeInspect(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.reportPath, "report", "", "Path to the report file (required)")
	cmd.Flags().StringVar(&opts.metric, "metric", "", "Metric to read: asf, apa, psf or ssf (required)")
	cmd.Flags().StringVar(&opts.column, "column", "", "Metric value column (defaults to the metric name, then metric_value, then match)")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0, "Multiply every metric value by this factor")
	cmd.Flags().IntVar(&opts.limit, "limit", 10, "Number of rows to show (0 for all)")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Verbose logging")

	_ = cmd.MarkFlagRequired("report")
	_ = cmd.MarkFlagRequired("metric")

	return cmd
}

func executeInspect(out io.Writer, opts inspectOptions) error {
	kind, ok := report.ParseKind(opts.metric)
	if !ok {
		return fmt.Errorf("%w: %q (expected one of asf, apa, psf, ssf)", report.ErrInvalidSelection, opts.metric)
	}

	loader := report.NewLoader(newLogger(out, opts.verbose))
	table, err := loader.LoadSource(report.Source{
		Path:   opts.reportPath,
		Column: opts.column,
		Scale:  opts.scale,
	}, kind)
	if err != nil {
		return fmt.Errorf("failed to load report: %w", err)
	}

	rendered, err := pterm.DefaultTable.
		WithHasHeader().
		WithData(inspectTable(table, opts.limit)).
		Srender()
	if err != nil {
		return fmt.Errorf("failed to render rows: %w", err)
	}
	fmt.Fprintln(out, rendered)
	fmt.Fprintf(out, "%s: %d row(s), %d dropped\n", table.Path, table.Len(), len(table.Dropped))

	for _, dropped := range table.Dropped {
		fmt.Fprintf(out, "  dropped row %d: %v\n", dropped.Index, dropped.Err)
	}

	return nil
}

func inspectTable(table *report.Table, limit int) pterm.TableData {
	data := pterm.TableData{{"#", "Country", "Provider", "Product", "Sample size", string(table.Metric)}}

	for i, row := range table.Rows {
		if limit > 0 && i >= limit {
			break
		}
		sampleSize := results.AbsentMarker
		if row.SampleSize != nil {
			sampleSize = strconv.Itoa(*row.SampleSize)
		}
		data = append(data, []string{
			strconv.Itoa(i + 1),
			row.Country,
			row.Provider,
			row.Product,
			sampleSize,
			strconv.FormatFloat(row.Value, 'f', -1, 64),
		})
	}

	return data
}
