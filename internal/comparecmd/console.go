package comparecmd

import (
	"fmt"
	"strconv"

	"github.com/lehigh-university-libraries/report-comparator/internal/comparison"
	"github.com/lehigh-university-libraries/report-comparator/internal/results"
	"github.com/pterm/pterm"
)

// printSummary renders the per-metric outcomes of a run as a table.
func printSummary(summary *comparison.Summary) {
	pterm.DefaultSection.Println("Comparison summary")

	if err := pterm.DefaultTable.
		WithHasHeader().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(summaryTable(summary)).
		Render(); err != nil {
		fmt.Printf("Warning: failed to render summary table: %v\n", err)
	}

	failed := summary.Failed()
	switch {
	case len(failed) == 0:
		pterm.Success.Printfln("%d metric(s) compared", len(summary.Outcomes))
	case len(failed) == len(summary.Outcomes):
		pterm.Error.Printfln("All %d metric(s) failed", len(failed))
	default:
		pterm.Warning.Printfln("%d of %d metric(s) failed", len(failed), len(summary.Outcomes))
	}
}

func summaryTable(summary *comparison.Summary) pterm.TableData {
	data := pterm.TableData{
		{"Metric", "Status", "Rows", "Paired", "Existing only", "New only", "Mean delta", "Output / reason"},
	}

	for _, o := range summary.Outcomes {
		if o.Status != comparison.StatusSucceeded {
			data = append(data, []string{
				o.Metric.String(),
				pterm.FgRed.Sprint(o.Status),
				"-", "-", "-", "-", "-",
				fmt.Sprintf("%s: %s", comparison.ErrorKind(o.Err), o.Reason()),
			})
			continue
		}

		data = append(data, []string{
			o.Metric.String(),
			pterm.FgGreen.Sprint(o.Status),
			strconv.Itoa(o.Stats.Total),
			strconv.Itoa(o.Stats.Paired),
			strconv.Itoa(o.Stats.ExistingOnly),
			strconv.Itoa(o.Stats.NewOnly),
			formatDelta(o.Stats),
			o.OutputPath,
		})
	}

	return data
}

func formatDelta(stats comparison.Stats) string {
	if stats.Paired == 0 {
		return results.AbsentMarker
	}
	return fmt.Sprintf("%+.2f", stats.MeanDelta)
}
