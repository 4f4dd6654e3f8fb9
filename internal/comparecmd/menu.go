package comparecmd

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/report-comparator/internal/report"
	"github.com/pterm/pterm"
)

type menuChoice struct {
	label     string
	selection string
}

// menuChoices mirrors the numbered menu operators are used to.
func menuChoices() []menuChoice {
	choices := make([]menuChoice, 0, len(report.AllKinds)+1)
	for i, kind := range report.AllKinds {
		choices = append(choices, menuChoice{
			label:     fmt.Sprintf("%d. %s (%s)", i+1, strings.ToUpper(kind.String()), kind.Description()),
			selection: kind.String(),
		})
	}
	choices = append(choices, menuChoice{
		label:     fmt.Sprintf("%d. All metrics", len(report.AllKinds)+1),
		selection: report.AllSelection,
	})
	return choices
}

// promptSelection asks the operator which metric to compare.
func promptSelection() (string, error) {
	choices := menuChoices()
	labels := make([]string, len(choices))
	for i, c := range choices {
		labels[i] = c.label
	}

	picked, err := pterm.DefaultInteractiveSelect.
		WithOptions(labels).
		WithDefaultText("Available metrics to compare").
		Show()
	if err != nil {
		return "", fmt.Errorf("failed to read metric choice: %w", err)
	}

	for _, c := range choices {
		if c.label == picked {
			return c.selection, nil
		}
	}
	return picked, nil
}
