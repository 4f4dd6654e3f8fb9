package cmd

import (
	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/report-comparator/internal/comparecmd"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report-comparator",
		Short: "Compare address-quality metrics between an existing and a new report",
		Long: `report-comparator aligns rows of an existing baseline report and a new report
by (country, provider, product) and writes per-metric difference tables for
ASF, APA, PSF and SSF.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(comparecmd.NewCompareCmd())
	cmd.AddCommand(comparecmd.NewInspectCmd())

	return cmd
}
