package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <story-id>",
	Short: "Score cross-page visual consistency for every character",
	Long: `Analyze reads the appearance manifest and produces one consistency
report per character. The grid-composite strategy is preferred when a
reasoning provider is configured; --no-grid falls back to per-image
judgment, and an embedding service alone uses cosine similarity.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer d.printUsage()

		reports, err := d.runner.Analyze(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		for _, report := range reports.Reports {
			switch {
			case report.Skipped:
				fmt.Printf("  %s: skipped (%s)\n", report.Character, report.SkipReason)
			case report.AnalysisError != "":
				fmt.Printf("  %s: analysis failed: %s\n", report.Character, report.AnalysisError)
			default:
				fmt.Printf("  %s: %.2f overall, %d outliers\n",
					report.Character, report.OverallConsistency, len(report.Outliers))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
