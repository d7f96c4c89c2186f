package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair <story-id>",
	Short: "Compile consistency findings into repair commands",
	Long: `Repair translates the flagged outliers of the consistency reports into
a flat, prioritized list of face-repair commands for the regeneration
step. The command list is written even when no issues were found, so
downstream consumers can always rely on the artifact existing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := buildDeps(cmd)
		if err != nil {
			return err
		}

		commands, err := d.runner.Repair(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Generated %d repair commands\n", commands.TotalIssues)
		for _, c := range commands.Commands {
			fmt.Printf("  page %d, %s: %s severity\n", c.PageNumber, c.Character, c.Severity)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(repairCmd)
}
