package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <story-id>",
	Short: "Run the full pipeline: extract, analyze, repair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer d.printUsage()

		if err := d.runner.Run(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("Pipeline finished")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
