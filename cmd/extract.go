package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <story-id>",
	Short: "Extract per-character face appearances from a story's pages",
	Long: `Extract scans every page of a story and builds the appearance manifest:
one face thumbnail per character occurrence, with its normalized bounding
box and source method. Pages with generation-quality metadata use the
recorded identity matches directly; pages without it go through geometric
detection plus reasoning validation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer d.printUsage()

		manifest, err := d.runner.Extract(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Extracted %d appearances across %d pages\n",
			len(manifest.Appearances), len(manifest.Pages))
		for character, apps := range manifest.ByCharacter() {
			fmt.Printf("  %s: %d appearances\n", character, len(apps))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
