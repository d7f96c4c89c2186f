package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storybook",
	Short: "A CLI tool for verifying character consistency in generated storybooks",
	Long: `Storybook checks that each character's drawn identity stays visually
consistent across the independently generated pages of an illustrated
children's book. It extracts per-character face regions, scores cross-page
consistency, and compiles detected drift into prioritized repair commands
for the regeneration step.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().Bool("progress", false, "Show a progress bar for page and character loops")
	rootCmd.PersistentFlags().Bool("no-grid", false, "Judge faces individually instead of compositing a labeled grid")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
