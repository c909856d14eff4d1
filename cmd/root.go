package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lessonforge",
	Short: "Adaptive micro-lesson generation pipeline",
	Long:  "Lessonforge generates short, schema-validated lessons and whole-course learning paths from LLM providers, with verification, batching, and deterministic fallback.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("user", "local", "User ID attached to generation and the usage ledger")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(versionCmd)
}
