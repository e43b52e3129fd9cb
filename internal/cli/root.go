package cli

import (
	"github.com/spf13/cobra"

	"github.com/lexcr-io/lexcr/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "lexcr",
	Short: "CloudFormation custom resource provisioner for Lex V2 bots",
	Long: `Lexcr provisions Amazon Lex V2 bots as CloudFormation custom resources.

It reconciles a declarative nested bot definition (bot, locales, slot types,
intents, slots) against live Lex state, drives the per-locale builds to
completion, and manages immutable bot versions and aliases.`,
}

// Execute runs the root command
func Execute() error {
	logging.InitFromEnv()
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(versionCmd)
}
