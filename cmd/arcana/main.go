package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s)", version, commit)
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "arcana",
		Short:         "Arcana, a tarot reading bot",
		Long:          "Arcana runs guided tarot readings over a chat webhook, drawing cards per user and asking a language model to interpret them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.Version = buildVersion()

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(drawCmd())
	rootCmd.AddCommand(deckCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
