// Package main provides the entry point for the websift CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for websift.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "websift",
		Short: "Selector-driven scraping engine for public web pages",
		Long: `Websift fetches public web pages and extracts structured records from them
using CSS selector rules.

Pages are fetched politely: same-host requests are spaced out, robots.txt
rules are honored, and transient failures are retried with backoff. Each run
is recorded in a local history database for later inspection.

Built-in rule sets cover news, product, and social pages; a .websift.yaml
profile can replace them with custom selectors per site.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
