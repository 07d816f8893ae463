package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/websift/websift/internal/config"
)

//go:embed templates/websift.yaml
var profileTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new websift profile file",
		Long: `Init creates a new .websift.yaml profile file in the current directory.

The generated file includes:
- Default fetch policy settings (delay, retries, concurrency, timeouts)
- Commented examples for recurring targets
- Commented examples for custom selector rules per scrape type

Examples:
  # Create .websift.yaml in current directory
  websift init

  # Create profile file at a specific path
  websift init -o myprofile.yaml

  # Force overwrite existing file
  websift init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultProfileFile,
		"Output file path for the profile")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing profile file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	// Check if file already exists
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("profile file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	// Read template from embedded filesystem
	content, err := profileTemplate.ReadFile("templates/websift.yaml")
	if err != nil {
		return fmt.Errorf("failed to read profile template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write profile file
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write profile file: %w", err)
	}

	fmt.Printf("Created profile file: %s\n", outputPath)
	fmt.Println("\nEdit this file to configure settings such as:")
	fmt.Println("  - Politeness delay, retries, and concurrency")
	fmt.Println("  - Recurring targets for bare 'websift scrape' runs")
	fmt.Println("  - Custom selector rules per scrape type")

	return nil
}
