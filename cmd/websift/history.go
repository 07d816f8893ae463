package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/websift/websift/internal/config"
	"github.com/websift/websift/internal/history"
)

// defaultHistoryLimit is how many runs a bare "websift history" lists.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
// This command inspects past runs recorded in the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Inspect past runs recorded in the history database",
		Long: `History lists past scrape and search runs and inspects a single run.

Every scrape and search run is recorded in a local database (unless started
with --no-history): the run's stats, the per-target event stream, and the
extracted records.

Without arguments, history lists recent runs. With a run ID it shows that
run's summary; --events replays the run's event stream and --records prints
the stored records as JSON.

Examples:
  # List the 20 most recent runs
  websift history

  # List the 50 most recent runs
  websift history -n 50

  # Show one run
  websift history 42

  # Replay the per-target event stream of a run
  websift history 42 --events

  # Print the records captured by a run as JSON
  websift history 42 --records`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list")
	cmd.Flags().Bool("events", false,
		"Show the per-target event stream of the run")
	cmd.Flags().Bool("records", false,
		"Print the run's records as JSON")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	showEvents, err := cmd.Flags().GetBool("events")
	if err != nil {
		return err
	}
	showRecords, err := cmd.Flags().GetBool("records")
	if err != nil {
		return err
	}

	// Parse the run ID before opening the database, so an invalid ID does
	// not create an empty database as a side effect
	var runID int64
	if len(args) > 0 {
		runID, err = strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run ID %q (expected a number)", args[0])
		}
	}

	// Use XDG data directory for the history database
	store, err := history.Open(config.XDGDataDir(), history.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	if len(args) == 0 {
		return listRunHistory(ctx, store, limit)
	}
	return showRun(ctx, store, runID, showEvents, showRecords)
}

// listRunHistory lists the most recent runs in the database.
func listRunHistory(ctx context.Context, store *history.Store, limit int) error {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		fmt.Println("\nUse 'websift scrape <url>' to scrape a page and record the run.")
		return nil
	}

	fmt.Printf("Run history (%d runs):\n\n", len(runs))
	fmt.Printf("  %-6s  %-8s  %-20s  %-9s  %-6s  %-7s  %s\n",
		"ID", "Mode", "Started", "Duration", "Done", "Failed", "Records")
	fmt.Println("  " + strings.Repeat("-", 76))

	for _, run := range runs {
		fmt.Printf("  %-6d  %-8s  %-20s  %-9s  %-6d  %-7d  %d\n",
			run.ID,
			run.Mode,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			formatRunDuration(run),
			run.Done,
			run.Failed,
			run.Records,
		)
	}

	fmt.Println("\nUse 'websift history <run-id>' to inspect a run.")
	fmt.Println("Use 'websift history <run-id> --events' to replay its event stream.")

	return nil
}

// formatRunDuration formats a run's wall-clock duration, or marks runs that
// never recorded a finish time (interrupted before the final save).
func formatRunDuration(run history.RunSummary) string {
	if run.FinishedAt.IsZero() {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}

// showRun prints one run's summary, optionally with its event stream and
// stored records.
func showRun(ctx context.Context, store *history.Store, runID int64, showEvents, showRecords bool) error {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run %d: %w", runID, err)
	}
	if run == nil {
		return fmt.Errorf("run %d not found (use 'websift history' to list runs)", runID)
	}

	fmt.Printf("Run %d (%s)\n", run.ID, run.Mode)
	fmt.Printf("  Started:  %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if run.FinishedAt.IsZero() {
		fmt.Printf("  Finished: - (interrupted before the final save)\n")
	} else {
		fmt.Printf("  Finished: %s (%s)\n",
			run.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
		)
	}
	fmt.Printf("  Targets:  %d (%d done, %d failed)\n", run.Targets, run.Done, run.Failed)
	fmt.Printf("  Records:  %d\n", run.Records)

	if showEvents {
		fmt.Println()
		if err := printRunEvents(ctx, store, runID); err != nil {
			return err
		}
	}

	if showRecords {
		fmt.Println()
		if err := printRunRecords(ctx, store, runID); err != nil {
			return err
		}
	}

	if !showEvents && !showRecords {
		fmt.Println("\nUse --events to replay the event stream, --records to print the records.")
	}

	return nil
}

// printRunEvents replays the per-target event stream of a run.
func printRunEvents(ctx context.Context, store *history.Store, runID int64) error {
	events, err := store.EventsForRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load events for run %d: %w", runID, err)
	}

	if len(events) == 0 {
		fmt.Println("No events recorded for this run.")
		return nil
	}

	fmt.Printf("Events (%d):\n\n", len(events))
	for _, event := range events {
		line := fmt.Sprintf("  %s  %-9s  %s",
			event.Time.Local().Format("15:04:05.000"),
			event.State,
			event.URL,
		)
		if event.Attempts > 0 {
			line += fmt.Sprintf(" (attempt %d)", event.Attempts)
		}
		if event.Detail != "" {
			line += ": " + event.Detail
		}
		fmt.Println(line)
	}

	return nil
}

// printRunRecords prints the records stored for a run as indented JSON.
func printRunRecords(ctx context.Context, store *history.Store, runID int64) error {
	records, err := store.RecordsForRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load records for run %d: %w", runID, err)
	}

	if len(records) == 0 {
		fmt.Println("No records stored for this run.")
		return nil
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}
