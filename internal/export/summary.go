package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/websift/websift/internal/model"
)

// SummaryWriter outputs human-readable text summaries.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SummaryWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose enables per-record field output.
	verbose bool
}

// SummaryWriterOption configures a SummaryWriter.
type SummaryWriterOption func(*SummaryWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SummaryWriterOption {
	return func(w *SummaryWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output listing every record's fields.
func WithVerbose(verbose bool) SummaryWriterOption {
	return func(w *SummaryWriter) {
		w.verbose = verbose
	}
}

// NewSummaryWriter creates a SummaryWriter that outputs to the given writer.
func NewSummaryWriter(output io.Writer, opts ...SummaryWriterOption) *SummaryWriter {
	w := &SummaryWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the result in human-readable format.
func (w *SummaryWriter) Write(result *model.CrawlResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeRecords(&sb, result)
	w.writeFailures(&sb, result)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the summary header with run stats.
func (w *SummaryWriter) writeHeader(sb *strings.Builder, result *model.CrawlResult) {
	stats := result.Stats

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        WEBSIFT RUN SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Started:   %s\n", stats.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:  %s\n", stats.Duration().Round(timeRounding)))
	sb.WriteString(fmt.Sprintf("Targets:   %d\n", stats.Targets))
	sb.WriteString(fmt.Sprintf("Completed: %d\n", stats.Done))
	sb.WriteString(fmt.Sprintf("Failed:    %d\n", stats.Failed))
	sb.WriteString(fmt.Sprintf("Records:   %d\n", stats.Records))
	sb.WriteString("\n")
}

// writeRecords writes the per-type record counts, and every record's
// fields when verbose is enabled.
func (w *SummaryWriter) writeRecords(sb *strings.Builder, result *model.CrawlResult) {
	if len(result.Records) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("RECORDS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(result.Records) == 0 {
		sb.WriteString("  No records extracted\n\n")
		return
	}

	counts := result.RecordsByType()
	for _, t := range sortedTypes(counts) {
		sb.WriteString(fmt.Sprintf("  [+] %-8s %d\n", t.String()+":", counts[t]))
	}
	sb.WriteString("\n")

	if !w.verbose {
		return
	}

	for _, rec := range result.Records {
		sb.WriteString(fmt.Sprintf("  * %s (%s)\n", rec.SourceURL, rec.Type))
		for _, name := range rec.FieldNames() {
			value, _ := rec.Field(name)
			sb.WriteString(fmt.Sprintf("    %s: %s\n", name, truncateString(value.Flatten(), 120)))
		}
	}
	sb.WriteString("\n")
}

// writeFailures writes the failure log.
func (w *SummaryWriter) writeFailures(sb *strings.Builder, result *model.CrawlResult) {
	if len(result.Failures) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FAILURES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(result.Failures) == 0 {
		sb.WriteString("  No failures\n\n")
		return
	}

	for _, f := range result.Failures {
		sb.WriteString(fmt.Sprintf("  * %s\n", f.URL))
		sb.WriteString(fmt.Sprintf("    Kind: %s\n", f.ErrorKind))
		sb.WriteString(fmt.Sprintf("    Attempts: %d\n", f.Attempts))
	}
	sb.WriteString("\n")
}

// writeFooter writes the summary footer.
func (w *SummaryWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
