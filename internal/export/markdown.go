package export

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/websift/websift/internal/model"
)

// MarkdownWriter outputs run summaries in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run summary in Markdown format.
func (w *MarkdownWriter) Write(result *model.CrawlResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeRecords(md, result)
	w.writeFailures(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the summary header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.CrawlResult) {
	md.H1("Websift Run Summary")
	md.PlainText("")

	stats := result.Stats
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", stats.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", stats.Duration().Round(timeRounding).String()},
			{"Targets", strconv.Itoa(stats.Targets)},
			{"Completed", strconv.Itoa(stats.Done)},
			{"Failed", strconv.Itoa(stats.Failed)},
			{"Records", strconv.Itoa(stats.Records)},
		},
	})
	md.PlainText("")

	w.writeAlert(md, stats)
}

// writeAlert writes an appropriate alert based on the run outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, stats model.Stats) {
	switch {
	case stats.Failed > 0 && stats.Done == 0:
		md.Cautionf("All %d target(s) failed; no records were extracted.", stats.Failed)
	case stats.Failed > 0:
		md.Warningf("%d of %d target(s) failed; results are partial.", stats.Failed, stats.Targets)
	default:
		md.Tip("All targets completed successfully.")
	}
	md.PlainText("")
}

// writeRecords writes the per-type record counts.
func (w *MarkdownWriter) writeRecords(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Records by Type")
	md.PlainText("")

	counts := result.RecordsByType()
	if len(counts) == 0 {
		md.PlainText("No records were extracted.")
		md.PlainText("")
		return
	}

	types := sortedTypes(counts)
	rows := make([][]string, 0, len(types))
	for _, t := range types {
		rows = append(rows, []string{t.String(), strconv.Itoa(counts[t])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Type", "Records"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(types) > 1 {
		w.writePieChart(md, types, counts)
	}
}

// writePieChart writes a mermaid pie chart of the record type distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, types []model.ScrapeType, counts map[model.ScrapeType]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Record Type Distribution"),
		piechart.WithShowData(true),
	)

	for _, t := range types {
		chart.LabelAndIntValue(t.String(), uint64(counts[t]))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFailures writes the failure log as a table.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Failures")
	md.PlainText("")

	if len(result.Failures) == 0 {
		md.PlainText("No failures.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(result.Failures))
	for i, f := range result.Failures {
		rows[i] = []string{
			"`" + truncateString(f.URL, 60) + "`",
			f.ErrorKind,
			strconv.Itoa(f.Attempts),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Error Kind", "Attempts"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the summary footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [websift](https://github.com/websift/websift)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
