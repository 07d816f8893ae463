// Package export provides result serialization and output functionality.
//
// This package contains writers for different output formats:
//   - SummaryWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - CSVWriter: Flattened tabular output for spreadsheets
//   - MarkdownWriter: Run summaries for documentation and sharing
//
// Design decision: We separate result writing from result data structures
// (which are in the model package) to follow the single responsibility
// principle. This allows adding new output formats without modifying
// the core data structures.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package export
