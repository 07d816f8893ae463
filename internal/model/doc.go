// Package model defines the core data structures used throughout websift.
//
// This package contains the following main types:
//   - Target: One URL-plus-selectors unit of scraping work
//   - SelectorRule: A declarative extraction instruction (path + transform)
//   - FetchPolicy: Rate-limiting, retry, and concurrency configuration for a run
//   - Document: A fetched page as handed to the extractor
//   - Record: The structured extraction result for one Target
//   - CrawlResult: The aggregate of Records and failures for a run
//   - Event: A lifecycle notification emitted as Targets change state
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (fetcher, extractor, crawler, export,
// history) need these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for export output and
// history storage.
package model
