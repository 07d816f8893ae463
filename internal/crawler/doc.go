// Package crawler coordinates scraping runs: it owns the target queue, the
// worker pool, state transitions, and result assembly.
//
// A run takes a fixed set of targets, deduplicates them by normalized URL,
// and processes each one through the fetch and extract stages under a
// concurrency limit. Per-target failures are recorded in the result's
// failure log and never abort the run; only context cancellation and the
// optional item cap stop it early, and both still return the partial
// result.
//
// Keyword-search runs go through the same machinery after an expansion
// pass: seed pages are fetched, their links harvested, and the linked pages
// become the run's targets. Records whose document text matches none of the
// keywords are dropped on the way into the result.
//
// Design decision: We keep the coordinator free of HTTP and parsing code
// because:
//  1. The Fetcher and Extractor interfaces make runs testable with stubs,
//     without network or fixture files.
//  2. Retry and politeness policy belong to the fetcher; the coordinator
//     cannot accidentally bypass them.
//  3. The same coordinator drives direct runs and keyword-search runs.
package crawler
