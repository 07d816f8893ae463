// Package history provides SQLite-based persistence for crawl runs.
//
// This package implements the Store, which keeps:
//   - One row per run with its final stats
//   - The append-only lifecycle event stream of every run
//   - The extracted records of every run
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the history is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// The store plugs into a live run through RunSink, which adapts it to the
// coordinator's event stream. Everything else (run listings, event replay,
// record queries) is read-side API for the history command.
package history
