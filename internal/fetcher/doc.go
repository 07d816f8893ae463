// Package fetcher retrieves documents over HTTP with retry, politeness,
// and robots.txt handling.
//
// The fetcher owns the ordering guarantees of outbound traffic. Two
// requests to the same host are always separated by at least the policy
// delay, no matter how many goroutines call Fetch concurrently; requests
// to different hosts never wait on each other. Transient failures
// (network timeouts, 5xx responses, 429 responses) are retried with
// exponentially growing waits, permanent failures (other 4xx responses)
// are not.
//
// Design decision: We serialize per-host access with one mutex per host
// because:
//  1. Holding the host mutex across the politeness wait makes the spacing
//     guarantee hold under any concurrency without a scheduler.
//  2. Hosts stay independent, so a slow host cannot starve the rest of
//     the crawl.
//  3. The map of hosts only grows by distinct hosts seen, which is small
//     for any realistic run.
package fetcher
