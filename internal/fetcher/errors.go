package fetcher

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped into FetchError values.
var (
	// ErrRobotsDisallowed is returned when the target host's robots.txt
	// forbids fetching the requested path. Not retried.
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

	// ErrRetriesExhausted is wrapped into the final error after the last
	// retry of a transient failure.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrBodyNotHTML is returned when a response's content type is not
	// an HTML document. Not retried; the server will keep serving the
	// same thing.
	ErrBodyNotHTML = errors.New("response is not an HTML document")
)

// ErrorKind classifies fetch errors.
type ErrorKind int

const (
	// KindTimeout means the request exceeded the policy timeout or the
	// connection failed at the network level.
	KindTimeout ErrorKind = iota

	// KindHTTPStatus means the server answered with a non-success
	// status code.
	KindHTTPStatus

	// KindPermanentFailure means the fetch cannot succeed by retrying:
	// either a non-retryable status, or the retry budget ran out.
	KindPermanentFailure
)

// String returns the kind's name as used in failure logs.
func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindHTTPStatus:
		return "http_status"
	case KindPermanentFailure:
		return "permanent_failure"
	default:
		return "unknown"
	}
}

// FetchError is the error type produced by this package. Callers classify
// with errors.As and inspect Kind; Attempts reports how many requests were
// actually sent so failure logs can show the retry history.
type FetchError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// URL is the request URL.
	URL string

	// StatusCode holds the HTTP status for KindHTTPStatus and for
	// permanent failures caused by a status code; zero otherwise.
	StatusCode int

	// Attempts counts requests sent before giving up.
	Attempts int

	// Err is the underlying cause.
	Err error
}

// Error renders the kind, URL, and cause.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s: status %d: %v", e.URL, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying could succeed. It exists so tests and
// callers do not re-derive retry semantics from the kind.
func (e *FetchError) Temporary() bool {
	return e.Kind != KindPermanentFailure
}
