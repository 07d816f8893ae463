package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/websift/websift/internal/model"
)

func testPolicy() model.FetchPolicy {
	return model.FetchPolicy{
		Delay:          time.Millisecond,
		MaxRetries:     2,
		MaxConcurrency: 1,
		Timeout:        5 * time.Second,
	}
}

func TestNewRejectsInvalidPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		policy  model.FetchPolicy
		wantErr error
	}{
		{
			name:    "zero concurrency",
			policy:  model.FetchPolicy{MaxConcurrency: 0},
			wantErr: model.ErrInvalidConcurrency,
		},
		{
			name:    "negative delay",
			policy:  model.FetchPolicy{MaxConcurrency: 1, Delay: -time.Second},
			wantErr: model.ErrNegativeDelay,
		},
		{
			name:    "negative retries",
			policy:  model.FetchPolicy{MaxConcurrency: 1, MaxRetries: -1},
			wantErr: model.ErrNegativeRetries,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := New(tt.policy); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><h1>Hello</h1></body></html>")
	}))
	defer server.Close()

	f, err := New(testPolicy())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	doc, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if doc.URL != server.URL {
		t.Errorf("expected URL %q, got %q", server.URL, doc.URL)
	}
	if doc.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", doc.StatusCode)
	}
	if doc.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", doc.Attempts)
	}
	if doc.Body == "" {
		t.Error("expected a non-empty body")
	}
	if len(doc.ContentHash) != 64 {
		t.Errorf("expected a 64-character hash, got %q", doc.ContentHash)
	}
	if doc.FetchedAt.IsZero() {
		t.Error("expected FetchedAt to be set")
	}
}

func TestFetchRetriesExhaustedOnServerError(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f, err := New(testPolicy())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, err = f.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fetchErr.Kind != KindPermanentFailure {
		t.Errorf("expected kind %v, got %v", KindPermanentFailure, fetchErr.Kind)
	}
	if fetchErr.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", fetchErr.Attempts)
	}
	if fetchErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", fetchErr.StatusCode)
	}
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Errorf("expected ErrRetriesExhausted in chain, got %v", err)
	}
	if got := requests.Load(); got != 3 {
		t.Errorf("expected 3 requests on the wire, got %d", got)
	}
}

func TestFetchRecoversAfterTransientErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		status       int
		failures     int64
		wantAttempts int
	}{
		{
			name:         "server error then success",
			status:       http.StatusInternalServerError,
			failures:     2,
			wantAttempts: 3,
		},
		{
			name:         "rate limited then success",
			status:       http.StatusTooManyRequests,
			failures:     1,
			wantAttempts: 2,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var requests atomic.Int64
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if requests.Add(1) <= tt.failures {
					w.WriteHeader(tt.status)
					return
				}
				fmt.Fprint(w, "<html><body>ok</body></html>")
			}))
			defer server.Close()

			f, err := New(testPolicy())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			doc, err := f.Fetch(context.Background(), server.URL)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if doc.Attempts != tt.wantAttempts {
				t.Errorf("expected %d attempts, got %d", tt.wantAttempts, doc.Attempts)
			}
		})
	}
}

func TestFetchClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f, err := New(testPolicy())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, err = f.Fetch(context.Background(), server.URL)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fetchErr.Kind != KindPermanentFailure {
		t.Errorf("expected kind %v, got %v", KindPermanentFailure, fetchErr.Kind)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", fetchErr.StatusCode)
	}
	if fetchErr.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", fetchErr.Attempts)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("expected 1 request on the wire, got %d", got)
	}
}

func TestFetchTimeoutIsRetried(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) == 1 {
			time.Sleep(300 * time.Millisecond)
		}
		fmt.Fprint(w, "<html><body>ok</body></html>")
	}))
	defer server.Close()

	policy := testPolicy()
	f, err := New(policy, WithClient(&http.Client{Timeout: 50 * time.Millisecond}))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	doc, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if doc.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", doc.Attempts)
	}
}

func TestFetchPolitenessSpacesSameHostRequests(t *testing.T) {
	t.Parallel()

	const delay = 80 * time.Millisecond
	const fetches = 3

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body>ok</body></html>")
	}))
	defer server.Close()

	policy := testPolicy()
	policy.Delay = delay
	f, err := New(policy)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	start := time.Now()
	var wg sync.WaitGroup
	errs := make([]error, fetches)
	for i := 0; i < fetches; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.Fetch(context.Background(), fmt.Sprintf("%s/page/%d", server.URL, i))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("fetch %d: expected no error, got %v", i, err)
		}
	}
	// The first request is unspaced; each later one waits at least the
	// delay behind its predecessor.
	if elapsed := time.Since(start); elapsed < (fetches-1)*delay {
		t.Errorf("expected at least %v between %d same-host fetches, finished in %v",
			(fetches-1)*delay, fetches, elapsed)
	}
}

func TestFetchDifferentHostsDoNotWaitOnEachOther(t *testing.T) {
	t.Parallel()

	const delay = 150 * time.Millisecond

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body>ok</body></html>")
	})
	serverA := httptest.NewServer(handler)
	defer serverA.Close()
	serverB := httptest.NewServer(handler)
	defer serverB.Close()

	policy := testPolicy()
	policy.Delay = delay
	f, err := New(policy)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	start := time.Now()
	var wg sync.WaitGroup
	for _, target := range []string{serverA.URL, serverB.URL} {
		wg.Add(1)
		go func(target string) {
			defer wg.Done()
			if _, err := f.Fetch(context.Background(), target); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		}(target)
	}
	wg.Wait()

	if elapsed := time.Since(start); elapsed >= delay {
		t.Errorf("expected independent hosts to fetch concurrently, took %v", elapsed)
	}
}

func TestFetchCancellationStopsRetryWait(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	policy := testPolicy()
	policy.Delay = 10 * time.Second
	policy.MaxRetries = 5
	f, err := New(policy)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = f.Fetch(ctx, server.URL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("expected cancellation to interrupt the wait, took %v", elapsed)
	}
}

func TestFetchRespectsBodyLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		for i := 0; i < 1000; i++ {
			fmt.Fprint(w, "aaaaaaaaaa")
		}
	}))
	defer server.Close()

	policy := testPolicy()
	policy.MaxBodyBytes = 64
	f, err := New(policy)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	doc, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(doc.Body) > 64 {
		t.Errorf("expected body capped at 64 bytes, got %d", len(doc.Body))
	}
}

func TestFetchDecodesLegacyCharset(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "café" with an ISO-8859-1 encoded e-acute.
		w.Write([]byte("<html><body><p>caf\xe9</p></body></html>"))
	}))
	defer server.Close()

	f, err := New(testPolicy())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	doc, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if want := "café"; !strings.Contains(doc.Body, want) {
		t.Errorf("expected body to contain %q, got %q", want, doc.Body)
	}
}

func TestFetchRejectsNonHTMLContent(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer server.Close()

	f, err := New(testPolicy())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, err = f.Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrBodyNotHTML) {
		t.Errorf("expected ErrBodyNotHTML, got %v", err)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("expected 1 request on the wire, got %d", got)
	}
}

func TestFetchInvalidURL(t *testing.T) {
	t.Parallel()

	f, err := New(testPolicy())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, err = f.Fetch(context.Background(), "http://")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fetchErr.Kind != KindPermanentFailure {
		t.Errorf("expected kind %v, got %v", KindPermanentFailure, fetchErr.Kind)
	}
}
