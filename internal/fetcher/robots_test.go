package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/websift/websift/internal/model"
)

func TestParseRobots(t *testing.T) {
	t.Parallel()

	const agent = model.DefaultUserAgent

	tests := []struct {
		name  string
		body  string
		path  string
		allow bool
	}{
		{
			name:  "wildcard group disallows prefix",
			body:  "User-agent: *\nDisallow: /private",
			path:  "/private/page",
			allow: false,
		},
		{
			name:  "wildcard group leaves other paths allowed",
			body:  "User-agent: *\nDisallow: /private",
			path:  "/public/page",
			allow: true,
		},
		{
			name:  "group for another agent is ignored",
			body:  "User-agent: googlebot\nDisallow: /",
			path:  "/anything",
			allow: true,
		},
		{
			name:  "group naming our product token applies",
			body:  "User-agent: websift\nDisallow: /internal",
			path:  "/internal/x",
			allow: false,
		},
		{
			name:  "stacked user-agent lines share one group",
			body:  "User-agent: googlebot\nUser-agent: websift\nDisallow: /shared",
			path:  "/shared",
			allow: false,
		},
		{
			name:  "directive between agent and disallow keeps the group",
			body:  "User-agent: *\nCrawl-delay: 10\nDisallow: /slow",
			path:  "/slow",
			allow: false,
		},
		{
			name:  "empty disallow allows everything",
			body:  "User-agent: *\nDisallow:",
			path:  "/anything",
			allow: true,
		},
		{
			name:  "comments are stripped",
			body:  "User-agent: * # everyone\nDisallow: /private # keep out",
			path:  "/private",
			allow: false,
		},
		{
			name:  "empty file allows everything",
			body:  "",
			path:  "/",
			allow: true,
		},
		{
			name:  "disallow root blocks all paths",
			body:  "User-agent: *\nDisallow: /",
			path:  "/any/page",
			allow: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rules := parseRobots(strings.NewReader(tt.body), agent)
			if got := rules.allowed(tt.path); got != tt.allow {
				t.Errorf("expected allowed(%q) = %v, got %v", tt.path, tt.allow, got)
			}
		})
	}
}

func TestFetchHonorsRobotsDisallow(t *testing.T) {
	t.Parallel()

	var pageRequests atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		pageRequests.Add(1)
		fmt.Fprint(w, "<html><body>ok</body></html>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	policy := testPolicy()
	policy.RespectRobots = true
	f, err := New(policy)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, err = f.Fetch(context.Background(), server.URL+"/private/data")
	if !errors.Is(err, ErrRobotsDisallowed) {
		t.Errorf("expected ErrRobotsDisallowed, got %v", err)
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fetchErr.Kind != KindPermanentFailure {
		t.Errorf("expected kind %v, got %v", KindPermanentFailure, fetchErr.Kind)
	}
	if got := pageRequests.Load(); got != 0 {
		t.Errorf("expected no page requests for a disallowed path, got %d", got)
	}

	// An allowed path on the same host fetches normally, reusing the
	// cached rules.
	if _, err := f.Fetch(context.Background(), server.URL+"/public/data"); err != nil {
		t.Errorf("expected no error for an allowed path, got %v", err)
	}
	if got := pageRequests.Load(); got != 1 {
		t.Errorf("expected 1 page request, got %d", got)
	}
}

func TestFetchMissingRobotsAllowsAll(t *testing.T) {
	t.Parallel()

	var robotsRequests atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		robotsRequests.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body>ok</body></html>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	policy := testPolicy()
	policy.RespectRobots = true
	f, err := New(policy)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := f.Fetch(context.Background(), fmt.Sprintf("%s/page/%d", server.URL, i)); err != nil {
			t.Fatalf("fetch %d: expected no error, got %v", i, err)
		}
	}
	if got := robotsRequests.Load(); got != 1 {
		t.Errorf("expected robots.txt fetched once per host, got %d", got)
	}
}

func TestFetchIgnoresRobotsWhenDisabled(t *testing.T) {
	t.Parallel()

	var robotsRequests atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		robotsRequests.Add(1)
		fmt.Fprint(w, "User-agent: *\nDisallow: /")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body>ok</body></html>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f, err := New(testPolicy())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := f.Fetch(context.Background(), server.URL+"/anything"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if got := robotsRequests.Load(); got != 0 {
		t.Errorf("expected robots.txt untouched when disabled, got %d requests", got)
	}
}
