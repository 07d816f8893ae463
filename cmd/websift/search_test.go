package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/websift/websift/internal/config"
	"github.com/websift/websift/internal/history"
	"github.com/websift/websift/internal/log"
	"github.com/websift/websift/internal/model"
)

func TestNewSearchCmd(t *testing.T) {
	t.Parallel()

	cmd := NewSearchCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "search [keyword...]" {
			t.Errorf("expected use 'search [keyword...]', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has seed flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("seed")
		if flag == nil {
			t.Fatal("expected seed flag")
		}
		if flag.Shorthand != "s" {
			t.Errorf("expected shorthand 's', got %q", flag.Shorthand)
		}
	})

	t.Run("has max-pages flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("max-pages")
		if flag == nil {
			t.Fatal("expected max-pages flag")
		}
		if flag.Shorthand != "p" {
			t.Errorf("expected shorthand 'p', got %q", flag.Shorthand)
		}
		if flag.DefValue != "30" {
			t.Errorf("expected default '30', got %q", flag.DefValue)
		}
	})

	t.Run("shares the run flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"type", "delay", "json", "csv", "output", "no-history"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})
}

// newSearchTestServer serves a seed page linking to one page that contains
// the keyword and one that does not.
func newSearchTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", http.NotFound)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Seed</title></head><body>
<a href="/a">First page</a>
<a href="/b">Second page</a>
</body></html>`))
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Program News</title></head><body>
<p>The Falcon program completed another milestone flight this week.</p>
</body></html>`))
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Weather</title></head><body>
<p>Light rain is expected across the coastal region tomorrow morning.</p>
</body></html>`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRunSearch(t *testing.T) {
	t.Run("keeps only records that match a keyword", func(t *testing.T) {
		srv := newSearchTestServer(t)
		tmpDir := t.TempDir()
		outputPath := filepath.Join(tmpDir, "matches.json")

		cfg := config.NewConfig()
		cfg.Keywords = []string{"falcon"}
		cfg.Seeds = []string{srv.URL}
		cfg.MaxPages = 10
		cfg.Delay = time.Millisecond
		cfg.JSONOutput = true
		cfg.OutputFile = outputPath
		cfg.DBDir = filepath.Join(tmpDir, "data")
		cfg.SaveHistory = true

		logger := log.NewLogger(io.Discard, false)

		if err := runSearch(context.Background(), cfg, logger); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read output: %v", err)
		}
		var result model.CrawlResult
		if err := json.Unmarshal(content, &result); err != nil {
			t.Fatalf("failed to parse output JSON: %v", err)
		}

		if len(result.Records) != 1 {
			t.Fatalf("expected 1 matching record, got %d", len(result.Records))
		}
		rec := result.Records[0]
		if !strings.HasSuffix(rec.SourceURL, "/a") {
			t.Errorf("expected the matching page /a, got %s", rec.SourceURL)
		}
		matched, ok := rec.Field("matched_keywords")
		if !ok {
			t.Fatal("expected matched_keywords field on the record")
		}
		if matched.Flatten() != "falcon" {
			t.Errorf("expected matched keyword 'falcon', got %q", matched.Flatten())
		}

		// Both expanded pages were processed; only one produced a record
		if result.Stats.Targets != 2 {
			t.Errorf("expected 2 expanded targets, got %d", result.Stats.Targets)
		}
		if result.Stats.Done != 2 {
			t.Errorf("expected 2 done targets, got %d", result.Stats.Done)
		}

		// The run is recorded in search mode
		store, err := history.Open(cfg.DBDir, history.Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open history: %v", err)
		}
		defer store.Close()

		runs, err := store.ListRuns(context.Background(), 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("expected 1 recorded run, got %d", len(runs))
		}
		if runs[0].Mode != "search" {
			t.Errorf("expected mode 'search', got %q", runs[0].Mode)
		}
	})

	t.Run("fails when no seed yields targets", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		cfg := config.NewConfig()
		cfg.Keywords = []string{"falcon"}
		cfg.Seeds = []string{srv.URL}
		cfg.Delay = time.Millisecond
		cfg.MaxRetries = 0
		cfg.SaveHistory = false

		logger := log.NewLogger(io.Discard, false)

		if err := runSearch(context.Background(), cfg, logger); err == nil {
			t.Error("expected error when the seed page fails")
		}
	})
}

// TestRunSearchCmdNoKeywords tests runSearchCmd with no arguments.
func TestRunSearchCmdNoKeywords(t *testing.T) {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"search"})

	err := rootCmd.Execute()
	if err == nil {
		t.Error("expected error for missing keywords")
	}
	if !strings.Contains(err.Error(), "no target") {
		t.Errorf("expected 'no target' error, got: %v", err)
	}
}

// TestRunSearchCmdNoSeeds tests runSearchCmd with keywords but no seeds.
func TestRunSearchCmdNoSeeds(t *testing.T) {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"search", "falcon"})

	err := rootCmd.Execute()
	if err == nil {
		t.Error("expected error for missing seeds")
	}
	if !strings.Contains(err.Error(), "seed") {
		t.Errorf("expected seed error, got: %v", err)
	}
}
