package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/websift/websift/internal/model"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if cfg.ScrapeType != model.TypeGeneric.String() {
		t.Errorf("expected scrape type %q, got %q", model.TypeGeneric, cfg.ScrapeType)
	}
	if cfg.Delay != model.DefaultDelay {
		t.Errorf("expected delay %v, got %v", model.DefaultDelay, cfg.Delay)
	}
	if cfg.MaxRetries != model.DefaultMaxRetries {
		t.Errorf("expected max retries %d, got %d", model.DefaultMaxRetries, cfg.MaxRetries)
	}
	if cfg.MaxConcurrency != model.DefaultMaxConcurrency {
		t.Errorf("expected max concurrency %d, got %d", model.DefaultMaxConcurrency, cfg.MaxConcurrency)
	}
	if cfg.Timeout != model.DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", model.DefaultTimeout, cfg.Timeout)
	}
	if cfg.MaxBodyBytes != model.DefaultMaxBodyBytes {
		t.Errorf("expected max body bytes %d, got %d", model.DefaultMaxBodyBytes, cfg.MaxBodyBytes)
	}
	if cfg.UserAgent != model.DefaultUserAgent {
		t.Errorf("expected user agent %q, got %q", model.DefaultUserAgent, cfg.UserAgent)
	}
	if !cfg.RespectRobots {
		t.Error("expected robots.txt handling on by default")
	}
	if cfg.DBDir == "" {
		t.Error("expected a default history directory")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	withTargets := func(mutate func(*Config)) *Config {
		cfg := NewConfig()
		cfg.Targets = []string{"https://example.com"}
		if mutate != nil {
			mutate(cfg)
		}
		return cfg
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr error
	}{
		{
			name:    "valid with targets",
			config:  withTargets(nil),
			wantErr: nil,
		},
		{
			name: "valid with keywords",
			config: func() *Config {
				cfg := NewConfig()
				cfg.Keywords = []string{"golang"}
				cfg.Seeds = []string{"https://example.com"}
				return cfg
			}(),
			wantErr: nil,
		},
		{
			name: "valid with profile targets",
			config: func() *Config {
				cfg := NewConfig()
				cfg.Profile = &Profile{Targets: []TargetSettings{{URL: "https://example.com"}}}
				return cfg
			}(),
			wantErr: nil,
		},
		{
			name:    "nothing to scrape",
			config:  NewConfig(),
			wantErr: ErrNoTarget,
		},
		{
			name: "conflicting output formats",
			config: withTargets(func(c *Config) {
				c.JSONOutput = true
				c.CSVOutput = true
			}),
			wantErr: ErrConflictingOutputFormats,
		},
		{
			name: "zero timeout",
			config: withTargets(func(c *Config) {
				c.Timeout = 0
			}),
			wantErr: ErrInvalidTimeout,
		},
		{
			name: "zero concurrency",
			config: withTargets(func(c *Config) {
				c.MaxConcurrency = 0
			}),
			wantErr: model.ErrInvalidConcurrency,
		},
		{
			name: "negative delay",
			config: withTargets(func(c *Config) {
				c.Delay = -time.Second
			}),
			wantErr: model.ErrNegativeDelay,
		},
		{
			name: "negative max items",
			config: withTargets(func(c *Config) {
				c.MaxItems = -1
			}),
			wantErr: model.ErrNegativeMaxItems,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigPolicy(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.Delay = 2 * time.Second
	cfg.MaxRetries = 1
	cfg.MaxConcurrency = 7
	cfg.MaxItems = 42
	cfg.UserAgent = ""

	policy := cfg.Policy()
	if policy.Delay != 2*time.Second {
		t.Errorf("expected delay 2s, got %v", policy.Delay)
	}
	if policy.MaxRetries != 1 {
		t.Errorf("expected 1 retry, got %d", policy.MaxRetries)
	}
	if policy.MaxConcurrency != 7 {
		t.Errorf("expected concurrency 7, got %d", policy.MaxConcurrency)
	}
	if policy.MaxItems != 42 {
		t.Errorf("expected max items 42, got %d", policy.MaxItems)
	}
	// Empty optional fields are normalized to defaults.
	if policy.UserAgent != model.DefaultUserAgent {
		t.Errorf("expected default user agent, got %q", policy.UserAgent)
	}
}

func TestBuildTargetsFromCommandLine(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.ScrapeType = "product"
	cfg.Targets = []string{"https://shop.example.com/a", "https://shop.example.com/b"}

	targets, err := cfg.BuildTargets()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}
	for _, target := range targets {
		if target.Type != model.TypeProduct {
			t.Errorf("expected type %q, got %q", model.TypeProduct, target.Type)
		}
		if len(target.Rules) == 0 {
			t.Error("expected default rules to be applied")
		}
	}
}

func TestBuildTargetsProfileRulesOverrideDefaults(t *testing.T) {
	t.Parallel()

	custom := []model.SelectorRule{{FieldName: "headline", Path: "h1.main"}}
	cfg := NewConfig()
	cfg.ScrapeType = "news"
	cfg.Targets = []string{"https://news.example.com"}
	cfg.Profile = &Profile{Rules: map[string][]model.SelectorRule{"news": custom}}

	targets, err := cfg.BuildTargets()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("expected 1 target, got %d", len(targets))
	}
	if len(targets[0].Rules) != 1 || targets[0].Rules[0].FieldName != "headline" {
		t.Errorf("expected the profile rule set, got %+v", targets[0].Rules)
	}
}

func TestBuildTargetsFromProfile(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.Profile = &Profile{Targets: []TargetSettings{
		{URL: "https://news.example.com", Type: "news"},
		{URL: "https://example.com"},
	}}

	targets, err := cfg.BuildTargets()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}
	if targets[0].Type != model.TypeNews {
		t.Errorf("expected first target type %q, got %q", model.TypeNews, targets[0].Type)
	}
	// A profile target without a type inherits the run's type.
	if targets[1].Type != model.TypeGeneric {
		t.Errorf("expected second target type %q, got %q", model.TypeGeneric, targets[1].Type)
	}
}

func TestBuildTargetsCommandLineWinsOverProfile(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.Targets = []string{"https://cli.example.com"}
	cfg.Profile = &Profile{Targets: []TargetSettings{{URL: "https://profile.example.com"}}}

	targets, err := cfg.BuildTargets()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(targets) != 1 || targets[0].URL != "https://cli.example.com" {
		t.Errorf("expected only the command-line target, got %+v", targets)
	}
}

func TestBuildTargetsErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name: "invalid URL scheme",
			mutate: func(c *Config) {
				c.Targets = []string{"ftp://example.com"}
			},
			wantErr: model.ErrUnsupportedScheme,
		},
		{
			name: "unknown scrape type",
			mutate: func(c *Config) {
				c.Targets = []string{"https://example.com"}
				c.ScrapeType = "podcast"
			},
			wantErr: model.ErrUnknownScrapeType,
		},
		{
			name:    "nothing configured",
			mutate:  func(c *Config) {},
			wantErr: ErrNoTarget,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.mutate(cfg)
			if _, err := cfg.BuildTargets(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBuildQuery(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.Keywords = []string{"golang", "scraping"}
	cfg.Seeds = []string{"https://example.com/search"}
	cfg.MaxPages = 5
	cfg.ScrapeType = "news"

	query, err := cfg.BuildQuery()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if query.Type != model.TypeNews {
		t.Errorf("expected type %q, got %q", model.TypeNews, query.Type)
	}
	if query.MaxPages != 5 {
		t.Errorf("expected max pages 5, got %d", query.MaxPages)
	}
	if len(query.Keywords) != 2 {
		t.Errorf("expected 2 keywords, got %d", len(query.Keywords))
	}
}

func TestBuildQueryRequiresKeywords(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.Seeds = []string{"https://example.com"}

	if _, err := cfg.BuildQuery(); !errors.Is(err, model.ErrNoKeywords) {
		t.Errorf("expected ErrNoKeywords, got %v", err)
	}
}

func TestLoadProfile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "websift.yaml")
	content := `policy:
  delay_ms: 250
  max_retries: 4
  max_concurrency: 3
  respect_robots: false
  max_items: 10
targets:
  - url: https://shop.example.com
    type: product
rules:
  news:
    - field: title
      path: "h1"
    - field: prices
      path: ".price"
      multiple: true
      transform: number
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	profile, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	cfg := NewConfig()
	profile.Apply(cfg)

	if cfg.Delay != 250*time.Millisecond {
		t.Errorf("expected delay 250ms, got %v", cfg.Delay)
	}
	if cfg.MaxRetries != 4 {
		t.Errorf("expected 4 retries, got %d", cfg.MaxRetries)
	}
	if cfg.MaxConcurrency != 3 {
		t.Errorf("expected concurrency 3, got %d", cfg.MaxConcurrency)
	}
	if cfg.RespectRobots {
		t.Error("expected robots.txt handling off")
	}
	if cfg.MaxItems != 10 {
		t.Errorf("expected max items 10, got %d", cfg.MaxItems)
	}
	// Settings absent from the profile keep their defaults.
	if cfg.Timeout != model.DefaultTimeout {
		t.Errorf("expected default timeout, got %v", cfg.Timeout)
	}

	if len(profile.Targets) != 1 || profile.Targets[0].Type != "product" {
		t.Errorf("expected one product target, got %+v", profile.Targets)
	}
	newsRules := profile.Rules["news"]
	if len(newsRules) != 2 {
		t.Fatalf("expected 2 news rules, got %d", len(newsRules))
	}
	if newsRules[1].Transform != model.TransformNumber || !newsRules[1].Multiple {
		t.Errorf("expected a multiple number rule, got %+v", newsRules[1])
	}
}

func TestLoadProfileNotFound(t *testing.T) {
	t.Parallel()

	_, err := LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestLoadProfileRejectsBadContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "malformed yaml",
			content: "policy: [not a map",
			wantErr: nil, // any error is fine; yaml's own error type
		},
		{
			name: "unknown rule type",
			content: `rules:
  podcast:
    - field: title
      path: "h1"
`,
			wantErr: ErrUnknownProfileType,
		},
		{
			name: "invalid selector",
			content: `rules:
  news:
    - field: title
      path: "h1[["
`,
			wantErr: nil, // wrapped cascadia parse error
		},
		{
			name: "duplicate field names",
			content: `rules:
  news:
    - field: title
      path: "h1"
    - field: title
      path: "h2"
`,
			wantErr: model.ErrDuplicateField,
		},
		{
			name: "bad target type",
			content: `targets:
  - url: https://example.com
    type: podcast
`,
			wantErr: ErrUnknownProfileType,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := filepath.Join(dir, "websift.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			_, err := LoadProfile(path)
			if err == nil {
				t.Fatal("expected an error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFindProfile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "websift.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := FindProfile(path); got != path {
		t.Errorf("expected explicit path %q, got %q", path, got)
	}
	if got := FindProfile(filepath.Join(dir, "absent.yaml")); got != "" {
		t.Errorf("expected empty string for a missing explicit path, got %q", got)
	}
}
