package config

import (
	"fmt"
	"time"

	"github.com/websift/websift/internal/model"
)

// PolicySettings carries the profile's fetch-policy overrides.
//
// Fields are pointers so an omitted setting is distinguishable from an
// explicit zero: "max_retries: 0" in a profile genuinely means no retries,
// while leaving it out means keep the current value. Durations are plain
// millisecond integers because YAML has no duration type and delay_ms reads
// unambiguously in a config file.
type PolicySettings struct {
	// DelayMS is the same-host politeness spacing in milliseconds.
	DelayMS *int `yaml:"delay_ms,omitempty"`

	// MaxRetries is the retry budget for transient fetch failures.
	MaxRetries *int `yaml:"max_retries,omitempty"`

	// MaxConcurrency is the worker pool size.
	MaxConcurrency *int `yaml:"max_concurrency,omitempty"`

	// TimeoutMS is the per-request timeout in milliseconds.
	TimeoutMS *int `yaml:"timeout_ms,omitempty"`

	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes *int64 `yaml:"max_body_bytes,omitempty"`

	// UserAgent replaces the default User-Agent header.
	UserAgent *string `yaml:"user_agent,omitempty"`

	// RespectRobots toggles robots.txt handling.
	RespectRobots *bool `yaml:"respect_robots,omitempty"`

	// MaxItems caps the number of records collected per run.
	MaxItems *int `yaml:"max_items,omitempty"`
}

// TargetSettings is one profile-defined target. Profile targets let users
// keep a recurring scrape in a file and run it with a bare "websift scrape".
type TargetSettings struct {
	// URL is the page to scrape.
	URL string `yaml:"url"`

	// Type selects the rule family. Empty inherits the run's type.
	Type string `yaml:"type,omitempty"`

	// Rules are this target's custom selectors. Empty falls back to the
	// profile's per-type rules, then to the engine defaults.
	Rules []model.SelectorRule `yaml:"rules,omitempty"`
}

// Profile represents the structure of the .websift.yaml profile file.
type Profile struct {
	// Policy holds fetch-policy overrides applied before CLI flags.
	Policy PolicySettings `yaml:"policy,omitempty"`

	// Targets are scraped when the command line provides no URLs.
	Targets []TargetSettings `yaml:"targets,omitempty"`

	// Rules maps scrape type names to replacement rule sets. A rule set
	// here fully overrides the engine's defaults for that type, the same
	// way per-target custom rules do.
	Rules map[string][]model.SelectorRule `yaml:"rules,omitempty"`
}

// Apply copies the profile's policy settings onto the config and attaches
// the profile for target and rule lookup. Precedence is defaults, then
// profile, then CLI flags; callers apply changed flags after this.
func (p *Profile) Apply(c *Config) {
	if p == nil {
		return
	}
	c.Profile = p

	if v := p.Policy.DelayMS; v != nil {
		c.Delay = time.Duration(*v) * time.Millisecond
	}
	if v := p.Policy.MaxRetries; v != nil {
		c.MaxRetries = *v
	}
	if v := p.Policy.MaxConcurrency; v != nil {
		c.MaxConcurrency = *v
	}
	if v := p.Policy.TimeoutMS; v != nil {
		c.Timeout = time.Duration(*v) * time.Millisecond
	}
	if v := p.Policy.MaxBodyBytes; v != nil {
		c.MaxBodyBytes = *v
	}
	if v := p.Policy.UserAgent; v != nil {
		c.UserAgent = *v
	}
	if v := p.Policy.RespectRobots; v != nil {
		c.RespectRobots = *v
	}
	if v := p.Policy.MaxItems; v != nil {
		c.MaxItems = *v
	}
}

// Validate checks the profile's type names and selector rules so mistakes
// surface at load time, with the file still in the user's editor, rather
// than mid-run.
func (p *Profile) Validate() error {
	for typeName, rules := range p.Rules {
		if _, err := model.ParseScrapeType(typeName); err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownProfileType, typeName)
		}
		if err := model.ValidateRules(rules); err != nil {
			return fmt.Errorf("profile rules for %q: %w", typeName, err)
		}
	}
	for i, target := range p.Targets {
		if target.Type != "" {
			if _, err := model.ParseScrapeType(target.Type); err != nil {
				return fmt.Errorf("profile target %d: %w: %q", i+1, ErrUnknownProfileType, target.Type)
			}
		}
		if len(target.Rules) > 0 {
			if err := model.ValidateRules(target.Rules); err != nil {
				return fmt.Errorf("profile target %d: %w", i+1, err)
			}
		}
	}
	return nil
}
