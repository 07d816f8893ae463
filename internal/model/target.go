package model

import (
	"fmt"
	"net/url"
	"strings"
)

// ScrapeType identifies the family of default selector rules that applies
// to a target when the user supplies no custom rules.
type ScrapeType string

const (
	// TypeNews targets article listings: news sites, blogs, story feeds.
	TypeNews ScrapeType = "news"

	// TypeProduct targets product listings: shop pages, catalogs.
	TypeProduct ScrapeType = "product"

	// TypeSocial targets social feeds: posts, statuses, comment streams.
	TypeSocial ScrapeType = "social"

	// TypeGeneric targets arbitrary pages with no specialized structure.
	TypeGeneric ScrapeType = "generic"
)

// IsValid reports whether t is a known scrape type.
func (t ScrapeType) IsValid() bool {
	switch t {
	case TypeNews, TypeProduct, TypeSocial, TypeGeneric:
		return true
	}
	return false
}

// String returns the scrape type as a plain string.
func (t ScrapeType) String() string {
	return string(t)
}

// ParseScrapeType converts a user-supplied string into a ScrapeType.
// Matching is case-insensitive; an empty string means TypeGeneric.
func ParseScrapeType(s string) (ScrapeType, error) {
	t := ScrapeType(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return TypeGeneric, nil
	}
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownScrapeType, s)
	}
	return t, nil
}

// Target is one URL-plus-selectors unit of scraping work.
// Targets are immutable once constructed: the coordinator copies them into
// its queue and never writes back.
type Target struct {
	// URL is the absolute http or https address to fetch.
	URL string `json:"url"`

	// Type selects the default rule set and labels the resulting record.
	Type ScrapeType `json:"type"`

	// Rules is the selector rule set applied to the fetched document.
	// Custom rules fully replace the type defaults; the two are never
	// merged.
	Rules []SelectorRule `json:"rules"`
}

// NewTarget validates rawURL and rules and builds a Target.
//
// Validation happens here, fail-fast, so that a malformed URL or selector is
// reported before a run starts rather than mid-crawl. When rules is empty the
// type's default rule set is used.
//
// Design decision: We reject non-http(s) schemes instead of silently
// rewriting them because:
//  1. A file: or javascript: URL in user input is almost always a mistake
//  2. Rewriting hides the mistake until fetch time
//  3. The error names the URL, so the fix is obvious
func NewTarget(rawURL string, scrapeType ScrapeType, rules []SelectorRule) (Target, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Target{}, fmt.Errorf("invalid target URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Target{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, rawURL)
	}
	if u.Host == "" {
		return Target{}, fmt.Errorf("%w: %q", ErrMissingHost, rawURL)
	}
	if !scrapeType.IsValid() {
		return Target{}, fmt.Errorf("%w: %q", ErrUnknownScrapeType, scrapeType)
	}

	if len(rules) == 0 {
		rules = DefaultRules(scrapeType)
	} else if err := ValidateRules(rules); err != nil {
		return Target{}, err
	}

	return Target{
		URL:   u.String(),
		Type:  scrapeType,
		Rules: rules,
	}, nil
}

// Host returns the target URL's host component, lowercased.
// Returns an empty string if the URL does not parse, which cannot happen
// for Targets built through NewTarget.
func (t Target) Host() string {
	u, err := url.Parse(t.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// KeywordQuery describes a keyword-search run: seed pages are fetched, their
// links extracted, and the linked pages become the run's targets. Records
// whose document text contains none of the keywords are dropped.
type KeywordQuery struct {
	// Keywords are the case-insensitive terms to look for.
	Keywords []string `json:"keywords"`

	// Seeds are the pages whose links seed the run.
	Seeds []string `json:"seeds"`

	// MaxPages caps how many expanded targets the seeds may produce.
	// 0 means the engine default.
	MaxPages int `json:"max_pages,omitempty"`

	// Type and Rules are applied to every expanded target, with the same
	// full-override semantics as direct targets.
	Type  ScrapeType     `json:"type"`
	Rules []SelectorRule `json:"rules,omitempty"`
}

// Validate checks that the query can expand into at least one fetch.
func (q KeywordQuery) Validate() error {
	if len(q.Keywords) == 0 {
		return ErrNoKeywords
	}
	if len(q.Seeds) == 0 {
		return ErrNoSeeds
	}
	if !q.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownScrapeType, q.Type)
	}
	if len(q.Rules) > 0 {
		if err := ValidateRules(q.Rules); err != nil {
			return err
		}
	}
	return nil
}
