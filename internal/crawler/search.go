package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/websift/websift/internal/model"
)

// matchedKeywordsField is the reserved record field listing which query
// keywords the document matched.
const matchedKeywordsField = "matched_keywords"

// searchLinkRules harvests result links from a seed page. Only anchors with
// an href survive, in document order.
var searchLinkRules = []model.SelectorRule{{
	FieldName: "links",
	Path:      "a[href]",
	Multiple:  true,
	Transform: model.TransformAttribute,
	Attribute: "href",
}}

// Search runs a keyword query: the seed pages are fetched and their links
// expanded into targets, then the targets are processed like a normal run
// with one extra rule: records whose document text contains none of the
// keywords are dropped, and surviving records carry the matched keywords in
// the "matched_keywords" field.
//
// Seed pages that fail to fetch or parse are logged and skipped; the query
// only fails when no seed yields any target.
func (c *Coordinator) Search(ctx context.Context, query model.KeywordQuery) (*model.CrawlResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	targets, err := c.expand(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("keyword query expanded to nothing: %w", ErrNoTargets)
	}

	return c.run(ctx, targets, c.keywordGate(query.Keywords))
}

// expand fetches each seed page and turns its links into targets. Links are
// resolved against the seed URL, filtered to http and https, deduplicated
// by normalized URL (the seeds themselves excluded), and capped at the
// query's page budget.
func (c *Coordinator) expand(ctx context.Context, query model.KeywordQuery) ([]model.Target, error) {
	maxPages := query.MaxPages
	if maxPages <= 0 {
		maxPages = model.DefaultMaxSearchPages
	}

	seen := make(map[string]struct{})
	for _, seed := range query.Seeds {
		seen[normalizeURL(seed)] = struct{}{}
	}

	start := time.Now()
	targets := make([]model.Target, 0, maxPages)
	for _, seed := range query.Seeds {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if len(targets) >= maxPages {
			break
		}

		doc, err := c.fetcher.Fetch(ctx, seed)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("seed page failed", "url", seed, "error", err)
			continue
		}
		rec, err := c.extractor.Extract(doc, searchLinkRules)
		if err != nil {
			c.logger.Warn("seed page unparsable", "url", seed, "error", err)
			continue
		}

		links, _ := rec.Field("links")
		for _, href := range links.Values {
			if len(targets) >= maxPages {
				break
			}
			resolved, ok := resolveLink(seed, href)
			if !ok {
				continue
			}
			key := normalizeURL(resolved)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			target, err := model.NewTarget(resolved, query.Type, query.Rules)
			if err != nil {
				c.logger.Debug("skipping unusable link", "url", resolved, "error", err)
				continue
			}
			targets = append(targets, target)
		}
	}

	c.logger.Info("keyword query expanded",
		"seeds", len(query.Seeds),
		"targets", len(targets),
		"max_pages", maxPages,
		"duration", time.Since(start),
	)
	return targets, nil
}

// resolveLink turns an href from a seed page into an absolute http(s) URL.
func resolveLink(seedURL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	base, err := url.Parse(seedURL)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if resolved.Host == "" {
		return "", false
	}
	return resolved.String(), true
}

// keywordGate builds the match gate for a keyword run. Matching is
// case-folded so "Go" finds "GO" and "go", including non-ASCII case pairs.
func (c *Coordinator) keywordGate(keywords []string) gateFunc {
	folded := make([]string, len(keywords))
	folder := cases.Fold()
	for i, kw := range keywords {
		folded[i] = folder.String(strings.TrimSpace(kw))
	}

	return func(doc *model.Document, rec *model.Record) bool {
		// A Caser is stateful; each invocation needs its own because
		// gates run concurrently across workers.
		text := cases.Fold().String(c.extractor.Text(doc))

		var matched []string
		for i, kw := range folded {
			if kw == "" {
				continue
			}
			if strings.Contains(text, kw) {
				matched = append(matched, keywords[i])
			}
		}
		if len(matched) == 0 {
			return false
		}
		rec.Fields[matchedKeywordsField] = model.MultiValue(matched)
		return true
	}
}
