package fetcher

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// robotsMaxBytes caps how much of a robots.txt file is read.
const robotsMaxBytes = 512 * 1024

// allowAll is the rule set used when robots.txt is missing or unreadable.
// An unreachable robots.txt must not block the crawl.
var allowAll = &robotsRules{}

// robotsRules holds the Disallow prefixes that apply to our user agent.
// The zero value allows everything.
type robotsRules struct {
	disallowed []string
}

// allowed reports whether the path may be fetched. Prefix matching only;
// pattern wildcards in robots.txt paths are treated as literal text.
func (r *robotsRules) allowed(path string) bool {
	p := normalizePath(path)
	for _, prefix := range r.disallowed {
		if strings.HasPrefix(p, prefix) {
			return false
		}
	}
	return true
}

// parseRobots reads a robots.txt body and keeps the Disallow prefixes of
// every group whose User-agent line matches agent. Unknown directives end
// the current User-agent run but leave the group's applicability intact, so
// a Disallow following a Crawl-delay still counts.
func parseRobots(r io.Reader, agent string) *robotsRules {
	rules := &robotsRules{}
	inAgentRun := false
	applies := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			if !inAgentRun {
				inAgentRun = true
				applies = false
			}
			if agentMatches(value, agent) {
				applies = true
			}
		case "disallow":
			inAgentRun = false
			if applies && value != "" {
				rules.disallowed = append(rules.disallowed, normalizePath(value))
			}
		default:
			inAgentRun = false
		}
	}
	return rules
}

// agentMatches reports whether a User-agent group applies to our agent
// string. Groups name product tokens rather than full agent strings, so a
// case-insensitive substring match is used.
func agentMatches(groupAgent, agent string) bool {
	if groupAgent == "*" {
		return true
	}
	if groupAgent == "" {
		return false
	}
	return strings.Contains(strings.ToLower(agent), strings.ToLower(groupAgent))
}

// normalizePath gives robots paths and request paths the same shape before
// prefix comparison.
func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// robotsFor returns the cached rules for the URL's host, fetching
// robots.txt on the first miss. Concurrent first fetches for one host may
// race; both produce equivalent rules and the last write wins.
func (f *Fetcher) robotsFor(ctx context.Context, u *url.URL) *robotsRules {
	key := strings.ToLower(u.Scheme + "://" + u.Host)

	f.robotsMu.Lock()
	rules, ok := f.robots[key]
	f.robotsMu.Unlock()
	if ok {
		return rules
	}

	rules = f.fetchRobots(ctx, u)
	f.robotsMu.Lock()
	f.robots[key] = rules
	f.robotsMu.Unlock()
	return rules
}

// fetchRobots retrieves and parses the host's robots.txt. Any failure
// yields allow-all.
func (f *Fetcher) fetchRobots(ctx context.Context, u *url.URL) *robotsRules {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"

	if err := f.waitTurn(ctx, u.Host); err != nil {
		return allowAll
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return allowAll
	}
	req.Header.Set("User-Agent", f.policy.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("robots.txt unavailable", "url", robotsURL, "error", err)
		return allowAll
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return allowAll
	}
	rules := parseRobots(io.LimitReader(resp.Body, robotsMaxBytes), f.policy.UserAgent)
	f.logger.Debug("robots.txt loaded", "url", robotsURL, "disallow_rules", len(rules.disallowed))
	return rules
}
