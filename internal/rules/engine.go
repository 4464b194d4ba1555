// Package rules implements the deterministic half of the classification
// pipeline: named regex patterns per attack category plus a structural
// parameter-pollution check over the URL query string.
package rules

import (
	"regexp"
	"strings"

	"github.com/argus-triage/argus-go/internal/event"
)

// namedPattern pairs a compiled pattern with the human-readable rule name
// reported back to analysts.
type namedPattern struct {
	re   *regexp.Regexp
	name string
}

// categoryRule groups the patterns owned by a single attack category.
type categoryRule struct {
	category string
	patterns []namedPattern
}

// DuplicateParams is the rule name recorded by the structural HPP check.
const DuplicateParams = "Duplicate Parameters"

// CategoryOrder is the declared category priority. When an event matches
// rules in more than one category, the orchestrator resolves to the earliest
// entry here. Do not reorder without revisiting that tie-break.
var CategoryOrder = []string{
	event.TypeTraversal,
	event.TypeHPP,
	event.TypeSSRF,
	event.TypeSQLi,
	event.TypeXSS,
}

var ruleSet []categoryRule

func init() {
	ruleSet = []categoryRule{
		{
			category: event.TypeTraversal,
			patterns: compile(
				`\.\./`, "Unix Traversal",
				`\.\.\\`, "Windows Traversal",
				`/etc/passwd`, "Sensitive File Access",
				`win\.ini`, "Windows Config Access",
			),
		},
		{
			// HPP is structural, not pattern-based: pollution is defined by
			// key repetition, which the query check below detects.
			category: event.TypeHPP,
		},
		{
			category: event.TypeSSRF,
			patterns: compile(
				`169\.254\.169\.254`, "AWS Metadata Access",
				`localhost`, "Localhost Access",
				`127\.0\.0\.1`, "Loopback Access",
			),
		},
		{
			category: event.TypeSQLi,
			patterns: compile(
				`' OR 1=1`, "Classic SQLi",
				`UNION SELECT`, "Union Based SQLi",
				`--`, "SQL Comment",
			),
		},
		{
			category: event.TypeXSS,
			patterns: compile(
				`<script>`, "Script Tag",
				`javascript:`, "Javascript Protocol",
				`onerror=`, "Event Handler",
			),
		},
	}
}

// compile builds namedPatterns from (pattern, name) pairs. All patterns are
// case-insensitive.
func compile(pairs ...string) []namedPattern {
	if len(pairs)%2 != 0 {
		panic("rules: compile requires pattern/name pairs")
	}
	out := make([]namedPattern, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, namedPattern{
			re:   regexp.MustCompile(`(?i)` + pairs[i]),
			name: pairs[i+1],
		})
	}
	return out
}

// Engine runs the pattern and structural checks. It is stateless; the zero
// value is ready to use and safe for concurrent callers.
type Engine struct{}

// NewEngine returns a rule engine.
func NewEngine() *Engine { return &Engine{} }

// Analyze matches the event's URL and payload against every category's
// patterns and returns {category: rule names hit}. All matches across all
// categories are reported; an empty map means nothing matched.
func (e *Engine) Analyze(ev *event.Event) map[string][]string {
	hits := make(map[string][]string)
	text := ev.URL + " " + ev.Payload

	for _, rule := range ruleSet {
		for _, p := range rule.patterns {
			if p.re.MatchString(text) {
				hits[rule.category] = append(hits[rule.category], p.name)
			}
		}
	}

	if hasDuplicateParams(ev.URL) {
		hits[event.TypeHPP] = append(hits[event.TypeHPP], DuplicateParams)
	}

	return hits
}

// Matched flattens hits into the list of categories that fired, in declared
// priority order. The first element is the orchestrator's verdict.
func (e *Engine) Matched(hits map[string][]string) []string {
	var out []string
	for _, cat := range CategoryOrder {
		if len(hits[cat]) > 0 {
			out = append(out, cat)
		}
	}
	return out
}

// hasDuplicateParams reports whether any query parameter key repeats.
// A URL without a query string never pollutes.
func hasDuplicateParams(rawURL string) bool {
	_, query, ok := strings.Cut(rawURL, "?")
	if !ok || query == "" {
		return false
	}
	seen := make(map[string]bool)
	for _, param := range strings.Split(query, "&") {
		key, _, _ := strings.Cut(param, "=")
		if seen[key] {
			return true
		}
		seen[key] = true
	}
	return false
}
