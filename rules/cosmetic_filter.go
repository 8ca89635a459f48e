package rules

import (
	"strings"
	"sync/atomic"

	"github.com/adblockgo/adblock/filterutil"
	"golang.org/x/exp/slices"
)

// Cosmetic rule markers.  The order is important: the longer marker must be
// checked first, "#@#" starts with "##".
const (
	markerUnhide = "#@#"
	markerHide   = "##"
)

// cosmeticMarkers contains all possible cosmetic rule markers, longest first.
var cosmeticMarkers = []string{markerUnhide, markerHide}

// Script directive prefixes of the selector sub-grammar.
const (
	scriptInjectPrefix   = "script:inject("
	scriptContainsPrefix = "script:contains("
)

// CosmeticFilterOption is the enumeration of the cosmetic filter options.
type CosmeticFilterOption uint8

// CosmeticFilterOption enumeration.
const (
	// CosmeticOptionUnhide marks an exception rule, "#@#".
	CosmeticOptionUnhide CosmeticFilterOption = 1 << iota

	// CosmeticOptionScriptInject marks a "script:inject(...)" rule, the
	// selector holds the scriptlet arguments.
	CosmeticOptionScriptInject

	// CosmeticOptionScriptBlock marks a "script:contains(...)" rule, the
	// selector holds the pattern of the inline script to block.
	CosmeticOptionScriptBlock
)

// CosmeticFilter represents an element-hiding or a script-targeting rule
// scoped to zero or more hostnames.
// https://kb.adguard.com/en/general/how-to-create-your-own-ad-filters#cosmetic-elemhide-rules
type CosmeticFilter struct {
	RuleText     string // RuleText is the original rule text
	FilterListID int    // Filter list identifier

	// ID is a non-cryptographic hash of the rule text.  It is used to track
	// and deduplicate rules, two different rules may collide.
	ID uint32

	// Selector meaning depends on the rule options.
	// Element hiding: a CSS selector.
	// script:inject: the scriptlet arguments.
	// script:contains: the pattern of the inline script to block.
	Selector string

	// hostnamesText is the raw comma-separated hostnames prefix of the rule.
	hostnamesText string

	// hostnames is the memoized parsed form of hostnamesText, built on the
	// first use.
	hostnames atomic.Pointer[[]string]

	enabledOptions CosmeticFilterOption // flag with all enabled filter options
}

// NewCosmeticFilter parses the rule text and returns a cosmetic filter.
func NewCosmeticFilter(ruleText string, filterListID int) (*CosmeticFilter, error) {
	index, marker := findCosmeticMarker(ruleText)
	if index == -1 {
		return nil, &RuleSyntaxError{msg: "cannot find cosmetic marker", ruleText: ruleText}
	}

	f := &CosmeticFilter{
		RuleText:      ruleText,
		FilterListID:  filterListID,
		ID:            filterutil.FastHash(ruleText),
		hostnamesText: ruleText[:index],
	}

	if marker == markerUnhide {
		f.enabledOptions |= CosmeticOptionUnhide
	}

	selector := strings.TrimSpace(ruleText[index+len(marker):])
	switch {
	case selector == "":
		return nil, &RuleSyntaxError{msg: "empty selector", ruleText: ruleText}
	case strings.HasSuffix(selector, "}"):
		// A stray style block from a different rule syntax.
		return nil, &RuleSyntaxError{msg: "invalid selector", ruleText: ruleText}
	case strings.Contains(selector, markerHide):
		return nil, &RuleSyntaxError{msg: "duplicated marker", ruleText: ruleText}
	}

	if strings.HasPrefix(selector, "script:") {
		err := f.loadScriptDirective(selector)
		if err != nil {
			return nil, err
		}
	} else {
		f.Selector = selector
	}

	if f.IsOptionEnabled(CosmeticOptionUnhide) && f.hostnamesText == "" {
		// An unscoped exception rule disables nothing in particular.
		return nil, &RuleSyntaxError{msg: "unhide rule must have hostnames", ruleText: ruleText}
	}

	return f, nil
}

// Text returns the original rule text.  Implements the [Rule] interface.
func (f *CosmeticFilter) Text() string {
	return f.RuleText
}

// GetFilterListID returns ID of the filter list this rule belongs to.
func (f *CosmeticFilter) GetFilterListID() int {
	return f.FilterListID
}

// String returns original rule text.
func (f *CosmeticFilter) String() string {
	return f.RuleText
}

// IsOptionEnabled returns true if the specified option is enabled.
func (f *CosmeticFilter) IsOptionEnabled(option CosmeticFilterOption) bool {
	return (f.enabledOptions & option) == option
}

// IsScript returns true for the script:inject and script:contains rules.
func (f *CosmeticFilter) IsScript() bool {
	return f.enabledOptions&(CosmeticOptionScriptInject|CosmeticOptionScriptBlock) != 0
}

// IsGeneric returns true if the rule is not limited to a set of hostnames.
func (f *CosmeticFilter) IsGeneric() bool {
	return f.hostnamesText == ""
}

// Hostnames returns the hostnames this rule is scoped to, longest first.  The
// result is parsed from the rule text on the first call and memoized.  On
// concurrent first use whichever caller publishes first wins and the rest
// adopt its value.
func (f *CosmeticFilter) Hostnames() []string {
	if h := f.hostnames.Load(); h != nil {
		return *h
	}

	hostnames := parseHostnames(f.hostnamesText)
	if !f.hostnames.CompareAndSwap(nil, &hostnames) {
		return *f.hostnames.Load()
	}

	return hostnames
}

// Match returns true if this rule can be used on the specified hostname.
func (f *CosmeticFilter) Match(hostname string) bool {
	hostnames := f.Hostnames()
	if len(hostnames) == 0 {
		return true
	}

	for _, h := range hostnames {
		if hostname == h || strings.HasSuffix(hostname, "."+h) {
			return true
		}
	}

	return false
}

// Tokens returns the hashes of the rightmost compound selector parts.  The
// lookup tables use them to shortlist the rules that may apply to an element
// without examining the selector text.  Script rules produce no tokens, they
// are indexed by their hostname scope alone.
func (f *CosmeticFilter) Tokens() (tokens []uint32) {
	if f.IsScript() {
		return nil
	}

	selector := f.Selector

	// Scan backwards for the last combinator outside of the attribute
	// selector brackets.  Everything to the right of it describes the
	// target element itself.
	start := 0
	depth := 0
loop:
	for i := len(selector) - 1; i >= 0; i-- {
		switch selector[i] {
		case ']':
			depth++
		case '[':
			depth--
		case '>', '+', '~':
			if depth == 0 {
				start = i + 1

				break loop
			}
		}
	}

	// Attribute values are not reliable lexical tokens, so the bracketed
	// spans are skipped entirely.
	for i := start; i < len(selector); {
		if selector[i] == '[' {
			end := strings.IndexByte(selector[i:], ']')
			if end == -1 {
				break
			}

			i += end + 1

			continue
		}

		j := i
		for j < len(selector) && selector[j] != '[' {
			j++
		}

		tokens = appendTokens(tokens, selector[i:j])
		i = j
	}

	return tokens
}

// loadScriptDirective parses the "script:" selector sub-grammar.
func (f *CosmeticFilter) loadScriptDirective(selector string) error {
	switch {
	case strings.HasPrefix(selector, scriptInjectPrefix) &&
		strings.HasSuffix(selector, ")"):
		f.enabledOptions |= CosmeticOptionScriptInject
		f.Selector = selector[len(scriptInjectPrefix) : len(selector)-1]

		return nil
	case strings.HasPrefix(selector, scriptContainsPrefix) &&
		strings.HasSuffix(selector, ")"):
		f.enabledOptions |= CosmeticOptionScriptBlock
		pattern := selector[len(scriptContainsPrefix) : len(selector)-1]

		// A /.../ argument is a regex body.
		if len(pattern) > 1 && strings.HasPrefix(pattern, "/") &&
			strings.HasSuffix(pattern, "/") {
			pattern = pattern[1 : len(pattern)-1]
		}
		f.Selector = pattern

		return nil
	default:
		return ErrUnsupportedRule
	}
}

// parseHostnames splits the raw hostnames prefix of a rule.  The hostnames
// are sorted longest first so that a more specific scope is probed before
// its parent domain.
func parseHostnames(hostnamesText string) []string {
	if hostnamesText == "" {
		return []string{}
	}

	parts := strings.Split(hostnamesText, ",")
	hostnames := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			hostnames = append(hostnames, p)
		}
	}

	slices.SortFunc(hostnames, func(a, b string) int {
		return len(b) - len(a)
	})

	return hostnames
}

// isCosmetic checks if this is a cosmetic filtering rule.
func isCosmetic(line string) bool {
	index, _ := findCosmeticMarker(line)

	return index != -1
}

// findCosmeticMarker looks for a cosmetic rule marker in the rule text and
// returns the start index and the marker found.  If nothing is found, it
// returns -1.
func findCosmeticMarker(ruleText string) (int, string) {
	startIndex := strings.IndexByte(ruleText, '#')
	if startIndex == -1 {
		return -1, ""
	}

	// Handling false positives while looking for cosmetic rules in host
	// files.
	//
	// For instance, it could look like this:
	// 0.0.0.0 jackbootedroom.com  ## phishing
	if startIndex > 0 && ruleText[startIndex-1] == ' ' {
		return -1, ""
	}

	for _, marker := range cosmeticMarkers {
		if filterutil.StartsAtIndexWith(ruleText, startIndex, marker) {
			return startIndex, marker
		}
	}

	return -1, ""
}
