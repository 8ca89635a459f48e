package rules

import (
	"fmt"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/adblockgo/adblock/filterutil"
)

// RuleSyntaxError represents an error while parsing a filtering rule.  It
// signals a data-quality problem with the rule text, the callers are supposed
// to skip such rules, not to fail.
type RuleSyntaxError struct {
	msg      string
	ruleText string
}

func (e *RuleSyntaxError) Error() string {
	return fmt.Sprintf("syntax error: %s, rule: %s", e.msg, e.ruleText)
}

// ErrUnsupportedRule signals that this might be a valid rule type, but it is
// not yet supported by this library.
const ErrUnsupportedRule errors.Error = "this type of rules is unsupported"

// Rule is a base interface for all filtering rules.
type Rule interface {
	// Text returns the original rule text.
	Text() string

	// GetFilterListID returns ID of the filter list this rule belongs to.
	GetFilterListID() int
}

// NewRule creates a new filtering rule from the specified line.  It returns
// nil if the line is empty or if it is a comment.
func NewRule(line string, filterListID int) (Rule, error) {
	line = strings.TrimSpace(line)

	if line == "" || isComment(line) {
		return nil, nil
	}

	if isCosmetic(line) {
		return NewCosmeticFilter(line, filterListID)
	}

	return NewNetworkFilter(line, filterListID)
}

// isComment checks if the line is a comment.
func isComment(line string) bool {
	if len(line) == 0 {
		return false
	}

	if line[0] == '!' {
		return true
	}

	if line[0] == '#' {
		if len(line) == 1 {
			return true
		}

		// Now we should check that this is not a cosmetic rule.
		for _, marker := range cosmeticMarkers {
			if filterutil.StartsAtIndexWith(line, 0, marker) {
				return false
			}
		}

		return true
	}

	return false
}

// loadDomains loads the $domain modifier value.  sep is the separator
// character, "|" for network rules.  Domains prefixed with "~" go to the
// restricted set.
func loadDomains(domains, sep string) (permitted, restricted map[string]struct{}, err error) {
	if domains == "" {
		return nil, nil, errors.Error("no domains specified")
	}

	list := strings.Split(domains, sep)
	for _, d := range list {
		forbidden := false
		if strings.HasPrefix(d, "~") {
			forbidden = true
			d = d[1:]
		}

		if !filterutil.IsDomainName(d) {
			return nil, nil, fmt.Errorf("invalid domain specified: %s", domains)
		}

		if forbidden {
			if restricted == nil {
				restricted = map[string]struct{}{}
			}
			restricted[d] = struct{}{}
		} else {
			if permitted == nil {
				permitted = map[string]struct{}{}
			}
			permitted[d] = struct{}{}
		}
	}

	return permitted, restricted, nil
}
