package rules

import (
	"fmt"
	"math/bits"
	"regexp"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/adblockgo/adblock/filterutil"
)

const (
	maskWhiteList    = "@@"
	maskRegexRule    = "/"
	optionsDelimiter = '$'
	escapeCharacter  = '\\'
)

// ErrTooWideRule is returned if the rule matches all urls but has no domain
// restrictions.
const ErrTooWideRule errors.Error = "the rule is too wide, add domain " +
	"restrictions or make it more specific"

var reEscapedOptionsDelimiter = regexp.MustCompile(regexp.QuoteMeta(`\$`))

// NetworkFilterOption is the enumeration of the network filter options.  In
// order to save memory we store them as flags.
type NetworkFilterOption uint32

// NetworkFilterOption enumeration.
const (
	// OptionThirdParty restricts the filter to third-party requests,
	// $third-party modifier.
	OptionThirdParty NetworkFilterOption = 1 << iota

	// OptionFirstParty restricts the filter to first-party requests,
	// $first-party modifier.
	OptionFirstParty

	// OptionFuzzy makes the filter pattern match as an order-preserving
	// token subsequence of the URL, $fuzzy modifier.
	OptionFuzzy

	// OptionMatchCase makes the filter pattern case-sensitive, $match-case
	// modifier.
	OptionMatchCase

	// OptionImportant raises the filter priority over the exception rules,
	// $important modifier.
	OptionImportant
)

// Count returns the count of the enabled options.
func (o NetworkFilterOption) Count() int {
	return bits.OnesCount32(uint32(o))
}

// matchStrategy is the pattern-matching strategy of a network filter.  The
// strategy is derived from the filter shape exactly once, at construction, so
// that Match does not have to re-derive the flag combination on every call.
type matchStrategy uint8

// matchStrategy enumeration.  The variants are mutually exclusive by
// construction.
const (
	// strategyContains: the URL must contain the literal pattern.
	strategyContains matchStrategy = iota

	// strategyLeftAnchor: the URL must start with the literal pattern.
	strategyLeftAnchor

	// strategyRightAnchor: the URL must end with the literal pattern.
	strategyRightAnchor

	// strategyExact: the URL must be equal to the literal pattern.
	strategyExact

	// strategyRegex: the compiled pattern is run against the full URL.
	strategyRegex

	// strategyFuzzy: the filter signature must be an order-preserving
	// subsequence of the request signature.
	strategyFuzzy

	// strategyHostnameLeftAnchor: the hostname is anchor-checked and the
	// URL remainder after it must start with the literal pattern.
	strategyHostnameLeftAnchor

	// strategyHostnameRightAnchor: the hostname is anchor-checked and the
	// URL remainder after it must be equal to the literal pattern.
	strategyHostnameRightAnchor

	// strategyHostnameRegex: the hostname is anchor-checked and the
	// compiled pattern is run against the URL remainder after it.
	strategyHostnameRegex

	// strategyHostnameFuzzy: the hostname is anchor-checked and the filter
	// signature is matched against the request signature.
	strategyHostnameFuzzy
)

// NetworkFilter is a basic filtering rule for network requests.
// https://kb.adguard.com/en/general/how-to-create-your-own-ad-filters#basic-rules
//
// A NetworkFilter is immutable once constructed, so it can be shared by any
// number of concurrently running matching calls.
type NetworkFilter struct {
	RuleText     string // RuleText is the original rule text
	Whitelist    bool   // true if this is an exception rule
	FilterListID int    // Filter list identifier

	// Hostname is the anchor hostname of a "||" rule.  Empty for the rules
	// without a hostname anchor.
	Hostname string

	// pattern is the literal pattern text with the anchor masks stripped.
	// It is lowercased at construction unless $match-case is set.
	pattern string

	// strategy is the matching strategy resolved from the filter shape.
	strategy matchStrategy

	// isRawRegex is true for the /.../ rules.  Such rules cannot be indexed
	// by pattern tokens.
	isRawRegex bool

	// regex is the compiled pattern of strategyRegex and
	// strategyHostnameRegex filters, nil otherwise.
	regex *regexp.Regexp

	// signature is the precomputed fuzzy signature of the pattern, non-nil
	// only for the $fuzzy filters.
	signature []uint32

	// permittedDomains are the source domains this filter is allowed on,
	// from the $domain modifier.  nil means no restriction.
	permittedDomains map[string]struct{}

	// restrictedDomains are the source domains this filter is disabled on.
	restrictedDomains map[string]struct{}

	enabledOptions NetworkFilterOption // flag with all enabled filter options

	permittedRequestTypes  RequestType // Flag with all permitted request types. 0 means ALL.
	restrictedRequestTypes RequestType // Flag with all restricted request types. 0 means NONE.
}

// NewNetworkFilter parses the rule text and returns a network filter.
func NewNetworkFilter(ruleText string, filterListID int) (f *NetworkFilter, err error) {
	pattern, options, whitelist, err := parseRuleText(ruleText)
	if err != nil {
		return nil, err
	}

	f = &NetworkFilter{
		RuleText:     ruleText,
		Whitelist:    whitelist,
		FilterListID: filterListID,
	}

	err = f.loadOptions(options)
	if err != nil {
		return nil, err
	}

	// example.org/* -> example.org^
	if strings.HasSuffix(pattern, "/*") {
		pattern = pattern[:len(pattern)-len("/*")] + MaskSeparator
	}

	if pattern == MaskStartURL || pattern == MaskPipe ||
		pattern == MaskAnyCharacter || pattern == "" ||
		len(pattern) < 3 {
		if len(f.permittedDomains) == 0 {
			// The rule matches too much and does not have any domain
			// restrictions, we should not allow this kind of rules.
			return nil, ErrTooWideRule
		}
	}

	err = f.compile(pattern)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Text returns the original rule text.  Implements the [Rule] interface.
func (f *NetworkFilter) Text() string {
	return f.RuleText
}

// GetFilterListID returns ID of the filter list this rule belongs to.
func (f *NetworkFilter) GetFilterListID() int {
	return f.FilterListID
}

// String returns original rule text.
func (f *NetworkFilter) String() string {
	return f.RuleText
}

// IsOptionEnabled returns true if the specified option is enabled.
func (f *NetworkFilter) IsOptionEnabled(option NetworkFilterOption) bool {
	return (f.enabledOptions & option) == option
}

// IsRegexRule returns true if the rule pattern is a regular expression, be it
// a raw /.../ rule or a wildcard pattern compiled into one.
func (f *NetworkFilter) IsRegexRule() bool {
	return f.strategy == strategyRegex || f.strategy == strategyHostnameRegex
}

// IsFuzzy returns true if this is a $fuzzy rule.
func (f *NetworkFilter) IsFuzzy() bool {
	return f.strategy == strategyFuzzy || f.strategy == strategyHostnameFuzzy
}

// IsHostnameAnchored returns true if this is a "||" rule scoped to a domain
// boundary.
func (f *NetworkFilter) IsHostnameAnchored() bool {
	return f.Hostname != ""
}

// IsGeneric returns true if the rule is considered "generic", e.g. it is not
// restricted to a limited set of source domains.
func (f *NetworkFilter) IsGeneric() bool {
	return len(f.permittedDomains) == 0
}

// GetPermittedDomains returns the domains this rule is allowed on.  The order
// of the returned slice is not specified.
func (f *NetworkFilter) GetPermittedDomains() (domains []string) {
	for d := range f.permittedDomains {
		domains = append(domains, d)
	}

	return domains
}

// Tokens returns the hashes of the pattern parts that any matching URL is
// guaranteed to contain as complete tokens.  The lookup tables use them to
// index the filter.  An empty result means the filter cannot be indexed this
// way.
func (f *NetworkFilter) Tokens() []uint32 {
	switch {
	case f.Hostname != "":
		// The anchor hostname labels appear in every matching URL.
		return tokenize(f.Hostname)
	case f.isRawRegex:
		return nil
	case f.strategy == strategyFuzzy:
		return f.signature
	default:
		left := f.strategy == strategyExact || f.strategy == strategyLeftAnchor
		right := f.strategy == strategyExact || f.strategy == strategyRightAnchor

		return boundedTokens(f.pattern, left, right)
	}
}

// IsHigherPriority checks if the rule has higher priority than the specified
// rule: whitelist + $important > $important > whitelist > basic rules.
func (f *NetworkFilter) IsHigherPriority(r *NetworkFilter) bool {
	important := f.IsOptionEnabled(OptionImportant)
	rImportant := r.IsOptionEnabled(OptionImportant)

	if (f.Whitelist && important) != (r.Whitelist && rImportant) {
		return f.Whitelist && important
	}

	if important != rImportant {
		return important
	}

	if f.Whitelist != r.Whitelist {
		return f.Whitelist
	}

	generic := f.IsGeneric()
	rGeneric := r.IsGeneric()
	if !generic && rGeneric {
		// Specific rules have priority over generic rules.
		return true
	}

	// More specific rules (i.e. with more modifiers) have higher priority.
	count := f.enabledOptions.Count() +
		f.permittedRequestTypes.Count() + f.restrictedRequestTypes.Count()
	if len(f.permittedDomains) != 0 || len(f.restrictedDomains) != 0 {
		count++
	}

	rCount := r.enabledOptions.Count() +
		r.permittedRequestTypes.Count() + r.restrictedRequestTypes.Count()
	if len(r.permittedDomains) != 0 || len(r.restrictedDomains) != 0 {
		rCount++
	}

	return count > rCount
}

// setRequestType permits or forbids the specified request type.
func (f *NetworkFilter) setRequestType(requestType RequestType, permitted bool) {
	if permitted {
		f.permittedRequestTypes |= requestType
	} else {
		f.restrictedRequestTypes |= requestType
	}
}

// setOptionEnabled enables the specified option.
func (f *NetworkFilter) setOptionEnabled(option NetworkFilterOption) {
	f.enabledOptions |= option
}

// loadOptions loads all the filtering rule options.
func (f *NetworkFilter) loadOptions(options string) error {
	if options == "" {
		return nil
	}

	optionsParts := splitWithEscapeCharacter(options, ',', escapeCharacter, false)
	for _, option := range optionsParts {
		valueIndex := strings.Index(option, "=")
		optionName := option
		optionValue := ""
		if valueIndex > 0 {
			optionName = option[:valueIndex]
			optionValue = option[valueIndex+1:]
		}

		err := f.loadOption(optionName, optionValue)
		if err != nil {
			return err
		}
	}

	return nil
}

// loadOption loads the specified option with its value (optional).
//
//nolint:gocyclo
func (f *NetworkFilter) loadOption(name, value string) error {
	switch name {
	// General options.
	case "third-party", "~first-party":
		f.setOptionEnabled(OptionThirdParty)
		return nil
	case "first-party", "~third-party":
		f.setOptionEnabled(OptionFirstParty)
		return nil
	case "fuzzy":
		f.setOptionEnabled(OptionFuzzy)
		return nil
	case "match-case":
		f.setOptionEnabled(OptionMatchCase)
		return nil
	case "important":
		f.setOptionEnabled(OptionImportant)
		return nil

	// $domain -- limits the rule to requests from the selected source
	// domains.
	case "domain":
		permitted, restricted, err := loadDomains(value, "|")
		f.permittedDomains = permitted
		f.restrictedDomains = restricted
		return err

	// Content type options.
	case "document":
		f.setRequestType(TypeDocument, true)
		return nil
	case "~document":
		f.setRequestType(TypeDocument, false)
		return nil
	case "script":
		f.setRequestType(TypeScript, true)
		return nil
	case "~script":
		f.setRequestType(TypeScript, false)
		return nil
	case "stylesheet":
		f.setRequestType(TypeStylesheet, true)
		return nil
	case "~stylesheet":
		f.setRequestType(TypeStylesheet, false)
		return nil
	case "subdocument":
		f.setRequestType(TypeSubdocument, true)
		return nil
	case "~subdocument":
		f.setRequestType(TypeSubdocument, false)
		return nil
	case "object":
		f.setRequestType(TypeObject, true)
		return nil
	case "~object":
		f.setRequestType(TypeObject, false)
		return nil
	case "image":
		f.setRequestType(TypeImage, true)
		return nil
	case "~image":
		f.setRequestType(TypeImage, false)
		return nil
	case "xmlhttprequest":
		f.setRequestType(TypeXmlhttprequest, true)
		return nil
	case "~xmlhttprequest":
		f.setRequestType(TypeXmlhttprequest, false)
		return nil
	case "media":
		f.setRequestType(TypeMedia, true)
		return nil
	case "~media":
		f.setRequestType(TypeMedia, false)
		return nil
	case "font":
		f.setRequestType(TypeFont, true)
		return nil
	case "~font":
		f.setRequestType(TypeFont, false)
		return nil
	case "websocket":
		f.setRequestType(TypeWebsocket, true)
		return nil
	case "~websocket":
		f.setRequestType(TypeWebsocket, false)
		return nil
	case "ping":
		f.setRequestType(TypePing, true)
		return nil
	case "~ping":
		f.setRequestType(TypePing, false)
		return nil
	case "other":
		f.setRequestType(TypeOther, true)
		return nil
	case "~other":
		f.setRequestType(TypeOther, false)
		return nil
	}

	return fmt.Errorf("unknown filter modifier: %s=%s", name, value)
}

// compile resolves the matching strategy from the pattern shape and prepares
// the derived matching data: the anchor hostname, the compiled regex, or the
// fuzzy signature.  The filter is immutable after compile returns.
func (f *NetworkFilter) compile(pattern string) error {
	// Raw regex rules.
	if len(pattern) > 1 && strings.HasPrefix(pattern, maskRegexRule) &&
		strings.HasSuffix(pattern, maskRegexRule) {
		f.strategy = strategyRegex
		f.isRawRegex = true
		f.pattern = pattern

		return f.compileRegex(pattern[1:len(pattern)-1], true)
	}

	if !f.IsOptionEnabled(OptionMatchCase) {
		pattern = strings.ToLower(pattern)
	}

	if strings.HasPrefix(pattern, MaskStartURL) {
		return f.compileHostnameAnchored(pattern[len(MaskStartURL):])
	}

	if f.IsOptionEnabled(OptionFuzzy) {
		p := strings.TrimPrefix(pattern, MaskPipe)
		p = strings.TrimSuffix(p, MaskPipe)
		f.strategy = strategyFuzzy
		f.pattern = p
		f.signature = fuzzySignature(p)

		return nil
	}

	if strings.ContainsAny(pattern, MaskAnyCharacter+MaskSeparator) {
		// Wildcard patterns are compiled into a regex, the anchor masks
		// become a part of it.
		f.strategy = strategyRegex
		f.pattern = pattern

		return f.compileRegex(patternToRegexp(pattern), false)
	}

	leftAnchor := strings.HasPrefix(pattern, MaskPipe)
	if leftAnchor {
		pattern = pattern[len(MaskPipe):]
	}

	rightAnchor := strings.HasSuffix(pattern, MaskPipe)
	if rightAnchor {
		pattern = pattern[:len(pattern)-len(MaskPipe)]
	}

	f.pattern = pattern
	switch {
	case leftAnchor && rightAnchor:
		f.strategy = strategyExact
	case leftAnchor:
		f.strategy = strategyLeftAnchor
	case rightAnchor:
		f.strategy = strategyRightAnchor
	default:
		f.strategy = strategyContains
	}

	return nil
}

// compileHostnameAnchored finishes compiling a "||" rule.  pattern is the
// rule pattern with the MaskStartURL prefix already removed.
func (f *NetworkFilter) compileHostnameAnchored(pattern string) error {
	// The anchor hostname spans up to the first separator, wildcard,
	// anchor, or path character.  The rest of the pattern is matched
	// against the URL remainder.
	rest := ""
	if sep := strings.IndexAny(pattern, "/"+MaskPipe+MaskSeparator+MaskAnyCharacter); sep != -1 {
		rest = pattern[sep:]
		pattern = pattern[:sep]
	}

	// Hostnames are matched in lower case even for $match-case rules.
	f.Hostname = strings.ToLower(pattern)

	switch {
	case f.IsOptionEnabled(OptionFuzzy):
		rest = strings.TrimSuffix(rest, MaskPipe)
		f.strategy = strategyHostnameFuzzy
		f.pattern = rest
		f.signature = fuzzySignature(rest)

		return nil
	case strings.ContainsAny(rest, MaskAnyCharacter+MaskSeparator):
		// The remainder pattern continues right after the anchor
		// hostname, so its regex is anchored at the start.
		// patternToRegexp converts a trailing MaskPipe, if any, into the
		// end-of-string anchor.
		f.strategy = strategyHostnameRegex
		f.pattern = rest

		return f.compileRegex(RegexStartString+patternToRegexp(rest), false)
	case strings.HasSuffix(rest, MaskPipe):
		f.strategy = strategyHostnameRightAnchor
		f.pattern = rest[:len(rest)-len(MaskPipe)]

		return nil
	default:
		f.strategy = strategyHostnameLeftAnchor
		f.pattern = rest

		return nil
	}
}

// compileRegex compiles the regular expression text.  An invalid expression
// is a syntax error of the rule, not a failure of the matching code.
func (f *NetworkFilter) compileRegex(regexText string, caseInsensitive bool) error {
	if caseInsensitive && !f.IsOptionEnabled(OptionMatchCase) {
		regexText = "(?i)" + regexText
	}

	regex, err := regexp.Compile(regexText)
	if err != nil {
		return &RuleSyntaxError{msg: "invalid regex", ruleText: f.RuleText}
	}

	f.regex = regex

	return nil
}

// boundedTokens returns the hashes of the pattern tokens that are bounded on
// both sides: by a separator character within the pattern or by an anchor at
// its edge.  A token next to a wildcard or an unanchored edge may be a part
// of a longer URL token, so it cannot be used for indexing.
func boundedTokens(pattern string, leftAnchored, rightAnchored bool) (tokens []uint32) {
	start := -1
	for i := 0; i <= len(pattern); i++ {
		if i < len(pattern) && isAllowedInToken(pattern[i]) {
			if start == -1 {
				start = i
			}

			continue
		}

		if start == -1 {
			continue
		}

		leftOK := start > 0 && pattern[start-1] != '*' ||
			start == 0 && leftAnchored
		rightOK := i < len(pattern) && pattern[i] != '*' ||
			i == len(pattern) && rightAnchored
		if leftOK && rightOK {
			tokens = append(tokens, filterutil.FastHashBetween(pattern, start, i))
		}

		start = -1
	}

	return tokens
}

// parseRuleText splits the rule text in multiple parts: pattern is a basic
// rule pattern, options is a string with all rule options, and whitelist
// indicates if the rule is an exception rule (it should unblock requests,
// not block them).
func parseRuleText(ruleText string) (pattern, options string, whitelist bool, err error) {
	startIndex := 0
	if strings.HasPrefix(ruleText, maskWhiteList) {
		whitelist = true
		startIndex = len(maskWhiteList)
	}

	if len(ruleText) <= startIndex {
		return "", "", whitelist, fmt.Errorf("the rule is too short: %s", ruleText)
	}

	// Set the pattern to the rule text for the case of empty options.
	pattern = ruleText[startIndex:]

	// Avoid parsing options inside of a regex rule.
	if strings.HasPrefix(pattern, maskRegexRule) &&
		strings.HasSuffix(pattern, maskRegexRule) {
		return pattern, "", whitelist, nil
	}

	foundEscaped := false
	for i := len(ruleText) - 2; i >= startIndex; i-- {
		c := ruleText[i]

		if c == optionsDelimiter {
			if i > startIndex && ruleText[i-1] == escapeCharacter {
				foundEscaped = true
			} else {
				pattern = ruleText[startIndex:i]
				options = ruleText[i+1:]

				if foundEscaped {
					options = reEscapedOptionsDelimiter.ReplaceAllString(
						options,
						string(optionsDelimiter),
					)
				}

				break
			}
		}
	}

	return pattern, options, whitelist, nil
}
