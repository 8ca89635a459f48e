package rules

import (
	"regexp"
	"strings"
)

// Exported masks and regular expression parts used to convert the simple
// wildcard patterns into regular expressions.
const (
	// MaskStartURL definition:
	// Matching the beginning of an address. With this character you don't
	// have to specify a particular protocol and subdomain in address mask.
	// It means, || stands for http://*., https://*., ws://*., wss://*. at
	// once.
	MaskStartURL = "||"

	// MaskPipe definition:
	// A pointer to the beginning or the end of address. The value depends on
	// the character placement in the mask. For example, a rule
	// swf| corresponds to http://example.com/annoyingflash.swf, but not
	// http://example.com/swf/index.html. |http://example.org corresponds to
	// http://example.org, but not http://domain.com?url=http://example.org.
	MaskPipe = "|"

	// MaskSeparator definition:
	// Separator character mark. Separator character is any character, but a
	// letter, a digit, or one of the following: _ - . %
	MaskSeparator = "^"

	// MaskAnyCharacter is a wildcard character. It is used to represent "any
	// set of characters". This can also be an empty string or a string of any
	// length.
	MaskAnyCharacter = "*"

	// RegexAnyCharacter corresponds to MaskAnyCharacter.
	RegexAnyCharacter = ".*"

	// RegexSeparator corresponds to MaskSeparator.
	RegexSeparator = "([^ a-zA-Z0-9.%]|$)"

	// RegexStartURL corresponds to MaskStartURL.
	RegexStartURL = `^(http|https|ws|wss):\/\/([a-z0-9-_.]+\.)?`

	// RegexStartString corresponds to MaskPipe if it is in the beginning of
	// a pattern.
	RegexStartString = "^"

	// RegexEndString corresponds to MaskPipe if it is in the end of a
	// pattern.
	RegexEndString = "$"
)

// reSpecialCharacters matches the regular expression special characters that
// must be escaped in the pattern before the masks are expanded.
var reSpecialCharacters = regexp.MustCompile(`[.*+?^${}()|[\]\/\\]`)

// patternToRegexp converts a simple wildcard pattern to a regular expression
// string.
func patternToRegexp(pattern string) string {
	if pattern == MaskStartURL || pattern == MaskPipe ||
		pattern == MaskAnyCharacter || pattern == "" {
		return RegexAnyCharacter
	}

	if strings.HasPrefix(pattern, maskRegexRule) &&
		strings.HasSuffix(pattern, maskRegexRule) {
		return pattern[1 : len(pattern)-1]
	}

	regexText := reSpecialCharacters.ReplaceAllString(pattern, `\$0`)

	if strings.HasPrefix(regexText, `\|\|`) {
		regexText = RegexStartURL + regexText[len(`\|\|`):]
	} else if strings.HasPrefix(regexText, `\|`) {
		regexText = RegexStartString + regexText[len(`\|`):]
	}

	if strings.HasSuffix(regexText, `\|`) {
		regexText = regexText[:len(regexText)-len(`\|`)] + RegexEndString
	}

	regexText = strings.ReplaceAll(regexText, `\*`, RegexAnyCharacter)
	regexText = strings.ReplaceAll(regexText, `\^`, RegexSeparator)

	return regexText
}
