package rules

import (
	"github.com/adblockgo/adblock/filterutil"
	"golang.org/x/exp/slices"
)

// isAllowedInToken returns true if c can be a part of a token.  Tokens are
// the maximal alphanumeric runs of the text, everything else is a separator.
func isAllowedInToken(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// appendTokens appends the hashes of all tokens of str to tokens and returns
// the updated slice.
func appendTokens(tokens []uint32, str string) []uint32 {
	start := -1
	for i := 0; i < len(str); i++ {
		if isAllowedInToken(str[i]) {
			if start == -1 {
				start = i
			}

			continue
		}

		if start != -1 {
			tokens = append(tokens, filterutil.FastHashBetween(str, start, i))
			start = -1
		}
	}

	if start != -1 {
		tokens = append(tokens, filterutil.FastHashBetween(str, start, len(str)))
	}

	return tokens
}

// tokenize returns the hashes of all tokens of str in their original order.
func tokenize(str string) (tokens []uint32) {
	return appendTokens(nil, str)
}

// Tokens returns the hashes of all tokens of the request URL in their
// original order.  The lookup tables use them to probe their reverse indexes.
func (r *Request) Tokens() []uint32 {
	return tokenize(r.URLLowerCase)
}

// compactTokens sorts tokens in the ascending order and removes duplicates.
func compactTokens(tokens []uint32) []uint32 {
	slices.Sort(tokens)

	return slices.Compact(tokens)
}

// fuzzySignature derives the canonical fuzzy signature of str: the sorted
// deduplicated sequence of its token hashes.  Both the filters and the
// requests derive their signatures with this same function.
func fuzzySignature(str string) []uint32 {
	return compactTokens(tokenize(str))
}
