package lookup

import (
	"math"

	"github.com/adblockgo/adblock/filterlist"
	"github.com/adblockgo/adblock/filterutil"
	"github.com/adblockgo/adblock/rules"
)

// badTokens are the tokens that almost every URL contains.  Indexing a filter
// by one of them would turn the lookup into a sequential scan, so they are
// never chosen as index keys.
var badTokens = map[uint32]struct{}{
	filterutil.FastHash("http"):  {},
	filterutil.FastHash("https"): {},
	filterutil.FastHash("ws"):    {},
	filterutil.FastHash("wss"):   {},
	filterutil.FastHash("www"):   {},
	filterutil.FastHash("com"):   {},
}

// TokensTable is a table that relies on the filter tokens to quickly find the
// matching filters.  Here's how it works:
//
//  1. The filter reports the tokens that any matching URL is guaranteed to
//     contain.
//  2. We pick the least used of them, by a histogram of the index keys, and
//     put the filter into the internal hashmap under that token.
//  3. When we match a request, we tokenize its URL and check if there are any
//     filters under its tokens.
//
// Note that only the filters with at least one usable token are eligible for
// this table.
type TokensTable struct {
	// Storage for the network filters.
	ruleStorage *filterlist.RuleStorage

	// Map where the key is the token hash and the value is a list of filter
	// indexes.
	tokensLookupTable map[uint32][]int64

	// Histogram helps us choose the least used token for every new filter,
	// it keeps the lookup buckets balanced.
	tokensHistogram map[uint32]int
}

// type check
var _ Table = (*TokensTable)(nil)

// NewTokensTable creates a new instance of the TokensTable.
func NewTokensTable(rs *filterlist.RuleStorage) (s *TokensTable) {
	return &TokensTable{
		ruleStorage:       rs,
		tokensLookupTable: map[uint32][]int64{},
		tokensHistogram:   map[uint32]int{},
	}
}

// TryAdd implements the Table interface for *TokensTable.
func (s *TokensTable) TryAdd(f *rules.NetworkFilter, storageIdx int64) (ok bool) {
	tokens := getFilterTokens(f)
	if len(tokens) == 0 {
		return false
	}

	// Find the applicable token (the least used).
	var tokenHash uint32
	minCount := math.MaxInt32
	for _, hash := range tokens {
		count := s.tokensHistogram[hash]
		if count < minCount {
			minCount = count
			tokenHash = hash
		}
	}

	s.tokensHistogram[tokenHash] = minCount + 1

	s.tokensLookupTable[tokenHash] = append(s.tokensLookupTable[tokenHash], storageIdx)

	return true
}

// MatchAll implements the Table interface for *TokensTable.
func (s *TokensTable) MatchAll(r *rules.Request) (result []*rules.NetworkFilter) {
	for _, hash := range r.Tokens() {
		matchingFilters, ok := s.tokensLookupTable[hash]
		if !ok {
			continue
		}

		for _, idx := range matchingFilters {
			f := s.ruleStorage.RetrieveNetworkFilter(idx)

			// Make sure that the same filter isn't returned twice.  This
			// happens when the URL contains a repeating token.  The check
			// is performed rarely and on rather short slices, so it
			// shouldn't cause any performance issues.
			if f == nil || filterIn(f, result) || !f.Match(r) {
				continue
			}

			result = append(result, f)
		}
	}

	return result
}

// getFilterTokens returns the tokens that can be used as the index keys for
// the filter.
func getFilterTokens(f *rules.NetworkFilter) (tokens []uint32) {
	for _, hash := range f.Tokens() {
		if _, bad := badTokens[hash]; !bad {
			tokens = append(tokens, hash)
		}
	}

	return tokens
}
