package rules

// MatchingResult contains all the network filters matching a web request, and
// provides methods that define how the request should be processed.
type MatchingResult struct {
	// BasicRule is the filter that wins for the request.  It could lead to
	// one of the following:
	//  - block the request
	//  - unblock the request (an exception rule)
	BasicRule *NetworkFilter
}

// NewMatchingResult creates an instance of the MatchingResult struct and
// selects the winning filter among the specified ones.  Exception and
// $important filters take precedence over the basic blocking filters, see
// [NetworkFilter.IsHigherPriority].
func NewMatchingResult(filters []*NetworkFilter) MatchingResult {
	result := MatchingResult{}

	for _, f := range filters {
		if result.BasicRule == nil || f.IsHigherPriority(result.BasicRule) {
			result.BasicRule = f
		}
	}

	return result
}

// GetBasicResult returns the filter that should be applied to the request.
// Returns nil if the request should just pass through.
func (m MatchingResult) GetBasicResult() *NetworkFilter {
	return m.BasicRule
}

// ShouldBlock returns true if the request must be blocked, i.e. the winning
// filter is a blocking one.
func (m MatchingResult) ShouldBlock() bool {
	return m.BasicRule != nil && !m.BasicRule.Whitelist
}
