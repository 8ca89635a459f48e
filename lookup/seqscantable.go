package lookup

import (
	"github.com/adblockgo/adblock/rules"
)

// SeqScanTable is basically just a list of network filters that are scanned
// sequentially.  Here we put the filters that are not eligible for other
// tables.
type SeqScanTable struct {
	filters []*rules.NetworkFilter
}

// type check
var _ Table = (*SeqScanTable)(nil)

// TryAdd implements the Table interface for *SeqScanTable.
func (s *SeqScanTable) TryAdd(f *rules.NetworkFilter, _ int64) (ok bool) {
	if containsFilter(s.filters, f) {
		return false
	}

	s.filters = append(s.filters, f)

	return true
}

// MatchAll implements the Table interface for *SeqScanTable.
func (s *SeqScanTable) MatchAll(r *rules.Request) (result []*rules.NetworkFilter) {
	for _, f := range s.filters {
		if f.Match(r) {
			result = append(result, f)
		}
	}

	return result
}

// containsFilter is a helper function that checks if the specified filter is
// already in the array.
func containsFilter(filters []*rules.NetworkFilter, f *rules.NetworkFilter) (ok bool) {
	for _, cur := range filters {
		if cur.RuleText == f.RuleText {
			return true
		}
	}

	return false
}
