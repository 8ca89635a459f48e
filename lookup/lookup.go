// Package lookup implements index structures that we use to improve matching
// speed in the engines.
package lookup

import "github.com/adblockgo/adblock/rules"

// Table is a common interface for all lookup tables.
type Table interface {
	// TryAdd attempts to add the filter to the lookup table.
	// It returns true/false depending on whether the filter is eligible for
	// this lookup table.
	TryAdd(f *rules.NetworkFilter, storageIdx int64) (ok bool)

	// MatchAll finds all matching filters from this lookup table.
	MatchAll(r *rules.Request) (result []*rules.NetworkFilter)
}

// filterIn checks if the particular filter instance is contained by the slice
// of pointers.
func filterIn(f *rules.NetworkFilter, fs []*rules.NetworkFilter) (ok bool) {
	for _, cur := range fs {
		if cur == f {
			return true
		}
	}

	return false
}
