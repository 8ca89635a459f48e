package adblock

import (
	"github.com/adblockgo/adblock/filterlist"
	"github.com/adblockgo/adblock/lookup"
	"github.com/adblockgo/adblock/rules"
)

// NetworkEngine is the engine that supports quick search over network filters.
type NetworkEngine struct {
	// RulesCount is the count of filters added to the engine.
	RulesCount int

	// ruleStorage is a storage for the network filters.  We try to avoid
	// keeping rules.NetworkFilter structs in memory so instead of that we use
	// their indexes and retrieve them from the storage when it's needed.
	ruleStorage *filterlist.RuleStorage

	// lookupTables is the array of lookup tables which we need to speed up
	// the matching speed.  Note, that the order of lookup tables is very
	// important, we'll try to add filters to the faster table first. If it's
	// not eligible for that lookup table, we'll then proceed to a slower one.
	lookupTables []lookup.Table
}

// NewNetworkEngine builds an instance of the network engine. This method scans
// the specified rule storage and adds all rules.NetworkFilter found there to
// the internal lookup tables.
func NewNetworkEngine(s *filterlist.RuleStorage) (engine *NetworkEngine) {
	engine = NewNetworkEngineSkipStorageScan(s)
	scanner := s.NewRuleStorageScanner()

	for scanner.Scan() {
		f, idx := scanner.Rule()
		nf, ok := f.(*rules.NetworkFilter)
		if ok {
			engine.AddRule(nf, idx)
		}
	}

	return engine
}

// NewNetworkEngineSkipStorageScan creates a new instance of *NetworkEngine,
// but unlike NewNetworkEngine it does not scan the storage.
func NewNetworkEngineSkipStorageScan(s *filterlist.RuleStorage) (engine *NetworkEngine) {
	return &NetworkEngine{
		ruleStorage: s,
		lookupTables: []lookup.Table{
			lookup.NewTokensTable(s),
			lookup.NewDomainsTable(s),
			&lookup.SeqScanTable{},
		},
	}
}

// Match searches over all filters loaded to the engine.  It returns true if
// a match was found alongside the winning filter.
func (n *NetworkEngine) Match(r *rules.Request) (*rules.NetworkFilter, bool) {
	matching := n.MatchAll(r)

	if len(matching) == 0 {
		return nil, false
	}

	result := rules.NewMatchingResult(matching)
	resultFilter := result.GetBasicResult()

	return resultFilter, resultFilter != nil
}

// MatchAll finds all filters matching the specified request regardless of
// the filter types.  It will find both exception and blocking filters.
func (n *NetworkEngine) MatchAll(r *rules.Request) (result []*rules.NetworkFilter) {
	for _, table := range n.lookupTables {
		result = append(result, table.MatchAll(r)...)
	}

	return result
}

// AddRule adds the filter to the network engine.
func (n *NetworkEngine) AddRule(f *rules.NetworkFilter, storageIdx int64) {
	for _, table := range n.lookupTables {
		if table.TryAdd(f, storageIdx) {
			n.RulesCount++

			return
		}
	}
}
