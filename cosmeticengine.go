package adblock

import (
	"github.com/adblockgo/adblock/filterlist"
	"github.com/adblockgo/adblock/rules"
)

// CosmeticEngine combines all the cosmetic filters and allows to quickly find
// all filters matching this or that hostname.
type CosmeticEngine struct {
	// RulesCount is the count of filters added to the engine.
	RulesCount int

	elementHiding *cosmeticLookupTable
	scriptInject  *cosmeticLookupTable
	scriptBlock   *cosmeticLookupTable
}

// NewCosmeticEngine builds a new cosmetic engine.  This method scans the
// specified rule storage and adds all rules.CosmeticFilter found there to the
// internal lookup tables.
func NewCosmeticEngine(s *filterlist.RuleStorage) *CosmeticEngine {
	engine := &CosmeticEngine{
		elementHiding: newCosmeticLookupTable(),
		scriptInject:  newCosmeticLookupTable(),
		scriptBlock:   newCosmeticLookupTable(),
	}

	scanner := s.NewRuleStorageScanner()
	for scanner.Scan() {
		f, _ := scanner.Rule()
		cf, ok := f.(*rules.CosmeticFilter)
		if !ok {
			continue
		}

		switch {
		case cf.IsOptionEnabled(rules.CosmeticOptionScriptInject):
			engine.scriptInject.addFilter(cf)
		case cf.IsOptionEnabled(rules.CosmeticOptionScriptBlock):
			engine.scriptBlock.addFilter(cf)
		default:
			engine.elementHiding.addFilter(cf)
		}

		engine.RulesCount++
	}

	return engine
}

// StylesResult contains the element-hiding selectors to apply to a page.
type StylesResult struct {
	// Generic are the selectors of the filters not restricted to any
	// hostname.
	Generic []string

	// Specific are the selectors of the filters scoped to this hostname.
	Specific []string
}

// CosmeticResult represents the cosmetic filtering payload of a page: the
// selectors to hide and the script directives to apply.
type CosmeticResult struct {
	// ElementHiding contains the selectors of elements that should be hidden.
	ElementHiding StylesResult

	// ScriptsInject contains the arguments of the matching script:inject
	// filters.
	ScriptsInject []string

	// ScriptsBlock contains the patterns of the matching script:contains
	// filters.
	ScriptsBlock []string
}

// Match builds the cosmetic result that applies to the specified page
// hostname.
func (e *CosmeticEngine) Match(hostname string) CosmeticResult {
	r := CosmeticResult{}

	generic, specific := e.elementHiding.findMatching(hostname)
	r.ElementHiding.Generic = selectors(generic)
	r.ElementHiding.Specific = selectors(specific)

	_, injects := e.scriptInject.findMatching(hostname)
	r.ScriptsInject = selectors(injects)

	_, blocks := e.scriptBlock.findMatching(hostname)
	r.ScriptsBlock = selectors(blocks)

	return r
}

// selectors extracts the selector texts of the filters.
func selectors(filters []*rules.CosmeticFilter) (out []string) {
	for _, f := range filters {
		out = append(out, f.Selector)
	}

	return out
}

// cosmeticLookupTable is a helper structure to speed up the cosmetic filters
// matching.
type cosmeticLookupTable struct {
	// byHostname are the filters grouped by each of their scope hostnames.
	byHostname map[string][]*rules.CosmeticFilter

	// genericFilters is the list of filters not scoped to any hostname.
	genericFilters []*rules.CosmeticFilter

	// unhide are the exception filters.  The key is the filter selector.
	unhide map[string][]*rules.CosmeticFilter
}

// newCosmeticLookupTable creates a new empty instance of the lookup table.
func newCosmeticLookupTable() *cosmeticLookupTable {
	return &cosmeticLookupTable{
		byHostname: map[string][]*rules.CosmeticFilter{},
		unhide:     map[string][]*rules.CosmeticFilter{},
	}
}

// addFilter adds the specified filter to the lookup table.
func (c *cosmeticLookupTable) addFilter(f *rules.CosmeticFilter) {
	if f.IsOptionEnabled(rules.CosmeticOptionUnhide) {
		c.unhide[f.Selector] = append(c.unhide[f.Selector], f)

		return
	}

	if f.IsGeneric() {
		c.genericFilters = append(c.genericFilters, f)

		return
	}

	for _, hostname := range f.Hostnames() {
		c.byHostname[hostname] = append(c.byHostname[hostname], f)
	}
}

// findMatching returns the generic and the hostname-specific filters that
// apply to the hostname, with the unhidden ones excluded.
func (c *cosmeticLookupTable) findMatching(
	hostname string,
) (generic, specific []*rules.CosmeticFilter) {
	for _, f := range c.genericFilters {
		if !c.isUnhidden(f, hostname) {
			generic = append(generic, f)
		}
	}

	seen := map[uint32]struct{}{}
	for _, domain := range hostnameScopes(hostname) {
		for _, f := range c.byHostname[domain] {
			if _, ok := seen[f.ID]; ok {
				continue
			}
			seen[f.ID] = struct{}{}

			if f.Match(hostname) && !c.isUnhidden(f, hostname) {
				specific = append(specific, f)
			}
		}
	}

	return generic, specific
}

// isUnhidden checks if there is an exception filter with the same selector
// that applies to the hostname.
func (c *cosmeticLookupTable) isUnhidden(f *rules.CosmeticFilter, hostname string) bool {
	for _, u := range c.unhide[f.Selector] {
		if u.Match(hostname) {
			return true
		}
	}

	return false
}

// hostnameScopes returns the hostname and all its parent domains.  They are
// the possible byHostname keys a filter scoped to this page can be stored
// under.
func hostnameScopes(hostname string) (scopes []string) {
	for hostname != "" {
		scopes = append(scopes, hostname)

		i := 0
		for i < len(hostname) && hostname[i] != '.' {
			i++
		}
		if i == len(hostname) {
			break
		}

		hostname = hostname[i+1:]
	}

	return scopes
}
