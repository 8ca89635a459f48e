package lookup

import (
	"strings"

	"github.com/adblockgo/adblock/filterlist"
	"github.com/adblockgo/adblock/filterutil"
	"github.com/adblockgo/adblock/rules"
)

// DomainsTable is a lookup table that uses domains from the $domain modifier
// to speed up the filters search.  Only the filters with $domain modifier are
// eligible for this lookup table.
type DomainsTable struct {
	// Storage for the network filters.
	ruleStorage *filterlist.RuleStorage

	// Domain lookup table. Key is the domain name hash.
	domainsLookupTable map[uint32][]int64
}

// type check
var _ Table = (*DomainsTable)(nil)

// NewDomainsTable creates a new instance of the DomainsTable.
func NewDomainsTable(rs *filterlist.RuleStorage) (s *DomainsTable) {
	return &DomainsTable{
		ruleStorage:        rs,
		domainsLookupTable: map[uint32][]int64{},
	}
}

// TryAdd implements the Table interface for *DomainsTable.
func (d *DomainsTable) TryAdd(f *rules.NetworkFilter, storageIdx int64) (ok bool) {
	permittedDomains := f.GetPermittedDomains()
	if len(permittedDomains) == 0 {
		return false
	}

	for _, domain := range permittedDomains {
		hash := filterutil.FastHash(domain)
		d.domainsLookupTable[hash] = append(d.domainsLookupTable[hash], storageIdx)
	}

	return true
}

// MatchAll implements the Table interface for *DomainsTable.
func (d *DomainsTable) MatchAll(r *rules.Request) (result []*rules.NetworkFilter) {
	if r.SourceHostname == "" {
		return result
	}

	domains := getSubdomains(r.SourceHostname)
	for _, domain := range domains {
		hash := filterutil.FastHash(domain)
		matchingFilters, ok := d.domainsLookupTable[hash]
		if !ok {
			continue
		}

		for _, idx := range matchingFilters {
			f := d.ruleStorage.RetrieveNetworkFilter(idx)
			if f == nil || filterIn(f, result) || !f.Match(r) {
				continue
			}

			result = append(result, f)
		}
	}

	return result
}

// getSubdomains splits the specified hostname and returns all subdomains
// (including the hostname itself).
func getSubdomains(hostname string) (subdomains []string) {
	parts := strings.Split(hostname, ".")
	domain := ""
	for i := len(parts) - 1; i >= 0; i-- {
		if domain == "" {
			domain = parts[i]
		} else {
			domain = parts[i] + "." + domain
		}
		subdomains = append(subdomains, domain)
	}

	return subdomains
}
