package rules

import (
	"strings"
)

// Match checks if this filter matches the specified request.  The checks are
// ordered from the cheapest to the most expensive: the request type and party
// flags, then the source domain restrictions, then the pattern itself.
func (f *NetworkFilter) Match(r *Request) bool {
	if !f.matchRequestType(r.RequestType) {
		return false
	}

	if !f.matchParty(r) {
		return false
	}

	if !f.matchSourceDomains(r) {
		return false
	}

	return f.matchPattern(r)
}

// matchRequestType checks the request type against the permitted and
// restricted masks.
func (f *NetworkFilter) matchRequestType(requestType RequestType) bool {
	if f.permittedRequestTypes != 0 &&
		(f.permittedRequestTypes&requestType) == 0 {
		return false
	}

	if (f.restrictedRequestTypes & requestType) != 0 {
		return false
	}

	return true
}

// matchParty checks the $first-party and $third-party restrictions.
func (f *NetworkFilter) matchParty(r *Request) bool {
	if f.IsOptionEnabled(OptionThirdParty) && !r.ThirdParty {
		return false
	}

	if f.IsOptionEnabled(OptionFirstParty) && r.ThirdParty {
		return false
	}

	return true
}

// matchSourceDomains checks the $domain restrictions against the source of
// the request.  Both the registrable domain and the full hostname are
// probed, so that "domain=example.org" applies to requests coming from
// sub.example.org pages as well.
func (f *NetworkFilter) matchSourceDomains(r *Request) bool {
	if len(f.permittedDomains) != 0 &&
		!containsAnyOf(f.permittedDomains, r.SourceDomain, r.SourceHostname) {
		return false
	}

	if len(f.restrictedDomains) != 0 &&
		containsAnyOf(f.restrictedDomains, r.SourceDomain, r.SourceHostname) {
		return false
	}

	return true
}

// matchPattern runs the strategy resolved at construction.  There is exactly
// one strategy per filter, so no flag combinations are examined here.
func (f *NetworkFilter) matchPattern(r *Request) bool {
	url := r.URLLowerCase
	if f.IsOptionEnabled(OptionMatchCase) {
		url = r.URL
	}

	switch f.strategy {
	case strategyContains:
		return strings.Contains(url, f.pattern)
	case strategyLeftAnchor:
		return strings.HasPrefix(url, f.pattern)
	case strategyRightAnchor:
		return strings.HasSuffix(url, f.pattern)
	case strategyExact:
		return url == f.pattern
	case strategyRegex:
		return f.regex.MatchString(url)
	case strategyFuzzy:
		return fuzzyMatchSignature(f.signature, r.FuzzySignature())
	case strategyHostnameLeftAnchor:
		return isAnchoredByHostname(f.Hostname, r.Hostname) &&
			strings.HasPrefix(f.urlRemainder(r), f.pattern)
	case strategyHostnameRightAnchor:
		return isAnchoredByHostname(f.Hostname, r.Hostname) &&
			f.urlRemainder(r) == f.pattern
	case strategyHostnameRegex:
		return isAnchoredByHostname(f.Hostname, r.Hostname) &&
			f.regex.MatchString(f.urlRemainder(r))
	case strategyHostnameFuzzy:
		return isAnchoredByHostname(f.Hostname, r.Hostname) &&
			fuzzyMatchSignature(f.signature, r.FuzzySignature())
	}

	return false
}

// isAnchoredByHostname checks if the filter hostname anchors the request
// hostname at domain-label boundaries.  Only the leftmost occurrence of the
// filter hostname is examined; if it fails the boundary checks, a later
// occurrence in the same hostname is not retried.
//
// With filterHostname "video.twimg.com":
//
//	"video.twimg.com"          anchored, exact match
//	"cdn.video.twimg.com"      anchored, the occurrence follows a dot
//	"video.twimg.com.evil.io"  anchored, a dot follows the occurrence
//	"notvideo.twimg.com"       not anchored, no label boundary on the left
func isAnchoredByHostname(filterHostname, hostname string) bool {
	if filterHostname == "" {
		return true
	}

	if len(filterHostname) > len(hostname) {
		return false
	}

	idx := strings.Index(hostname, filterHostname)
	if idx == -1 {
		return false
	}

	// The occurrence must start the hostname, follow a dot, or carry its
	// own leading dot.
	if idx != 0 && hostname[idx-1] != '.' && filterHostname[0] != '.' {
		return false
	}

	// The occurrence must end the hostname, precede a dot, or carry its
	// own trailing dot.
	end := idx + len(filterHostname)

	return end == len(hostname) ||
		filterHostname[len(filterHostname)-1] == '.' ||
		hostname[end] == '.'
}

// urlRemainder returns the part of the request URL that follows the leftmost
// occurrence of the anchor hostname.  The occurrence is located in the
// lowercased URL since hostnames are case-insensitive; the remainder keeps
// the original case for $match-case filters.
func (f *NetworkFilter) urlRemainder(r *Request) string {
	idx := strings.Index(r.URLLowerCase, f.Hostname)
	if idx == -1 {
		return ""
	}

	end := idx + len(f.Hostname)
	if f.IsOptionEnabled(OptionMatchCase) {
		return r.URL[end:]
	}

	return r.URLLowerCase[end:]
}

// fuzzyMatchSignature checks if the filter signature is an order-preserving
// subsequence of the request signature.  Both signatures are sorted, so a
// single forward walk suffices.
func fuzzyMatchSignature(filterSig, requestSig []uint32) bool {
	if len(filterSig) > len(requestSig) {
		return false
	}

	i := 0
	for _, token := range filterSig {
		for i < len(requestSig) && requestSig[i] != token {
			i++
		}

		if i == len(requestSig) {
			return false
		}

		i++
	}

	return true
}
