package rules

import (
	"math/bits"
	"strings"
	"sync/atomic"

	"github.com/adblockgo/adblock/filterutil"
	"golang.org/x/net/publicsuffix"
)

// maxURLLength limits the URL length by 4 KiB.  It appears that there can be
// URLs longer than a megabyte, and it makes no sense to go through the whole
// URL.
const maxURLLength = 4 * 1024

// RequestType is the content-policy types enumeration.  A filter keeps two
// RequestType masks, permitted and restricted, and admits a request when its
// type passes both.
type RequestType uint32

const (
	// TypeDocument (main frame)
	TypeDocument RequestType = 1 << iota
	// TypeSubdocument (iframe) $subdocument
	TypeSubdocument
	// TypeScript (javascript, etc) $script
	TypeScript
	// TypeStylesheet (css) $stylesheet
	TypeStylesheet
	// TypeObject (flash, etc) $object
	TypeObject
	// TypeImage (any image) $image
	TypeImage
	// TypeXmlhttprequest (ajax/fetch) $xmlhttprequest
	TypeXmlhttprequest
	// TypeMedia (video/music) $media
	TypeMedia
	// TypeFont (any custom font) $font
	TypeFont
	// TypeWebsocket (a websocket connection) $websocket
	TypeWebsocket
	// TypePing (navigator.sendBeacon() or ping attribute on links) $ping
	TypePing
	// TypeOther - any other request type
	TypeOther
)

// Count returns the count of the enabled flags.
func (t RequestType) Count() int {
	return bits.OnesCount32(uint32(t))
}

// Request represents a web filtering request with all its necessary
// properties.  A Request is immutable for the matching code except for the
// lazily memoized fuzzy signature, so a single instance can be checked
// against any number of filters, concurrently if needed.
type Request struct {
	// URL is the full request URL.
	URL string

	// URLLowerCase is the full request URL in lower case.
	URLLowerCase string

	// Hostname is the hostname to filter.
	Hostname string

	// Domain is the effective top-level domain of the request with an
	// additional label.
	Domain string

	// SourceURL is the full URL of the source.
	SourceURL string

	// SourceHostname is the hostname of the source.
	SourceHostname string

	// SourceDomain is the effective top-level domain of the source with an
	// additional label.
	SourceDomain string

	// RequestType is the content-policy type of the filtering request.
	RequestType RequestType

	// ThirdParty is true if the request domain and the source domain are
	// different registrable domains.
	ThirdParty bool

	// fuzzySig is the memoized fuzzy signature of URLLowerCase.  It is
	// computed on the first use and then reused for every fuzzy filter
	// checked against this request.
	fuzzySig atomic.Pointer[[]uint32]
}

// NewRequest creates a new instance of Request and populates its fields.
func NewRequest(url, sourceURL string, requestType RequestType) *Request {
	if len(url) > maxURLLength {
		url = url[:maxURLLength]
	}
	if len(sourceURL) > maxURLLength {
		sourceURL = sourceURL[:maxURLLength]
	}

	urlLower := strings.ToLower(url)
	sourceURLLower := strings.ToLower(sourceURL)

	r := Request{
		RequestType: requestType,

		URL:          url,
		URLLowerCase: urlLower,
		Hostname:     filterutil.ExtractHostname(urlLower),

		SourceURL:      sourceURL,
		SourceHostname: filterutil.ExtractHostname(sourceURLLower),
	}

	domain := effectiveTLDPlusOne(r.Hostname)
	if domain != "" {
		r.Domain = domain
	} else {
		r.Domain = r.Hostname
	}

	sourceDomain := effectiveTLDPlusOne(r.SourceHostname)
	if sourceDomain != "" {
		r.SourceDomain = sourceDomain
	} else {
		r.SourceDomain = r.SourceHostname
	}

	if r.SourceDomain != "" && r.SourceDomain != r.Domain {
		r.ThirdParty = true
	}

	return &r
}

// FuzzySignature returns the fuzzy signature of the request URL.  The
// signature is computed on the first call and memoized.  On concurrent first
// use the competing computations are identical, so whichever publishes first
// wins and the rest adopt its value.
func (r *Request) FuzzySignature() []uint32 {
	if sig := r.fuzzySig.Load(); sig != nil {
		return *sig
	}

	sig := fuzzySignature(r.URLLowerCase)
	if !r.fuzzySig.CompareAndSwap(nil, &sig) {
		return *r.fuzzySig.Load()
	}

	return sig
}

// effectiveTLDPlusOne is a faster version of publicsuffix.EffectiveTLDPlusOne
// that avoids using fmt.Errorf when the domain is less or equal the suffix.
func effectiveTLDPlusOne(hostname string) (domain string) {
	hostnameLen := len(hostname)
	if hostnameLen < 1 {
		return ""
	}

	if hostname[0] == '.' || hostname[hostnameLen-1] == '.' {
		return ""
	}

	suffix, _ := publicsuffix.PublicSuffix(hostname)

	i := hostnameLen - len(suffix) - 1
	if i < 0 || hostname[i] != '.' {
		return ""
	}

	return hostname[1+strings.LastIndex(hostname[:i], "."):]
}
