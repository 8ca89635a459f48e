package rules

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRequest(t *testing.T) {
	r := NewRequest("http://example.org/", "", TypeOther)
	assert.Equal(t, "example.org", r.Hostname)
	assert.Equal(t, "example.org", r.Domain)
	assert.Equal(t, "http://example.org/", r.URL)
	assert.Equal(t, "", r.SourceURL)
	assert.Equal(t, "", r.SourceHostname)
	assert.Equal(t, "", r.SourceDomain)
	assert.Equal(t, TypeOther, r.RequestType)
	assert.Equal(t, false, r.ThirdParty)

	r = NewRequest("http://example.org/", "http://sub.example.org", TypeOther)
	assert.Equal(t, "example.org", r.Domain)
	assert.Equal(t, "sub.example.org", r.SourceHostname)
	assert.Equal(t, "example.org", r.SourceDomain)
	assert.Equal(t, false, r.ThirdParty)

	r = NewRequest("https://Sub.Example.org/Page?Q=1", "https://test.com/", TypeScript)
	assert.Equal(t, "https://Sub.Example.org/Page?Q=1", r.URL)
	assert.Equal(t, "https://sub.example.org/page?q=1", r.URLLowerCase)
	assert.Equal(t, "sub.example.org", r.Hostname)
	assert.Equal(t, "example.org", r.Domain)
	assert.Equal(t, "test.com", r.SourceDomain)
	assert.Equal(t, true, r.ThirdParty)
}

func TestNewRequestLongURL(t *testing.T) {
	url := "https://example.org/" + strings.Repeat("a", maxURLLength)
	r := NewRequest(url, "", TypeOther)
	assert.Equal(t, maxURLLength, len(r.URL))
	assert.Equal(t, "example.org", r.Hostname)
}

func TestRequestFuzzySignature(t *testing.T) {
	r := NewRequest("https://example.org/ads/banner", "", TypeImage)

	sig := r.FuzzySignature()
	assert.NotEmpty(t, sig)
	assert.Equal(t, fuzzySignature(r.URLLowerCase), sig)

	// The memoized value is stable across calls.
	assert.Equal(t, sig, r.FuzzySignature())
}

func TestRequestFuzzySignatureConcurrent(t *testing.T) {
	r := NewRequest("https://example.org/ads/banner", "", TypeImage)
	want := fuzzySignature(r.URLLowerCase)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, r.FuzzySignature())
		}()
	}
	wg.Wait()
}
