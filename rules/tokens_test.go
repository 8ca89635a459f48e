package rules

import (
	"testing"

	"github.com/adblockgo/adblock/filterutil"
	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tokens := tokenize("https://example.org/path")
	assert.Equal(t, []uint32{
		filterutil.FastHash("https"),
		filterutil.FastHash("example"),
		filterutil.FastHash("org"),
		filterutil.FastHash("path"),
	}, tokens)

	assert.Nil(t, tokenize(""))
	assert.Nil(t, tokenize("//:?&"))
}

func TestFuzzySignature(t *testing.T) {
	// The signature is sorted and deduplicated, repeated tokens collapse.
	sig := fuzzySignature("ads/ads/banner")
	assert.Len(t, sig, 2)
	assert.Contains(t, sig, filterutil.FastHash("ads"))
	assert.Contains(t, sig, filterutil.FastHash("banner"))

	for i := 1; i < len(sig); i++ {
		assert.Less(t, sig[i-1], sig[i])
	}
}

func TestFuzzyMatchSignature(t *testing.T) {
	assert.True(t, fuzzyMatchSignature([]uint32{1, 2, 3}, []uint32{0, 1, 5, 2, 9, 3}))

	// Order matters, this is a subsequence test and not a bag test.
	assert.False(t, fuzzyMatchSignature([]uint32{1, 3, 2}, []uint32{1, 2, 3}))

	// A filter signature longer than the request signature always fails.
	assert.False(t, fuzzyMatchSignature([]uint32{1, 2, 3}, []uint32{1, 2}))

	assert.True(t, fuzzyMatchSignature(nil, []uint32{1, 2}))
	assert.True(t, fuzzyMatchSignature([]uint32{2}, []uint32{1, 2}))
	assert.False(t, fuzzyMatchSignature([]uint32{4}, []uint32{1, 2, 3}))
}
