package lookup_test

import (
	"testing"

	"github.com/adblockgo/adblock/lookup"
	"github.com/adblockgo/adblock/rules"
	"github.com/stretchr/testify/assert"
)

func TestSeqScanTable_TryAdd(t *testing.T) {
	t.Parallel()

	s := newStorage(t, testRuleTextRegex)
	tbl := &lookup.SeqScanTable{}

	sc := s.NewRuleStorageScanner()
	for sc.Scan() {
		r, idx := sc.Rule()
		nf := r.(*rules.NetworkFilter)

		// Everything is eligible, but duplicates are rejected.
		assert.True(t, tbl.TryAdd(nf, idx))
		assert.False(t, tbl.TryAdd(nf, idx))
	}
}

func TestSeqScanTable_MatchAll(t *testing.T) {
	t.Parallel()

	s := newStorage(t, testRuleTextAll)
	tbl := &lookup.SeqScanTable{}
	loadTable(t, tbl, s)

	r := rules.NewRequest("https://no-match.example/banner123", "", rules.TypeOther)
	gotFilters := tbl.MatchAll(r)

	assert.Len(t, gotFilters, 1)
	assert.Equal(t, testRuleRegex, gotFilters[0].RuleText)
}
