package adblock

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/log"
	"github.com/adblockgo/adblock/filterlist"
	"github.com/adblockgo/adblock/rules"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyNetworkEngine(t *testing.T) {
	ruleStorage := newTestRuleStorage(t, 1, "")
	engine := NewNetworkEngine(ruleStorage)
	r := rules.NewRequest("http://example.org/", "", rules.TypeOther)
	rule, ok := engine.Match(r)
	assert.False(t, ok)
	assert.Nil(t, rule)
}

func TestMatchWhitelistRule(t *testing.T) {
	r1 := "||example.org^$script"
	r2 := "@@http://example.org^"
	rulesText := strings.Join([]string{r1, r2}, "\n")
	ruleStorage := newTestRuleStorage(t, -1, rulesText)
	engine := NewNetworkEngine(ruleStorage)

	r := rules.NewRequest("http://example.org/", "", rules.TypeScript)
	rule, ok := engine.Match(r)
	assert.True(t, ok)
	assert.NotNil(t, rule)
	assert.Equal(t, r2, rule.String())
}

func TestMatchImportantRule(t *testing.T) {
	r1 := "||test2.example.org^$important"
	r2 := "@@||example.org^"
	r3 := "||test1.example.org^"
	rulesText := strings.Join([]string{r1, r2, r3}, "\n")
	ruleStorage := newTestRuleStorage(t, -1, rulesText)
	engine := NewNetworkEngine(ruleStorage)

	r := rules.NewRequest("http://example.org/", "", rules.TypeOther)
	rule, ok := engine.Match(r)
	assert.True(t, ok)
	assert.NotNil(t, rule)
	assert.Equal(t, r2, rule.String())

	r = rules.NewRequest("http://test1.example.org/", "", rules.TypeOther)
	rule, ok = engine.Match(r)
	assert.True(t, ok)
	assert.NotNil(t, rule)
	assert.Equal(t, r2, rule.String())

	r = rules.NewRequest("http://test2.example.org/", "", rules.TypeOther)
	rule, ok = engine.Match(r)
	assert.True(t, ok)
	assert.NotNil(t, rule)
	assert.Equal(t, r1, rule.String())
}

func TestMatchSourceRule(t *testing.T) {
	ruleText := "|https://$image,media,script,third-party," +
		"domain=~feedback.video.example|video.example|tube.example"
	ruleStorage := newTestRuleStorage(t, -1, ruleText)
	engine := NewNetworkEngine(ruleStorage)

	url := "https://cdn.static.example/videos/201809/25/original/4.jpg"
	sourceURL := "https://www.video.example/view_video.php?viewkey=ab123"

	r := rules.NewRequest(url, sourceURL, rules.TypeImage)
	rule, ok := engine.Match(r)
	assert.True(t, ok)
	assert.NotNil(t, rule)
}

func TestMatchSimplePattern(t *testing.T) {
	// Simple pattern rule
	ruleText := "_prebid_"
	ruleStorage := newTestRuleStorage(t, -1, ruleText)
	engine := NewNetworkEngine(ruleStorage)

	url := "https://ap.lijit.example/rtb/bid?src=prebid_prebid_1.35.0"
	sourceURL := "https://www.news.example/"

	r := rules.NewRequest(url, sourceURL, rules.TypeXmlhttprequest)
	rule, ok := engine.Match(r)
	assert.True(t, ok)
	assert.NotNil(t, rule)
}

func TestMatchFuzzyRule(t *testing.T) {
	ruleText := "||video.example/ads tracker$fuzzy"
	ruleStorage := newTestRuleStorage(t, -1, ruleText)
	engine := NewNetworkEngine(ruleStorage)

	r := rules.NewRequest("https://video.example/ads/page/tracker.js", "", rules.TypeScript)
	rule, ok := engine.Match(r)
	assert.True(t, ok)
	assert.NotNil(t, rule)

	r = rules.NewRequest("https://video.example/ads/page/script.js", "", rules.TypeScript)
	_, ok = engine.Match(r)
	assert.False(t, ok)
}

// TestBenchNetworkEngine loads a synthetic filter list and reports timing and
// memory usage of the engine.
func TestBenchNetworkEngine(t *testing.T) {
	debug.SetGCPercent(10)

	const rulesCount = 2000
	const requestsCount = 10000

	requests := make([]*rules.Request, 0, requestsCount)
	for i := 0; i < requestsCount; i++ {
		url := fmt.Sprintf("https://cdn%d.service%d.example/assets/img%d.png", i%7, i, i)
		src := fmt.Sprintf("https://site%d.example/", i%100)
		requests = append(requests, rules.NewRequest(url, src, rules.TypeImage))
	}

	startHeap, startRSS := alloc(t)
	t.Logf(
		"Allocated before loading rules (heap/RSS, kiB): %d/%d",
		startHeap,
		startRSS,
	)

	startParse := time.Now()
	engine := buildNetworkEngine(t, rulesCount)
	assert.NotNil(t, engine)
	defer engine.ruleStorage.Close()
	t.Logf("Elapsed on parsing rules: %v", time.Since(startParse))

	loadHeap, loadRSS := alloc(t)
	t.Logf(
		"Allocated after loading rules (heap/RSS, kiB): %d/%d (%d/%d diff)",
		loadHeap,
		loadRSS,
		loadHeap-startHeap,
		loadRSS-startRSS,
	)

	totalMatches := 0
	totalElapsed := time.Duration(0)
	minElapsedMatch := time.Hour
	maxElapsedMatch := time.Duration(0)

	for i, req := range requests {
		if i != 0 && i%10000 == 0 {
			t.Logf("Processed %d requests", i)
		}

		startMatch := time.Now()
		rule, ok := engine.Match(req)
		elapsedMatch := time.Since(startMatch)
		totalElapsed += elapsedMatch
		if elapsedMatch > maxElapsedMatch {
			maxElapsedMatch = elapsedMatch
		}
		if elapsedMatch < minElapsedMatch {
			minElapsedMatch = elapsedMatch
		}

		if ok && !rule.Whitelist {
			totalMatches++
		}
	}

	assert.True(t, totalMatches > 0)

	t.Logf("Total matches: %d", totalMatches)
	t.Logf("Total elapsed: %v", totalElapsed)
	t.Logf("Average per request: %v", time.Duration(int64(totalElapsed)/int64(len(requests))))
	t.Logf("Max per request: %v", maxElapsedMatch)
	t.Logf("Min per request: %v", minElapsedMatch)
	t.Logf("Storage cache length: %d", engine.ruleStorage.GetCacheSize())

	matchHeap, matchRSS := alloc(t)
	t.Logf(
		"Allocated after matching (heap/RSS, kiB): %d/%d (%d/%d diff)",
		matchHeap,
		matchRSS,
		matchHeap-loadHeap,
		matchRSS-loadRSS,
	)
}

// buildNetworkEngine generates a synthetic filter list and loads it into a
// network engine.
func buildNetworkEngine(t *testing.T, rulesCount int) *NetworkEngine {
	var sb strings.Builder
	for i := 0; i < rulesCount; i++ {
		switch i % 4 {
		case 0:
			fmt.Fprintf(&sb, "||service%d.example^\n", i)
		case 1:
			fmt.Fprintf(&sb, "||service%d.example^$image,third-party\n", i)
		case 2:
			fmt.Fprintf(&sb, "/assets/banner%d.\n", i)
		default:
			fmt.Fprintf(&sb, "@@||service%d.example^$domain=site%d.example\n", i, i%100)
		}
	}

	lists := []filterlist.RuleList{
		&filterlist.StringRuleList{
			ID:             1,
			RulesText:      sb.String(),
			IgnoreCosmetic: true,
		},
	}

	ruleStorage, err := filterlist.NewRuleStorage(lists)
	require.NoError(t, err)

	engine := NewNetworkEngine(ruleStorage)
	log.Printf("Loaded %d rules", engine.RulesCount)

	return engine
}

func newTestRuleStorage(t *testing.T, listID int, rulesText string) *filterlist.RuleStorage {
	list := &filterlist.StringRuleList{
		ID:             listID,
		RulesText:      rulesText,
		IgnoreCosmetic: false,
	}
	ruleStorage, err := filterlist.NewRuleStorage([]filterlist.RuleList{list})
	require.NoError(t, err)

	return ruleStorage
}

// alloc returns the heap and RSS memory sizes, in kibibytes.
func alloc(t *testing.T) (heap, rss uint64) {
	p, err := process.NewProcess(int32(os.Getpid()))
	require.NoError(t, err)

	mi, err := p.MemoryInfo()
	require.NoError(t, err)

	ms := &runtime.MemStats{}
	runtime.ReadMemStats(ms)

	return ms.Alloc / 1024, mi.RSS / 1024
}
