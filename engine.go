// Package adblock implements the filtering engines: the network engine that
// matches web requests against the network filters, and the cosmetic engine
// that builds the element-hiding and script payload of a page.
package adblock

import (
	"github.com/adblockgo/adblock/filterlist"
	"github.com/adblockgo/adblock/rules"
)

// Engine represents the filtering engine with all the loaded filters.
type Engine struct {
	networkEngine  *NetworkEngine
	cosmeticEngine *CosmeticEngine
}

// NewEngine parses the filtering rules and creates a filtering engine of
// them.
func NewEngine(s *filterlist.RuleStorage) *Engine {
	return &Engine{
		networkEngine:  NewNetworkEngine(s),
		cosmeticEngine: NewCosmeticEngine(s),
	}
}

// MatchRequest matches the specified request against the filtering engine and
// returns the matching result.
func (e *Engine) MatchRequest(r *rules.Request) rules.MatchingResult {
	return rules.NewMatchingResult(e.networkEngine.MatchAll(r))
}

// GetCosmeticResult gets the cosmetic result for the specified hostname.
func (e *Engine) GetCosmeticResult(hostname string) CosmeticResult {
	return e.cosmeticEngine.Match(hostname)
}
