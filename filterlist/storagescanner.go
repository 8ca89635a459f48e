package filterlist

import (
	"github.com/adblockgo/adblock/rules"
)

// RuleStorageScanner scans multiple RuleScanner instances.  The rule index is
// built from the rule index in the list and the list ID: the high 4 bytes are
// the list ID, the low 4 bytes are the rule index inside of that list.
type RuleStorageScanner struct {
	// Scanners is the list of list scanners backing this combined scanner.
	Scanners []*RuleScanner

	currentScanner *RuleScanner

	// currentScannerIdx is the index of the current scanner.
	currentScannerIdx int
}

// Scan advances the scanner to the next rule.  It returns false when there
// are no rules left in any of the backing scanners.
func (s *RuleStorageScanner) Scan() bool {
	if len(s.Scanners) == 0 {
		return false
	}

	if s.currentScanner == nil {
		s.currentScannerIdx = 0
		s.currentScanner = s.Scanners[s.currentScannerIdx]
	}

	for {
		if s.currentScanner.Scan() {
			return true
		}

		// Take the next scanner or just return false if there is nothing
		// more to read.
		if s.currentScannerIdx == len(s.Scanners)-1 {
			return false
		}

		s.currentScannerIdx++
		s.currentScanner = s.Scanners[s.currentScannerIdx]
	}
}

// Rule returns the most recent rule generated by a call to Scan, and its
// storage index.
func (s *RuleStorageScanner) Rule() (rules.Rule, int64) {
	if s.currentScanner == nil {
		return nil, 0
	}

	f, idx := s.currentScanner.Rule()
	if f == nil {
		return nil, 0
	}

	return f, ruleListIdxToStorageIdx(f.GetFilterListID(), idx)
}

// ruleListIdxToStorageIdx converts a pair of listID and rule list index to a
// single int64 storage index.
func ruleListIdxToStorageIdx(listID, ruleIdx int) int64 {
	return int64(listID)<<32 | int64(ruleIdx)&0xFFFFFFFF
}

// storageIdxToRuleListIdx converts the storage index to the list ID and the
// index of the rule in the list.
func storageIdxToRuleListIdx(storageIdx int64) (listID, ruleIdx int) {
	listID = int(storageIdx >> 32)
	ruleIdx = int(int32(storageIdx))

	return listID, ruleIdx
}
