package filterlist

import (
	"bufio"
	"io"

	"github.com/adblockgo/adblock/rules"
)

// RuleScanner implements an interface for reading filtering rules.
type RuleScanner struct {
	// scanner is the text reader that's used to read lines.
	scanner *bufio.Scanner

	// listID is the filter list identifier.
	listID int

	// ignoreCosmetic tells the scanner to ignore cosmetic rules.
	ignoreCosmetic bool

	// currentRule is the most recent rule returned by a call to Rule.
	currentRule rules.Rule

	// currentRuleIdx is the byte offset of the line of the most recent rule.
	currentRuleIdx int

	// currentPos is the byte offset of the line that will be read next.
	currentPos int
}

// NewRuleScanner returns a new RuleScanner to read from r.
func NewRuleScanner(r io.Reader, listID int, ignoreCosmetic bool) *RuleScanner {
	return &RuleScanner{
		scanner:        bufio.NewScanner(r),
		listID:         listID,
		ignoreCosmetic: ignoreCosmetic,
	}
}

// Rule returns the most recent rule generated by a call to Scan, and the byte
// offset of its line in the underlying list.
func (s *RuleScanner) Rule() (rules.Rule, int) {
	return s.currentRule, s.currentRuleIdx
}

// Scan advances the scanner to the next rule.  It returns false when the scan
// stops, by reaching the end of the input.  Invalid lines, comments, and empty
// lines are skipped silently, filter lists are user-authored and routinely
// contain junk.
func (s *RuleScanner) Scan() bool {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		ruleIdx := s.currentPos
		s.currentPos += len(line) + 1

		rule, err := rules.NewRule(line, s.listID)
		if err != nil || rule == nil {
			continue
		}

		if s.ignoreCosmetic {
			if _, ok := rule.(*rules.CosmeticFilter); ok {
				continue
			}
		}

		s.currentRule = rule
		s.currentRuleIdx = ruleIdx

		return true
	}

	return false
}
