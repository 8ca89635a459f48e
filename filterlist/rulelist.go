// Package filterlist provides the abstractions for the filter lists: the rule
// lists themselves, the scanners that read them, and the storage that combines
// several lists and retrieves rules by their indexes.
package filterlist

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/adblockgo/adblock/rules"
)

// ErrRuleRetrieval signals that the rule cannot be retrieved by the specified
// index.
const ErrRuleRetrieval errors.Error = "cannot retrieve the rule"

// RuleList represents a set of filtering rules.
type RuleList interface {
	// GetID returns the rule list identifier.
	GetID() int

	// NewScanner creates a new scanner that reads the list contents.
	NewScanner() *RuleScanner

	// RetrieveRule retrieves a rule by its index.  The index is the byte
	// offset of the rule line as reported by the scanner.
	RetrieveRule(ruleIdx int) (rules.Rule, error)

	io.Closer
}

// StringRuleList represents a string-based rule list.
type StringRuleList struct {
	// ID is the rule list identifier.
	ID int

	// RulesText is a string with the filtering rules, one per line.
	RulesText string

	// IgnoreCosmetic tells the scanner to skip cosmetic rules.
	IgnoreCosmetic bool
}

// type check
var _ RuleList = (*StringRuleList)(nil)

// GetID returns the rule list identifier.
func (l *StringRuleList) GetID() int {
	return l.ID
}

// NewScanner creates a new rule scanner that reads the list contents.
func (l *StringRuleList) NewScanner() *RuleScanner {
	return NewRuleScanner(strings.NewReader(l.RulesText), l.ID, l.IgnoreCosmetic)
}

// RetrieveRule finds and deserializes the rule by its index.  If there is no
// rule by that index or the rule is invalid, it returns an error.
func (l *StringRuleList) RetrieveRule(ruleIdx int) (rules.Rule, error) {
	if ruleIdx < 0 || ruleIdx >= len(l.RulesText) {
		return nil, ErrRuleRetrieval
	}

	endOfLine := strings.IndexByte(l.RulesText[ruleIdx:], '\n')
	if endOfLine == -1 {
		endOfLine = len(l.RulesText)
	} else {
		endOfLine += ruleIdx
	}

	line := strings.TrimSpace(l.RulesText[ruleIdx:endOfLine])
	if line == "" {
		return nil, ErrRuleRetrieval
	}

	return rules.NewRule(line, l.ID)
}

// Close does nothing, the list is in memory.
func (l *StringRuleList) Close() error {
	return nil
}

// FileRuleList represents a file-based rule list.  The rules are not loaded
// into memory, they are read from the file on demand.
type FileRuleList struct {
	// ID is the rule list identifier.
	ID int

	// IgnoreCosmetic tells the scanner to skip cosmetic rules.
	IgnoreCosmetic bool

	file *os.File

	// mu protects the file offset, RetrieveRule seeks before reading.
	mu sync.Mutex
}

// type check
var _ RuleList = (*FileRuleList)(nil)

// NewFileRuleList initializes a new file-based rule list.
func NewFileRuleList(id int, path string, ignoreCosmetic bool) (*FileRuleList, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rule list: %w", err)
	}

	return &FileRuleList{
		ID:             id,
		IgnoreCosmetic: ignoreCosmetic,
		file:           file,
	}, nil
}

// GetID returns the rule list identifier.
func (l *FileRuleList) GetID() int {
	return l.ID
}

// NewScanner creates a new rule scanner that reads the list contents.  Only
// one scanner at a time can be used, it shares the file offset with
// RetrieveRule.
func (l *FileRuleList) NewScanner() *RuleScanner {
	_, _ = l.file.Seek(0, io.SeekStart)

	return NewRuleScanner(l.file, l.ID, l.IgnoreCosmetic)
}

// RetrieveRule finds and deserializes the rule by its index.
func (l *FileRuleList) RetrieveRule(ruleIdx int) (rules.Rule, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ruleIdx < 0 {
		return nil, ErrRuleRetrieval
	}

	_, err := l.file.Seek(int64(ruleIdx), io.SeekStart)
	if err != nil {
		return nil, ErrRuleRetrieval
	}

	line, err := readLine(l.file)
	if err != nil {
		return nil, ErrRuleRetrieval
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return nil, ErrRuleRetrieval
	}

	return rules.NewRule(line, l.ID)
}

// Close closes the underlying file.
func (l *FileRuleList) Close() error {
	return l.file.Close()
}

// readLine reads a single line from the reader byte by byte.  It is used to
// retrieve one rule without buffering past its end.
func readLine(r io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			sb.WriteByte(buf[0])
		}

		if err == io.EOF {
			break
		} else if err != nil {
			return "", err
		}
	}

	return sb.String(), nil
}
