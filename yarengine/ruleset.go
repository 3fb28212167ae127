package yarengine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"huntsman/logger"

	"github.com/cloudflare/ahocorasick"
)

// RuleExtension is the file suffix recognized in the rule-source directory.
const RuleExtension = ".yar"

type patternRef struct {
	ruleIdx  int
	stringID string
}

// RuleSet is a compiled, immutable set of rules. All string patterns of all
// rules live in one Aho-Corasick automaton; one pass over the content yields
// the candidate hits for every rule at once.
type RuleSet struct {
	rules      []rule
	matcher    *ahocorasick.Matcher
	refs       [][]patternRef // automaton pattern index -> owning strings
	maxPattern int
}

// CompileDir loads every *.yar file in dir. Each file is test-compiled on
// its own; files that fail are logged and excluded. The surviving sources
// are concatenated and compiled as one composite set; a composite failure
// is returned as an error since it points at a cross-file problem.
func CompileDir(dir string) (*RuleSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read rule directory %s: %w", dir, err)
	}

	var sources []string
	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), RuleExtension) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		logger.Debugf("Reading rule file %s ...", path)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Errorf("Cannot read rule file %s. Ignoring file. ERROR: %v", path, err)
			continue
		}
		if _, err := parseRules(string(data)); err != nil {
			logger.Errorf("Cannot compile rule file %s. Ignoring file. ERROR: %v", path, err)
			continue
		}
		logger.Debugf("Successfully compiled rule file %s - adding it to the composite set", path)
		sources = append(sources, string(data))
		count++
	}

	if len(sources) == 0 {
		logger.Warnf("No usable rule files in %s; pattern matching is disabled", dir)
		return &RuleSet{}, nil
	}
	rs, err := Compile(strings.Join(sources, "\n"))
	if err != nil {
		return nil, fmt.Errorf("error compiling the composed rule set: %w", err)
	}
	logger.Infof("Successfully compiled %d rule files into a composite set", count)
	return rs, nil
}

// Compile builds a RuleSet from a single rule source string.
func Compile(source string) (*RuleSet, error) {
	rules, err := parseRules(source)
	if err != nil {
		return nil, err
	}

	names := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if _, dup := names[r.name]; dup {
			return nil, fmt.Errorf("duplicate rule name %s", r.name)
		}
		names[r.name] = struct{}{}
	}

	rs := &RuleSet{rules: rules}
	// Identical byte patterns across rules share one automaton slot.
	slot := make(map[string]int)
	var blices [][]byte
	for i, r := range rules {
		for _, p := range r.patterns {
			key := string(p.value)
			idx, ok := slot[key]
			if !ok {
				idx = len(blices)
				slot[key] = idx
				blices = append(blices, p.value)
				rs.refs = append(rs.refs, nil)
			}
			rs.refs[idx] = append(rs.refs[idx], patternRef{ruleIdx: i, stringID: p.id})
			if len(p.value) > rs.maxPattern {
				rs.maxPattern = len(p.value)
			}
		}
	}
	if len(blices) > 0 {
		rs.matcher = ahocorasick.NewMatcher(blices)
	}
	return rs, nil
}

// Len reports the number of compiled rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// ScanBytes runs the set against content with the given external variables.
// A non-positive timeout disables the bound.
func (rs *RuleSet) ScanBytes(data []byte, vars ExternalVars, timeout time.Duration) ([]RuleMatch, error) {
	if timeout <= 0 {
		return rs.scanBytes(data, vars), nil
	}
	done := make(chan []RuleMatch, 1)
	go func() {
		done <- rs.scanBytes(data, vars)
	}()
	select {
	case matches := <-done:
		return matches, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("scan timed out after %s", timeout)
	}
}

func (rs *RuleSet) scanBytes(data []byte, vars ExternalVars) []RuleMatch {
	hits := make([]map[string]bool, len(rs.rules))
	rs.accumulate(data, hits)
	return rs.evaluate(hits, vars)
}

// accumulate records which string identifiers were seen in data, per rule.
func (rs *RuleSet) accumulate(data []byte, hits []map[string]bool) {
	if rs.matcher == nil || len(data) == 0 {
		return
	}
	for _, idx := range rs.matcher.MatchThreadSafe(data) {
		if idx < 0 || idx >= len(rs.refs) {
			continue
		}
		for _, ref := range rs.refs[idx] {
			if hits[ref.ruleIdx] == nil {
				hits[ref.ruleIdx] = make(map[string]bool, 4)
			}
			hits[ref.ruleIdx][ref.stringID] = true
		}
	}
}

func (rs *RuleSet) evaluate(hits []map[string]bool, vars ExternalVars) []RuleMatch {
	var matches []RuleMatch
	for i := range rs.rules {
		r := &rs.rules[i]
		if r.eval(hits[i], vars) {
			matches = append(matches, RuleMatch{Rule: r.name, Meta: r.meta})
		}
	}
	return matches
}

var _ Scanner = (*RuleSet)(nil)
