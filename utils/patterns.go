package utils

import (
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

// PatternMatcher decides which files enter the scan pipeline. Include and
// exclude entries are treated both as shell globs (matched against the base
// name) and as regular expressions (matched against the full path); invalid
// regular expressions are silently ignored so a glob like "*.exe" never
// aborts a scan.
type PatternMatcher struct {
	includeGlobs []string
	includeRegex []*regexp.Regexp
	excludeGlobs []string
	excludeRegex []*regexp.Regexp
}

func NewPatternMatcher(includePatterns, excludePatterns []string) *PatternMatcher {
	return &PatternMatcher{
		includeGlobs: append([]string(nil), includePatterns...),
		includeRegex: compileRegex(includePatterns),
		excludeGlobs: append([]string(nil), excludePatterns...),
		excludeRegex: compileRegex(excludePatterns),
	}
}

// ShouldInclude reports whether path passes the include list (when one is
// set) and misses the exclude list.
func (m *PatternMatcher) ShouldInclude(path string) bool {
	if m == nil {
		return true
	}
	if (len(m.includeGlobs) > 0 || len(m.includeRegex) > 0) && !m.matches(path, m.includeGlobs, m.includeRegex) {
		return false
	}
	if (len(m.excludeGlobs) > 0 || len(m.excludeRegex) > 0) && m.matches(path, m.excludeGlobs, m.excludeRegex) {
		return false
	}
	return true
}

func (m *PatternMatcher) matches(path string, globs []string, regexes []*regexp.Regexp) bool {
	for _, pattern := range globs {
		matched, _ := filepath.Match(pattern, filepath.Base(path))
		if matched {
			return true
		}
	}
	for _, re := range regexes {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func compileRegex(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		if re, err := regexp.Compile(pattern); err == nil {
			compiled = append(compiled, re)
		}
	}
	return compiled
}

// pseudoFilesystems are kernel-backed trees a full-disk scan starting at the
// filesystem root must never walk into: reading them hangs, loops, or
// re-scans process memory the process module already covers.
var pseudoFilesystems = []string{"/proc", "/sys", "/dev"}

// SkipDir reports whether a walker should refuse to descend into dir.
func SkipDir(dir string) bool {
	if runtime.GOOS == "windows" {
		return false
	}
	clean := filepath.Clean(dir)
	for _, p := range pseudoFilesystems {
		if clean == p || strings.HasPrefix(clean, p+"/") {
			return true
		}
	}
	return false
}
