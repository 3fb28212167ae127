package utils

import (
	"runtime"
	"testing"
)

func TestShouldInclude(t *testing.T) {
	matcher := NewPatternMatcher(nil, nil)
	if !matcher.ShouldInclude("file.txt") {
		t.Fatal("expected include by default")
	}
	matcher = NewPatternMatcher([]string{"*.exe"}, nil)
	if matcher.ShouldInclude("file.txt") {
		t.Fatal("should not include unmatched include pattern")
	}
	if !matcher.ShouldInclude("dropper.exe") {
		t.Fatal("should include matching include pattern")
	}
	matcher = NewPatternMatcher(nil, []string{"backup.*"})
	if matcher.ShouldInclude("backup.tar") {
		t.Fatal("should exclude matching exclude pattern")
	}
	if !matcher.ShouldInclude("notes.txt") {
		t.Fatal("should include when exclude does not match")
	}
	matcher = NewPatternMatcher([]string{".*\\.dll$"}, nil)
	if !matcher.ShouldInclude("windows/system32/kernel32.dll") {
		t.Fatal("should match regex include pattern")
	}
}

func TestNilMatcherIncludesEverything(t *testing.T) {
	var matcher *PatternMatcher
	if !matcher.ShouldInclude("anything") {
		t.Fatal("nil matcher must include everything")
	}
}

func TestSkipDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("pseudo filesystem skip list is unix only")
	}
	for _, dir := range []string{"/proc", "/proc/1", "/sys/kernel", "/dev"} {
		if !SkipDir(dir) {
			t.Fatalf("expected %s to be skipped", dir)
		}
	}
	for _, dir := range []string{"/", "/home", "/procfs", "/var/sys"} {
		if SkipDir(dir) {
			t.Fatalf("did not expect %s to be skipped", dir)
		}
	}
}
