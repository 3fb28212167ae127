package yarengine

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Rule source format, a compact YARA-style subset:
//
//	rule Name {
//	    meta:
//	        description = "why this matters"
//	    strings:
//	        $s1 = "sekurlsa::logonpasswords"
//	        $h1 = { 4d 5a 90 00 }
//	    condition:
//	        any of them and extension == ".exe"
//	}
//
// Conditions are terms joined with "and": "any of them", "all of them",
// "N of them", or an external-variable clause (==, !=, contains) over the
// declared schema (filename, filepath, extension, filetype, owner).

type pattern struct {
	id    string
	value []byte
}

type condTermKind int

const (
	condAnyOfThem condTermKind = iota
	condAllOfThem
	condNOfThem
	condVarEquals
	condVarNotEquals
	condVarContains
)

type condTerm struct {
	kind    condTermKind
	n       int
	varName string
	literal string
}

type rule struct {
	name     string
	meta     map[string]string
	patterns []pattern
	cond     []condTerm
}

func (r *rule) eval(hits map[string]bool, vars ExternalVars) bool {
	if len(r.cond) == 0 {
		return false
	}
	for _, term := range r.cond {
		if !r.evalTerm(term, hits, vars) {
			return false
		}
	}
	return true
}

func (r *rule) evalTerm(term condTerm, hits map[string]bool, vars ExternalVars) bool {
	switch term.kind {
	case condAnyOfThem:
		return len(hits) > 0
	case condAllOfThem:
		return len(r.patterns) > 0 && len(hits) == len(r.patterns)
	case condNOfThem:
		return len(hits) >= term.n
	case condVarEquals, condVarNotEquals, condVarContains:
		value, ok := vars.lookup(term.varName)
		if !ok {
			return false
		}
		switch term.kind {
		case condVarEquals:
			return value == term.literal
		case condVarNotEquals:
			return value != term.literal
		default:
			return strings.Contains(value, term.literal)
		}
	}
	return false
}

type parseState int

const (
	stateTop parseState = iota
	stateRule
	stateMeta
	stateStrings
	stateCondition
)

// parseRules compiles a rule source string into its rule list. Any syntax
// error aborts the whole source; per-file tolerance is the caller's job.
func parseRules(source string) ([]rule, error) {
	var rules []rule
	var current *rule
	var condLines []string
	state := stateTop

	lines := strings.Split(source, "\n")
	for i, raw := range lines {
		line := stripComment(raw)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lineNo := i + 1

		switch {
		case state == stateTop:
			name, err := parseRuleHeader(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %v", lineNo, err)
			}
			current = &rule{name: name, meta: map[string]string{}}
			condLines = nil
			state = stateRule

		case line == "}":
			if current == nil {
				return nil, fmt.Errorf("line %d: unexpected '}'", lineNo)
			}
			cond, err := parseCondition(strings.Join(condLines, " "), current)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %v", current.name, err)
			}
			current.cond = cond
			rules = append(rules, *current)
			current = nil
			state = stateTop

		case line == "meta:":
			state = stateMeta
		case line == "strings:":
			state = stateStrings
		case line == "condition:":
			state = stateCondition

		case state == stateMeta:
			key, value, err := parseMetaLine(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %v", lineNo, err)
			}
			current.meta[key] = value

		case state == stateStrings:
			p, err := parseStringLine(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %v", lineNo, err)
			}
			for _, existing := range current.patterns {
				if existing.id == p.id {
					return nil, fmt.Errorf("line %d: duplicate string identifier %s", lineNo, p.id)
				}
			}
			current.patterns = append(current.patterns, p)

		case state == stateCondition:
			condLines = append(condLines, line)

		default:
			return nil, fmt.Errorf("line %d: unexpected content %q", lineNo, line)
		}
	}
	if current != nil {
		return nil, fmt.Errorf("rule %s: missing closing '}'", current.name)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("no rules found in source")
	}
	return rules, nil
}

func stripComment(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		return line[:idx]
	}
	return line
}

func parseRuleHeader(line string) (string, error) {
	if !strings.HasPrefix(line, "rule ") {
		return "", fmt.Errorf("expected rule header, got %q", line)
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, "rule "))
	if !strings.HasSuffix(rest, "{") {
		return "", fmt.Errorf("expected '{' after rule name in %q", line)
	}
	name := strings.TrimSpace(strings.TrimSuffix(rest, "{"))
	if name == "" || strings.ContainsAny(name, " \t") {
		return "", fmt.Errorf("invalid rule name %q", name)
	}
	return name, nil
}

func parseMetaLine(line string) (string, string, error) {
	key, rest, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", fmt.Errorf("invalid meta line %q", line)
	}
	key = strings.TrimSpace(key)
	rest = strings.TrimSpace(rest)
	if key == "" {
		return "", "", fmt.Errorf("empty meta key in %q", line)
	}
	if strings.HasPrefix(rest, "\"") {
		value, err := unquote(rest)
		if err != nil {
			return "", "", fmt.Errorf("invalid meta value in %q: %v", line, err)
		}
		return key, value, nil
	}
	return key, rest, nil
}

func parseStringLine(line string) (pattern, error) {
	if !strings.HasPrefix(line, "$") {
		return pattern{}, fmt.Errorf("string definition must start with '$': %q", line)
	}
	id, rest, ok := strings.Cut(line, "=")
	if !ok {
		return pattern{}, fmt.Errorf("invalid string definition %q", line)
	}
	id = strings.TrimSpace(id)
	rest = strings.TrimSpace(rest)
	switch {
	case strings.HasPrefix(rest, "\""):
		value, err := unquote(rest)
		if err != nil {
			return pattern{}, fmt.Errorf("invalid text string in %q: %v", line, err)
		}
		if value == "" {
			return pattern{}, fmt.Errorf("empty string value in %q", line)
		}
		return pattern{id: id, value: []byte(value)}, nil
	case strings.HasPrefix(rest, "{") && strings.HasSuffix(rest, "}"):
		body := strings.TrimSpace(rest[1 : len(rest)-1])
		raw := strings.ReplaceAll(body, " ", "")
		value, err := hex.DecodeString(raw)
		if err != nil || len(value) == 0 {
			return pattern{}, fmt.Errorf("invalid hex string in %q", line)
		}
		return pattern{id: id, value: value}, nil
	default:
		return pattern{}, fmt.Errorf("unsupported string form %q", line)
	}
}

func parseCondition(text string, r *rule) ([]condTerm, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("missing condition")
	}
	var terms []condTerm
	for _, part := range strings.Split(text, " and ") {
		part = strings.TrimSpace(part)
		term, err := parseCondTerm(part, r)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, nil
}

func parseCondTerm(part string, r *rule) (condTerm, error) {
	switch part {
	case "any of them":
		return condTerm{kind: condAnyOfThem}, nil
	case "all of them":
		return condTerm{kind: condAllOfThem}, nil
	}
	fields := strings.Fields(part)
	if len(fields) == 3 && fields[1] == "of" && fields[2] == "them" {
		n, err := strconv.Atoi(fields[0])
		if err != nil || n <= 0 {
			return condTerm{}, fmt.Errorf("invalid count in condition %q", part)
		}
		if n > len(r.patterns) {
			return condTerm{}, fmt.Errorf("condition %q requires more strings than defined", part)
		}
		return condTerm{kind: condNOfThem, n: n}, nil
	}
	if len(fields) >= 3 {
		varName := fields[0]
		if _, ok := (ExternalVars{}).lookup(varName); !ok {
			return condTerm{}, fmt.Errorf("unknown identifier %q in condition", varName)
		}
		literal, err := unquote(strings.TrimSpace(strings.Join(fields[2:], " ")))
		if err != nil {
			return condTerm{}, fmt.Errorf("invalid literal in condition %q: %v", part, err)
		}
		switch fields[1] {
		case "==":
			return condTerm{kind: condVarEquals, varName: varName, literal: literal}, nil
		case "!=":
			return condTerm{kind: condVarNotEquals, varName: varName, literal: literal}, nil
		case "contains":
			return condTerm{kind: condVarContains, varName: varName, literal: literal}, nil
		}
	}
	return condTerm{}, fmt.Errorf("unsupported condition term %q", part)
}

func unquote(s string) (string, error) {
	if !strings.HasPrefix(s, "\"") || !strings.HasSuffix(s, "\"") || len(s) < 2 {
		return "", fmt.Errorf("expected quoted string, got %q", s)
	}
	value, err := strconv.Unquote(s)
	if err != nil {
		return "", err
	}
	return value, nil
}
