package yarengine

import (
	"strings"
	"testing"

	"huntsman/logger"
)

func init() {
	logger.Init("error")
}

const sampleRule = `
rule Mimikatz_Strings {
    meta:
        description = "Credential dumping tool"
    strings:
        $s1 = "sekurlsa::logonpasswords"
        $s2 = "privilege::debug"
    condition:
        any of them
}
`

func TestParseRules(t *testing.T) {
	rules, err := parseRules(sampleRule)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	r := rules[0]
	if r.name != "Mimikatz_Strings" {
		t.Fatalf("unexpected name: %s", r.name)
	}
	if r.meta["description"] != "Credential dumping tool" {
		t.Fatalf("unexpected meta: %v", r.meta)
	}
	if len(r.patterns) != 2 {
		t.Fatalf("expected 2 strings, got %d", len(r.patterns))
	}
	if len(r.cond) != 1 || r.cond[0].kind != condAnyOfThem {
		t.Fatalf("unexpected condition: %+v", r.cond)
	}
}

func TestParseHexString(t *testing.T) {
	source := `
rule MZ_Header {
    strings:
        $mz = { 4d 5a 90 00 }
    condition:
        all of them
}
`
	rules, err := parseRules(source)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []byte{0x4d, 0x5a, 0x90, 0x00}
	if string(rules[0].patterns[0].value) != string(want) {
		t.Fatalf("unexpected hex value: %v", rules[0].patterns[0].value)
	}
}

func TestParseExternalVarCondition(t *testing.T) {
	source := `
rule Webshell_ASPX {
    strings:
        $a = "eval(Request"
    condition:
        any of them and extension == ".aspx"
}
`
	rules, err := parseRules(source)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r := rules[0]
	if len(r.cond) != 2 {
		t.Fatalf("expected 2 terms, got %d", len(r.cond))
	}
	hits := map[string]bool{"$a": true}
	if !r.eval(hits, ExternalVars{Extension: ".aspx"}) {
		t.Fatal("expected match with .aspx extension")
	}
	if r.eval(hits, ExternalVars{Extension: ".txt"}) {
		t.Fatal("expected no match with .txt extension")
	}
	if r.eval(nil, ExternalVars{Extension: ".aspx"}) {
		t.Fatal("expected no match without string hits")
	}
}

func TestParseRejectsUnknownIdentifier(t *testing.T) {
	source := `
rule Bad {
    strings:
        $a = "x"
    condition:
        hostname == "web01"
}
`
	if _, err := parseRules(source); err == nil {
		t.Fatal("expected error for identifier outside the external schema")
	}
}

func TestParseRejectsMalformedSources(t *testing.T) {
	bad := []string{
		"not a rule at all",
		"rule Broken {\n strings:\n $a = \"x\"\n",                  // missing brace and condition
		"rule NoCond {\n strings:\n $a = \"x\"\n condition:\n}\n",  // empty condition
		"rule BadHex {\n strings:\n $a = { zz }\n condition:\n any of them\n}\n",
		"rule Dup {\n strings:\n $a = \"x\"\n $a = \"y\"\n condition:\n any of them\n}\n",
	}
	for _, source := range bad {
		if _, err := parseRules(source); err == nil {
			t.Errorf("expected parse error for %q", source)
		}
	}
}

func TestEvalNOfThem(t *testing.T) {
	source := `
rule TwoOfThree {
    strings:
        $a = "alpha"
        $b = "beta"
        $c = "gamma"
    condition:
        2 of them
}
`
	rules, err := parseRules(source)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r := rules[0]
	if r.eval(map[string]bool{"$a": true}, ExternalVars{}) {
		t.Fatal("one hit should not satisfy 2 of them")
	}
	if !r.eval(map[string]bool{"$a": true, "$c": true}, ExternalVars{}) {
		t.Fatal("two hits should satisfy 2 of them")
	}
}

func TestCommentsStripped(t *testing.T) {
	source := strings.ReplaceAll(sampleRule, "any of them", "any of them // inline note")
	if _, err := parseRules(source); err != nil {
		t.Fatalf("parse with comment: %v", err)
	}
}
