package scanner

import (
	"errors"
	"testing"
	"time"

	"huntsman/output"
	"huntsman/yarengine"
)

func TestScanProcessMatch(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	engine := &fakeEngine{procMatches: []yarengine.RuleMatch{
		{Rule: "Meterpreter_Loader"},
		{Rule: "CobaltStrike_Beacon"},
	}}
	w, err := output.New(cfg, &output.Metrics{})
	if err != nil {
		t.Fatal(err)
	}

	scanProcess(cfg, 4242, "suspicious", engine, w)
	w.Close()

	findings := readFindings(t, cfg.OutputFileName)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	f := findings[0]
	if f.ProcessID != 4242 || f.ProcessName != "suspicious" {
		t.Fatalf("unexpected process identity %+v", f)
	}
	if f.Score != 150 {
		t.Fatalf("expected score 150 for two rule matches, got %d", f.Score)
	}
	if f.Matches[0].Message != "Pattern match with rule Meterpreter_Loader" {
		t.Fatalf("unexpected message %q", f.Matches[0].Message)
	}
	if f.Sample != nil {
		t.Fatal("process findings must not carry file sample metadata")
	}

	m := w.Metrics()
	if m.ProcessesScanned != 1 || m.ProcessesMatched != 1 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestScanProcessErrorSkips(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	engine := &fakeEngine{procErr: errors.New("permission denied")}
	w, err := output.New(cfg, &output.Metrics{})
	if err != nil {
		t.Fatal(err)
	}

	scanProcess(cfg, 1, "init", engine, w)
	w.Close()

	if findings := readFindings(t, cfg.OutputFileName); len(findings) != 0 {
		t.Fatalf("failed scan must not produce findings, got %+v", findings)
	}
	m := w.Metrics()
	if m.ProcessesScanned != 1 || m.ProcessesMatched != 0 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestScanProcessNoMatches(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	engine := &fakeEngine{}
	w, err := output.New(cfg, &output.Metrics{})
	if err != nil {
		t.Fatal(err)
	}

	scanProcess(cfg, 100, "clean", engine, w)
	w.Close()

	if findings := readFindings(t, cfg.OutputFileName); len(findings) != 0 {
		t.Fatalf("clean process must not produce findings, got %+v", findings)
	}
}

func TestScanProcessTimeoutForwarded(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.ProcessScanTimeout = 7 * time.Second
	engine := &recordingEngine{}
	w, err := output.New(cfg, &output.Metrics{})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	scanProcess(cfg, 100, "clean", engine, w)
	if engine.timeout != 7*time.Second {
		t.Fatalf("expected configured timeout to be forwarded, got %v", engine.timeout)
	}
}

type recordingEngine struct {
	timeout time.Duration
}

func (r *recordingEngine) ScanBytes(data []byte, vars yarengine.ExternalVars, timeout time.Duration) ([]yarengine.RuleMatch, error) {
	r.timeout = timeout
	return nil, nil
}

func (r *recordingEngine) ScanProcess(pid int32, timeout time.Duration) ([]yarengine.RuleMatch, error) {
	r.timeout = timeout
	return nil, nil
}
