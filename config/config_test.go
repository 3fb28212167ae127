package config

import (
	"os"
	"testing"
	"time"
)

func TestParseCommaSeparated(t *testing.T) {
	res := parseCommaSeparated("a,b , c")
	if len(res) != 3 || res[1] != "b" {
		t.Fatalf("unexpected result: %v", res)
	}
	if res := parseCommaSeparated(""); len(res) != 0 {
		t.Fatalf("expected empty slice")
	}
}

func TestLoadFromFile(t *testing.T) {
	tmp, err := os.CreateTemp("", "cfg*.json")
	if err != nil {
		t.Fatalf("temp: %v", err)
	}
	tmp.WriteString(`{"start_paths":["/tmp"],"scan_files":false,"max_matches":10,"concurrency_level":2}`)
	tmp.Close()
	defer os.Remove(tmp.Name())

	cfg := &Config{}
	if err := cfg.loadFromFile(tmp.Name()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StartPaths[0] != "/tmp" || cfg.ScanFiles {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.MaxMatches != 10 {
		t.Fatalf("expected max matches 10, got %d", cfg.MaxMatches)
	}
	if !cfg.ConcurrencySet {
		t.Fatal("concurrency_level in file should mark ConcurrencySet")
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmp, _ := os.CreateTemp("", "cfg*.json")
	tmp.WriteString("not json")
	tmp.Close()
	defer os.Remove(tmp.Name())
	cfg := &Config{}
	if err := cfg.loadFromFile(tmp.Name()); err == nil {
		t.Fatal("expected error for invalid config file")
	}
}

func validConfig() *Config {
	return &Config{
		StartPaths:         []string{"/"},
		ScanFiles:          true,
		ScanProcesses:      true,
		SignatureSource:    "./signatures",
		MaxFileSize:        10_000_000,
		MaxMatches:         100,
		FileScanTimeout:    10 * time.Second,
		ProcessScanTimeout: 30 * time.Second,
		ConcurrencyLevel:   2,
		NiceLevel:          "medium",
		LogLevel:           "info",
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg := validConfig()
	cfg.ScanFiles = false
	cfg.ScanProcesses = false
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error when all modules disabled")
	}

	cfg = validConfig()
	cfg.StartPaths = nil
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for missing start paths")
	}

	cfg = validConfig()
	cfg.MaxFileSize = 0
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for zero max file size")
	}

	cfg = validConfig()
	cfg.MaxMatches = 0
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for zero match cap")
	}

	cfg = validConfig()
	cfg.ConcurrencyLevel = 0
	if err := cfg.validate(); err == nil {
		t.Fatal("expected invalid concurrency")
	}

	cfg = validConfig()
	cfg.NiceLevel = "bad"
	if err := cfg.validate(); err == nil {
		t.Fatal("expected invalid nice level")
	}

	cfg = validConfig()
	cfg.LogLevel = "loud"
	if err := cfg.validate(); err == nil {
		t.Fatal("expected invalid log level")
	}
}

func TestDefaultScanRoot(t *testing.T) {
	root := DefaultScanRoot()
	if root != "/" && root != `C:\` {
		t.Fatalf("unexpected default root: %s", root)
	}
}
