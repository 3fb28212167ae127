package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"huntsman/version"
)

type Config struct {
	StartPaths         []string      `json:"start_paths"`
	ScanFiles          bool          `json:"scan_files"`
	ScanProcesses      bool          `json:"scan_processes"`
	CollectSystemInfo  bool          `json:"collect_system_info"`
	SignatureSource    string        `json:"signature_source"`
	MaxFileSize        int64         `json:"max_file_size"`
	ShowAccessErrors   bool          `json:"show_access_errors"`
	ScanAllTypes       bool          `json:"scan_all_types"`
	MaxMatches         int           `json:"max_matches"`
	FileScanTimeout    time.Duration `json:"file_scan_timeout"`
	ProcessScanTimeout time.Duration `json:"process_scan_timeout"`
	ConcurrencyLevel   int           `json:"concurrency_level"`
	NiceLevel          string        `json:"nice_level"`
	IncludePatterns    []string      `json:"include_patterns"`
	ExcludePatterns    []string      `json:"exclude_patterns"`
	MaxIOPerSecond     int           `json:"max_io_per_second"`
	OutputFileName     string        `json:"output_file_name"`
	MaxOutputFileSize  int64         `json:"max_output_file_size"`
	LogLevel           string        `json:"log_level"`
	ConfigFile         string        `json:"config_file"`
	ConcurrencySet     bool          `json:"-"`
}

// DefaultScanRoot is the platform filesystem root used when no path is given.
func DefaultScanRoot() string {
	if runtime.GOOS == "windows" {
		return `C:\`
	}
	return "/"
}

func LoadConfig() (*Config, error) {
	now := time.Now().UTC()
	timestamp := now.Format("20060102-150405")
	cfg := &Config{
		StartPaths:         []string{DefaultScanRoot()},
		ScanFiles:          true,
		ScanProcesses:      true,
		CollectSystemInfo:  true,
		SignatureSource:    "./signatures",
		MaxFileSize:        10_000_000,
		MaxMatches:         100,
		FileScanTimeout:    10 * time.Second,
		ProcessScanTimeout: 30 * time.Second,
		ConcurrencyLevel:   runtime.NumCPU(),
		NiceLevel:          "medium",
		IncludePatterns:    []string{},
		ExcludePatterns:    []string{},
		MaxIOPerSecond:     0,
		OutputFileName:     fmt.Sprintf("huntsman-%s.ndjson", timestamp),
		MaxOutputFileSize:  104857600,
		LogLevel:           "info",
	}

	startPath := flag.String("path", strings.Join(cfg.StartPaths, ","), fmt.Sprintf("Comma-separated list of start paths to scan (default: %s).", strings.Join(cfg.StartPaths, ",")))
	scanFiles := flag.Bool("scan-files", cfg.ScanFiles, fmt.Sprintf("Enable file system scanning (default: %t).", cfg.ScanFiles))
	scanProcesses := flag.Bool("scan-processes", cfg.ScanProcesses, fmt.Sprintf("Enable process memory scanning (default: %t).", cfg.ScanProcesses))
	collectSystemInfo := flag.Bool("collect-system-info", cfg.CollectSystemInfo, fmt.Sprintf("Log host environment information at startup (default: %t).", cfg.CollectSystemInfo))
	signatureSource := flag.String("signature-source", cfg.SignatureSource, fmt.Sprintf("Directory holding iocs/ and yara/ signature sets (default: %s).", cfg.SignatureSource))
	maxFileSize := flag.Int64("max-file-size", cfg.MaxFileSize, fmt.Sprintf("Maximum file size to scan in bytes (default: %d).", cfg.MaxFileSize))
	showAccessErrors := flag.Bool("show-access-errors", cfg.ShowAccessErrors, "Show all file and process access errors at error level (default: false).")
	scanAllTypes := flag.Bool("scan-all-types", cfg.ScanAllTypes, "Scan all files regardless of their file type / extension (default: false).")
	maxMatches := flag.Int("max-matches", cfg.MaxMatches, fmt.Sprintf("Maximum matches retained per scanned item (default: %d).", cfg.MaxMatches))
	fileScanTimeout := flag.Duration("file-scan-timeout", cfg.FileScanTimeout, "Per-file pattern engine timeout (default: 10s).")
	processScanTimeout := flag.Duration("process-scan-timeout", cfg.ProcessScanTimeout, "Per-process pattern engine timeout (default: 30s).")
	concurrency := flag.Int("concurrency", cfg.ConcurrencyLevel, fmt.Sprintf("Concurrency level (default: %d).", cfg.ConcurrencyLevel))
	nice := flag.String("nice", cfg.NiceLevel, fmt.Sprintf("Nice level: high, medium, or low (default: %s).", cfg.NiceLevel))
	includes := flag.String("include", "", "Comma-separated list of include patterns (default: none).")
	excludes := flag.String("exclude", "", "Comma-separated list of exclude patterns (default: none).")
	maxIO := flag.Int("max-io-per-second", cfg.MaxIOPerSecond, "Maximum disk I/O operations per second, 0 for unlimited (default: 0).")
	output := flag.String("output", cfg.OutputFileName, "Findings output file name (default: huntsman-<timestamp>.ndjson).")
	maxOutputFileSize := flag.Int64("max-output-file-size", cfg.MaxOutputFileSize, fmt.Sprintf("Maximum output file size before rotation in bytes (default: %d).", cfg.MaxOutputFileSize))
	logLevel := flag.String("log-level", cfg.LogLevel, fmt.Sprintf("Log level: trace, debug, info, warn, error, or fatal (default: %s).", cfg.LogLevel))
	debug := flag.Bool("debug", false, "Show debugging information (default: false).")
	trace := flag.Bool("trace", false, "Show very verbose trace output (default: false).")
	configFile := flag.String("config", "", "Path to JSON configuration file (default: none).")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = displayHelp
	flag.Parse()

	if *showVersion {
		fmt.Printf("Huntsman version %s\n", version.Version)
		os.Exit(0)
	}

	if *configFile != "" {
		cfg.ConfigFile = *configFile
		if err := cfg.loadFromFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "path":
			cfg.StartPaths = parseCommaSeparated(*startPath)
		case "scan-files":
			cfg.ScanFiles = *scanFiles
		case "scan-processes":
			cfg.ScanProcesses = *scanProcesses
		case "collect-system-info":
			cfg.CollectSystemInfo = *collectSystemInfo
		case "signature-source":
			cfg.SignatureSource = *signatureSource
		case "max-file-size":
			cfg.MaxFileSize = *maxFileSize
		case "show-access-errors":
			cfg.ShowAccessErrors = *showAccessErrors
		case "scan-all-types":
			cfg.ScanAllTypes = *scanAllTypes
		case "max-matches":
			cfg.MaxMatches = *maxMatches
		case "file-scan-timeout":
			cfg.FileScanTimeout = *fileScanTimeout
		case "process-scan-timeout":
			cfg.ProcessScanTimeout = *processScanTimeout
		case "concurrency":
			cfg.ConcurrencyLevel = *concurrency
			cfg.ConcurrencySet = true
		case "nice":
			cfg.NiceLevel = *nice
		case "include":
			cfg.IncludePatterns = parseCommaSeparated(*includes)
		case "exclude":
			cfg.ExcludePatterns = parseCommaSeparated(*excludes)
		case "max-io-per-second":
			cfg.MaxIOPerSecond = *maxIO
		case "output":
			cfg.OutputFileName = *output
		case "max-output-file-size":
			cfg.MaxOutputFileSize = *maxOutputFileSize
		case "log-level":
			cfg.LogLevel = strings.ToLower(*logLevel)
		}
	})

	if *debug {
		cfg.LogLevel = "debug"
	}
	if *trace {
		cfg.LogLevel = "trace"
	}
	if len(cfg.StartPaths) == 0 {
		cfg.StartPaths = []string{DefaultScanRoot()}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func displayHelp() {
	fmt.Println("Huntsman - IOC and YARA-style Endpoint Scanner")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  huntsman [options]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  huntsman --path \"/tmp\"")
	fmt.Println("  huntsman --path \"/home,/var\" --scan-processes=false")
	fmt.Println("  huntsman --scan-all-types --show-access-errors --debug")
}

func (cfg *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid config file format: %v", err)
	}
	if _, ok := raw["concurrency_level"]; ok {
		cfg.ConcurrencySet = true
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid config file format: %v", err)
	}
	return nil
}

func (cfg *Config) validate() error {
	if !cfg.ScanFiles && !cfg.ScanProcesses {
		return fmt.Errorf("at least one of --scan-files or --scan-processes must be enabled")
	}
	if cfg.ScanFiles && len(cfg.StartPaths) == 0 {
		return fmt.Errorf("at least one start path must be specified for file scanning")
	}
	if strings.TrimSpace(cfg.SignatureSource) == "" {
		return fmt.Errorf("signature source directory must be specified")
	}
	if cfg.MaxFileSize <= 0 {
		return fmt.Errorf("max-file-size must be positive")
	}
	if cfg.MaxMatches <= 0 {
		return fmt.Errorf("max-matches must be positive")
	}
	if cfg.FileScanTimeout < 0 || cfg.ProcessScanTimeout < 0 {
		return fmt.Errorf("scan timeouts must be zero or positive")
	}
	if cfg.MaxIOPerSecond < 0 {
		return fmt.Errorf("max-io-per-second must be zero or positive")
	}
	if cfg.ConcurrencyLevel <= 0 {
		return fmt.Errorf("concurrency level must be positive")
	}
	if cfg.NiceLevel != "high" && cfg.NiceLevel != "medium" && cfg.NiceLevel != "low" {
		return fmt.Errorf("invalid nice level: %s", cfg.NiceLevel)
	}
	if cfg.LogLevel != "trace" && cfg.LogLevel != "debug" && cfg.LogLevel != "info" &&
		cfg.LogLevel != "warn" && cfg.LogLevel != "error" && cfg.LogLevel != "fatal" {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if cfg.MaxOutputFileSize < 0 {
		return fmt.Errorf("max-output-file-size must be zero or positive")
	}
	return nil
}

func parseCommaSeparated(input string) []string {
	if input == "" {
		return []string{}
	}
	items := strings.Split(input, ",")
	for i, item := range items {
		items[i] = strings.TrimSpace(item)
	}
	return items
}
