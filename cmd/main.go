package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"huntsman/config"
	"huntsman/ioc"
	"huntsman/logger"
	"huntsman/output"
	"huntsman/scanner"
	"huntsman/systeminfo"
	"huntsman/version"
	"huntsman/yarengine"
)

const banner = `
   __ __         __
  / // /_ _____ / /____ __ _  ___ ____
 / _  / // / _ \/ __(_-</  ' \/ _ ` + "`" + `/ _ \
/_//_/\_,_/_//_/\__/___/_/_/_/\_,_/_//_/

  Endpoint IOC and pattern scanner
`

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(banner)
	fmt.Printf("  Version %s\n\n", version.Version)

	logger.Init(cfg.LogLevel)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	logFile := fmt.Sprintf("huntsman_%s.log", hostname)
	if err := logger.AttachFile(logFile); err != nil {
		logger.Warnf("Failed to attach log file %s: %v", logFile, err)
	}

	startTime := time.Now()
	logger.Infof("Starting scan HOSTNAME: %s TIME: %s", hostname, startTime.UTC().Format(time.RFC3339))
	logger.Infof("Active modules FILESCAN: %t PROCCHECK: %t", cfg.ScanFiles, cfg.ScanProcesses)

	if cfg.CollectSystemInfo {
		systeminfo.Collect().Log()
	}

	store, err := ioc.Load(filepath.Join(cfg.SignatureSource, "iocs", "hash-iocs.txt"))
	if err != nil {
		logger.Fatalf("Failed to load hash indicators: %v", err)
	}
	logger.Infof("Loaded hash indicators COUNT: %d", store.Len())

	engine, err := yarengine.CompileDir(filepath.Join(cfg.SignatureSource, "yara"))
	if err != nil {
		logger.Fatalf("Failed to compile pattern rules: %v", err)
	}

	metrics := output.Metrics{
		StartTime: startTime.UTC().Format(time.RFC3339),
	}
	writer, err := output.New(cfg, &metrics)
	if err != nil {
		logger.Fatalf("Failed to initialize output: %v", err)
	}
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if cfg.ScanProcesses {
		if err := scanner.ScanProcesses(ctx, cfg, engine, writer); err != nil && err != context.Canceled {
			logger.Errorf("Process scan failed: %v", err)
		}
	}

	if cfg.ScanFiles {
		if err := scanner.ScanFiles(ctx, cfg, store, engine, writer); err != nil && err != context.Canceled {
			logger.Errorf("File scan failed: %v", err)
		}
	}

	writer.SetEndTime(time.Now())
	m := writer.Metrics()
	logger.Infof("Scan finished FILES_SCANNED: %d FILES_MATCHED: %d PROCS_SCANNED: %d PROCS_MATCHED: %d",
		m.FilesScanned, m.FilesMatched, m.ProcessesScanned, m.ProcessesMatched)
	if m.FilesMatched > 0 || m.ProcessesMatched > 0 {
		logger.Warnf("Suspicious objects found RESULTS: %s", cfg.OutputFileName)
	} else {
		logger.Info("No suspicious objects found. System appears to be clean.")
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Interrupt signal received. Shutting down...")
	cancel()
}
