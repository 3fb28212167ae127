package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"huntsman/config"
	"huntsman/hasher"
	"huntsman/ioc"
	"huntsman/logger"
	"huntsman/output"
	"huntsman/utils"
	"huntsman/yarengine"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"
)

// fileYaraScore is added per pattern rule match on file content.
const fileYaraScore = 60

type fileScanTask struct {
	path string
	info os.FileInfo
}

// ScanFiles walks every start path, feeds admitted files into a worker pool
// and writes a finding for each file with at least one hash or pattern match.
func ScanFiles(ctx context.Context, cfg *config.Config, store *ioc.Store, engine yarengine.Scanner, w *output.Writer) error {
	adjustConcurrency(cfg)

	matcher := utils.NewPatternMatcher(cfg.IncludePatterns, cfg.ExcludePatterns)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Scanning files"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetVisibility(progressVisible()),
		progressbar.OptionFullWidth(),
	)

	var ioLimiter *rate.Limiter
	if cfg.MaxIOPerSecond > 0 {
		ioLimiter = rate.NewLimiter(rate.Limit(cfg.MaxIOPerSecond), cfg.MaxIOPerSecond)
	}

	filesChan := make(chan fileScanTask, cfg.ConcurrencyLevel)

	go func() {
		defer close(filesChan)
		for _, startPath := range cfg.StartPaths {
			logger.Infof("Scanning path PATH: %s", startPath)
			err := walkDir(ctx, startPath, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					reportAccessError(cfg, "Failed to access %s: %v", path, err)
					return nil
				}
				if d == nil {
					return nil
				}
				if d.IsDir() {
					if utils.SkipDir(path) {
						logger.Tracef("Skipping pseudo filesystem DIR: %s", path)
						return fs.SkipDir
					}
					return nil
				}
				if !matcher.ShouldInclude(path) {
					return nil
				}
				info, err := d.Info()
				if err != nil {
					reportAccessError(cfg, "Failed to stat %s: %v", path, err)
					return nil
				}
				if !info.Mode().IsRegular() {
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case filesChan <- fileScanTask{path: path, info: info}:
					if ioLimiter != nil {
						if err := ioLimiter.Wait(ctx); err != nil {
							return err
						}
					}
				}
				return nil
			})
			if err != nil && err != context.Canceled {
				logger.Warnf("Error walking path %s: %v", startPath, err)
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < cfg.ConcurrencyLevel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range filesChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				scanFile(cfg, task.path, task.info, store, engine, w)
				_ = bar.Add(1)
			}
		}()
	}

	wg.Wait()
	_ = bar.Finish()
	return ctx.Err()
}

// scanFile runs the per-file pipeline: size gate, type admission, metadata,
// hashing, hash IOC lookup and pattern scan, then emits a finding when
// anything matched.
func scanFile(cfg *config.Config, path string, info os.FileInfo, store *ioc.Store, engine yarengine.Scanner, w *output.Writer) {
	if cfg.MaxFileSize > 0 && sizeOnDisk(path, info) > cfg.MaxFileSize {
		logger.Tracef("Skipping oversized file FILE: %s SIZE: %d", path, info.Size())
		return
	}

	sniffed := sniffType(path)
	if !admit(path, sniffed, cfg.ScanAllTypes) {
		logger.Tracef("Skipping irrelevant file FILE: %s TYPE: %s", path, sniffed)
		return
	}

	w.CountFileScanned()

	sample := &SampleInfo{}
	if err := fileTimes(path, sample); err != nil {
		reportAccessError(cfg, "Failed to read timestamps FILE: %s ERROR: %v", path, err)
		return
	}

	var digests hasher.Digests
	content, err := readFileContent(path)
	if err != nil {
		// Mapping can fail where plain reads still work; fall back to the
		// streaming hash path. Pattern matching needs the content in memory,
		// so only the hash indicators are checked for such files.
		logger.Debugf("Mapped read failed, using streaming hashes FILE: %s ERROR: %v", path, err)
		digests, err = hasher.SumFile(path)
		if err != nil {
			reportAccessError(cfg, "Failed to read file FILE: %s ERROR: %v", path, err)
			return
		}
	} else {
		digests = hasher.Sum(content)
	}
	sample.MD5 = digests.MD5
	sample.SHA1 = digests.SHA1
	sample.SHA256 = digests.SHA256

	matches := newMatchList(cfg.MaxMatches)
	for _, pair := range []struct {
		t ioc.HashType
		v string
	}{
		{ioc.MD5, digests.MD5},
		{ioc.SHA1, digests.SHA1},
		{ioc.SHA256, digests.SHA256},
	} {
		for _, ind := range store.Find(pair.t, pair.v) {
			matches.add(fmt.Sprintf("Hash match with IOC HASH: %s DESC: %s", ind.Value, ind.Description), ind.Score)
		}
	}

	if content != nil {
		vars := yarengine.ExternalVars{
			Filename:  filepath.Base(path),
			Filepath:  filepath.Dir(path),
			Extension: strings.ToLower(filepath.Ext(path)),
			Filetype:  strings.ToUpper(sniffed),
		}
		ruleMatches, err := engine.ScanBytes(content, vars, cfg.FileScanTimeout)
		if err != nil {
			reportAccessError(cfg, "Pattern scan failed FILE: %s ERROR: %v", path, err)
		}
		for _, rm := range ruleMatches {
			matches.add(fmt.Sprintf("Pattern match with rule %s", rm.Rule), fileYaraScore)
		}
	}

	if matches.empty() {
		return
	}

	finding := Finding{
		FilePath: path,
		Score:    matches.total(),
		Matches:  matches.matches,
		Sample:   sample,
	}
	logger.Warnf("Suspicious file found FILE: %s SCORE: %d MATCHES: %d", path, finding.Score, len(finding.Matches))
	w.Write("finding", finding)
	w.CountFileMatched()
}

// adjustConcurrency derives the worker count from the nice level unless the
// operator pinned it explicitly.
func adjustConcurrency(cfg *config.Config) {
	if cfg.ConcurrencySet {
		return
	}
	numCPU := runtime.NumCPU()
	switch cfg.NiceLevel {
	case "high":
		cfg.ConcurrencyLevel = numCPU
	case "medium":
		cfg.ConcurrencyLevel = numCPU / 2
		if cfg.ConcurrencyLevel < 1 {
			cfg.ConcurrencyLevel = 1
		}
	case "low":
		cfg.ConcurrencyLevel = 1
	}
}

func progressVisible() bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv("HUNTSMAN_DISABLE_PROGRESS")))
	return value != "1" && value != "true" && value != "yes" && value != "on"
}
