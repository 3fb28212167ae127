package scanner

import (
	"context"
	"fmt"
	"os"

	"huntsman/config"
	"huntsman/logger"
	"huntsman/output"
	"huntsman/yarengine"

	"github.com/shirou/gopsutil/v4/process"
)

// processYaraScore is added per pattern rule match in process memory.
const processYaraScore = 75

// ScanProcesses enumerates running processes and scans the memory of each
// against the pattern engine. The scanner's own process is skipped, and
// unreadable processes are reported and passed over.
func ScanProcesses(ctx context.Context, cfg *config.Config, engine yarengine.Scanner, w *output.Writer) error {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to enumerate processes: %w", err)
	}
	logger.Infof("Scanning running processes COUNT: %d", len(procs))

	self := int32(os.Getpid())
	for _, p := range procs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if p.Pid == self {
			continue
		}
		name, err := p.NameWithContext(ctx)
		if err != nil {
			name = "unknown"
		}
		scanProcess(cfg, p.Pid, name, engine, w)
	}
	return nil
}

// scanProcess runs the pattern engine over one process and emits a finding
// when any rule matched.
func scanProcess(cfg *config.Config, pid int32, name string, engine yarengine.Scanner, w *output.Writer) {
	logger.Tracef("Scanning process PID: %d NAME: %s", pid, name)
	w.CountProcessScanned()

	ruleMatches, err := engine.ScanProcess(pid, cfg.ProcessScanTimeout)
	if err != nil {
		reportAccessError(cfg, "Failed to scan process PID: %d NAME: %s ERROR: %v", pid, name, err)
		return
	}
	if len(ruleMatches) == 0 {
		return
	}

	matches := newMatchList(cfg.MaxMatches)
	for _, rm := range ruleMatches {
		matches.add(fmt.Sprintf("Pattern match with rule %s", rm.Rule), processYaraScore)
	}

	finding := Finding{
		ProcessID:   pid,
		ProcessName: name,
		Score:       matches.total(),
		Matches:     matches.matches,
	}
	logger.Warnf("Suspicious process found PID: %d NAME: %s SCORE: %d", pid, name, finding.Score)
	w.Write("finding", finding)
	w.CountProcessMatched()
}
