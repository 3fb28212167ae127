//go:build !linux

package yarengine

import (
	"fmt"
	"runtime"
	"time"
)

// ScanProcess is only implemented on Linux. The orchestrator treats the
// error like any other per-process access failure.
func (rs *RuleSet) ScanProcess(pid int32, timeout time.Duration) ([]RuleMatch, error) {
	return nil, fmt.Errorf("process memory scanning is not supported on %s", runtime.GOOS)
}
