//go:build linux

package yarengine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// Regions larger than this are truncated; enormous anonymous mappings
	// are usually sparse and dominate scan time otherwise.
	maxRegionBytes = 64 << 20
	memChunkBytes  = 1 << 20
)

type memRegion struct {
	start uint64
	end   uint64
}

// ScanProcess reads the readable memory regions of pid via /proc and runs
// the composite set over them. Opening the memory file requires ptrace
// permission; failures surface as errors for the caller's severity policy.
func (rs *RuleSet) ScanProcess(pid int32, timeout time.Duration) ([]RuleMatch, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	regions, err := readProcessRegions(pid)
	if err != nil {
		return nil, err
	}
	mem, err := os.Open(fmt.Sprintf("/proc/%d/mem", pid))
	if err != nil {
		return nil, err
	}
	defer mem.Close()

	hits := make([]map[string]bool, len(rs.rules))
	overlap := rs.maxPattern - 1
	if overlap < 0 {
		overlap = 0
	}
	buf := make([]byte, memChunkBytes+overlap)

	for _, region := range regions {
		size := region.end - region.start
		if size > maxRegionBytes {
			size = maxRegionBytes
		}
		for offset := uint64(0); offset < size; offset += memChunkBytes {
			if !deadline.IsZero() && time.Now().After(deadline) {
				return nil, fmt.Errorf("process scan timed out after %s", timeout)
			}
			want := size - offset
			if want > memChunkBytes+uint64(overlap) {
				want = memChunkBytes + uint64(overlap)
			}
			n, err := mem.ReadAt(buf[:want], int64(region.start+offset))
			if n > 0 {
				rs.accumulate(buf[:n], hits)
			}
			if err != nil && err != io.EOF {
				// Regions can vanish or refuse reads mid-scan; move on.
				break
			}
		}
	}
	// Process memory carries no file context.
	return rs.evaluate(hits, ExternalVars{}), nil
}

func readProcessRegions(pid int32) ([]memRegion, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var regions []memRegion
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		region, ok := parseMapsLine(sc.Text())
		if ok {
			regions = append(regions, region)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return regions, nil
}

// parseMapsLine extracts a readable region from one /proc/<pid>/maps line,
// e.g. "7f2c00000000-7f2c00021000 rw-p 00000000 00:00 0 [heap]".
func parseMapsLine(line string) (memRegion, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || len(fields[1]) < 1 || fields[1][0] != 'r' {
		return memRegion{}, false
	}
	// The vsyscall page cannot be read through /proc/<pid>/mem.
	if len(fields) >= 6 && fields[5] == "[vsyscall]" {
		return memRegion{}, false
	}
	startStr, endStr, ok := strings.Cut(fields[0], "-")
	if !ok {
		return memRegion{}, false
	}
	start, err1 := strconv.ParseUint(startStr, 16, 64)
	end, err2 := strconv.ParseUint(endStr, 16, 64)
	if err1 != nil || err2 != nil || end <= start {
		return memRegion{}, false
	}
	return memRegion{start: start, end: end}, true
}
