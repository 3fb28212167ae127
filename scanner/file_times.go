package scanner

import (
	"time"

	"github.com/djherbis/times"
)

// fileTimes fills the timestamp fields of a sample from the filesystem.
// An error here is an access error: the caller skips the file rather than
// reporting a half-populated sample.
func fileTimes(path string, sample *SampleInfo) error {
	ts, err := times.Stat(path)
	if err != nil {
		return err
	}
	sample.AccessTime = ts.AccessTime().UTC().Format(time.RFC3339)
	sample.ModTime = ts.ModTime().UTC().Format(time.RFC3339)
	if ts.HasChangeTime() {
		sample.ChangeTime = ts.ChangeTime().UTC().Format(time.RFC3339)
	}
	return nil
}
