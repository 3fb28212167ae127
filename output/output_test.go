package output

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"huntsman/config"
	"huntsman/logger"
)

func init() {
	logger.Init("error")
}

type testRecord struct {
	RecordType    string          `json:"record_type"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

func readRecords(t *testing.T, path string) []testRecord {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	var records []testRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r testRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("invalid NDJSON line %q: %v", sc.Text(), err)
		}
		records = append(records, r)
	}
	return records
}

func TestWriterLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ndjson")
	cfg := &config.Config{OutputFileName: path}
	metrics := &Metrics{StartTime: time.Now().UTC().Format(time.RFC3339)}
	w, err := New(cfg, metrics)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	w.Write("finding", map[string]interface{}{"path": "/tmp/evil"})
	w.CountFileScanned()
	w.CountFileMatched()
	w.Close()

	records := readRecords(t, path)
	if len(records) != 2 {
		t.Fatalf("expected finding and metrics records, got %d", len(records))
	}
	if records[0].RecordType != "finding" || records[1].RecordType != "metrics" {
		t.Fatalf("unexpected record types: %+v", records)
	}
	if records[0].SchemaVersion != SchemaVersion {
		t.Fatalf("unexpected schema version: %s", records[0].SchemaVersion)
	}

	var m Metrics
	if err := json.Unmarshal(records[1].Payload, &m); err != nil {
		t.Fatalf("metrics payload: %v", err)
	}
	if m.FilesScanned != 1 || m.FilesMatched != 1 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
	if m.EndTime == "" {
		t.Fatal("end time should be set on close")
	}
}

func TestWriterConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ndjson")
	cfg := &config.Config{OutputFileName: path}
	w, err := New(cfg, &Metrics{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			w.Write("finding", map[string]interface{}{"n": n})
			w.CountFileScanned()
		}(i)
	}
	wg.Wait()
	w.Close()

	records := readRecords(t, path)
	if len(records) != 17 {
		t.Fatalf("expected 16 findings plus metrics, got %d", len(records))
	}
	if w.Metrics().FilesScanned != 16 {
		t.Fatalf("unexpected scan count: %d", w.Metrics().FilesScanned)
	}
}

func TestWriterRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.ndjson")
	cfg := &config.Config{OutputFileName: path, MaxOutputFileSize: 64}
	w, err := New(cfg, &Metrics{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 0; i < 4; i++ {
		w.Write("finding", map[string]interface{}{"payload": "some finding body long enough to rotate"})
	}
	w.Close()

	if _, err := os.Stat(filepath.Join(dir, "out.1.ndjson")); err != nil {
		t.Fatalf("expected rotated output file: %v", err)
	}
}
