package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"huntsman/config"
)

// SchemaVersion marks the NDJSON record layout.
const SchemaVersion = "1.0"

type Metrics struct {
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	FilesScanned     int    `json:"files_scanned"`
	FilesMatched     int    `json:"files_matched"`
	ProcessesScanned int    `json:"processes_scanned"`
	ProcessesMatched int    `json:"processes_matched"`
}

type record struct {
	RecordType    string      `json:"record_type"`
	SchemaVersion string      `json:"schema_version"`
	Time          string      `json:"time"`
	Payload       interface{} `json:"payload"`
}

// Writer is the thread-safe reporting sink. Findings arrive concurrently
// from the scan workers; one NDJSON line per record, rotated by size.
type Writer struct {
	mu      sync.Mutex
	file    *os.File
	buf     *bufio.Writer
	cfg     *config.Config
	metrics *Metrics
	base    string
	ext     string
	index   int
}

func New(cfg *config.Config, m *Metrics) (*Writer, error) {
	ext := filepath.Ext(cfg.OutputFileName)
	base := strings.TrimSuffix(cfg.OutputFileName, ext)
	w := &Writer{
		cfg:     cfg,
		metrics: m,
		base:    base,
		ext:     ext,
	}
	if err := w.openFile(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) openFile() error {
	name := w.base + w.ext
	if w.index > 0 {
		name = fmt.Sprintf("%s.%d%s", w.base, w.index, w.ext)
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	w.file = f
	w.buf = bufio.NewWriterSize(f, 1024*1024)
	return nil
}

// Write appends one record to the output file.
func (w *Writer) Write(recordType string, payload interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writeLocked(recordType, payload)

	if w.cfg.MaxOutputFileSize > 0 {
		if info, err := w.file.Stat(); err == nil && info.Size() >= w.cfg.MaxOutputFileSize {
			w.rotate()
		}
	}
}

func (w *Writer) writeLocked(recordType string, payload interface{}) {
	bytes, err := json.Marshal(record{
		RecordType:    recordType,
		SchemaVersion: SchemaVersion,
		Time:          time.Now().UTC().Format(time.RFC3339),
		Payload:       payload,
	})
	if err != nil {
		return
	}
	_, _ = w.buf.Write(bytes)
	_, _ = w.buf.WriteString("\n")
	_ = w.buf.Flush()
}

func (w *Writer) CountFileScanned() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.metrics.FilesScanned++
}

func (w *Writer) CountFileMatched() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.metrics.FilesMatched++
}

func (w *Writer) CountProcessScanned() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.metrics.ProcessesScanned++
}

func (w *Writer) CountProcessMatched() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.metrics.ProcessesMatched++
}

// Metrics returns a copy of the current counters.
func (w *Writer) Metrics() Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return *w.metrics
}

func (w *Writer) SetEndTime(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.metrics.EndTime = t.UTC().Format(time.RFC3339)
}

// Close writes the metrics trailer record and closes the file.
func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.metrics.EndTime == "" {
		w.metrics.EndTime = time.Now().UTC().Format(time.RFC3339)
	}
	w.writeLocked("metrics", w.metrics)
	_ = w.buf.Flush()
	_ = w.file.Sync()
	_ = w.file.Close()
}

func (w *Writer) rotate() {
	_ = w.buf.Flush()
	_ = w.file.Close()
	w.index++
	_ = w.openFile()
}
