// Package audit keeps an append-only history of scans. Records hold counts
// and locations only; matched text is never written.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/redactyl/piiscan/internal/report"
	"github.com/redactyl/piiscan/internal/types"
)

// FileName is the log name used outside a git checkout.
const FileName = ".piiscan_audit.jsonl"

// maxTop bounds the number of finding summaries kept per record.
const maxTop = 10

type ScanRecord struct {
	Timestamp      time.Time        `json:"timestamp"`
	ScanID         string           `json:"scan_id"`
	Root           string           `json:"root"`
	TotalFindings  int              `json:"total_findings"`
	NewFindings    int              `json:"new_findings"`
	BaselinedCount int              `json:"baselined_count"`
	EntityCounts   map[string]int   `json:"entity_counts"`
	LevelCounts    map[string]int   `json:"level_counts"`
	FilesScanned   int              `json:"files_scanned"`
	Duration       string           `json:"duration"`
	BaselineFile   string           `json:"baseline_file,omitempty"`
	TopFindings    []FindingSummary `json:"top_findings,omitempty"`
}

type FindingSummary struct {
	Path       string  `json:"path"`
	Line       int     `json:"line"`
	EntityType string  `json:"entity_type"`
	Score      float64 `json:"score"`
	Recognizer string  `json:"recognizer,omitempty"`
}

type Log struct {
	path string
}

// New returns the log for root. Inside a git checkout the file lives in
// .git so it never shows up as a working tree change.
func New(root string) *Log {
	gitDir := filepath.Join(root, ".git")
	if st, err := os.Stat(gitDir); err == nil && st.IsDir() {
		return &Log{path: filepath.Join(gitDir, "piiscan_audit.jsonl")}
	}
	return &Log{path: filepath.Join(root, FileName)}
}

func (l *Log) Path() string { return l.path }

// History returns all records, newest first. A missing log is empty.
func (l *Log) History() ([]ScanRecord, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var records []ScanRecord
	dec := json.NewDecoder(f)
	for dec.More() {
		var r ScanRecord
		if err := dec.Decode(&r); err != nil {
			break
		}
		records = append(records, r)
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

func (l *Log) Append(r ScanRecord) error {
	if r.ScanID == "" {
		r.ScanID = uuid.NewString()
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(r); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}

// Delete removes the record at index, counted newest first like History.
func (l *Log) Delete(index int) error {
	records, err := l.History()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(records) {
		return fmt.Errorf("invalid index: %d", index)
	}
	records = append(records[:index], records[index+1:]...)

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("rewrite audit log: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for i := len(records) - 1; i >= 0; i-- {
		if err := enc.Encode(records[i]); err != nil {
			return fmt.Errorf("write audit record: %w", err)
		}
	}
	return nil
}

// NewRecord summarizes one scan. newFindings is the subset not covered by
// the baseline.
func NewRecord(root string, all, newFindings []types.FileFinding, filesScanned int, d time.Duration, baselineFile string) ScanRecord {
	r := ScanRecord{
		Timestamp:      time.Now().UTC(),
		Root:           root,
		TotalFindings:  len(all),
		NewFindings:    len(newFindings),
		BaselinedCount: len(all) - len(newFindings),
		EntityCounts:   map[string]int{},
		LevelCounts:    map[string]int{},
		FilesScanned:   filesScanned,
		Duration:       d.String(),
		BaselineFile:   baselineFile,
	}
	for _, f := range all {
		r.EntityCounts[f.EntityType]++
		r.LevelCounts[report.Level(f.Score)]++
	}

	top := append([]types.FileFinding(nil), newFindings...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Score > top[j].Score })
	if len(top) > maxTop {
		top = top[:maxTop]
	}
	for _, f := range top {
		r.TopFindings = append(r.TopFindings, FindingSummary{
			Path:       f.Path,
			Line:       f.Line,
			EntityType: f.EntityType,
			Score:      f.Score,
			Recognizer: f.Recognizer,
		})
	}
	return r
}
