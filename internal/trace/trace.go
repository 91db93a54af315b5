// Package trace records correlation-keyed diagnostic events emitted while
// analyzing a request. Sinks are a side channel: their failures never change
// analysis results.
package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sink receives trace events.
type Sink interface {
	Record(ctx context.Context, correlationID, payload string) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(context.Context, string, string) error { return nil }

// Logger writes events to a slog logger at Info.
type Logger struct {
	Log *slog.Logger
}

func (l Logger) Record(ctx context.Context, correlationID, payload string) error {
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	log.InfoContext(ctx, "trace", "correlation_id", correlationID, "payload", payload)
	return nil
}

// Event is one line of a JSONL trace file.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
	Payload       string    `json:"payload"`
}

// JSONL appends events to a file, one JSON object per line.
type JSONL struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewJSONL returns a sink writing to path. Parent directories are created on
// first write.
func NewJSONL(path string) *JSONL {
	return &JSONL{path: path, now: time.Now}
}

// Path returns the file the sink writes to.
func (j *JSONL) Path() string { return j.path }

func (j *JSONL) Record(_ context.Context, correlationID, payload string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if dir := filepath.Dir(j.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create trace dir: %w", err)
		}
	}
	// Owner-only: payloads may contain the analyzed text.
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open trace log: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(Event{Timestamp: j.now().UTC(), CorrelationID: correlationID, Payload: payload}); err != nil {
		return fmt.Errorf("failed to write trace event: %w", err)
	}
	return nil
}

// History returns recorded events, newest first. Malformed lines are skipped.
func (j *JSONL) History() ([]Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	f, err := os.Open(j.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace log: %w", err)
	}
	defer f.Close()

	var events []Event
	decoder := json.NewDecoder(f)
	for decoder.More() {
		var ev Event
		if err := decoder.Decode(&ev); err != nil {
			break
		}
		events = append(events, ev)
	}
	for i, k := 0, len(events)-1; i < k; i, k = i+1, k-1 {
		events[i], events[k] = events[k], events[i]
	}
	return events, nil
}

// Memory keeps events in memory.
type Memory struct {
	mu     sync.Mutex
	events []Event
	Err    error // returned from Record when set
}

func (m *Memory) Record(_ context.Context, correlationID, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, Event{Timestamp: time.Now().UTC(), CorrelationID: correlationID, Payload: payload})
	return nil
}

// Events returns a copy of the recorded events in arrival order.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Multi fans an event out to several sinks and returns the first error.
type Multi []Sink

func (ms Multi) Record(ctx context.Context, correlationID, payload string) error {
	var first error
	for _, s := range ms {
		if err := s.Record(ctx, correlationID, payload); err != nil && first == nil {
			first = err
		}
	}
	return first
}
