package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventRun        EventType = "run"
	EventEncoding   EventType = "encoding"
	EventNormalize  EventType = "normalize"
	EventColumn     EventType = "column"
	EventStatistics EventType = "statistics"
	EventCommit     EventType = "commit"
	EventRollback   EventType = "rollback"
	EventVacuum     EventType = "vacuum"
	EventError      EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single event in a migration run
type Event struct {
	Timestamp time.Time         `json:"ts"`
	RunID     string            `json:"run_id"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	Table     string            `json:"table,omitempty"`
	Column    string            `json:"column,omitempty"`
	Rows      int64             `json:"rows"`
	Fallbacks int               `json:"fallbacks,omitempty"`
	Duration  int64             `json:"duration_ms,omitempty"` // in milliseconds
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes a run's events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	runID    string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level.
// Each logger gets a fresh run id stamped on every event it writes.
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	runID := uuid.NewString()
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("migrate-%s-%s.jsonl", timestamp, runID[:8])
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		runID:    runID,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.RunID = l.runID

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogEncoding logs one table's code page pass
func (l *EventLogger) LogEncoding(table string, rows int, fallbacks int, updated int64) error {
	level := LevelDebug
	if fallbacks > 0 {
		level = LevelInfo
	}
	return l.Log(&Event{
		Level:     level,
		Event:     EventEncoding,
		Table:     table,
		Rows:      updated,
		Fallbacks: fallbacks,
		Extra: map[string]string{
			"scanned": fmt.Sprintf("%d", rows),
		},
	})
}

// LogNormalize logs a text cleanup pass
func (l *EventLogger) LogNormalize(table, column, rule string, rows int64) error {
	return l.Log(&Event{
		Level:  LevelInfo,
		Event:  EventNormalize,
		Table:  table,
		Column: column,
		Rows:   rows,
		Extra: map[string]string{
			"rule": rule,
		},
	})
}

// LogColumn logs a schema evolution step
func (l *EventLogger) LogColumn(table, column string, added, recomputed bool, rows int64, duration time.Duration) error {
	level := LevelDebug
	if added || recomputed {
		level = LevelInfo
	}
	return l.Log(&Event{
		Level:    level,
		Event:    EventColumn,
		Table:    table,
		Column:   column,
		Rows:     rows,
		Duration: duration.Milliseconds(),
		Extra: map[string]string{
			"added":      fmt.Sprintf("%t", added),
			"recomputed": fmt.Sprintf("%t", recomputed),
		},
	})
}

// LogStatistics logs the period statistics rebuild
func (l *EventLogger) LogStatistics(songs, periods, leads, orphans int, rows int64) error {
	level := LevelInfo
	if orphans > 0 {
		level = LevelWarning
	}
	return l.Log(&Event{
		Level: level,
		Event: EventStatistics,
		Table: "period_statistics",
		Rows:  rows,
		Extra: map[string]string{
			"songs":   fmt.Sprintf("%d", songs),
			"periods": fmt.Sprintf("%d", periods),
			"leads":   fmt.Sprintf("%d", leads),
			"orphans": fmt.Sprintf("%d", orphans),
		},
	})
}

// LogFinish logs how the run's transaction ended
func (l *EventLogger) LogFinish(event EventType, duration time.Duration, extra map[string]string) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    event,
		Duration: duration.Milliseconds(),
		Extra:    extra,
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, table string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: event,
		Table: table,
		Error: err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// RunID returns the id stamped on this logger's events
func (l *EventLogger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
