// Package manifest collects logs and per-file actions during a run and
// writes a single manifest JSON file at the end.
//
// Every command reports through one recorder so output stays consistent:
// messages are timestamped and echoed to the console via logrus, actions
// carry a status that is rolled up into summary counts, and dry-run
// suppresses the manifest file itself (the manifest counts as output too).
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Verbosity controls which log levels are echoed to the console. All
// levels are always recorded in the manifest regardless.
type Verbosity string

const (
	Quiet   Verbosity = "quiet"
	Normal  Verbosity = "normal"
	Verbose Verbosity = "verbose"
)

// LogEntry is one recorded log line.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// Action is one recorded per-file action with free-form details.
type Action struct {
	Timestamp string         `json:"timestamp"`
	Action    string         `json:"action"`
	Status    string         `json:"status"`
	Details   map[string]any `json:"details,omitempty"`
}

// Recorder accumulates logs and actions for one run. It is safe for
// concurrent use by pipeline workers.
type Recorder struct {
	Tool      string
	Version   string
	Command   string
	Options   any
	Inputs    map[string]any
	Outputs   map[string]any
	DryRun    bool
	Verbosity Verbosity

	mu        sync.Mutex
	startedAt time.Time
	logs      []LogEntry
	actions   []Action
	logger    *logrus.Logger
}

// NewRecorder creates a recorder that echoes log lines through logger.
// A nil logger suppresses console output but still records entries.
func NewRecorder(tool, version, command string, logger *logrus.Logger) *Recorder {
	return &Recorder{
		Tool:      tool,
		Version:   version,
		Command:   command,
		Inputs:    map[string]any{},
		Outputs:   map[string]any{},
		Verbosity: Normal,
		startedAt: time.Now().UTC(),
		logger:    logger,
	}
}

// SetInput records a named input for the manifest header.
func (r *Recorder) SetInput(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Inputs[key] = value
}

// SetOutput records a named output for the manifest header.
func (r *Recorder) SetOutput(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Outputs[key] = value
}

// Log records a message and echoes it to the console according to the
// verbosity policy: quiet echoes errors only, normal echoes info and
// above, verbose echoes everything.
func (r *Recorder) Log(level logrus.Level, message string) {
	r.mu.Lock()
	r.logs = append(r.logs, LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   message,
	})
	r.mu.Unlock()

	if r.logger == nil {
		return
	}
	switch r.Verbosity {
	case Quiet:
		if level > logrus.ErrorLevel {
			return
		}
	case Verbose:
	default:
		if level > logrus.InfoLevel {
			return
		}
	}
	r.logger.Log(level, message)
}

// Infof, Warnf, and Errorf are convenience wrappers over Log.
func (r *Recorder) Infof(format string, args ...any) {
	r.Log(logrus.InfoLevel, fmt.Sprintf(format, args...))
}

func (r *Recorder) Warnf(format string, args ...any) {
	r.Log(logrus.WarnLevel, fmt.Sprintf(format, args...))
}

func (r *Recorder) Errorf(format string, args ...any) {
	r.Log(logrus.ErrorLevel, fmt.Sprintf(format, args...))
}

// AddAction records one action with its status and details.
func (r *Recorder) AddAction(action, status string, details map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, Action{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Action:    action,
		Status:    status,
		Details:   details,
	})
}

// ActionCounts rolls up recorded actions by status.
func (r *Recorder) ActionCounts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int{}
	for _, a := range r.actions {
		counts[a.Status]++
	}
	return counts
}

// Document is the serialized manifest layout.
type Document struct {
	Tool         string         `json:"tool"`
	Version      string         `json:"version"`
	Command      string         `json:"command"`
	StartedAt    string         `json:"started_at"`
	EndedAt      string         `json:"ended_at"`
	Options      any            `json:"options"`
	Inputs       map[string]any `json:"inputs"`
	Outputs      map[string]any `json:"outputs"`
	Summary      map[string]any `json:"summary"`
	ActionCounts map[string]int `json:"action_counts"`
	Actions      []Action       `json:"actions"`
	Logs         []LogEntry     `json:"logs"`
}

// Build assembles the final manifest structure.
func (r *Recorder) Build(summary map[string]any) Document {
	counts := r.ActionCounts()
	r.mu.Lock()
	defer r.mu.Unlock()
	return Document{
		Tool:         r.Tool,
		Version:      r.Version,
		Command:      r.Command,
		StartedAt:    r.startedAt.Format(time.RFC3339Nano),
		EndedAt:      time.Now().UTC().Format(time.RFC3339Nano),
		Options:      r.Options,
		Inputs:       r.Inputs,
		Outputs:      r.Outputs,
		Summary:      summary,
		ActionCounts: counts,
		Actions:      r.actions,
		Logs:         r.logs,
	}
}

// Write serializes the manifest to path. In dry-run mode the manifest is
// treated as output and is not written.
func (r *Recorder) Write(path string, summary map[string]any) error {
	if r.DryRun {
		r.Infof("[dry-run] would write manifest to %s", path)
		return nil
	}
	doc := r.Build(summary)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
