package enrich

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultLogPath is where the enrichment history lives unless overridden.
const DefaultLogPath = "data/enrichment_log.json"

// Log remembers which records have already been through location enrichment
// and what deadline each record carried on the previous run. Keys are the
// composite "platform:title" form so they survive re-scrapes with fresh row
// IDs. The file is read whole at startup and written whole at the end of a
// run.
type Log struct {
	EnrichedIDs       map[string]string `json:"enriched_ids"`
	PreviousDeadlines map[string]string `json:"previous_deadlines"`
	LastRun           string            `json:"last_run,omitempty"`

	path string
}

// LoadLog reads the enrichment history from path. A missing file yields an
// empty log; a corrupt file is an error so history is never silently lost.
func LoadLog(path string) (*Log, error) {
	if path == "" {
		path = DefaultLogPath
	}
	log := &Log{
		EnrichedIDs:       map[string]string{},
		PreviousDeadlines: map[string]string{},
		path:              path,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return log, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read enrichment log: %w", err)
	}
	if err := json.Unmarshal(data, log); err != nil {
		return nil, fmt.Errorf("parse enrichment log %s: %w", path, err)
	}
	if log.EnrichedIDs == nil {
		log.EnrichedIDs = map[string]string{}
	}
	if log.PreviousDeadlines == nil {
		log.PreviousDeadlines = map[string]string{}
	}
	return log, nil
}

// Seen reports whether key has already been enriched (or deliberately
// skipped) on a previous run.
func (l *Log) Seen(key string) bool {
	_, ok := l.EnrichedIDs[key]
	return ok
}

// MarkEnriched stamps key with the current time. Rejected and failed
// extractions are stamped too, so a record is never resubmitted.
func (l *Log) MarkEnriched(key string, at time.Time) {
	l.EnrichedIDs[key] = at.Format(time.RFC3339)
}

// RecordDeadline stores the deadline text seen for key on this run, for
// drift detection next time.
func (l *Log) RecordDeadline(key, deadline string) {
	l.PreviousDeadlines[key] = deadline
}

// PreviousDeadline returns the deadline recorded for key on the last run.
func (l *Log) PreviousDeadline(key string) (string, bool) {
	d, ok := l.PreviousDeadlines[key]
	return d, ok
}

// Save writes the whole log back to disk, creating the directory if needed.
func (l *Log) Save(now time.Time) error {
	l.LastRun = now.Format(time.RFC3339)

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encode enrichment log: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("write enrichment log: %w", err)
	}
	return nil
}
