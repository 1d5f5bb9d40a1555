// Package worklog holds the append-only event log for a team's workflow
// run. Entries are immutable once appended; statistics and derived execution
// context are reconstructed by folding over the log rather than cached.
package worklog

import (
	"sync"
	"time"

	"github.com/flowteam/core/status"
)

// AgentSnapshot is a redaction-safe copy of the fields of an agent relevant
// to a log entry, captured at emission time.
type AgentSnapshot struct {
	ID     string
	Name   string
	Status status.AgentStatus
}

// TaskSnapshot is a redaction-safe copy of the fields of a task relevant to
// a log entry, captured at emission time.
type TaskSnapshot struct {
	ID     string
	Name   string
	Status status.TaskStatus
	Result any
}

// Entry is a single immutable workflow log record.
type Entry struct {
	Timestamp   time.Time
	Kind        status.LogKind
	Agent       *AgentSnapshot
	Task        *TaskSnapshot
	Metadata    map[string]any
	Description string
}

// Log is an append-only, monotonically-timestamped sequence of entries.
// It is safe for concurrent use: appends are serialized, and the returned
// slices from All/Since are copies so callers never observe a mutation of
// an entry they already hold.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	last    time.Time
}

// New creates an empty log.
func New() *Log {
	return &Log{}
}

// Append adds an entry, forcing its timestamp to be non-decreasing relative
// to the previous entry (ties are broken by insertion order, which is
// already what slice order gives us).
func (l *Log) Append(e Entry) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.Timestamp.Before(l.last) {
		e.Timestamp = l.last
	}
	l.last = e.Timestamp
	l.entries = append(l.entries, e)
	return e
}

// All returns a copy of every entry recorded so far.
func (l *Log) All() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Since returns a copy of every entry whose timestamp is >= t.
func (l *Log) Since(t time.Time) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if !e.Timestamp.Before(t) {
			out = append(out, e)
		}
	}
	return out
}

// Len reports how many entries have been appended.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// LastRunningSince returns the timestamp of the most recent
// WorkflowStatusUpdate entry carrying status RUNNING, used as the fold
// boundary for GetWorkflowStats. The zero time is returned if none exists.
func (l *Log) LastRunningSince() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	var last time.Time
	for _, e := range l.entries {
		if e.Kind != status.LogWorkflowStatusUpdate {
			continue
		}
		if e.Metadata == nil {
			continue
		}
		if v, ok := e.Metadata["status"].(status.WorkflowStatus); ok && v == status.WorkflowRunning {
			last = e.Timestamp
		}
	}
	return last
}
