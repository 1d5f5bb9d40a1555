// Package task defines the unit of work a team's store schedules onto
// agents: a description with interpolated placeholders, an optional
// dependency list, and the feedback history that drives human-in-the-loop
// revision.
package task

import (
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowteam/core/status"
)

// Feedback is a single human-in-the-loop note attached to a task. Entries
// are immutable once appended; only Status transitions, PENDING → PROCESSED.
type Feedback struct {
	Content   string
	Status    status.FeedbackStatus
	Timestamp time.Time
}

// Task is a unit of work owned by a single agent, optionally dependent on
// other tasks by id.
type Task struct {
	mu sync.RWMutex

	ID          string
	Name        string
	ReferenceID string

	Description    string
	ExpectedOutput string

	AgentID string

	DependsOn              []string
	AllowParallelExecution bool
	IsDeliverable          bool
	ExternalValidationReq  bool

	status           status.TaskStatus
	feedbackHistory  []Feedback
	interpolatedDesc string
	hasInterpolated  bool
	result           any
}

// Config is the declarative definition a caller constructs a Task from.
type Config struct {
	Name                       string
	ReferenceID                string
	Description                string
	ExpectedOutput             string
	AgentID                    string
	DependsOn                  []string
	AllowParallelExecution     bool
	IsDeliverable              bool
	ExternalValidationRequired bool
}

func New(cfg Config) *Task {
	return &Task{
		ID:                    uuid.NewString(),
		Name:                  cfg.Name,
		ReferenceID:           cfg.ReferenceID,
		Description:           cfg.Description,
		ExpectedOutput:        cfg.ExpectedOutput,
		AgentID:               cfg.AgentID,
		DependsOn:             append([]string(nil), cfg.DependsOn...),
		AllowParallelExecution: cfg.AllowParallelExecution,
		IsDeliverable:          cfg.IsDeliverable,
		ExternalValidationReq:  cfg.ExternalValidationRequired,
		status:                status.TaskTodo,
	}
}

func (t *Task) Status() status.TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *Task) SetStatus(s status.TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = s
}

func (t *Task) Result() any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.result
}

func (t *Task) SetResult(r any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.result = r
}

// AddFeedback appends a PENDING feedback entry. The caller (store) is
// responsible for forcing the task's status to REVISE alongside this.
func (t *Task) AddFeedback(content string, now time.Time) Feedback {
	t.mu.Lock()
	defer t.mu.Unlock()
	f := Feedback{Content: content, Status: status.FeedbackPending, Timestamp: now}
	t.feedbackHistory = append(t.feedbackHistory, f)
	t.invalidateInterpolation()
	return f
}

// PendingFeedback returns the entries still awaiting consumption.
func (t *Task) PendingFeedback() []Feedback {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var pending []Feedback
	for _, f := range t.feedbackHistory {
		if f.Status == status.FeedbackPending {
			pending = append(pending, f)
		}
	}
	return pending
}

// MarkFeedbackProcessed transitions every currently-PENDING entry to
// PROCESSED. Entries themselves are never mutated in place to preserve the
// "immutable once appended" invariant for Content/Timestamp — transitioning
// Status is the one sanctioned mutation.
func (t *Task) MarkFeedbackProcessed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.feedbackHistory {
		if t.feedbackHistory[i].Status == status.FeedbackPending {
			t.feedbackHistory[i].Status = status.FeedbackProcessed
		}
	}
}

func (t *Task) FeedbackHistory() []Feedback {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Feedback, len(t.feedbackHistory))
	copy(out, t.feedbackHistory)
	return out
}

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// InterpolatedDescription substitutes inputs[name] for every {name}
// placeholder in Description, caching the result until a feedback append
// invalidates it (a revision may reference new placeholder values). A
// placeholder with no matching input is left literal.
func (t *Task) InterpolatedDescription(inputs map[string]string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hasInterpolated {
		return t.interpolatedDesc
	}

	result := placeholderPattern.ReplaceAllStringFunc(t.Description, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := inputs[name]; ok {
			return v
		}
		return match
	})

	t.interpolatedDesc = result
	t.hasInterpolated = true
	return result
}

func (t *Task) invalidateInterpolation() {
	t.hasInterpolated = false
	t.interpolatedDesc = ""
}

// UnresolvedPlaceholders returns every {name} placeholder in the task's
// description that has no matching entry in inputs, so a caller can log a
// warning rather than silently leaving it literal.
func (t *Task) UnresolvedPlaceholders(inputs map[string]string) []string {
	var missing []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(t.Description, -1) {
		if _, ok := inputs[match[1]]; !ok {
			missing = append(missing, match[1])
		}
	}
	return missing
}
