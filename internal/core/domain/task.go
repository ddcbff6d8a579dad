package domain

import (
	"strings"
	"time"
)

// TaskState is the lifecycle state of one upstream extraction job.
type TaskState string

const (
	TaskSubmitted TaskState = "SUBMITTED"
	TaskRunning   TaskState = "RUNNING"
	TaskSucceeded TaskState = "SUCCEEDED"
	TaskFailed    TaskState = "FAILED"
	// TaskTimedOut is a local judgment: the wait budget ran out before a
	// terminal state was observed. The upstream job may still finish later.
	TaskTimedOut TaskState = "TIMED_OUT"
)

// Terminal reports whether the upstream job has finished. TIMED_OUT is not
// terminal upstream; a later status call can still observe SUCCEEDED/FAILED.
func (s TaskState) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// Rank orders states for the monotonicity guarantee:
// SUBMITTED < RUNNING < {SUCCEEDED, FAILED}.
func (s TaskState) Rank() int {
	switch s {
	case TaskSubmitted:
		return 0
	case TaskRunning:
		return 1
	case TaskSucceeded, TaskFailed:
		return 2
	default:
		return 0
	}
}

// ParseTaskState maps the upstream's free-form status strings onto the state
// enum. Unknown strings are treated as RUNNING: the upstream acknowledged the
// task but we cannot tell more.
func ParseTaskState(raw string) TaskState {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "queued", "submitted", "created", "waiting":
		return TaskSubmitted
	case "running", "processing", "in_progress", "collecting":
		return TaskRunning
	case "ready", "success", "succeeded", "finished", "done", "task succeeded":
		return TaskSucceeded
	case "failed", "failure", "error", "task failed":
		return TaskFailed
	default:
		return TaskRunning
	}
}

// Task is one submitted upstream extraction job, owned by the lifecycle
// manager for the duration of a wait/poll cycle. Never persisted.
type Task struct {
	ID          string
	ToolKey     string
	Params      map[string]any
	State       TaskState
	SubmittedAt time.Time
	ResultRef   string
}
