package automation

import (
	"time"

	"github.com/jonathan/apply-autopilot/internal/types"
)

// Status is the lifecycle of a task.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// PlatformStatus is the lifecycle of one platform within a task.
type PlatformStatus string

const (
	PlatformPending   PlatformStatus = "pending"
	PlatformCompleted PlatformStatus = "completed"
	PlatformFailed    PlatformStatus = "failed"
	// PlatformError means the worker could not run at all, e.g. the browser
	// failed to launch or the worker panicked.
	PlatformError PlatformStatus = "error"
)

// Terminal reports whether no further updates will happen.
func (s PlatformStatus) Terminal() bool {
	return s != PlatformPending
}

// ApplicationResult is the outcome of one application attempt.
type ApplicationResult = types.ApplicationResult

// PlatformResult is one platform's slice of a task.
type PlatformResult struct {
	Status       PlatformStatus      `json:"status"`
	LoginMode    string              `json:"login_mode"`
	Applications []ApplicationResult `json:"applications"`
	TotalApplied int                 `json:"total_applied"`
	PagesDone    int                 `json:"pages_done"`
	ListingsSeen int                 `json:"listings_seen"`
	Message      string              `json:"message,omitempty"`
	Error        *string             `json:"error"`
}

// EventKind classifies progress events.
type EventKind string

const (
	EventPlatformStarted   EventKind = "platform_started"
	EventLoginSucceeded    EventKind = "login_succeeded"
	EventSearchSucceeded   EventKind = "search_succeeded"
	EventPageCompleted     EventKind = "page_completed"
	EventApplication       EventKind = "application"
	EventPlatformCompleted EventKind = "platform_completed"
	EventPlatformFailed    EventKind = "platform_failed"
	EventTaskCompleted     EventKind = "task_completed"
)

// Event is a progress update recorded on the task.
type Event struct {
	At       time.Time `json:"at"`
	Platform string    `json:"platform,omitempty"`
	Kind     EventKind `json:"kind"`
	Page     int       `json:"page,omitempty"`
	Message  string    `json:"message"`
}

// Task is the shared record of one automation run. Values handed out by the
// orchestrator are snapshots; mutating them has no effect.
type Task struct {
	ID              string                     `json:"task_id"`
	Status          Status                     `json:"status"`
	StartedAt       time.Time                  `json:"started_at"`
	CompletedAt     *time.Time                 `json:"completed_at,omitempty"`
	Keywords        string                     `json:"keywords"`
	MaxApplications int                        `json:"max_applications"`
	MaxPages        int                        `json:"max_pages"`
	Platforms       map[string]*PlatformResult `json:"platforms"`
	Events          []Event                    `json:"events"`
	Version         int                        `json:"version"`
}

// Done reports whether the task reached a terminal status.
func (t *Task) Done() bool {
	return t.Status != StatusRunning
}

// Applied sums successful applications across platforms.
func (t *Task) Applied() int {
	n := 0
	for _, p := range t.Platforms {
		n += p.TotalApplied
	}
	return n
}

func (t *Task) clone() Task {
	out := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		out.CompletedAt = &at
	}
	out.Platforms = make(map[string]*PlatformResult, len(t.Platforms))
	for name, p := range t.Platforms {
		cp := *p
		cp.Applications = append(make([]ApplicationResult, 0, len(p.Applications)), p.Applications...)
		if p.Error != nil {
			msg := *p.Error
			cp.Error = &msg
		}
		out.Platforms[name] = &cp
	}
	out.Events = append(make([]Event, 0, len(t.Events)), t.Events...)
	return out
}

// allTerminal reports whether every platform finished.
func (t *Task) allTerminal() bool {
	for _, p := range t.Platforms {
		if !p.Status.Terminal() {
			return false
		}
	}
	return true
}
