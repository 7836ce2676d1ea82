// Package models holds the domain types shared by the store, the HTTP
// server, and the CLI client.
package models

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus is a task lifecycle state.
type TaskStatus string

const (
	StatusOpen       TaskStatus = "open"
	StatusInProgress TaskStatus = "in_progress"
	StatusBlocked    TaskStatus = "blocked"
	StatusDeferred   TaskStatus = "deferred"
	StatusClosed     TaskStatus = "closed"
	StatusTombstone  TaskStatus = "tombstone"
	StatusPinned     TaskStatus = "pinned"
)

// TaskType categorizes a task.
type TaskType string

const (
	TypeBug     TaskType = "bug"
	TypeFeature TaskType = "feature"
	TypeTask    TaskType = "task"
	TypeEpic    TaskType = "epic"
	TypeChore   TaskType = "chore"
)

// DependencyType is the kind of a dependency edge. Only "blocks" is
// supported.
type DependencyType string

const DependencyBlocks DependencyType = "blocks"

const (
	PriorityMin     = 0
	PriorityMax     = 4
	DefaultPriority = 2

	// DependencyTreeMaxDepth caps recursive tree walks.
	DependencyTreeMaxDepth = 50
)

// Task is a single tracked unit of work.
type Task struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Status             string            `json:"status"`
	Type               string            `json:"type"`
	Priority           int               `json:"priority"`
	Description        string            `json:"description,omitempty"`
	AcceptanceCriteria string            `json:"acceptance_criteria,omitempty"`
	Design             string            `json:"design,omitempty"`
	Notes              string            `json:"notes,omitempty"`
	Assignee           string            `json:"assignee,omitempty"`
	SpecID             string            `json:"spec_id,omitempty"`
	ParentID           string            `json:"parent_id,omitempty"`
	SourceRepo         string            `json:"source_repo,omitempty"`
	Custom             map[string]string `json:"custom,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	ClosedAt           *time.Time        `json:"closed_at,omitempty"`
}

// Dependency is one directed "parent blocks child" edge.
type Dependency struct {
	ChildID  string `json:"child_id,omitempty"`
	ParentID string `json:"parent_id"`
	Type     string `json:"type"`
}

var taskStatuses = map[TaskStatus]struct{}{
	StatusOpen:       {},
	StatusInProgress: {},
	StatusBlocked:    {},
	StatusDeferred:   {},
	StatusClosed:     {},
	StatusTombstone:  {},
	StatusPinned:     {},
}

var taskTypes = map[TaskType]struct{}{
	TypeBug:     {},
	TypeFeature: {},
	TypeTask:    {},
	TypeEpic:    {},
	TypeChore:   {},
}

// blockingStatuses are the parent statuses that keep a child off the ready
// queue. Closed and tombstoned parents no longer block.
var blockingStatuses = []TaskStatus{
	StatusOpen,
	StatusInProgress,
	StatusBlocked,
	StatusDeferred,
	StatusPinned,
}

// staleExcludedStatuses are dropped from stale listings unless the caller
// asks for them explicitly.
var staleExcludedStatuses = []TaskStatus{
	StatusClosed,
	StatusTombstone,
}

// Valid reports whether the status is one of the lifecycle states.
func (s TaskStatus) Valid() bool {
	_, ok := taskStatuses[s]
	return ok
}

// Valid reports whether the type is a known category.
func (t TaskType) Valid() bool {
	_, ok := taskTypes[t]
	return ok
}

// ParseTaskStatus lowercases and validates a status string.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	status := TaskStatus(strings.ToLower(strings.TrimSpace(raw)))
	if status == "" {
		return "", fmt.Errorf("status is required")
	}
	if !status.Valid() {
		return "", fmt.Errorf("invalid status: %s", status)
	}
	return status, nil
}

// ParseTaskType lowercases and validates a type string.
func ParseTaskType(raw string) (TaskType, error) {
	typ := TaskType(strings.ToLower(strings.TrimSpace(raw)))
	if typ == "" {
		return "", fmt.Errorf("type is required")
	}
	if !typ.Valid() {
		return "", fmt.Errorf("invalid type: %s", typ)
	}
	return typ, nil
}

// ValidPriority reports whether the value is inside [PriorityMin, PriorityMax].
func ValidPriority(value int) bool {
	return value >= PriorityMin && value <= PriorityMax
}

// BlockingStatusStrings returns the blocking parent statuses as strings for
// SQL placeholders.
func BlockingStatusStrings() []string {
	return statusStrings(blockingStatuses)
}

// StaleExcludedStatusStrings returns the statuses hidden from stale
// listings by default.
func StaleExcludedStatusStrings() []string {
	return statusStrings(staleExcludedStatuses)
}

func statusStrings(statuses []TaskStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
