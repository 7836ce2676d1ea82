// Package api defines the request and response shapes of the HTTP surface
// and a client for the companion CLI.
package api

import (
	"encoding/json"

	"github.com/untoldecay/grns/internal/models"
)

// ErrorResponse is the stable three-field error body every failing request
// carries.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// TaskCreateRequest is the payload for creating a task.
type TaskCreateRequest struct {
	ID                 string              `json:"id,omitempty"`
	Title              string              `json:"title"`
	Status             *string             `json:"status,omitempty"`
	Type               *string             `json:"type,omitempty"`
	Priority           *int                `json:"priority,omitempty"`
	Description        *string             `json:"description,omitempty"`
	AcceptanceCriteria *string             `json:"acceptance_criteria,omitempty"`
	Design             *string             `json:"design,omitempty"`
	Notes              *string             `json:"notes,omitempty"`
	Assignee           *string             `json:"assignee,omitempty"`
	SpecID             *string             `json:"spec_id,omitempty"`
	ParentID           *string             `json:"parent_id,omitempty"`
	SourceRepo         *string             `json:"source_repo,omitempty"`
	Custom             map[string]string   `json:"custom,omitempty"`
	Labels             []string            `json:"labels,omitempty"`
	Deps               []models.Dependency `json:"deps,omitempty"`
}

// TaskUpdateRequest is the PATCH payload. Absent fields keep their stored
// values.
type TaskUpdateRequest struct {
	Title              *string            `json:"title,omitempty"`
	Status             *string            `json:"status,omitempty"`
	Type               *string            `json:"type,omitempty"`
	Priority           *int               `json:"priority,omitempty"`
	Description        *string            `json:"description,omitempty"`
	AcceptanceCriteria *string            `json:"acceptance_criteria,omitempty"`
	Design             *string            `json:"design,omitempty"`
	Notes              *string            `json:"notes,omitempty"`
	Assignee           *string            `json:"assignee,omitempty"`
	SpecID             *string            `json:"spec_id,omitempty"`
	ParentID           *string            `json:"parent_id,omitempty"`
	SourceRepo         *string            `json:"source_repo,omitempty"`
	Custom             *map[string]string `json:"custom,omitempty"`
}

// TaskResponse wraps a task with its labels and dependency edges.
type TaskResponse struct {
	models.Task
	Labels []string            `json:"labels"`
	Deps   []models.Dependency `json:"deps,omitempty"`
}

// TaskCloseRequest is the payload for batch close. Commit and Repo are
// optional close annotations.
type TaskCloseRequest struct {
	IDs    []string `json:"ids"`
	Commit string   `json:"commit,omitempty"`
	Repo   string   `json:"repo,omitempty"`
}

// TaskCloseResponse reports a batch close. Annotated counts newly created
// closed_by refs only.
type TaskCloseResponse struct {
	Closed    []string `json:"closed"`
	Annotated int      `json:"annotated"`
}

// TaskReopenRequest is the payload for batch reopen.
type TaskReopenRequest struct {
	IDs []string `json:"ids"`
}

// TaskGetManyRequest fetches several tasks preserving request order.
type TaskGetManyRequest struct {
	IDs []string `json:"ids"`
}

// LabelsRequest is the payload for label add/remove.
type LabelsRequest struct {
	Labels []string `json:"labels"`
}

// DepCreateRequest is the payload for adding one dependency edge.
type DepCreateRequest struct {
	ChildID  string `json:"child_id,omitempty"`
	ParentID string `json:"parent_id"`
	Type     string `json:"type,omitempty"`
}

// DepTreeResponse wraps the dependency tree output.
type DepTreeResponse struct {
	RootID string               `json:"root_id"`
	Nodes  []models.DepTreeNode `json:"nodes"`
}

// TaskGitRefCreateRequest is the payload for attaching one git reference.
type TaskGitRefCreateRequest struct {
	Repo           string         `json:"repo,omitempty"`
	Relation       string         `json:"relation"`
	ObjectType     string         `json:"object_type"`
	ObjectValue    string         `json:"object_value"`
	ResolvedCommit string         `json:"resolved_commit,omitempty"`
	Note           string         `json:"note,omitempty"`
	Meta           map[string]any `json:"meta,omitempty"`
}

// TaskGitRefResponse is a stored git reference as returned by the server.
type TaskGitRefResponse struct {
	models.TaskGitRef
}

// InfoResponse is the response from GET /v1/info.
type InfoResponse struct {
	ProjectPrefix string         `json:"project_prefix"`
	SchemaVersion int            `json:"schema_version"`
	TaskCounts    map[string]int `json:"task_counts"`
	TotalTasks    int            `json:"total_tasks"`
}

// CleanupRequest is the payload for admin cleanup.
type CleanupRequest struct {
	OlderThanDays int  `json:"older_than_days"`
	DryRun        bool `json:"dry_run"`
}

// CleanupResponse is the response from POST /v1/admin/cleanup.
type CleanupResponse struct {
	TaskIDs []string `json:"task_ids"`
	Count   int      `json:"count"`
	DryRun  bool     `json:"dry_run"`
}

// TaskImportRecord is one NDJSON import line: scalar task fields plus
// labels and embedded dep edges.
type TaskImportRecord struct {
	models.Task
	Labels []string            `json:"labels"`
	Deps   []models.Dependency `json:"deps"`

	fields map[string]bool
}

// UnmarshalJSON decodes the record and remembers which JSON keys the line
// actually carried. Overwrite imports merge on that presence set: a field
// absent from the line keeps its stored value.
func (r *TaskImportRecord) UnmarshalJSON(data []byte) error {
	type plain TaskImportRecord
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*r = TaskImportRecord(p)
	r.fields = make(map[string]bool, len(keys))
	for k, v := range keys {
		// A null value means the same as leaving the field out.
		if string(v) == "null" {
			continue
		}
		r.fields[k] = true
	}
	return nil
}

// Has reports whether the decoded line carried the named JSON field.
// Records built in code rather than decoded report false for every field.
func (r *TaskImportRecord) Has(field string) bool {
	return r.fields[field]
}

// ImportRequest is the payload for buffered import.
type ImportRequest struct {
	Tasks          []TaskImportRecord `json:"tasks"`
	DryRun         bool               `json:"dry_run"`
	Dedupe         string             `json:"dedupe"`
	OrphanHandling string             `json:"orphan_handling"`
	Atomic         bool               `json:"atomic,omitempty"`
}

// ImportResponse aggregates per-record import results.
type ImportResponse struct {
	Created       int      `json:"created"`
	Updated       int      `json:"updated"`
	Skipped       int      `json:"skipped"`
	Errors        int      `json:"errors"`
	DryRun        bool     `json:"dry_run"`
	TaskIDs       []string `json:"task_ids"`
	Messages      []string `json:"messages,omitempty"`
	ApplyMode     string   `json:"apply_mode,omitempty"`
	AppliedChunks int      `json:"applied_chunks,omitempty"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
