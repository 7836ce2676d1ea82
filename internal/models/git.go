package models

import (
	"fmt"
	"strings"
	"time"
)

// GitObjectType is the kind of git object a ref points at.
type GitObjectType string

const (
	GitObjectTypeCommit GitObjectType = "commit"
	GitObjectTypeTag    GitObjectType = "tag"
	GitObjectTypeBranch GitObjectType = "branch"
	GitObjectTypePath   GitObjectType = "path"
	GitObjectTypeBlob   GitObjectType = "blob"
	GitObjectTypeTree   GitObjectType = "tree"
)

var gitObjectTypes = map[GitObjectType]struct{}{
	GitObjectTypeCommit: {},
	GitObjectTypeTag:    {},
	GitObjectTypeBranch: {},
	GitObjectTypePath:   {},
	GitObjectTypeBlob:   {},
	GitObjectTypeTree:   {},
}

// GitRepo is one row of the canonical repo catalog. Slugs are unique and
// always of the form host/owner/name.
type GitRepo struct {
	ID            string    `json:"id"`
	Slug          string    `json:"slug"`
	DefaultBranch string    `json:"default_branch,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TaskGitRef links one task to one git object in a cataloged repo.
type TaskGitRef struct {
	ID             string         `json:"id"`
	TaskID         string         `json:"task_id"`
	RepoID         string         `json:"repo_id"`
	Repo           string         `json:"repo"`
	Relation       string         `json:"relation"`
	ObjectType     string         `json:"object_type"`
	ObjectValue    string         `json:"object_value"`
	ResolvedCommit string         `json:"resolved_commit,omitempty"`
	Note           string         `json:"note,omitempty"`
	Meta           map[string]any `json:"meta,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Valid reports whether the object type is known.
func (t GitObjectType) Valid() bool {
	_, ok := gitObjectTypes[t]
	return ok
}

// ParseGitObjectType lowercases and validates an object type string.
func ParseGitObjectType(raw string) (GitObjectType, error) {
	typ := GitObjectType(strings.ToLower(strings.TrimSpace(raw)))
	if typ == "" {
		return "", fmt.Errorf("object_type is required")
	}
	if !typ.Valid() {
		return "", fmt.Errorf("invalid object_type: %s", typ)
	}
	return typ, nil
}
