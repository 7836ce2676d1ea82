package store

import (
	"context"
	"errors"
	"time"

	"github.com/untoldecay/grns/internal/models"
)

// ErrTaskNotFound indicates a mutation targeted at least one missing task.
var ErrTaskNotFound = errors.New("task not found")

// StoreInfo holds metadata about the database.
type StoreInfo struct {
	SchemaVersion int            `json:"schema_version"`
	TaskCounts    map[string]int `json:"task_counts"`
	TotalTasks    int            `json:"total_tasks"`
}

// CleanupResult reports on a cleanup operation.
type CleanupResult struct {
	TaskIDs []string `json:"task_ids"`
	Count   int      `json:"count"`
	DryRun  bool     `json:"dry_run"`
}

// TaskCreateInput bundles one task with its labels and dependency edges so
// batch creates commit atomically.
type TaskCreateInput struct {
	Task   *models.Task
	Labels []string
	Deps   []models.Dependency
}

// CloseTaskGitRefInput describes the annotation ref written alongside a
// close-with-commit for one task.
type CloseTaskGitRefInput struct {
	TaskID         string
	RepoSlug       string
	Relation       string
	ObjectType     string
	ObjectValue    string
	ResolvedCommit string
	Note           string
	Meta           map[string]any
}

// ImportMutator is the transactional mutation subset used by atomic import.
type ImportMutator interface {
	TaskExists(id string) (bool, error)
	CreateTask(ctx context.Context, task *models.Task, labels []string, deps []models.Dependency) error
	UpdateTask(ctx context.Context, id string, update TaskUpdate) error
	AddDependency(ctx context.Context, childID, parentID, depType string) error
	ReplaceLabels(ctx context.Context, id string, labels []string) error
	RemoveDependencies(ctx context.Context, childID string) error
}

// ImportStore is the narrowed capability surface the importer depends on.
type ImportStore interface {
	ImportMutator
	RunInTx(ctx context.Context, fn func(ImportMutator) error) error
}

// TaskServiceStore is the store surface required by the task service.
type TaskServiceStore interface {
	ImportStore
	CreateTasks(ctx context.Context, inputs []TaskCreateInput) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) (bool, error)
	ListTasks(ctx context.Context, filter ListFilter) ([]models.Task, error)
	ListReadyTasks(ctx context.Context, limit int) ([]models.Task, error)
	ListStaleTasks(ctx context.Context, cutoff time.Time, statuses []string, limit int) ([]models.Task, error)
	AddLabels(ctx context.Context, id string, labels []string) error
	RemoveLabels(ctx context.Context, id string, labels []string) error
	ListLabels(ctx context.Context, id string) ([]string, error)
	RemoveDependency(ctx context.Context, childID, parentID, depType string) error
	ListDependencies(ctx context.Context, id string) ([]models.Dependency, error)
	ListLabelsForTasks(ctx context.Context, ids []string) (map[string][]string, error)
	ListDependenciesForTasks(ctx context.Context, ids []string) (map[string][]models.Dependency, error)
	CloseTasks(ctx context.Context, ids []string, closedAt time.Time) error
	ReopenTasks(ctx context.Context, ids []string, reopenedAt time.Time) error
}

// GitRefStore persists the repo catalog and task git refs.
type GitRefStore interface {
	UpsertGitRepo(ctx context.Context, repo *models.GitRepo) (*models.GitRepo, error)
	GetGitRepoBySlug(ctx context.Context, slug string) (*models.GitRepo, error)
	CreateTaskGitRef(ctx context.Context, ref *models.TaskGitRef) error
	GetTaskGitRef(ctx context.Context, id string) (*models.TaskGitRef, error)
	ListTaskGitRefs(ctx context.Context, taskID string) ([]models.TaskGitRef, error)
	DeleteTaskGitRef(ctx context.Context, id string) error
	CloseTasksWithGitRefs(ctx context.Context, ids []string, closedAt time.Time, refs []CloseTaskGitRefInput) (int, error)
}

// TaskStore is the full store surface the server wires together.
type TaskStore interface {
	TaskServiceStore
	GitRefStore
	StoreInfo(ctx context.Context) (*StoreInfo, error)
	ListAllLabels(ctx context.Context) ([]string, error)
	DependencyTree(ctx context.Context, id string) ([]models.DepTreeNode, error)
	CleanupClosedTasks(ctx context.Context, cutoff time.Time, dryRun bool) (*CleanupResult, error)
}

var (
	_ ImportStore      = (*Store)(nil)
	_ TaskServiceStore = (*Store)(nil)
	_ GitRefStore      = (*Store)(nil)
	_ TaskStore        = (*Store)(nil)
)
