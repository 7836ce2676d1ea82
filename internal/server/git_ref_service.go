package server

import (
	"context"
	"strings"
	"time"

	"github.com/untoldecay/grns/internal/api"
	"github.com/untoldecay/grns/internal/models"
	"github.com/untoldecay/grns/internal/store"
)

// gitRefService manages the repo catalog and per-task git references.
type gitRefService struct {
	store store.TaskStore
	tasks *taskService
}

func newGitRefService(st store.TaskStore, tasks *taskService) *gitRefService {
	return &gitRefService{store: st, tasks: tasks}
}

// Create validates and attaches one git reference to a task. Repo falls back
// to the task's source_repo when the request leaves it empty.
func (svc *gitRefService) Create(ctx context.Context, taskID string, req *api.TaskGitRefCreateRequest) (*models.TaskGitRef, error) {
	if ae := validateID(taskID); ae != nil {
		return nil, ae
	}
	task, err := svc.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	if task == nil {
		return nil, notFoundCode(ErrCodeTaskNotFound, "task %s not found", taskID)
	}

	relation, ae := normalizeGitRelation(req.Relation)
	if ae != nil {
		return nil, ae
	}

	objectType := strings.ToLower(strings.TrimSpace(req.ObjectType))
	gitType, err2 := models.ParseGitObjectType(objectType)
	if err2 != nil {
		return nil, badRequest("invalid object_type %q", req.ObjectType)
	}
	objectValue, ae := normalizeGitObjectValue(string(gitType), req.ObjectValue)
	if ae != nil {
		return nil, ae
	}

	// Stored exactly as supplied; an empty resolved commit stays empty.
	resolvedCommit, ae := normalizeCommitHash(req.ResolvedCommit)
	if ae != nil {
		return nil, ae
	}

	repoRaw := strings.TrimSpace(req.Repo)
	if repoRaw == "" {
		repoRaw = task.SourceRepo
	}
	if repoRaw == "" {
		return nil, badRequestCode(ErrCodeMissingRequired, "repo is required: task %s has no source_repo", taskID)
	}
	slug, ae := canonicalGitRepoSlug(repoRaw)
	if ae != nil {
		return nil, ae
	}

	repo, err := svc.store.UpsertGitRepo(ctx, &models.GitRepo{Slug: slug})
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}

	now := time.Now().UTC()
	ref := &models.TaskGitRef{
		TaskID:         taskID,
		RepoID:         repo.ID,
		Repo:           repo.Slug,
		Relation:       relation,
		ObjectType:     string(gitType),
		ObjectValue:    objectValue,
		ResolvedCommit: resolvedCommit,
		Note:           strings.TrimSpace(req.Note),
		Meta:           req.Meta,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	id, err := store.GenerateTaskGitRefID(func(candidate string) (bool, error) {
		existing, err := svc.store.GetTaskGitRef(ctx, candidate)
		if err != nil {
			return false, err
		}
		return existing != nil, nil
	})
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	ref.ID = id

	if err := svc.store.CreateTaskGitRef(ctx, ref); err != nil {
		if store.IsUniqueConstraint(err) {
			return nil, conflictCode(ErrCodeConflict, "an equivalent git ref already exists on task %s", taskID)
		}
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	return ref, nil
}

// List returns every git ref attached to a task, newest first.
func (svc *gitRefService) List(ctx context.Context, taskID string) ([]models.TaskGitRef, error) {
	if ae := validateID(taskID); ae != nil {
		return nil, ae
	}
	if err := svc.tasks.requireTask(ctx, taskID); err != nil {
		return nil, err
	}
	refs, err := svc.store.ListTaskGitRefs(ctx, taskID)
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	return refs, nil
}

// Get fetches one git ref, checking it belongs to the task in the path.
func (svc *gitRefService) Get(ctx context.Context, taskID, refID string) (*models.TaskGitRef, error) {
	if ae := validateID(taskID); ae != nil {
		return nil, ae
	}
	if ae := validateGitRefID(refID); ae != nil {
		return nil, ae
	}
	ref, err := svc.store.GetTaskGitRef(ctx, refID)
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	if ref == nil || ref.TaskID != taskID {
		return nil, notFoundCode(ErrCodeGitRefNotFound, "git ref %s not found on task %s", refID, taskID)
	}
	return ref, nil
}

// GetByID fetches one git ref by its own id, without task scoping.
func (svc *gitRefService) GetByID(ctx context.Context, refID string) (*models.TaskGitRef, error) {
	if ae := validateGitRefID(refID); ae != nil {
		return nil, ae
	}
	ref, err := svc.store.GetTaskGitRef(ctx, refID)
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	if ref == nil {
		return nil, notFoundCode(ErrCodeGitRefNotFound, "git ref %s not found", refID)
	}
	return ref, nil
}

// DeleteByID removes one git ref by its own id, without task scoping.
func (svc *gitRefService) DeleteByID(ctx context.Context, refID string) error {
	if _, err := svc.GetByID(ctx, refID); err != nil {
		return err
	}
	if err := svc.store.DeleteTaskGitRef(ctx, refID); err != nil {
		return internalError(ErrCodeStoreFailure, err)
	}
	return nil
}

// Delete detaches one git ref from a task.
func (svc *gitRefService) Delete(ctx context.Context, taskID, refID string) error {
	if _, err := svc.Get(ctx, taskID, refID); err != nil {
		return err
	}
	if err := svc.store.DeleteTaskGitRef(ctx, refID); err != nil {
		return internalError(ErrCodeStoreFailure, err)
	}
	return nil
}
