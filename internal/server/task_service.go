package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/untoldecay/grns/internal/api"
	"github.com/untoldecay/grns/internal/models"
	"github.com/untoldecay/grns/internal/store"
)

// taskService holds the domain logic between the HTTP handlers and the
// store: defaults, validation, and response hydration.
type taskService struct {
	store  store.TaskStore
	prefix string
}

func newTaskService(st store.TaskStore, prefix string) *taskService {
	return &taskService{store: st, prefix: prefix}
}

// buildTask validates one create request and produces the storable task plus
// its labels and dep edges. The returned task has no ID yet when the request
// left it empty.
func (svc *taskService) buildTask(ctx context.Context, req *api.TaskCreateRequest, now time.Time) (*store.TaskCreateInput, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, badRequestCode(ErrCodeMissingRequired, "title is required")
	}

	task := &models.Task{
		Title:     strings.TrimSpace(req.Title),
		Status:    string(models.StatusOpen),
		Type:      string(models.TypeTask),
		Priority:  models.DefaultPriority,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if req.ID != "" {
		id := strings.ToLower(strings.TrimSpace(req.ID))
		if ae := validateID(id); ae != nil {
			return nil, ae
		}
		if !strings.HasPrefix(id, svc.prefix+"-") {
			return nil, badRequestCode(ErrCodeInvalidID, "task id %q does not match project prefix %q", id, svc.prefix)
		}
		task.ID = id
	}

	if req.Status != nil {
		status, ae := normalizeStatus(*req.Status)
		if ae != nil {
			return nil, ae
		}
		if status != "" {
			task.Status = status
		}
	}
	if req.Type != nil {
		taskType, ae := normalizeType(*req.Type)
		if ae != nil {
			return nil, ae
		}
		if taskType != "" {
			task.Type = taskType
		}
	}
	if req.Priority != nil {
		if ae := validatePriority(*req.Priority); ae != nil {
			return nil, ae
		}
		task.Priority = *req.Priority
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.AcceptanceCriteria != nil {
		task.AcceptanceCriteria = *req.AcceptanceCriteria
	}
	if req.Design != nil {
		task.Design = *req.Design
	}
	if req.Notes != nil {
		task.Notes = *req.Notes
	}
	if req.Assignee != nil {
		task.Assignee = strings.TrimSpace(*req.Assignee)
	}
	if req.SpecID != nil {
		task.SpecID = strings.TrimSpace(*req.SpecID)
	}
	if req.SourceRepo != nil {
		repo := strings.TrimSpace(*req.SourceRepo)
		if repo != "" {
			slug, ae := canonicalGitRepoSlug(repo)
			if ae != nil {
				return nil, ae
			}
			repo = slug
		}
		task.SourceRepo = repo
	}
	if len(req.Custom) > 0 {
		if ae := validateCustomFields(req.Custom); ae != nil {
			return nil, ae
		}
		task.Custom = req.Custom
	}

	if req.ParentID != nil && strings.TrimSpace(*req.ParentID) != "" {
		parentID := strings.ToLower(strings.TrimSpace(*req.ParentID))
		if !taskIDRe.MatchString(parentID) {
			return nil, badRequestCode(ErrCodeInvalidParentID, "invalid parent id %q", parentID)
		}
		parent, err := svc.store.GetTask(ctx, parentID)
		if err != nil {
			return nil, internalError(ErrCodeStoreFailure, err)
		}
		if parent == nil {
			return nil, badRequestCode(ErrCodeInvalidParentID, "parent task %s not found", parentID)
		}
		task.ParentID = parentID
	}

	if task.Status == string(models.StatusClosed) {
		closedAt := now
		task.ClosedAt = &closedAt
	}

	labels, ae := normalizeLabels(req.Labels)
	if ae != nil {
		return nil, ae
	}

	deps, err := svc.normalizeDeps(ctx, req.Deps)
	if err != nil {
		return nil, err
	}

	return &store.TaskCreateInput{Task: task, Labels: labels, Deps: deps}, nil
}

func (svc *taskService) normalizeDeps(ctx context.Context, deps []models.Dependency) ([]models.Dependency, error) {
	out := make([]models.Dependency, 0, len(deps))
	for _, dep := range deps {
		parentID := strings.ToLower(strings.TrimSpace(dep.ParentID))
		if !taskIDRe.MatchString(parentID) {
			return nil, badRequestCode(ErrCodeInvalidDependency, "invalid dependency parent id %q", dep.ParentID)
		}
		depType := strings.ToLower(strings.TrimSpace(dep.Type))
		if depType == "" {
			depType = string(models.DependencyBlocks)
		}
		if depType != string(models.DependencyBlocks) {
			return nil, badRequestCode(ErrCodeInvalidDependency, "invalid dependency type %q", dep.Type)
		}
		parent, err := svc.store.GetTask(ctx, parentID)
		if err != nil {
			return nil, internalError(ErrCodeStoreFailure, err)
		}
		if parent == nil {
			return nil, notFoundCode(ErrCodeDependencyNotFound, "dependency parent %s not found", parentID)
		}
		out = append(out, models.Dependency{ParentID: parentID, Type: depType})
	}
	return out, nil
}

// CreateTask creates one task, minting an id when the request has none.
func (svc *taskService) CreateTask(ctx context.Context, req *api.TaskCreateRequest) (*api.TaskResponse, error) {
	now := time.Now().UTC()
	input, err := svc.buildTask(ctx, req, now)
	if err != nil {
		return nil, err
	}
	if err := svc.assignID(input.Task); err != nil {
		return nil, err
	}
	if err := svc.store.CreateTask(ctx, input.Task, input.Labels, input.Deps); err != nil {
		if store.IsUniqueConstraint(err) {
			return nil, conflictCode(ErrCodeTaskIDExists, "task id %s already exists", input.Task.ID)
		}
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	return svc.hydrate(ctx, input.Task)
}

// CreateTasks creates a batch atomically: one bad request or id collision
// fails the whole batch.
func (svc *taskService) CreateTasks(ctx context.Context, reqs []api.TaskCreateRequest) ([]api.TaskResponse, error) {
	if len(reqs) == 0 {
		return nil, badRequestCode(ErrCodeMissingRequired, "at least one task is required")
	}

	now := time.Now().UTC()
	inputs := make([]store.TaskCreateInput, 0, len(reqs))
	for i := range reqs {
		input, err := svc.buildTask(ctx, &reqs[i], now)
		if err != nil {
			return nil, err
		}
		if err := svc.assignID(input.Task); err != nil {
			return nil, err
		}
		inputs = append(inputs, *input)
	}

	if err := svc.store.CreateTasks(ctx, inputs); err != nil {
		if store.IsUniqueConstraint(err) {
			return nil, conflictCode(ErrCodeTaskIDExists, "task id already exists")
		}
		return nil, internalError(ErrCodeStoreFailure, err)
	}

	out := make([]api.TaskResponse, 0, len(inputs))
	for _, input := range inputs {
		resp, err := svc.hydrate(ctx, input.Task)
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}

func (svc *taskService) assignID(task *models.Task) error {
	if task.ID != "" {
		return nil
	}
	id, err := store.GenerateID(svc.prefix, svc.store.TaskExists)
	if err != nil {
		return internalError(ErrCodeStoreFailure, err)
	}
	task.ID = id
	return nil
}

// GetTask fetches one task with labels and deps.
func (svc *taskService) GetTask(ctx context.Context, id string) (*api.TaskResponse, error) {
	if ae := validateID(id); ae != nil {
		return nil, ae
	}
	task, err := svc.store.GetTask(ctx, id)
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	if task == nil {
		return nil, notFoundCode(ErrCodeTaskNotFound, "task %s not found", id)
	}
	return svc.hydrate(ctx, task)
}

// GetTasks fetches several tasks, preserving request order and failing on
// the first missing id.
func (svc *taskService) GetTasks(ctx context.Context, ids []string) ([]api.TaskResponse, error) {
	if len(ids) == 0 {
		return nil, badRequestCode(ErrCodeMissingRequired, "ids are required")
	}
	for _, id := range ids {
		if ae := validateID(id); ae != nil {
			return nil, ae
		}
	}

	tasks, err := svc.store.ListTasks(ctx, store.ListFilter{IDs: ids})
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	byID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	ordered := make([]models.Task, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		task, ok := byID[id]
		if !ok {
			return nil, notFoundCode(ErrCodeTaskNotFound, "task %s not found", id)
		}
		ordered = append(ordered, task)
	}
	return svc.hydrateAll(ctx, ordered)
}

// UpdateTask applies a partial update, touching only the provided fields.
func (svc *taskService) UpdateTask(ctx context.Context, id string, req *api.TaskUpdateRequest) (*api.TaskResponse, error) {
	if ae := validateID(id); ae != nil {
		return nil, ae
	}

	existing, err := svc.store.GetTask(ctx, id)
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	if existing == nil {
		return nil, notFoundCode(ErrCodeTaskNotFound, "task %s not found", id)
	}

	now := time.Now().UTC()
	update := store.TaskUpdate{UpdatedAt: now}
	changed := false

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, badRequestCode(ErrCodeMissingRequired, "title must not be empty")
		}
		update.Title = &title
		changed = true
	}
	if req.Status != nil {
		status, ae := normalizeStatus(*req.Status)
		if ae != nil {
			return nil, ae
		}
		if status == "" {
			return nil, badRequestCode(ErrCodeInvalidStatus, "status must not be empty")
		}
		update.Status = &status
		changed = true
		if status == string(models.StatusClosed) {
			if existing.Status != string(models.StatusClosed) {
				closedAt := now
				update.ClosedAt = &closedAt
			}
		} else if existing.ClosedAt != nil {
			update.ClearClosedAt = true
		}
	}
	if req.Type != nil {
		taskType, ae := normalizeType(*req.Type)
		if ae != nil {
			return nil, ae
		}
		if taskType == "" {
			return nil, badRequestCode(ErrCodeInvalidType, "type must not be empty")
		}
		update.Type = &taskType
		changed = true
	}
	if req.Priority != nil {
		if ae := validatePriority(*req.Priority); ae != nil {
			return nil, ae
		}
		update.Priority = req.Priority
		changed = true
	}
	if req.Description != nil {
		update.Description = req.Description
		changed = true
	}
	if req.AcceptanceCriteria != nil {
		update.AcceptanceCriteria = req.AcceptanceCriteria
		changed = true
	}
	if req.Design != nil {
		update.Design = req.Design
		changed = true
	}
	if req.Notes != nil {
		update.Notes = req.Notes
		changed = true
	}
	if req.Assignee != nil {
		assignee := strings.TrimSpace(*req.Assignee)
		update.Assignee = &assignee
		changed = true
	}
	if req.SpecID != nil {
		specID := strings.TrimSpace(*req.SpecID)
		update.SpecID = &specID
		changed = true
	}
	if req.SourceRepo != nil {
		repo := strings.TrimSpace(*req.SourceRepo)
		if repo != "" {
			slug, ae := canonicalGitRepoSlug(repo)
			if ae != nil {
				return nil, ae
			}
			repo = slug
		}
		update.SourceRepo = &repo
		changed = true
	}
	if req.ParentID != nil {
		parentID := strings.ToLower(strings.TrimSpace(*req.ParentID))
		if parentID != "" {
			if !taskIDRe.MatchString(parentID) {
				return nil, badRequestCode(ErrCodeInvalidParentID, "invalid parent id %q", parentID)
			}
			if parentID == id {
				return nil, badRequestCode(ErrCodeInvalidParentID, "task cannot be its own parent")
			}
			parent, err := svc.store.GetTask(ctx, parentID)
			if err != nil {
				return nil, internalError(ErrCodeStoreFailure, err)
			}
			if parent == nil {
				return nil, badRequestCode(ErrCodeInvalidParentID, "parent task %s not found", parentID)
			}
		}
		update.ParentID = &parentID
		changed = true
	}
	if req.Custom != nil {
		if ae := validateCustomFields(*req.Custom); ae != nil {
			return nil, ae
		}
		update.Custom = req.Custom
		changed = true
	}

	if !changed {
		return nil, badRequestCode(ErrCodeMissingRequired, "no fields to update")
	}

	if err := svc.store.UpdateTask(ctx, id, update); err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}

	updated, err := svc.store.GetTask(ctx, id)
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	if updated == nil {
		return nil, notFoundCode(ErrCodeTaskNotFound, "task %s not found", id)
	}
	return svc.hydrate(ctx, updated)
}

// DeleteTask hard-deletes one task and its labels, deps, and git refs.
func (svc *taskService) DeleteTask(ctx context.Context, id string) error {
	if ae := validateID(id); ae != nil {
		return ae
	}
	deleted, err := svc.store.DeleteTask(ctx, id)
	if err != nil {
		return internalError(ErrCodeStoreFailure, err)
	}
	if !deleted {
		return notFoundCode(ErrCodeTaskNotFound, "task %s not found", id)
	}
	return nil
}

// CloseTasks closes every listed task, optionally annotating each with a
// closed_by commit ref. All-or-nothing: one missing task fails the batch.
func (svc *taskService) CloseTasks(ctx context.Context, req *api.TaskCloseRequest) (*api.TaskCloseResponse, error) {
	if len(req.IDs) == 0 {
		return nil, badRequestCode(ErrCodeMissingRequired, "ids are required")
	}
	for _, id := range req.IDs {
		if ae := validateID(id); ae != nil {
			return nil, ae
		}
	}

	now := time.Now().UTC()
	commit, ae := normalizeCommitHash(req.Commit)
	if ae != nil {
		return nil, ae
	}
	if commit == "" && strings.TrimSpace(req.Repo) != "" {
		return nil, badRequestCode(ErrCodeMissingRequired, "repo requires a commit")
	}

	if commit == "" {
		if err := svc.store.CloseTasks(ctx, req.IDs, now); err != nil {
			if errors.Is(err, store.ErrTaskNotFound) {
				return nil, notFoundCode(ErrCodeTaskNotFound, "one or more tasks not found")
			}
			return nil, internalError(ErrCodeStoreFailure, err)
		}
		return &api.TaskCloseResponse{Closed: uniqueOrdered(req.IDs)}, nil
	}

	// Resolve the annotation repo for every task before any mutation so a
	// missing repo leaves all tasks untouched.
	var requestSlug string
	if strings.TrimSpace(req.Repo) != "" {
		slug, ae := canonicalGitRepoSlug(req.Repo)
		if ae != nil {
			return nil, ae
		}
		requestSlug = slug
	}

	ids := uniqueOrdered(req.IDs)
	refs := make([]store.CloseTaskGitRefInput, 0, len(ids))
	for _, id := range ids {
		slug := requestSlug
		if slug == "" {
			task, err := svc.store.GetTask(ctx, id)
			if err != nil {
				return nil, internalError(ErrCodeStoreFailure, err)
			}
			if task == nil {
				return nil, notFoundCode(ErrCodeTaskNotFound, "task %s not found", id)
			}
			if task.SourceRepo == "" {
				return nil, badRequestCode(ErrCodeMissingRequired, "task %s has no source_repo and no repo was given", id)
			}
			slug = task.SourceRepo
		}
		refs = append(refs, store.CloseTaskGitRefInput{
			TaskID:      id,
			RepoSlug:    slug,
			Relation:    "closed_by",
			ObjectType:  "commit",
			ObjectValue: commit,
		})
	}

	created, err := svc.store.CloseTasksWithGitRefs(ctx, ids, now, refs)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, notFoundCode(ErrCodeTaskNotFound, "one or more tasks not found")
		}
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	return &api.TaskCloseResponse{Closed: ids, Annotated: created}, nil
}

// ReopenTasks sets every listed task back to open, clearing closed_at.
func (svc *taskService) ReopenTasks(ctx context.Context, ids []string) ([]api.TaskResponse, error) {
	if len(ids) == 0 {
		return nil, badRequestCode(ErrCodeMissingRequired, "ids are required")
	}
	for _, id := range ids {
		if ae := validateID(id); ae != nil {
			return nil, ae
		}
	}

	if err := svc.store.ReopenTasks(ctx, ids, time.Now().UTC()); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, notFoundCode(ErrCodeTaskNotFound, "one or more tasks not found")
		}
		return nil, internalError(ErrCodeStoreFailure, err)
	}

	tasks, err := svc.store.ListTasks(ctx, store.ListFilter{IDs: uniqueOrdered(ids)})
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	return svc.hydrateAll(ctx, tasks)
}

// ListTasks runs a filtered listing and hydrates the rows.
func (svc *taskService) ListTasks(ctx context.Context, filter store.ListFilter) ([]api.TaskResponse, error) {
	tasks, err := svc.store.ListTasks(ctx, filter)
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	return svc.hydrateAll(ctx, tasks)
}

// ListReadyTasks lists open or in-progress tasks with no blocking parents.
func (svc *taskService) ListReadyTasks(ctx context.Context, limit int) ([]api.TaskResponse, error) {
	tasks, err := svc.store.ListReadyTasks(ctx, limit)
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	return svc.hydrateAll(ctx, tasks)
}

// ListStaleTasks lists tasks untouched since the cutoff.
func (svc *taskService) ListStaleTasks(ctx context.Context, cutoff time.Time, statuses []string, limit int) ([]api.TaskResponse, error) {
	tasks, err := svc.store.ListStaleTasks(ctx, cutoff, statuses, limit)
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	return svc.hydrateAll(ctx, tasks)
}

// AddLabels attaches labels to one task and returns the refreshed task.
func (svc *taskService) AddLabels(ctx context.Context, id string, raw []string) (*api.TaskResponse, error) {
	if ae := validateID(id); ae != nil {
		return nil, ae
	}
	labels, ae := normalizeLabels(raw)
	if ae != nil {
		return nil, ae
	}
	if len(labels) == 0 {
		return nil, badRequestCode(ErrCodeMissingRequired, "labels are required")
	}
	if err := svc.requireTask(ctx, id); err != nil {
		return nil, err
	}
	if err := svc.store.AddLabels(ctx, id, labels); err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	return svc.GetTask(ctx, id)
}

// RemoveLabels detaches labels from one task. Unknown labels are ignored.
func (svc *taskService) RemoveLabels(ctx context.Context, id string, raw []string) (*api.TaskResponse, error) {
	if ae := validateID(id); ae != nil {
		return nil, ae
	}
	labels, ae := normalizeLabels(raw)
	if ae != nil {
		return nil, ae
	}
	if len(labels) == 0 {
		return nil, badRequestCode(ErrCodeMissingRequired, "labels are required")
	}
	if err := svc.requireTask(ctx, id); err != nil {
		return nil, err
	}
	if err := svc.store.RemoveLabels(ctx, id, labels); err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	return svc.GetTask(ctx, id)
}

// AddDependency records a child -> parent blocking edge.
func (svc *taskService) AddDependency(ctx context.Context, req *api.DepCreateRequest) error {
	childID := strings.ToLower(strings.TrimSpace(req.ChildID))
	if ae := validateID(childID); ae != nil {
		return ae
	}
	deps, err := svc.normalizeDeps(ctx, []models.Dependency{{ParentID: req.ParentID, Type: req.Type}})
	if err != nil {
		return err
	}
	dep := deps[0]
	if dep.ParentID == childID {
		return badRequestCode(ErrCodeInvalidDependency, "task cannot depend on itself")
	}
	if err := svc.requireTask(ctx, childID); err != nil {
		return err
	}
	if err := svc.store.AddDependency(ctx, childID, dep.ParentID, dep.Type); err != nil {
		if store.IsUniqueConstraint(err) {
			return nil // already recorded
		}
		return internalError(ErrCodeStoreFailure, err)
	}
	return nil
}

// RemoveDependency removes one child -> parent edge.
func (svc *taskService) RemoveDependency(ctx context.Context, childID, parentID string) error {
	if ae := validateID(childID); ae != nil {
		return ae
	}
	if ae := validateID(parentID); ae != nil {
		return ae
	}
	if err := svc.requireTask(ctx, childID); err != nil {
		return err
	}
	if err := svc.store.RemoveDependency(ctx, childID, parentID, string(models.DependencyBlocks)); err != nil {
		return internalError(ErrCodeStoreFailure, err)
	}
	return nil
}

// DependencyTree walks edges from a root task. Direction filters to
// upstream or downstream nodes; empty keeps both.
func (svc *taskService) DependencyTree(ctx context.Context, id, direction string) (*api.DepTreeResponse, error) {
	if ae := validateID(id); ae != nil {
		return nil, ae
	}
	switch direction {
	case "", "up", "down":
	default:
		return nil, badRequestCode(ErrCodeInvalidQuery, "direction must be \"up\" or \"down\"")
	}
	if err := svc.requireTask(ctx, id); err != nil {
		return nil, err
	}

	nodes, err := svc.store.DependencyTree(ctx, id)
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	if direction != "" {
		filtered := nodes[:0]
		for _, n := range nodes {
			if n.Direction == direction {
				filtered = append(filtered, n)
			}
		}
		nodes = filtered
	}
	return &api.DepTreeResponse{RootID: id, Nodes: nodes}, nil
}

func (svc *taskService) requireTask(ctx context.Context, id string) error {
	task, err := svc.store.GetTask(ctx, id)
	if err != nil {
		return internalError(ErrCodeStoreFailure, err)
	}
	if task == nil {
		return notFoundCode(ErrCodeTaskNotFound, "task %s not found", id)
	}
	return nil
}

func (svc *taskService) hydrate(ctx context.Context, task *models.Task) (*api.TaskResponse, error) {
	labels, err := svc.store.ListLabels(ctx, task.ID)
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	deps, err := svc.store.ListDependencies(ctx, task.ID)
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	return &api.TaskResponse{Task: *task, Labels: labels, Deps: deps}, nil
}

// hydrateAll loads labels and deps for a page of tasks in two queries.
func (svc *taskService) hydrateAll(ctx context.Context, tasks []models.Task) ([]api.TaskResponse, error) {
	if len(tasks) == 0 {
		return []api.TaskResponse{}, nil
	}
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	labelsByTask, err := svc.store.ListLabelsForTasks(ctx, ids)
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}
	depsByTask, err := svc.store.ListDependenciesForTasks(ctx, ids)
	if err != nil {
		return nil, internalError(ErrCodeStoreFailure, err)
	}

	out := make([]api.TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		labels := labelsByTask[t.ID]
		if labels == nil {
			labels = []string{}
		}
		out = append(out, api.TaskResponse{Task: t, Labels: labels, Deps: depsByTask[t.ID]})
	}
	return out, nil
}

func uniqueOrdered(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
