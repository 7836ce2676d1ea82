package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/untoldecay/grns/internal/models"
)

const taskColumns = "id, title, status, type, priority, description, acceptance_criteria, design, notes, assignee, spec_id, parent_id, source_repo, custom, created_at, updated_at, closed_at"
const qualifiedTaskColumns = "tasks.id, tasks.title, tasks.status, tasks.type, tasks.priority, tasks.description, tasks.acceptance_criteria, tasks.design, tasks.notes, tasks.assignee, tasks.spec_id, tasks.parent_id, tasks.source_repo, tasks.custom, tasks.created_at, tasks.updated_at, tasks.closed_at"

// dbtx is the query surface shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TaskUpdate describes the fields a patch touches. Nil pointers leave the
// stored value untouched.
type TaskUpdate struct {
	Title              *string
	Status             *string
	Type               *string
	Priority           *int
	Description        *string
	AcceptanceCriteria *string
	Design             *string
	Notes              *string
	Assignee           *string
	SpecID             *string
	ParentID           *string
	SourceRepo         *string
	ClosedAt           *time.Time
	ClearClosedAt      bool
	Custom             *map[string]string
	UpdatedAt          time.Time
}

// CreateTask inserts a task with optional labels and dependencies in one
// transaction.
func (s *Store) CreateTask(ctx context.Context, task *models.Task, labels []string, deps []models.Dependency) error {
	if task == nil {
		return fmt.Errorf("task is required")
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		if err := insertTaskRow(ctx, tx, task); err != nil {
			return err
		}
		if err := insertLabels(ctx, tx, task.ID, labels); err != nil {
			return err
		}
		return insertDeps(ctx, tx, task.ID, deps)
	})
}

// CreateTasks inserts a batch of tasks atomically. Any failure rolls back
// the whole batch.
func (s *Store) CreateTasks(ctx context.Context, inputs []TaskCreateInput) error {
	if len(inputs) == 0 {
		return nil
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, input := range inputs {
			if input.Task == nil {
				return fmt.Errorf("task is required")
			}
			if err := insertTaskRow(ctx, tx, input.Task); err != nil {
				return err
			}
			if err := insertLabels(ctx, tx, input.Task.ID, input.Labels); err != nil {
				return err
			}
			if err := insertDeps(ctx, tx, input.Task.ID, input.Deps); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetTask returns a task by id, or nil when absent.
func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	return scanTask(row)
}

// UpdateTask applies a partial update to one task.
func (s *Store) UpdateTask(ctx context.Context, id string, update TaskUpdate) error {
	return updateTaskExec(ctx, s.db, id, update)
}

// DeleteTask removes a task; labels, deps and git refs cascade. Returns
// false when the id did not exist.
func (s *Store) DeleteTask(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListTasks returns tasks matching the filter, newest update first with id
// as the tiebreaker.
func (s *Store) ListTasks(ctx context.Context, filter ListFilter) ([]models.Task, error) {
	query, args := buildListQuery(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if filter.SpecRegex != "" {
		return filterRowsBySpecRegex(rows, filter.SpecRegex, filter.Limit, filter.Offset)
	}

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// ListReadyTasks returns tasks with no unresolved blocking parents.
func (s *Store) ListReadyTasks(ctx context.Context, limit int) ([]models.Task, error) {
	blocking := models.BlockingStatusStrings()
	args := stringArgs(blocking)

	query := fmt.Sprintf(`
		SELECT `+taskColumns+`
		FROM tasks t
		WHERE t.status IN ('open', 'in_progress')
		AND NOT EXISTS (
			SELECT 1 FROM task_deps d
			JOIN tasks p ON p.id = d.parent_id
			WHERE d.child_id = t.id
			AND d.type = 'blocks'
			AND p.status IN (%s)
		)
		ORDER BY updated_at DESC, id ASC
	`, placeholders(len(blocking)))

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// ListStaleTasks returns tasks not updated since cutoff, oldest first.
// Closed and tombstoned tasks are excluded unless statuses is given.
func (s *Store) ListStaleTasks(ctx context.Context, cutoff time.Time, statuses []string, limit int) ([]models.Task, error) {
	args := []any{dbFormatTime(cutoff)}
	where := []string{"updated_at < ?"}

	if len(statuses) > 0 {
		where = append(where, fmt.Sprintf("status IN (%s)", placeholders(len(statuses))))
		for _, status := range statuses {
			args = append(args, status)
		}
	} else {
		excluded := models.StaleExcludedStatusStrings()
		where = append(where, fmt.Sprintf("status NOT IN (%s)", placeholders(len(excluded))))
		for _, status := range excluded {
			args = append(args, status)
		}
	}

	query := fmt.Sprintf(`
		SELECT `+taskColumns+`
		FROM tasks
		WHERE %s
		ORDER BY updated_at ASC, id ASC
	`, strings.Join(where, " AND "))

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// AddLabels adds labels to a task, ignoring duplicates.
func (s *Store) AddLabels(ctx context.Context, id string, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO task_labels (task_id, label) VALUES "+labelValues(len(labels)), labelArgs(id, labels)...)
	return err
}

// RemoveLabels removes labels from a task. Absent labels are a no-op.
func (s *Store) RemoveLabels(ctx context.Context, id string, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	args := []any{id}
	for _, label := range labels {
		args = append(args, label)
	}
	query := fmt.Sprintf("DELETE FROM task_labels WHERE task_id = ? AND label IN (%s)", placeholders(len(labels)))
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// ReplaceLabels swaps the full label set of a task.
func (s *Store) ReplaceLabels(ctx context.Context, id string, labels []string) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		return replaceLabelsExec(ctx, tx, id, labels)
	})
}

// ListLabels returns the sorted labels of one task.
func (s *Store) ListLabels(ctx context.Context, id string) ([]string, error) {
	return queryStrings(ctx, s.db, "SELECT label FROM task_labels WHERE task_id = ? ORDER BY label ASC", id)
}

// ListAllLabels returns every distinct label in the database.
func (s *Store) ListAllLabels(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, s.db, "SELECT DISTINCT label FROM task_labels ORDER BY label ASC")
}

// AddDependency adds one blocks edge. Adding an existing edge is a no-op.
func (s *Store) AddDependency(ctx context.Context, childID, parentID, depType string) error {
	return addDependencyExec(ctx, s.db, childID, parentID, depType)
}

// RemoveDependency removes one edge. Removing a missing edge succeeds.
func (s *Store) RemoveDependency(ctx context.Context, childID, parentID, depType string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM task_deps WHERE child_id = ? AND parent_id = ? AND type = ?", childID, parentID, depType)
	return err
}

// RemoveDependencies removes every edge where the task is the child.
func (s *Store) RemoveDependencies(ctx context.Context, childID string) error {
	return removeDependenciesExec(ctx, s.db, childID)
}

// ListDependencies returns edges where the task is the child.
func (s *Store) ListDependencies(ctx context.Context, id string) ([]models.Dependency, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT parent_id, type FROM task_deps WHERE child_id = ? ORDER BY parent_id", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deps []models.Dependency
	for rows.Next() {
		var dep models.Dependency
		if err := rows.Scan(&dep.ParentID, &dep.Type); err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, rows.Err()
}

// ListLabelsForTasks returns labels keyed by task id.
func (s *Store) ListLabelsForTasks(ctx context.Context, ids []string) (map[string][]string, error) {
	labels := make(map[string][]string)
	if len(ids) == 0 {
		return labels, nil
	}

	query := fmt.Sprintf("SELECT task_id, label FROM task_labels WHERE task_id IN (%s)", placeholders(len(ids)))
	rows, err := s.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var taskID, label string
		if err := rows.Scan(&taskID, &label); err != nil {
			return nil, err
		}
		labels[taskID] = append(labels[taskID], label)
	}
	for _, list := range labels {
		sort.Strings(list)
	}
	return labels, rows.Err()
}

// ListDependenciesForTasks returns edges keyed by child task id.
func (s *Store) ListDependenciesForTasks(ctx context.Context, ids []string) (map[string][]models.Dependency, error) {
	deps := make(map[string][]models.Dependency)
	if len(ids) == 0 {
		return deps, nil
	}

	query := fmt.Sprintf("SELECT child_id, parent_id, type FROM task_deps WHERE child_id IN (%s)", placeholders(len(ids)))
	rows, err := s.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var childID, parentID, depType string
		if err := rows.Scan(&childID, &parentID, &depType); err != nil {
			return nil, err
		}
		deps[childID] = append(deps[childID], models.Dependency{ParentID: parentID, Type: depType})
	}
	return deps, rows.Err()
}

// CloseTasks closes every listed task. If any id is missing, nothing is
// modified and ErrTaskNotFound is returned.
func (s *Store) CloseTasks(ctx context.Context, ids []string, closedAt time.Time) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		if err := requireAllTasksExist(ctx, tx, ids); err != nil {
			return err
		}
		args := []any{string(models.StatusClosed), dbFormatTime(closedAt), dbFormatTime(closedAt)}
		for _, id := range ids {
			args = append(args, id)
		}
		query := fmt.Sprintf("UPDATE tasks SET status = ?, closed_at = ?, updated_at = ? WHERE id IN (%s)", placeholders(len(ids)))
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
}

// ReopenTasks reopens every listed task and clears closed_at. All-or-nothing
// on missing ids like CloseTasks.
func (s *Store) ReopenTasks(ctx context.Context, ids []string, reopenedAt time.Time) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		if err := requireAllTasksExist(ctx, tx, ids); err != nil {
			return err
		}
		args := []any{string(models.StatusOpen), dbFormatTime(reopenedAt)}
		for _, id := range ids {
			args = append(args, id)
		}
		query := fmt.Sprintf("UPDATE tasks SET status = ?, closed_at = NULL, updated_at = ? WHERE id IN (%s)", placeholders(len(ids)))
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
}

// DependencyTree walks blockers and dependents of one task. Depth is capped
// and cycles are cut on the visited path.
func (s *Store) DependencyTree(ctx context.Context, id string) ([]models.DepTreeNode, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE
		upstream(id, depth, dep_type, path) AS (
			SELECT parent_id, 1, type, ',' || ? || ',' || parent_id || ','
			FROM task_deps WHERE child_id = ?
			UNION ALL
			SELECT d.parent_id, u.depth + 1, d.type, u.path || d.parent_id || ','
			FROM task_deps d
			JOIN upstream u ON d.child_id = u.id
			WHERE u.depth < %d
			AND INSTR(u.path, ',' || d.parent_id || ',') = 0
		),
		downstream(id, depth, dep_type, path) AS (
			SELECT child_id, 1, type, ',' || ? || ',' || child_id || ','
			FROM task_deps WHERE parent_id = ?
			UNION ALL
			SELECT d.child_id, dn.depth + 1, d.type, dn.path || d.child_id || ','
			FROM task_deps d
			JOIN downstream dn ON d.parent_id = dn.id
			WHERE dn.depth < %d
			AND INSTR(dn.path, ',' || d.child_id || ',') = 0
		)
		SELECT t.id, t.title, t.status, t.type, u.depth, 'up' AS direction, u.dep_type
		FROM upstream u
		JOIN tasks t ON t.id = u.id
		UNION ALL
		SELECT t.id, t.title, t.status, t.type, d.depth, 'down' AS direction, d.dep_type
		FROM downstream d
		JOIN tasks t ON t.id = d.id
		ORDER BY 6, 5, 1
	`, models.DependencyTreeMaxDepth, models.DependencyTreeMaxDepth)

	rows, err := s.db.QueryContext(ctx, query, id, id, id, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []models.DepTreeNode
	for rows.Next() {
		var node models.DepTreeNode
		if err := rows.Scan(&node.ID, &node.Title, &node.Status, &node.Type, &node.Depth, &node.Direction, &node.DepType); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// StoreInfo returns schema version and per-status task counts.
func (s *Store) StoreInfo(ctx context.Context) (*StoreInfo, error) {
	info := &StoreInfo{TaskCounts: make(map[string]int)}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return nil, err
	}
	info.SchemaVersion = version

	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM tasks GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	total := 0
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		info.TaskCounts[status] = count
		total += count
	}
	info.TotalTasks = total

	return info, rows.Err()
}

// CleanupClosedTasks removes (or with dryRun only reports) closed tasks
// whose last update is older than cutoff.
func (s *Store) CleanupClosedTasks(ctx context.Context, cutoff time.Time, dryRun bool) (*CleanupResult, error) {
	ids, err := queryStrings(ctx, s.db, "SELECT id FROM tasks WHERE status = ? AND updated_at < ? ORDER BY id", string(models.StatusClosed), dbFormatTime(cutoff))
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{TaskIDs: ids, Count: len(ids), DryRun: dryRun}
	if dryRun || len(ids) == 0 {
		return result, nil
	}

	query := fmt.Sprintf("DELETE FROM tasks WHERE id IN (%s)", placeholders(len(ids)))
	if _, err := s.db.ExecContext(ctx, query, stringArgs(ids)...); err != nil {
		return nil, err
	}
	return result, nil
}

func insertTaskRow(ctx context.Context, q dbtx, task *models.Task) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tasks (
			id, title, status, type, priority, description, acceptance_criteria,
			design, notes, assignee, spec_id, parent_id, source_repo, custom,
			created_at, updated_at, closed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		task.ID,
		task.Title,
		task.Status,
		task.Type,
		task.Priority,
		nullIfEmpty(task.Description),
		nullIfEmpty(task.AcceptanceCriteria),
		nullIfEmpty(task.Design),
		nullIfEmpty(task.Notes),
		nullIfEmpty(task.Assignee),
		nullIfEmpty(task.SpecID),
		nullIfEmpty(task.ParentID),
		nullIfEmpty(task.SourceRepo),
		customToJSON(task.Custom),
		dbFormatTime(task.CreatedAt),
		dbFormatTime(task.UpdatedAt),
		nullTime(task.ClosedAt),
	)
	return err
}

func updateTaskExec(ctx context.Context, q dbtx, id string, update TaskUpdate) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}

	set := []string{}
	args := []any{}

	appendString := func(column string, value *string, nullable bool) {
		if value == nil {
			return
		}
		set = append(set, column+" = ?")
		if nullable {
			args = append(args, nullIfEmpty(*value))
			return
		}
		args = append(args, *value)
	}

	appendString("title", update.Title, false)
	appendString("status", update.Status, false)
	appendString("type", update.Type, false)
	if update.Priority != nil {
		set = append(set, "priority = ?")
		args = append(args, *update.Priority)
	}
	appendString("description", update.Description, true)
	appendString("acceptance_criteria", update.AcceptanceCriteria, true)
	appendString("design", update.Design, true)
	appendString("notes", update.Notes, true)
	appendString("assignee", update.Assignee, true)
	appendString("spec_id", update.SpecID, true)
	appendString("parent_id", update.ParentID, true)
	appendString("source_repo", update.SourceRepo, true)
	if update.ClosedAt != nil {
		set = append(set, "closed_at = ?")
		args = append(args, nullTime(update.ClosedAt))
	} else if update.ClearClosedAt {
		set = append(set, "closed_at = NULL")
	}
	if update.Custom != nil {
		set = append(set, "custom = ?")
		args = append(args, customToJSON(*update.Custom))
	}

	set = append(set, "updated_at = ?")
	args = append(args, dbFormatTime(update.UpdatedAt))

	args = append(args, id)
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = ?", strings.Join(set, ", "))
	_, err := q.ExecContext(ctx, query, args...)
	return err
}

func addDependencyExec(ctx context.Context, q dbtx, childID, parentID, depType string) error {
	_, err := q.ExecContext(ctx, "INSERT OR IGNORE INTO task_deps (child_id, parent_id, type) VALUES (?, ?, ?)", childID, parentID, depType)
	return err
}

func removeDependenciesExec(ctx context.Context, q dbtx, childID string) error {
	_, err := q.ExecContext(ctx, "DELETE FROM task_deps WHERE child_id = ?", childID)
	return err
}

func replaceLabelsExec(ctx context.Context, q dbtx, id string, labels []string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM task_labels WHERE task_id = ?", id); err != nil {
		return err
	}
	return insertLabels(ctx, q, id, labels)
}

func insertLabels(ctx context.Context, q dbtx, id string, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	_, err := q.ExecContext(ctx, "INSERT OR IGNORE INTO task_labels (task_id, label) VALUES "+labelValues(len(labels)), labelArgs(id, labels)...)
	return err
}

func insertDeps(ctx context.Context, q dbtx, childID string, deps []models.Dependency) error {
	if len(deps) == 0 {
		return nil
	}
	values := make([]string, len(deps))
	args := make([]any, 0, len(deps)*3)
	for i, dep := range deps {
		values[i] = "(?, ?, ?)"
		args = append(args, childID, dep.ParentID, dep.Type)
	}
	_, err := q.ExecContext(ctx, "INSERT OR IGNORE INTO task_deps (child_id, parent_id, type) VALUES "+strings.Join(values, ","), args...)
	return err
}

func requireAllTasksExist(ctx context.Context, q dbtx, ids []string) error {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM tasks WHERE id IN (%s)", placeholders(len(ids)))
	if err := q.QueryRowContext(ctx, query, stringArgs(ids)...).Scan(&count); err != nil {
		return err
	}
	if count != len(ids) {
		return ErrTaskNotFound
	}
	return nil
}

func scanTask(scanner interface{ Scan(dest ...any) error }) (*models.Task, error) {
	var task models.Task
	var description, acceptance, design, notes sql.NullString
	var assignee, specID, parentID, sourceRepo sql.NullString
	var customJSON, closedAt sql.NullString
	var createdAt, updatedAt string

	if err := scanner.Scan(
		&task.ID,
		&task.Title,
		&task.Status,
		&task.Type,
		&task.Priority,
		&description,
		&acceptance,
		&design,
		&notes,
		&assignee,
		&specID,
		&parentID,
		&sourceRepo,
		&customJSON,
		&createdAt,
		&updatedAt,
		&closedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	task.Description = description.String
	task.AcceptanceCriteria = acceptance.String
	task.Design = design.String
	task.Notes = notes.String
	task.Assignee = assignee.String
	task.SpecID = specID.String
	task.ParentID = parentID.String
	task.SourceRepo = sourceRepo.String

	var err error
	if task.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	if task.UpdatedAt, err = dbParseTime(updatedAt); err != nil {
		return nil, err
	}
	if closedAt.Valid {
		parsed, err := dbParseTime(closedAt.String)
		if err != nil {
			return nil, err
		}
		task.ClosedAt = &parsed
	}
	if customJSON.Valid && customJSON.String != "" {
		if err := json.Unmarshal([]byte(customJSON.String), &task.Custom); err != nil {
			return nil, fmt.Errorf("parse custom JSON: %w", err)
		}
	}

	return &task, nil
}

func queryStrings(ctx context.Context, q dbtx, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

func placeholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimRight(strings.Repeat("?,", count), ",")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func customToJSON(m map[string]string) any {
	if len(m) == 0 {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return string(data)
}

func nullTime(value *time.Time) any {
	if value == nil || value.IsZero() {
		return nil
	}
	return dbFormatTime(*value)
}

func dbFormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func dbParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func labelValues(count int) string {
	values := make([]string, count)
	for i := range values {
		values[i] = "(?, ?)"
	}
	return strings.Join(values, ",")
}

func labelArgs(id string, labels []string) []any {
	args := make([]any, 0, len(labels)*2)
	for _, label := range labels {
		args = append(args, id, label)
	}
	return args
}
