package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/untoldecay/grns/internal/models"
)

const gitRepoColumns = "id, slug, default_branch, created_at, updated_at"
const taskGitRefColumns = "r.id, r.task_id, r.repo_id, g.slug, r.relation, r.object_type, r.object_value, r.resolved_commit, r.note, r.meta_json, r.created_at, r.updated_at"

// UpsertGitRepo interns a canonical repo slug and returns the catalog row.
// Concurrent upserts of the same slug collapse to one row.
func (s *Store) UpsertGitRepo(ctx context.Context, repo *models.GitRepo) (*models.GitRepo, error) {
	var out *models.GitRepo
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		stored, err := upsertGitRepoExec(ctx, tx, repo)
		if err != nil {
			return err
		}
		out = stored
		return nil
	})
	return out, err
}

// GetGitRepoBySlug returns one repo by canonical slug, or nil.
func (s *Store) GetGitRepoBySlug(ctx context.Context, slug string) (*models.GitRepo, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+gitRepoColumns+" FROM git_repos WHERE slug = ?", strings.ToLower(strings.TrimSpace(slug)))
	return scanGitRepo(row)
}

// CreateTaskGitRef inserts one git ref row. A unique constraint error means
// an equivalent ref already exists on the task.
func (s *Store) CreateTaskGitRef(ctx context.Context, ref *models.TaskGitRef) error {
	if ref == nil {
		return fmt.Errorf("task git ref is required")
	}

	now := time.Now().UTC()
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = now
	}
	if ref.UpdatedAt.IsZero() {
		ref.UpdatedAt = ref.CreatedAt
	}

	metaJSON, err := gitRefMetaToJSON(ref.Meta)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO task_git_refs (
			id, task_id, repo_id, relation, object_type, object_value,
			resolved_commit, note, meta_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ref.ID,
		ref.TaskID,
		ref.RepoID,
		ref.Relation,
		ref.ObjectType,
		ref.ObjectValue,
		strings.TrimSpace(ref.ResolvedCommit),
		nullIfEmpty(strings.TrimSpace(ref.Note)),
		metaJSON,
		dbFormatTime(ref.CreatedAt),
		dbFormatTime(ref.UpdatedAt),
	)
	return err
}

// GetTaskGitRef returns one git ref by id, or nil.
func (s *Store) GetTaskGitRef(ctx context.Context, id string) (*models.TaskGitRef, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+taskGitRefColumns+`
		FROM task_git_refs r
		JOIN git_repos g ON g.id = r.repo_id
		WHERE r.id = ?
	`, id)
	return scanTaskGitRef(row)
}

// ListTaskGitRefs lists git refs for one task, newest first.
func (s *Store) ListTaskGitRefs(ctx context.Context, taskID string) ([]models.TaskGitRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskGitRefColumns+`
		FROM task_git_refs r
		JOIN git_repos g ON g.id = r.repo_id
		WHERE r.task_id = ?
		ORDER BY r.created_at DESC, r.id ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := []models.TaskGitRef{}
	for rows.Next() {
		ref, err := scanTaskGitRef(rows)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			refs = append(refs, *ref)
		}
	}
	return refs, rows.Err()
}

// DeleteTaskGitRef deletes one git ref row by id.
func (s *Store) DeleteTaskGitRef(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM task_git_refs WHERE id = ?", id)
	return err
}

// CloseTasksWithGitRefs closes every listed task and writes one closed_by
// annotation per task, all in a single transaction. Annotations equal to an
// existing ref are skipped. Returns the number of newly created refs.
func (s *Store) CloseTasksWithGitRefs(ctx context.Context, ids []string, closedAt time.Time, refs []CloseTaskGitRefInput) (int, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	refsByTask := make(map[string]CloseTaskGitRefInput, len(refs))
	for _, ref := range refs {
		if strings.TrimSpace(ref.TaskID) == "" {
			return 0, fmt.Errorf("close git ref task_id is required")
		}
		refsByTask[ref.TaskID] = ref
	}
	for _, id := range ids {
		if _, ok := refsByTask[id]; !ok {
			return 0, fmt.Errorf("close git ref missing for task %s", id)
		}
	}

	created := 0
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		created = 0
		if err := requireAllTasksExist(ctx, tx, ids); err != nil {
			return err
		}

		args := []any{string(models.StatusClosed), dbFormatTime(closedAt), dbFormatTime(closedAt)}
		for _, id := range ids {
			args = append(args, id)
		}
		query := fmt.Sprintf("UPDATE tasks SET status = ?, closed_at = ?, updated_at = ? WHERE id IN (%s)", placeholders(len(ids)))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}

		for _, id := range ids {
			input := refsByTask[id]

			repo, err := upsertGitRepoExec(ctx, tx, &models.GitRepo{Slug: input.RepoSlug})
			if err != nil {
				return err
			}
			if repo == nil {
				return fmt.Errorf("git repo not found after upsert")
			}

			refID, err := GenerateTaskGitRefID(func(candidate string) (bool, error) {
				return rowExists(ctx, tx, "SELECT 1 FROM task_git_refs WHERE id = ? LIMIT 1", candidate)
			})
			if err != nil {
				return err
			}

			metaJSON, err := gitRefMetaToJSON(input.Meta)
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO task_git_refs (
					id, task_id, repo_id, relation, object_type, object_value,
					resolved_commit, note, meta_json, created_at, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				refID,
				id,
				repo.ID,
				input.Relation,
				input.ObjectType,
				input.ObjectValue,
				strings.TrimSpace(input.ResolvedCommit),
				nullIfEmpty(strings.TrimSpace(input.Note)),
				metaJSON,
				dbFormatTime(closedAt),
				dbFormatTime(closedAt),
			)
			if err != nil {
				if IsUniqueConstraint(err) {
					continue
				}
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func upsertGitRepoExec(ctx context.Context, q dbtx, repo *models.GitRepo) (*models.GitRepo, error) {
	if repo == nil {
		return nil, fmt.Errorf("repo is required")
	}

	repo.Slug = strings.ToLower(strings.TrimSpace(repo.Slug))
	if repo.Slug == "" {
		return nil, fmt.Errorf("repo slug is required")
	}

	if strings.TrimSpace(repo.ID) == "" {
		id, err := GenerateGitRepoID(func(candidate string) (bool, error) {
			return rowExists(ctx, q, "SELECT 1 FROM git_repos WHERE id = ? LIMIT 1", candidate)
		})
		if err != nil {
			return nil, err
		}
		repo.ID = id
	}

	now := time.Now().UTC()
	if repo.CreatedAt.IsZero() {
		repo.CreatedAt = now
	}
	if repo.UpdatedAt.IsZero() {
		repo.UpdatedAt = now
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO git_repos (id, slug, default_branch, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			default_branch = COALESCE(excluded.default_branch, git_repos.default_branch),
			updated_at = excluded.updated_at
	`,
		repo.ID,
		repo.Slug,
		nullIfEmpty(strings.TrimSpace(repo.DefaultBranch)),
		dbFormatTime(repo.CreatedAt),
		dbFormatTime(repo.UpdatedAt),
	)
	if err != nil {
		return nil, err
	}

	row := q.QueryRowContext(ctx, "SELECT "+gitRepoColumns+" FROM git_repos WHERE slug = ?", repo.Slug)
	return scanGitRepo(row)
}

func scanGitRepo(scanner interface{ Scan(dest ...any) error }) (*models.GitRepo, error) {
	var repo models.GitRepo
	var defaultBranch sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(&repo.ID, &repo.Slug, &defaultBranch, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	repo.DefaultBranch = defaultBranch.String
	if repo.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	if repo.UpdatedAt, err = dbParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &repo, nil
}

func scanTaskGitRef(scanner interface{ Scan(dest ...any) error }) (*models.TaskGitRef, error) {
	var ref models.TaskGitRef
	var resolvedCommit, note, metaJSON sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&ref.ID,
		&ref.TaskID,
		&ref.RepoID,
		&ref.Repo,
		&ref.Relation,
		&ref.ObjectType,
		&ref.ObjectValue,
		&resolvedCommit,
		&note,
		&metaJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	ref.ResolvedCommit = resolvedCommit.String
	ref.Note = note.String
	if ref.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	if ref.UpdatedAt, err = dbParseTime(updatedAt); err != nil {
		return nil, err
	}
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &ref.Meta); err != nil {
			return nil, fmt.Errorf("parse task git ref meta_json: %w", err)
		}
	}
	return &ref, nil
}

func gitRefMetaToJSON(meta map[string]any) (any, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal task git ref meta_json: %w", err)
	}
	return string(data), nil
}
