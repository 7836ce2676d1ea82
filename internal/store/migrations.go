package store

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration is a single ordered schema step.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// MigrationStatus reports applied and pending migration versions.
type MigrationStatus struct {
	CurrentVersion   int             `json:"current_version"`
	AvailableVersion int             `json:"available_version"`
	Pending          []MigrationInfo `json:"pending"`
}

// MigrationInfo describes one migration.
type MigrationInfo struct {
	Version     int    `json:"version"`
	Description string `json:"description"`
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "tasks, labels and dependency edges",
		SQL: `
CREATE TABLE IF NOT EXISTS tasks (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  status TEXT NOT NULL,
  type TEXT NOT NULL,
  priority INTEGER NOT NULL,
  description TEXT,
  acceptance_criteria TEXT,
  design TEXT,
  notes TEXT,
  assignee TEXT,
  spec_id TEXT,
  parent_id TEXT,
  source_repo TEXT,
  custom TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  closed_at TEXT
);

CREATE TABLE IF NOT EXISTS task_labels (
  task_id TEXT NOT NULL,
  label TEXT NOT NULL,
  UNIQUE(task_id, label),
  FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS task_deps (
  child_id TEXT NOT NULL,
  parent_id TEXT NOT NULL,
  type TEXT NOT NULL,
  UNIQUE(child_id, parent_id, type),
  FOREIGN KEY (child_id) REFERENCES tasks(id) ON DELETE CASCADE,
  FOREIGN KEY (parent_id) REFERENCES tasks(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_tasks_status_updated ON tasks(status, updated_at);
CREATE INDEX IF NOT EXISTS idx_tasks_spec_id ON tasks(spec_id);
CREATE INDEX IF NOT EXISTS idx_tasks_parent_id ON tasks(parent_id);
CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee);
CREATE INDEX IF NOT EXISTS idx_tasks_source_repo ON tasks(source_repo);
CREATE INDEX IF NOT EXISTS idx_task_labels_label ON task_labels(label);
CREATE INDEX IF NOT EXISTS idx_task_deps_child ON task_deps(child_id);
CREATE INDEX IF NOT EXISTS idx_task_deps_parent ON task_deps(parent_id);
`,
	},
	{
		Version:     2,
		Description: "FTS5 full-text index over task text columns",
		SQL: `
CREATE VIRTUAL TABLE IF NOT EXISTS tasks_fts USING fts5(
	task_id UNINDEXED,
	title,
	description,
	notes
);

INSERT INTO tasks_fts(task_id, title, description, notes)
	SELECT id, title, COALESCE(description, ''), COALESCE(notes, '')
	FROM tasks;

CREATE TRIGGER IF NOT EXISTS tasks_fts_insert AFTER INSERT ON tasks BEGIN
	INSERT INTO tasks_fts(task_id, title, description, notes)
		VALUES (new.id, new.title, COALESCE(new.description, ''), COALESCE(new.notes, ''));
END;

CREATE TRIGGER IF NOT EXISTS tasks_fts_update AFTER UPDATE ON tasks BEGIN
	DELETE FROM tasks_fts WHERE task_id = old.id;
	INSERT INTO tasks_fts(task_id, title, description, notes)
		VALUES (new.id, new.title, COALESCE(new.description, ''), COALESCE(new.notes, ''));
END;

CREATE TRIGGER IF NOT EXISTS tasks_fts_delete AFTER DELETE ON tasks BEGIN
	DELETE FROM tasks_fts WHERE task_id = old.id;
END;
`,
	},
	{
		Version:     3,
		Description: "git repo catalog and task git refs",
		SQL: `
CREATE TABLE IF NOT EXISTS git_repos (
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE,
  default_branch TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS task_git_refs (
  id TEXT PRIMARY KEY,
  task_id TEXT NOT NULL,
  repo_id TEXT NOT NULL,
  relation TEXT NOT NULL,
  object_type TEXT NOT NULL,
  object_value TEXT NOT NULL,
  resolved_commit TEXT NOT NULL DEFAULT '',
  note TEXT,
  meta_json TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  UNIQUE(task_id, repo_id, relation, object_type, object_value, resolved_commit),
  FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE,
  FOREIGN KEY (repo_id) REFERENCES git_repos(id)
);

CREATE INDEX IF NOT EXISTS idx_task_git_refs_task ON task_git_refs(task_id);
CREATE INDEX IF NOT EXISTS idx_task_git_refs_repo ON task_git_refs(repo_id);
`,
	},
	{
		Version:     4,
		Description: "list query index tuning",
		SQL: `
CREATE INDEX IF NOT EXISTS idx_tasks_updated_at_desc ON tasks(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_tasks_type_updated_desc ON tasks(type, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_tasks_assignee_updated_desc ON tasks(assignee, updated_at DESC);
`,
	},
}

const migrationsTableSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at TEXT NOT NULL
);
`

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(migrationsTableSQL)
	return err
}

func currentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func runMigrations(db *sql.DB) error {
	if err := ensureMigrationsTable(db); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	current, err := currentVersion(db)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range sortedMigrations() {
		if m.Version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))", m.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// MigrationPlan reports migration status without applying anything.
func MigrationPlan(db *sql.DB) (*MigrationStatus, error) {
	if err := ensureMigrationsTable(db); err != nil {
		return nil, err
	}
	current, err := currentVersion(db)
	if err != nil {
		return nil, err
	}

	sorted := sortedMigrations()
	available := 0
	if len(sorted) > 0 {
		available = sorted[len(sorted)-1].Version
	}

	var pending []MigrationInfo
	for _, m := range sorted {
		if m.Version > current {
			pending = append(pending, MigrationInfo{Version: m.Version, Description: m.Description})
		}
	}

	return &MigrationStatus{
		CurrentVersion:   current,
		AvailableVersion: available,
		Pending:          pending,
	}, nil
}

func sortedMigrations() []Migration {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return sorted
}
