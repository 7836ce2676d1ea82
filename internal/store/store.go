// Package store persists the task graph in a single SQLite file. It keeps
// one writer lane (MaxOpenConns defaults to 1), WAL journaling, and enforces
// cascades through foreign keys.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/untoldecay/grns/internal/models"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const (
	busyTimeoutMS   = 5000
	maxOpenConns    = 1
	maxIdleConns    = 1
	connMaxLifetime = 5 * time.Minute

	maxOpenConnsEnvKey    = "GRNS_DB_MAX_OPEN_CONNS"
	maxIdleConnsEnvKey    = "GRNS_DB_MAX_IDLE_CONNS"
	connMaxLifetimeEnvKey = "GRNS_DB_CONN_MAX_LIFETIME"

	busyRetryInitialInterval = 10 * time.Millisecond
	busyRetryMaxAttempts     = 5
)

// Store wraps the SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the SQLite database at path and applies
// pending migrations.
func Open(path string) (*Store, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	configurePool(db)
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the raw handle for maintenance commands.
func (s *Store) DB() *sql.DB {
	return s.db
}

// TaskExists checks whether a task exists by id.
func (s *Store) TaskExists(id string) (bool, error) {
	return rowExists(context.Background(), s.db, "SELECT 1 FROM tasks WHERE id = ? LIMIT 1", id)
}

// RunInTx executes fn in a single write transaction, retrying a bounded
// number of times while SQLite reports the database busy.
func (s *Store) RunInTx(ctx context.Context, fn func(ImportMutator) error) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		return fn(&txImportMutator{tx: tx})
	})
}

// withWriteTx runs fn inside a transaction with busy retry. fn must be safe
// to re-run from scratch when the whole transaction is retried.
func (s *Store) withWriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	attempt := func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return wrapBusy(err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return wrapBusy(err)
		}
		if err := tx.Commit(); err != nil {
			return wrapBusy(err)
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newBusyBackOff(), busyRetryMaxAttempts), ctx)
	return backoff.Retry(attempt, policy)
}

func newBusyBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = busyRetryInitialInterval
	return b
}

// wrapBusy marks non-busy errors permanent so only lock contention is
// retried.
func wrapBusy(err error) error {
	if err == nil {
		return nil
	}
	if isBusyError(err) {
		return err
	}
	return backoff.Permanent(err)
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}

// IsUniqueConstraint reports whether err is a SQLite unique constraint
// violation.
func IsUniqueConstraint(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func configurePool(db *sql.DB) {
	db.SetMaxOpenConns(intFromEnv(maxOpenConnsEnvKey, maxOpenConns))
	db.SetMaxIdleConns(intFromEnv(maxIdleConnsEnvKey, maxIdleConns))
	db.SetConnMaxLifetime(durationFromEnv(connMaxLifetimeEnvKey, connMaxLifetime))
}

func intFromEnv(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return def
}

func sqliteDSN(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("db path is required")
	}
	u := url.URL{Scheme: "file", Opaque: path}
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "foreign_keys(ON)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	q.Set("_txlock", "immediate")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func rowExists(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// txImportMutator applies import mutations inside one open transaction.
type txImportMutator struct {
	tx *sql.Tx
}

func (m *txImportMutator) TaskExists(id string) (bool, error) {
	return rowExists(context.Background(), m.tx, "SELECT 1 FROM tasks WHERE id = ? LIMIT 1", id)
}

func (m *txImportMutator) CreateTask(ctx context.Context, task *models.Task, labels []string, deps []models.Dependency) error {
	if task == nil {
		return fmt.Errorf("task is required")
	}
	if err := insertTaskRow(ctx, m.tx, task); err != nil {
		return err
	}
	if err := insertLabels(ctx, m.tx, task.ID, labels); err != nil {
		return err
	}
	return insertDeps(ctx, m.tx, task.ID, deps)
}

func (m *txImportMutator) UpdateTask(ctx context.Context, id string, update TaskUpdate) error {
	return updateTaskExec(ctx, m.tx, id, update)
}

func (m *txImportMutator) AddDependency(ctx context.Context, childID, parentID, depType string) error {
	return addDependencyExec(ctx, m.tx, childID, parentID, depType)
}

func (m *txImportMutator) ReplaceLabels(ctx context.Context, id string, labels []string) error {
	return replaceLabelsExec(ctx, m.tx, id, labels)
}

func (m *txImportMutator) RemoveDependencies(ctx context.Context, childID string) error {
	return removeDependenciesExec(ctx, m.tx, childID)
}
