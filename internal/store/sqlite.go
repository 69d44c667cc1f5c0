package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/me/wfkit/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// NewRunID returns a fresh run id of the form run_<uuid>.
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

const runColumns = `id, workflow_name, document_path, submit_dir, root_wf_uuid, wf_uuid, user,
	planner_version, state, percent_done, created_at, updated_at`

// CreateRun inserts run. An empty ID is filled with NewRunID, an empty
// state with PLANNED and zero timestamps with the current time.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.State == "" {
		run.State = model.RunStatePlanned
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = run.CreatedAt
	}
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.WorkflowName, run.DocumentPath, run.SubmitDir, run.RootWfUUID, run.WfUUID, run.User,
		run.PlannerVersion, string(run.State), run.PercentDone,
		run.CreatedAt.Format(time.RFC3339Nano), run.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun returns the run with the given id, or nil if there is none.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns a page of runs, newest first, and the total number of
// runs matching the filters.
func (s *SQLiteStore) ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "runs", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var whereClauses []string
	var countArgs []any
	if opts.State != "" {
		whereClauses = append(whereClauses, "state = ?")
		countArgs = append(countArgs, opts.State)
	}
	if opts.WorkflowName != "" {
		whereClauses = append(whereClauses, "workflow_name = ?")
		countArgs = append(countArgs, opts.WorkflowName)
	}
	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`+whereSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listArgs := append(countArgs, opts.Limit, opts.Offset)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs`+whereSQL+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		listArgs...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

// UpdateRun stores the mutable fields of run: state, progress, uuids and
// the planner version. UpdatedAt is set to the current time.
func (s *SQLiteStore) UpdateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "update", "table", "runs", "id", run.ID, "state", run.State)
	run.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET state = ?, percent_done = ?, root_wf_uuid = ?, wf_uuid = ?, planner_version = ?, updated_at = ?
		 WHERE id = ?`,
		string(run.State), run.PercentDone, run.RootWfUUID, run.WfUUID, run.PlannerVersion,
		run.UpdatedAt.Format(time.RFC3339Nano), run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var run model.Run
	var state, createdAt, updatedAt string
	err := row.Scan(&run.ID, &run.WorkflowName, &run.DocumentPath, &run.SubmitDir, &run.RootWfUUID, &run.WfUUID,
		&run.User, &run.PlannerVersion, &state, &run.PercentDone, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	run.State = model.RunState(state)
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	run.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &run, nil
}
