package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mainframe-ci/ispw-generate/internal/storage"
	"github.com/mainframe-ci/ispw-generate/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

type SQLiteStore struct {
	db *sql.DB
}

func New(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *storage.RunRecord) error {
	taskIDs, err := json.Marshal(run.TaskIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal task IDs: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, status, ces_url, srid, token, container_id, release_id,
			task_level, task_ids, runtime_config, change_type, exec_stat,
			auto_deploy, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Status), run.CesURL, run.Srid, toNullString(run.Token),
		run.ContainerID, run.ReleaseID, run.TaskLevel, string(taskIDs),
		run.RuntimeConfig, run.ChangeType, run.ExecStat, boolToInt(run.AutoDeploy),
		run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*storage.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter storage.RunFilter) ([]*storage.RunRecord, int, error) {
	limit := filter.Limit
	if limit == 0 {
		limit = 100
	}

	where := "1=1"
	args := []interface{}{}
	if filter.Status != nil {
		where += " AND status = ?"
		args = append(args, string(*filter.Status))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %w", err)
	}

	if filter.Cursor != nil {
		where += " AND created_at < ?"
		args = append(args, filter.Cursor.UnixNano())
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE `+where+` ORDER BY created_at DESC LIMIT ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []*storage.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return records, total, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, id string, status types.RunStatus, dispatchedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, dispatched_at = ? WHERE id = ?`,
		string(status), dispatchedAt.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) UpdateRunResponse(ctx context.Context, id string, response map[string]interface{}) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, response_payload = ?, completed_at = ? WHERE id = ?`,
		string(types.StatusCompleted), string(payload), time.Now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to update run response: %w", err)
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) UpdateRunPayload(ctx context.Context, id string, response map[string]interface{}) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET response_payload = ? WHERE id = ?`,
		string(payload), id)
	if err != nil {
		return fmt.Errorf("failed to update run payload: %w", err)
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) UpdateRunError(ctx context.Context, id string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(types.StatusFailed), errMsg, time.Now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to update run error: %w", err)
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) GetQueuedRuns(ctx context.Context) ([]*storage.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE status = ? ORDER BY created_at ASC`,
		string(types.StatusQueued))
	if err != nil {
		return nil, fmt.Errorf("failed to get queued runs: %w", err)
	}
	defer rows.Close()

	var records []*storage.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queued runs: %w", err)
	}
	return records, nil
}

func (s *SQLiteStore) GetStats(ctx context.Context) (*types.RunStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	defer rows.Close()

	stats := &types.RunStats{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		switch types.RunStatus(status) {
		case types.StatusQueued:
			stats.Queued = count
		case types.StatusProcessing:
			stats.Processing = count
		case types.StatusCompleted:
			stats.Completed = count
		case types.StatusFailed:
			stats.Failed = count
		}
		stats.TotalRuns += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stats: %w", err)
	}
	return stats, nil
}

const runColumns = `id, status, ces_url, srid, token, container_id, release_id,
	task_level, task_ids, runtime_config, change_type, exec_stat, auto_deploy,
	response_payload, error, created_at, dispatched_at, completed_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*storage.RunRecord, error) {
	var (
		run          storage.RunRecord
		status       string
		token        sql.NullString
		taskIDs      string
		autoDeploy   int
		response     sql.NullString
		errMsg       sql.NullString
		createdAt    int64
		dispatchedAt sql.NullInt64
		completedAt  sql.NullInt64
	)

	err := row.Scan(
		&run.ID, &status, &run.CesURL, &run.Srid, &token, &run.ContainerID,
		&run.ReleaseID, &run.TaskLevel, &taskIDs, &run.RuntimeConfig,
		&run.ChangeType, &run.ExecStat, &autoDeploy, &response, &errMsg,
		&createdAt, &dispatchedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Status = types.RunStatus(status)
	run.AutoDeploy = autoDeploy != 0
	run.CreatedAt = time.Unix(0, createdAt)

	if err := json.Unmarshal([]byte(taskIDs), &run.TaskIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task IDs: %w", err)
	}
	if token.Valid {
		run.Token = &token.String
	}
	if response.Valid && response.String != "" {
		if err := json.Unmarshal([]byte(response.String), &run.ResponsePayload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response payload: %w", err)
		}
	}
	if errMsg.Valid {
		run.Error = &errMsg.String
	}
	if dispatchedAt.Valid {
		t := time.Unix(0, dispatchedAt.Int64)
		run.DispatchedAt = &t
	}
	if completedAt.Valid {
		t := time.Unix(0, completedAt.Int64)
		run.CompletedAt = &t
	}

	return &run, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
