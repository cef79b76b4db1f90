package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/maios-ai/orchestrator/internal/model"

	_ "modernc.org/sqlite"
)

const createExecutionsTable = `
CREATE TABLE IF NOT EXISTS executions (
    id         TEXT PRIMARY KEY,
    status     TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    record     BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_executions_status ON executions(status);
CREATE INDEX IF NOT EXISTS idx_executions_created_at ON executions(created_at)`

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite. The full execution record is
// serialized as a JSON document; id, status and created_at are mirrored into
// indexed columns for filtering and ordering. Updates replace the whole row,
// matching the single-writer-per-execution model.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createExecutionsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create executions table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create inserts a new execution record.
func (s *SQLiteStore) Create(ctx context.Context, e *model.Execution) error {
	record, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal execution: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (id, status, created_at, record)
		VALUES (?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		e.ExecutionID, e.Status, e.CreatedAt, record,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("create execution %s: %w", e.ExecutionID, ErrDuplicateKey)
	}
	return nil
}

// Get retrieves an execution by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Execution, error) {
	var record []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT record FROM executions WHERE id = ?", id,
	).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get execution: %w", err)
	}

	return unmarshalExecution(record)
}

// Update replaces the stored record for e.ExecutionID wholesale.
func (s *SQLiteStore) Update(ctx context.Context, e *model.Execution) error {
	record, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal execution: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE executions SET status = ?, record = ? WHERE id = ?",
		e.Status, record, e.ExecutionID,
	)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update execution %s: %w", e.ExecutionID, ErrNotFound)
	}
	return nil
}

// List returns executions ordered by created_at descending, optionally
// filtered to one status, truncated to the clamped limit.
func (s *SQLiteStore) List(ctx context.Context, statusFilter string, limit int) ([]*model.Execution, error) {
	limit = ClampLimit(limit)

	query := "SELECT record FROM executions ORDER BY created_at DESC, id DESC LIMIT ?"
	args := []any{limit}
	if statusFilter != "" {
		query = "SELECT record FROM executions WHERE status = ? ORDER BY created_at DESC, id DESC LIMIT ?"
		args = []any{statusFilter, limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var executions []*model.Execution
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		e, err := unmarshalExecution(record)
		if err != nil {
			return nil, err
		}
		executions = append(executions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}

	return executions, nil
}

// Delete removes the record with the given id, reporting whether it existed.
func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM executions WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete execution: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return rows > 0, nil
}

// GetStats returns aggregate counts and the average terminal duration.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{CountByStatus: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM executions GROUP BY status",
	)
	if err != nil {
		return nil, fmt.Errorf("count executions by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.CountByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	var avg sql.NullFloat64
	err = s.db.QueryRowContext(ctx,
		"SELECT AVG(json_extract(record, '$.summary.total_duration_ms')) FROM executions",
	).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("average duration: %w", err)
	}
	if avg.Valid {
		stats.AvgDurationMS = avg.Float64
	}

	return stats, nil
}

func unmarshalExecution(record []byte) (*model.Execution, error) {
	e := &model.Execution{}
	if err := json.Unmarshal(record, e); err != nil {
		return nil, fmt.Errorf("unmarshal execution: %w", err)
	}
	return e, nil
}
