package queue

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cuemby/nbsched/pkg/types"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore implements Store on a database/sql tasks table
type SQLStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the sqlite queue database at path. The tasks table is
// owned by the submission front end and must already exist.
func NewSQLiteStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", ErrUnavailable, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to reach database: %v", ErrUnavailable, err)
	}

	return NewSQLStore(db), nil
}

// NewSQLStore wraps an open database handle
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// ListTasks implements Store
func (s *SQLStore) ListTasks(ctx context.Context) ([]types.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, task_type, duration, program, status, pwd FROM tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list tasks: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var tasks []types.Task
	for rows.Next() {
		var (
			task                                     types.Task
			owner, taskType, program, status, passwd sql.NullString
			duration                                 sql.NullFloat64
		)
		if err := rows.Scan(&task.ID, &owner, &taskType, &duration, &program, &status, &passwd); err != nil {
			return nil, fmt.Errorf("%w: scan task: %v", ErrUnavailable, err)
		}
		task.Owner = owner.String
		task.TaskType = taskType.String
		task.Duration = int(duration.Float64)
		task.Program = program.String
		task.Status = types.TaskStatus(status.String)
		task.Password = passwd.String
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list tasks: %v", ErrUnavailable, err)
	}

	return tasks, nil
}

// UpdateStatus implements Store
func (s *SQLStore) UpdateStatus(ctx context.Context, id int, status types.TaskStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("%w: update status of task %d: %v", ErrUnavailable, id, err)
	}

	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("update status of task %d: %w", id, ErrTaskNotFound)
	}
	return nil
}

// DeleteTask implements Store
func (s *SQLStore) DeleteTask(ctx context.Context, id int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: delete task %d: %v", ErrUnavailable, id, err)
	}
	return nil
}
