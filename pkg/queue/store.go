package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuemby/nbsched/pkg/types"
)

var (
	// ErrUnavailable means the queue could not be reached or read
	ErrUnavailable = errors.New("queue unavailable")

	// ErrTaskNotFound means no row exists for the id
	ErrTaskNotFound = errors.New("task not found")
)

// Store is the read/write façade over the external task table. The store is
// the single source of truth for desired state; nbsched only ever writes the
// status column or deletes whole rows.
type Store interface {
	// ListTasks returns every task ordered by ascending id
	ListTasks(ctx context.Context) ([]types.Task, error)

	// UpdateStatus sets the status column of one task
	UpdateStatus(ctx context.Context, id int, status types.TaskStatus) error

	// DeleteTask removes a task row. Deleting a missing row is not an error.
	DeleteTask(ctx context.Context, id int) error

	Close() error
}

// Open returns the Store for a driver name
func Open(driver, path string) (Store, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return NewSQLiteStore(path)
	case "bolt":
		return NewBoltStore(path)
	default:
		return nil, fmt.Errorf("unsupported queue driver %q", driver)
	}
}
