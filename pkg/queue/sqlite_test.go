package queue

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/cuemby/nbsched/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const createTasks = `CREATE TABLE tasks (
	id INTEGER PRIMARY KEY,
	owner TEXT,
	task_type TEXT,
	duration INTEGER,
	program TEXT,
	status TEXT,
	pwd TEXT
)`

// newSQLiteQueue creates a queue database the way the front end does
func newSQLiteQueue(t *testing.T) (*SQLStore, *sql.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "queue.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(createTasks)
	require.NoError(t, err)

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store, db
}

func insertTask(t *testing.T, db *sql.DB, id int, owner, program, status string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO tasks (id, owner, task_type, duration, program, status, pwd)
		VALUES (?, ?, 'notebook', 30, ?, ?, 'secret')`, id, owner, program, status)
	require.NoError(t, err)
}

func TestSQLStoreListTasksOrdered(t *testing.T) {
	store, db := newSQLiteQueue(t)
	insertTask(t, db, 3, "carol", "c.ipynb", "Creating")
	insertTask(t, db, 1, "alice", "a.ipynb", "Running")
	insertTask(t, db, 2, "bob", "b.ipynb", "")

	tasks, err := store.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	assert.Equal(t, []int{1, 2, 3}, []int{tasks[0].ID, tasks[1].ID, tasks[2].ID})
	assert.Equal(t, "alice", tasks[0].Owner)
	assert.Equal(t, "notebook", tasks[0].TaskType)
	assert.Equal(t, 30, tasks[0].Duration)
	assert.Equal(t, "a.ipynb", tasks[0].Program)
	assert.Equal(t, types.TaskStatusRunning, tasks[0].Status)
	assert.Equal(t, "secret", tasks[0].Password)
	assert.Equal(t, types.TaskStatusUnset, tasks[1].Status)
}

func TestSQLStoreNullColumns(t *testing.T) {
	store, db := newSQLiteQueue(t)
	_, err := db.Exec(`INSERT INTO tasks (id) VALUES (7)`)
	require.NoError(t, err)

	tasks, err := store.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, types.Task{ID: 7}, tasks[0])
}

func TestSQLStoreEmpty(t *testing.T) {
	store, _ := newSQLiteQueue(t)

	tasks, err := store.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestSQLStoreUpdateStatus(t *testing.T) {
	store, db := newSQLiteQueue(t)
	insertTask(t, db, 4, "dave", "d.ipynb", "Creating")

	ctx := context.Background()
	require.NoError(t, store.UpdateStatus(ctx, 4, types.TaskStatusReady))

	tasks, err := store.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, types.TaskStatusReady, tasks[0].Status)

	err = store.UpdateStatus(ctx, 99, types.TaskStatusReady)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestSQLStoreDeleteTask(t *testing.T) {
	store, db := newSQLiteQueue(t)
	insertTask(t, db, 1, "alice", "a.ipynb", "Finished")
	insertTask(t, db, 2, "bob", "b.ipynb", "Running")

	ctx := context.Background()
	require.NoError(t, store.DeleteTask(ctx, 1))
	require.NoError(t, store.DeleteTask(ctx, 1), "deleting a missing row is not an error")

	tasks, err := store.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 2, tasks[0].ID)
}

func TestSQLStoreMissingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.ListTasks(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSQLStoreClosed(t *testing.T) {
	store, _ := newSQLiteQueue(t)
	require.NoError(t, store.Close())

	_, err := store.ListTasks(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}
