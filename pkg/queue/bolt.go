package queue

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuemby/nbsched/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var bucketTasks = []byte("tasks")

// DefaultLockTimeout bounds how long a call waits for the file lock
const DefaultLockTimeout = 2 * time.Second

// BoltStore implements Store on a bbolt file. bbolt holds an exclusive lock
// while open, so the file is opened per call and released right after; the
// submission front end can use the same file between calls.
type BoltStore struct {
	path        string
	lockTimeout time.Duration
}

// taskRecord is the JSON layout of a row
type taskRecord struct {
	ID       int    `json:"id"`
	Owner    string `json:"owner"`
	TaskType string `json:"task_type"`
	Duration int    `json:"duration"`
	Program  string `json:"program"`
	Status   string `json:"status"`
	Password string `json:"pwd"`
}

// NewBoltStore creates the tasks bucket if needed and returns the store
func NewBoltStore(path string) (*BoltStore, error) {
	s := &BoltStore{path: path, lockTimeout: DefaultLockTimeout}

	err := s.update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTasks)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close is a no-op; the file is only open during calls
func (s *BoltStore) Close() error {
	return nil
}

func (s *BoltStore) open() (*bolt.DB, error) {
	db, err := bolt.Open(s.path, 0600, &bolt.Options{Timeout: s.lockTimeout})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrUnavailable, s.path, err)
	}
	return db, nil
}

func (s *BoltStore) view(fn func(tx *bolt.Tx) error) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.View(fn)
}

func (s *BoltStore) update(fn func(tx *bolt.Tx) error) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(fn)
}

// taskKey encodes ids big-endian so cursor order is id order
func taskKey(id int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

// Put inserts or replaces a task row
func (s *BoltStore) Put(ctx context.Context, task types.Task) error {
	data, err := json.Marshal(taskRecord{
		ID:       task.ID,
		Owner:    task.Owner,
		TaskType: task.TaskType,
		Duration: task.Duration,
		Program:  task.Program,
		Status:   string(task.Status),
		Password: task.Password,
	})
	if err != nil {
		return err
	}

	return s.update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTasks).Put(taskKey(task.ID), data)
	})
}

// ListTasks implements Store
func (s *BoltStore) ListTasks(ctx context.Context) ([]types.Task, error) {
	var tasks []types.Task
	err := s.view(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTasks)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var rec taskRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("%w: decode task %x: %v", ErrUnavailable, k, err)
			}
			tasks = append(tasks, rec.task())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateStatus implements Store
func (s *BoltStore) UpdateStatus(ctx context.Context, id int, status types.TaskStatus) error {
	return s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTasks)
		data := b.Get(taskKey(id))
		if data == nil {
			return fmt.Errorf("update status of task %d: %w", id, ErrTaskNotFound)
		}

		var rec taskRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("%w: decode task %d: %v", ErrUnavailable, id, err)
		}
		rec.Status = string(status)

		updated, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(taskKey(id), updated)
	})
}

// DeleteTask implements Store
func (s *BoltStore) DeleteTask(ctx context.Context, id int) error {
	return s.update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTasks).Delete(taskKey(id))
	})
}

func (r taskRecord) task() types.Task {
	return types.Task{
		ID:       r.ID,
		Owner:    r.Owner,
		TaskType: r.TaskType,
		Duration: r.Duration,
		Program:  r.Program,
		Status:   types.TaskStatus(r.Status),
		Password: r.Password,
	}
}
