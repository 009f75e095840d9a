// Package queuetest provides an in-memory queue.Store for tests.
package queuetest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cuemby/nbsched/pkg/queue"
	"github.com/cuemby/nbsched/pkg/types"
)

// Store is an in-memory queue.Store with error injection
type Store struct {
	mu    sync.Mutex
	tasks map[int]types.Task

	// ListErr makes ListTasks fail
	ListErr error

	// FailUpdate and FailDelete make writes for an id fail
	FailUpdate map[int]bool
	FailDelete map[int]bool

	// Updates records successful status writes in call order
	Updates []Update

	// Deletes records successful row deletions in call order
	Deletes []int
}

// Update is one recorded status write
type Update struct {
	ID     int
	Status types.TaskStatus
}

var _ queue.Store = (*Store)(nil)

// New returns a store seeded with tasks
func New(tasks ...types.Task) *Store {
	s := &Store{
		tasks:      make(map[int]types.Task),
		FailUpdate: make(map[int]bool),
		FailDelete: make(map[int]bool),
	}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	return s
}

// Put inserts or replaces a task
func (s *Store) Put(task types.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
}

// Get returns the stored task
func (s *Store) Get(id int) (types.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

// ListTasks implements queue.Store
func (s *Store) ListTasks(ctx context.Context) ([]types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ListErr != nil {
		return nil, s.ListErr
	}

	tasks := make([]types.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// UpdateStatus implements queue.Store
func (s *Store) UpdateStatus(ctx context.Context, id int, status types.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailUpdate[id] {
		return fmt.Errorf("%w: injected update failure for %d", queue.ErrUnavailable, id)
	}
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("update status of task %d: %w", id, queue.ErrTaskNotFound)
	}
	t.Status = status
	s.tasks[id] = t
	s.Updates = append(s.Updates, Update{ID: id, Status: status})
	return nil
}

// DeleteTask implements queue.Store
func (s *Store) DeleteTask(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailDelete[id] {
		return fmt.Errorf("%w: injected delete failure for %d", queue.ErrUnavailable, id)
	}
	delete(s.tasks, id)
	s.Deletes = append(s.Deletes, id)
	return nil
}

// Close implements queue.Store
func (s *Store) Close() error {
	return nil
}
