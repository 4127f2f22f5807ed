package store

import (
	"sync"

	"taskie/backend/internal/models"
)

// Listener is invoked after every mutation. Callbacks run outside the store
// lock and must not assume which mutation fired them; they re-read snapshots.
type Listener func()

// TaskStore is the single in-memory source of truth for the loaded task list.
// It is passive: all mutations arrive through the reconciliation service.
type TaskStore struct {
	mu        sync.RWMutex
	tasks     []models.Task
	loading   bool
	errMsg    string
	listeners map[int]Listener
	nextID    int
}

func NewTaskStore() *TaskStore {
	return &TaskStore{listeners: make(map[int]Listener)}
}

// Subscribe registers a listener and returns its unsubscribe function.
func (s *TaskStore) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *TaskStore) notify() {
	s.mu.RLock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *TaskStore) ReplaceAll(tasks []models.Task) {
	s.mu.Lock()
	s.tasks = make([]models.Task, len(tasks))
	copy(s.tasks, tasks)
	s.mu.Unlock()
	s.notify()
}

// Add appends the task unless its id is already present; a colliding add is a
// silent no-op rather than a merge.
func (s *TaskStore) Add(task models.Task) {
	s.mu.Lock()
	for _, existing := range s.tasks {
		if existing.ID == task.ID {
			s.mu.Unlock()
			return
		}
	}
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()
	s.notify()
}

// Update replaces the entry with a matching id; absent ids are a no-op, an
// update never inserts.
func (s *TaskStore) Update(task models.Task) {
	s.mu.Lock()
	replaced := false
	for i, existing := range s.tasks {
		if existing.ID == task.ID {
			s.tasks[i] = task
			replaced = true
			break
		}
	}
	s.mu.Unlock()
	if replaced {
		s.notify()
	}
}

func (s *TaskStore) Remove(id string) {
	s.mu.Lock()
	removed := false
	for i, existing := range s.tasks {
		if existing.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()
	if removed {
		s.notify()
	}
}

func (s *TaskStore) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
	s.notify()
}

// SetError records the transient status message; an empty message clears it.
func (s *TaskStore) SetError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
	s.notify()
}

// Tasks returns a snapshot copy; callers never see internal slices.
func (s *TaskStore) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *TaskStore) Get(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, task := range s.tasks {
		if task.ID == id {
			return task, true
		}
	}
	return models.Task{}, false
}

func (s *TaskStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *TaskStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}
