package recon

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"taskie/backend/internal/gateway"
	"taskie/backend/internal/localstore"
	"taskie/backend/internal/models"
	"taskie/backend/internal/store"
)

// Mode is the persistence tier the session is committed to.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeRemote
	ModeLocal
)

func (m Mode) String() string {
	switch m {
	case ModeRemote:
		return "remote"
	case ModeLocal:
		return "local"
	default:
		return "unknown"
	}
}

// Service decides, for every read and write, whether the remote gateway or
// the local file serves it, and keeps the stored and canonical task
// representations consistent with the derivation rules.
//
// The fallback is sticky: once a session degrades to local it stays there.
// Re-probing on a timer would hide outages behind flapping; the status
// surface exposes the mode instead.
type Service struct {
	mu      sync.Mutex
	mode    Mode
	remote  gateway.RemoteGateway
	local   *localstore.Store
	tasks   *store.TaskStore
	members *store.MemberStore

	now func() time.Time
}

// New wires a service. remote may be nil (no backend configured), which
// resolves to local mode on first use.
func New(remote gateway.RemoteGateway, local *localstore.Store, tasks *store.TaskStore, members *store.MemberStore) *Service {
	return &Service{
		remote:  remote,
		local:   local,
		tasks:   tasks,
		members: members,
		now:     time.Now,
	}
}

// Mode returns the current persistence tier.
func (s *Service) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Reset returns the service to the unprobed state. Exists for tests and for
// an operator-driven restart path; nothing calls it on a timer.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = ModeUnknown
}

// ensureMode resolves ModeUnknown with one connectivity probe. Callers hold
// the service mutex.
func (s *Service) ensureMode(ctx context.Context) Mode {
	if s.mode != ModeUnknown {
		return s.mode
	}

	if s.remote == nil {
		s.mode = ModeLocal
		s.tasks.SetError("remote store not configured; using local data")
		return s.mode
	}

	result := s.remote.ProbeConnectivity(ctx)
	if result.Reachable {
		s.mode = ModeRemote
	} else {
		s.mode = ModeLocal
		s.tasks.SetError(fmt.Sprintf("remote store unreachable (%s); using local data", result.Reason))
	}
	return s.mode
}

// degrade flips the session to local mode and surfaces why. Never fatal to
// the mutation in flight: the caller completes it against local storage.
func (s *Service) degrade(err error) {
	s.mode = ModeLocal
	msg := degradeMessage(err)
	log.Printf("Falling back to local persistence: %v", err)
	s.tasks.SetError(msg)
}

// localTaskID synthesizes an id for records created while degraded.
func (s *Service) localTaskID() string {
	return fmt.Sprintf("local-%d-%04d", s.now().UnixNano(), rand.Intn(10000))
}

func deriveAll(records []models.TaskRecord) []models.Task {
	tasks := make([]models.Task, 0, len(records))
	for _, rec := range records {
		tasks = append(tasks, models.TaskFromRecord(rec))
	}
	return tasks
}

// writeLocalTasks persists the full in-memory collection; the local file is
// always a complete overwrite, never a patch.
func (s *Service) writeLocalTasks() {
	records := make([]models.TaskRecord, 0)
	for _, task := range s.tasks.Tasks() {
		records = append(records, task.Record())
	}
	if err := s.local.WriteTasks(records); err != nil {
		log.Printf("Failed to persist local tasks: %v", err)
	}
}

// Load fetches the owner's tasks from whichever tier the session is on,
// replaces the store contents, and returns the loaded snapshot. Callers
// serving a response must use the returned slice: the shared store may be
// replaced by another owner's load before they read it back.
func (s *Service) Load(ctx context.Context, ownerID string) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks.SetLoading(true)
	defer s.tasks.SetLoading(false)

	if s.ensureMode(ctx) == ModeRemote {
		records, err := s.remote.QueryTasksByOwner(ctx, ownerID)
		if err == nil {
			loaded := deriveAll(records)
			s.tasks.SetError("")
			s.tasks.ReplaceAll(loaded)
			return loaded, nil
		}
		s.degrade(err)
	}

	records := s.local.ReadTasks()
	kept := records[:0]
	for _, rec := range records {
		// Records written before multi-user support carry no owner; they
		// stay visible to everyone.
		if rec.UserID == "" || rec.UserID == ownerID {
			kept = append(kept, rec)
		}
	}
	loaded := deriveAll(kept)
	s.tasks.ReplaceAll(loaded)
	return loaded, nil
}

// CreateTaskInput carries the user-supplied fields for a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    models.Priority
	DueDate     *string
	Category    string
}

func (in CreateTaskInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(in.Description) == "" {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", in.Priority)}
	}
	return nil
}

// Create validates, then inserts remotely or locally. The mutation always
// completes for the caller; only validation aborts it.
func (s *Service) Create(ctx context.Context, input CreateTaskInput, ownerID string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := input.validate(); err != nil {
		s.tasks.SetError(err.Error())
		return models.Task{}, err
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityLow
	}
	description := input.Description
	rec := models.TaskRecord{
		Title:       input.Title,
		Description: &description,
		Priority:    priority,
		DueDate:     input.DueDate,
		UserID:      ownerID,
		Category:    input.Category,
	}

	if s.ensureMode(ctx) == ModeRemote {
		inserted, err := s.remote.InsertTask(ctx, rec)
		if err == nil {
			task := models.TaskFromRecord(inserted)
			s.tasks.SetError("")
			s.tasks.Add(task)
			return task, nil
		}
		s.degrade(err)
	}

	rec.ID = s.localTaskID()
	rec.CreatedAt = s.now().UTC()
	task := models.TaskFromRecord(rec)
	s.tasks.Add(task)
	s.writeLocalTasks()
	return task, nil
}

// TaskChanges is a shallow patch: nil fields keep their current values, and
// explicitly-set false booleans override rather than reading as absent.
type TaskChanges struct {
	Title       *string
	Description *string
	IsCompleted *bool
	Priority    *models.Priority
	DueDate     *string
	Category    *string
}

func (c TaskChanges) apply(task *models.Task) error {
	if c.Title != nil {
		if strings.TrimSpace(*c.Title) == "" {
			return &ValidationError{Field: "title", Reason: "must not be empty"}
		}
		task.Title = *c.Title
	}
	if c.Description != nil {
		task.Description = c.Description
	}
	if c.IsCompleted != nil {
		task.IsCompleted = *c.IsCompleted
	}
	if c.Priority != nil {
		if !c.Priority.Valid() {
			return &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", *c.Priority)}
		}
		task.Priority = *c.Priority
	}
	if c.DueDate != nil {
		task.DueDate = c.DueDate
	}
	if c.Category != nil {
		task.Category = *c.Category
	}
	return nil
}

// Update merges changes into the in-memory task, rederives the display
// fields, and writes through. Updating an id the store does not hold is a
// no-op; updating another user's task is refused before any I/O. Ownerless
// legacy records are writable by anyone, matching their load visibility.
func (s *Service) Update(ctx context.Context, taskID, ownerID string, changes TaskChanges) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks.Get(taskID)
	if !ok {
		return models.Task{}, nil
	}
	if task.OwnerID != "" && task.OwnerID != ownerID {
		return models.Task{}, ErrNotOwner
	}

	if err := changes.apply(&task); err != nil {
		s.tasks.SetError(err.Error())
		return models.Task{}, err
	}
	task.Rederive()

	if s.ensureMode(ctx) == ModeRemote {
		err := s.remote.UpdateTask(ctx, task.ID, task.OwnerID, task.Record())
		if err == nil {
			s.tasks.SetError("")
			s.tasks.Update(task)
			return task, nil
		}
		s.degrade(err)
	}

	s.tasks.Update(task)
	s.writeLocalTasks()
	return task, nil
}

// Delete removes the task from whichever tier holds it. A missing id is a
// no-op, not an error; a foreign owner is refused.
func (s *Service) Delete(ctx context.Context, taskID, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks.Get(taskID)
	if !ok {
		return nil
	}
	if task.OwnerID != "" && task.OwnerID != ownerID {
		return ErrNotOwner
	}

	if s.ensureMode(ctx) == ModeRemote {
		err := s.remote.DeleteTask(ctx, task.ID, task.OwnerID)
		if err == nil {
			s.tasks.SetError("")
			s.tasks.Remove(taskID)
			return nil
		}
		s.degrade(err)
	}

	s.tasks.Remove(taskID)
	s.writeLocalTasks()
	return nil
}

// Move expresses intent as a status change: the reverse mapping picks the
// priority, completion follows the target, and the invariant holds the
// moment the move lands, with no second read needed to fix derived flags.
func (s *Service) Move(ctx context.Context, taskID, ownerID string, newStatus models.Status) (models.Task, error) {
	if !newStatus.Valid() {
		err := &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", newStatus)}
		s.tasks.SetError(err.Error())
		return models.Task{}, err
	}

	priority := models.PriorityForStatus(newStatus)
	completed := newStatus == models.StatusCompleted
	return s.Update(ctx, taskID, ownerID, TaskChanges{
		Priority:    &priority,
		IsCompleted: &completed,
	})
}
