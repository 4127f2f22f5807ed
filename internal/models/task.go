package models

import "time"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Status string

const (
	StatusToDo      Status = "to_do"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusToDo, StatusOngoing, StatusCompleted:
		return true
	}
	return false
}

// TaskRecord is the storage-native shape shared by the remote store and the
// local fallback file, so switching tiers never requires transcoding.
type TaskRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	IsCompleted bool      `json:"is_completed"`
	Priority    Priority  `json:"priority"`
	DueDate     *string   `json:"due_date"`
	UserID      string    `json:"user_id"`
	Category    string    `json:"category,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Task is the canonical in-memory representation: the stored fields plus the
// display fields derived from (IsCompleted, Priority).
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	IsCompleted bool      `json:"is_completed"`
	Priority    Priority  `json:"priority"`
	DueDate     *string   `json:"due_date"`
	OwnerID     string    `json:"owner_id"`
	Category    string    `json:"category,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	Status    Status `json:"status"`
	IsOnTrack bool   `json:"is_on_track"`
	IsAtRisk  bool   `json:"is_at_risk"`
}

// DeriveStatus maps the stored fields to the display status. Pure and total:
// completion wins, then high priority means ongoing, everything else is to_do.
func DeriveStatus(isCompleted bool, priority Priority) Status {
	if isCompleted {
		return StatusCompleted
	}
	if priority == PriorityHigh {
		return StatusOngoing
	}
	return StatusToDo
}

// PriorityForStatus is the reverse mapping used when intent arrives as a
// status change. completed collapses to medium; that asymmetry is deliberate.
func PriorityForStatus(status Status) Priority {
	switch status {
	case StatusOngoing:
		return PriorityHigh
	case StatusCompleted:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// TaskFromRecord applies the derivation invariant to a stored record.
func TaskFromRecord(rec TaskRecord) Task {
	return Task{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		IsCompleted: rec.IsCompleted,
		Priority:    rec.Priority,
		DueDate:     rec.DueDate,
		OwnerID:     rec.UserID,
		Category:    rec.Category,
		CreatedAt:   rec.CreatedAt,
		Status:      DeriveStatus(rec.IsCompleted, rec.Priority),
		IsOnTrack:   !rec.IsCompleted && rec.Priority != PriorityHigh,
		IsAtRisk:    !rec.IsCompleted && rec.Priority == PriorityHigh,
	}
}

// Record strips the derived fields back off for persistence.
func (t Task) Record() TaskRecord {
	return TaskRecord{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		UserID:      t.OwnerID,
		Category:    t.Category,
		CreatedAt:   t.CreatedAt,
	}
}

// Rederive recomputes the display fields in place after a mutation.
func (t *Task) Rederive() {
	t.Status = DeriveStatus(t.IsCompleted, t.Priority)
	t.IsOnTrack = !t.IsCompleted && t.Priority != PriorityHigh
	t.IsAtRisk = !t.IsCompleted && t.Priority == PriorityHigh
}
