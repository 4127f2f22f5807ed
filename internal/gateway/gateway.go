package gateway

import (
	"context"
	"errors"

	"taskie/backend/internal/models"
)

var (
	// ErrRejected means the remote store was reached but refused the
	// operation, typically an ownership mismatch. Distinct from
	// unreachability so callers can report the right diagnostic.
	ErrRejected = errors.New("remote store refused the operation")

	// ErrNotFound means the record does not exist remotely.
	ErrNotFound = errors.New("record not found in remote store")
)

// ProbeResult reports whether the remote store is worth committing to.
type ProbeResult struct {
	Reachable bool   `json:"reachable"`
	Reason    string `json:"reason,omitempty"`
}

// RemoteGateway is the hosted-backend contract consumed by the reconciliation
// service. Updates and deletes filter by both id and owner: touching a task
// that belongs to someone else must fail, never silently no-op.
type RemoteGateway interface {
	QueryTasksByOwner(ctx context.Context, ownerID string) ([]models.TaskRecord, error)
	InsertTask(ctx context.Context, rec models.TaskRecord) (models.TaskRecord, error)
	UpdateTask(ctx context.Context, id, ownerID string, rec models.TaskRecord) error
	DeleteTask(ctx context.Context, id, ownerID string) error

	QueryMembersByOwner(ctx context.Context, ownerID string) ([]models.TeamMember, error)
	InsertMember(ctx context.Context, member models.TeamMember) (models.TeamMember, error)
	UpdateMember(ctx context.Context, id, ownerID string, member models.TeamMember) error
	DeleteMember(ctx context.Context, id, ownerID string) error

	// ProbeConnectivity runs one cheap query under a short timeout. It never
	// panics; an unreachable or misconfigured store comes back as a result.
	ProbeConnectivity(ctx context.Context) ProbeResult
}
