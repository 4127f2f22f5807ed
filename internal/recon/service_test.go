package recon_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"taskie/backend/internal/gateway"
	"taskie/backend/internal/localstore"
	"taskie/backend/internal/models"
	"taskie/backend/internal/recon"
	"taskie/backend/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConnRefused = errors.New("dial tcp: connection refused")

// fakeGateway is an in-memory RemoteGateway with failure injection.
type fakeGateway struct {
	reachable   bool
	failWrites  bool
	failReads   bool
	rejectAll   bool
	probeCalls  int
	remoteCalls int
	nextID      int
	tasks       map[string]models.TaskRecord
	members     map[string]models.TeamMember
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		reachable: true,
		tasks:     make(map[string]models.TaskRecord),
		members:   make(map[string]models.TeamMember),
	}
}

func (f *fakeGateway) fail() error {
	if f.rejectAll {
		return gateway.ErrRejected
	}
	return errConnRefused
}

func (f *fakeGateway) QueryTasksByOwner(ctx context.Context, ownerID string) ([]models.TaskRecord, error) {
	f.remoteCalls++
	if f.failReads || f.rejectAll {
		return nil, f.fail()
	}
	var out []models.TaskRecord
	for _, rec := range f.tasks {
		if rec.UserID == ownerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeGateway) InsertTask(ctx context.Context, rec models.TaskRecord) (models.TaskRecord, error) {
	f.remoteCalls++
	if f.failWrites || f.rejectAll {
		return models.TaskRecord{}, f.fail()
	}
	f.nextID++
	rec.ID = fmt.Sprintf("remote-%d", f.nextID)
	rec.CreatedAt = time.Now().UTC()
	f.tasks[rec.ID] = rec
	return rec, nil
}

func (f *fakeGateway) UpdateTask(ctx context.Context, id, ownerID string, rec models.TaskRecord) error {
	f.remoteCalls++
	if f.failWrites || f.rejectAll {
		return f.fail()
	}
	existing, ok := f.tasks[id]
	if !ok {
		return gateway.ErrNotFound
	}
	if existing.UserID != ownerID {
		return gateway.ErrRejected
	}
	rec.ID = id
	rec.CreatedAt = existing.CreatedAt
	f.tasks[id] = rec
	return nil
}

func (f *fakeGateway) DeleteTask(ctx context.Context, id, ownerID string) error {
	f.remoteCalls++
	if f.failWrites || f.rejectAll {
		return f.fail()
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeGateway) QueryMembersByOwner(ctx context.Context, ownerID string) ([]models.TeamMember, error) {
	f.remoteCalls++
	if f.failReads || f.rejectAll {
		return nil, f.fail()
	}
	var out []models.TeamMember
	for _, member := range f.members {
		if member.OwnerID == ownerID {
			out = append(out, member)
		}
	}
	return out, nil
}

func (f *fakeGateway) InsertMember(ctx context.Context, member models.TeamMember) (models.TeamMember, error) {
	f.remoteCalls++
	if f.failWrites || f.rejectAll {
		return models.TeamMember{}, f.fail()
	}
	f.nextID++
	member.ID = fmt.Sprintf("remote-m-%d", f.nextID)
	f.members[member.ID] = member
	return member, nil
}

func (f *fakeGateway) UpdateMember(ctx context.Context, id, ownerID string, member models.TeamMember) error {
	f.remoteCalls++
	if f.failWrites || f.rejectAll {
		return f.fail()
	}
	f.members[id] = member
	return nil
}

func (f *fakeGateway) DeleteMember(ctx context.Context, id, ownerID string) error {
	f.remoteCalls++
	if f.failWrites || f.rejectAll {
		return f.fail()
	}
	delete(f.members, id)
	return nil
}

func (f *fakeGateway) ProbeConnectivity(ctx context.Context) gateway.ProbeResult {
	f.probeCalls++
	if !f.reachable {
		return gateway.ProbeResult{Reachable: false, Reason: "connection refused"}
	}
	return gateway.ProbeResult{Reachable: true}
}

type fixture struct {
	svc     *recon.Service
	gw      *fakeGateway
	tasks   *store.TaskStore
	members *store.MemberStore
	local   *localstore.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	gw := newFakeGateway()
	tasks := store.NewTaskStore()
	members := store.NewMemberStore()
	local := localstore.New(filepath.Join(dir, "tasks.json"), filepath.Join(dir, "members.json"))
	return &fixture{
		svc:     recon.New(gw, local, tasks, members),
		gw:      gw,
		tasks:   tasks,
		members: members,
		local:   local,
	}
}

func mustLoad(t *testing.T, svc *recon.Service, ownerID string) []models.Task {
	t.Helper()
	tasks, err := svc.Load(context.Background(), ownerID)
	require.NoError(t, err)
	return tasks
}

func TestLoad_RemoteDerivesStatus(t *testing.T) {
	f := newFixture(t)

	f.gw.tasks["r1"] = models.TaskRecord{ID: "r1", Title: "calm", Priority: models.PriorityLow, UserID: "u1"}
	f.gw.tasks["r2"] = models.TaskRecord{ID: "r2", Title: "hot", Priority: models.PriorityHigh, UserID: "u1"}
	f.gw.tasks["r3"] = models.TaskRecord{ID: "r3", Title: "done", Priority: models.PriorityLow, IsCompleted: true, UserID: "u1"}

	mustLoad(t, f.svc, "u1")
	assert.Equal(t, recon.ModeRemote, f.svc.Mode())

	byID := make(map[string]models.Task)
	for _, task := range f.tasks.Tasks() {
		byID[task.ID] = task
	}
	require.Len(t, byID, 3)
	assert.Equal(t, models.StatusToDo, byID["r1"].Status)
	assert.Equal(t, models.StatusOngoing, byID["r2"].Status)
	assert.True(t, byID["r2"].IsAtRisk)
	assert.Equal(t, models.StatusCompleted, byID["r3"].Status)
}

func TestLoad_LocalOwnerFiltering(t *testing.T) {
	f := newFixture(t)
	f.gw.reachable = false

	require.NoError(t, f.local.WriteTasks([]models.TaskRecord{
		{ID: "a", Title: "mine", Priority: models.PriorityLow, UserID: "u1"},
		{ID: "b", Title: "theirs", Priority: models.PriorityLow, UserID: "u2"},
		{ID: "c", Title: "legacy", Priority: models.PriorityLow},
	}))

	mustLoad(t, f.svc, "u1")
	assert.Equal(t, recon.ModeLocal, f.svc.Mode())

	ids := make(map[string]bool)
	for _, task := range f.tasks.Tasks() {
		ids[task.ID] = true
	}
	assert.True(t, ids["a"], "own task should be included")
	assert.False(t, ids["b"], "foreign task must be filtered out")
	assert.True(t, ids["c"], "ownerless legacy record should be included")
}

func TestCreate_ValidationAbortsBeforeIO(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, recon.CreateTaskInput{Title: "", Description: "d"}, "u1")
	require.Error(t, err)
	assert.True(t, recon.IsValidation(err))

	_, err = f.svc.Create(ctx, recon.CreateTaskInput{Title: "t", Description: "  "}, "u1")
	require.Error(t, err)
	assert.True(t, recon.IsValidation(err))

	assert.Empty(t, f.tasks.Tasks(), "store must be untouched after validation failure")
	assert.Zero(t, f.gw.remoteCalls, "no I/O before validation passes")
	assert.NotEmpty(t, f.tasks.Err())
}

func TestCreate_ThenListIsToDo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, recon.CreateTaskInput{
		Title:       "A",
		Description: "d",
		Priority:    models.PriorityLow,
	}, "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	mustLoad(t, f.svc, "u1")

	tasks := f.tasks.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, models.StatusToDo, tasks[0].Status)
	assert.True(t, tasks[0].IsOnTrack)
}

func TestMove_OngoingRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, recon.CreateTaskInput{Title: "A", Description: "d", Priority: models.PriorityLow}, "u1")
	require.NoError(t, err)

	moved, err := f.svc.Move(ctx, created.ID, "u1", models.StatusOngoing)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, moved.Priority)
	assert.Equal(t, models.StatusOngoing, moved.Status)
	assert.True(t, moved.IsAtRisk)
	assert.False(t, moved.IsCompleted)

	// The invariant must survive a round trip through the remote store.
	mustLoad(t, f.svc, "u1")
	tasks := f.tasks.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, models.PriorityHigh, tasks[0].Priority)
	assert.Equal(t, models.StatusOngoing, tasks[0].Status)
	assert.True(t, tasks[0].IsAtRisk)
}

func TestMove_CompletedNormalizesPriority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, recon.CreateTaskInput{Title: "A", Description: "d", Priority: models.PriorityHigh}, "u1")
	require.NoError(t, err)

	moved, err := f.svc.Move(ctx, created.ID, "u1", models.StatusCompleted)
	require.NoError(t, err)

	assert.Equal(t, models.PriorityMedium, moved.Priority, "completed always normalizes priority to medium")
	assert.True(t, moved.IsCompleted, "normalization must not alter completion")
	assert.Equal(t, models.StatusCompleted, moved.Status)
	assert.False(t, moved.IsAtRisk)
	assert.False(t, moved.IsOnTrack)
}

func TestMove_UnknownStatusRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Move(context.Background(), "any", "u1", models.Status("parked"))
	require.Error(t, err)
	assert.True(t, recon.IsValidation(err))
}

func TestCreate_RemoteFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gw.failWrites = true

	created, err := f.svc.Create(ctx, recon.CreateTaskInput{Title: "A", Description: "d"}, "u1")
	require.NoError(t, err, "remote failure must not fail the mutation")

	assert.Equal(t, recon.ModeLocal, f.svc.Mode())
	assert.Contains(t, created.ID, "local-")
	assert.False(t, created.CreatedAt.IsZero())

	tasks := f.tasks.Tasks()
	require.Len(t, tasks, 1, "task must appear in the store despite remote failure")

	persisted := f.local.ReadTasks()
	require.Len(t, persisted, 1, "task must be persisted to the local file")
	assert.Equal(t, created.ID, persisted[0].ID)

	assert.Contains(t, f.tasks.Err(), "unreachable")
}

func TestFallback_IsSticky(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gw.failWrites = true
	_, err := f.svc.Create(ctx, recon.CreateTaskInput{Title: "A", Description: "d"}, "u1")
	require.NoError(t, err)
	require.Equal(t, recon.ModeLocal, f.svc.Mode())

	callsAfterDegrade := f.gw.remoteCalls
	probesAfterDegrade := f.gw.probeCalls

	f.gw.failWrites = false // remote recovers, but the session must not notice

	_, err = f.svc.Create(ctx, recon.CreateTaskInput{Title: "B", Description: "d"}, "u1")
	require.NoError(t, err)
	mustLoad(t, f.svc, "u1")
	require.NoError(t, f.svc.Delete(ctx, f.tasks.Tasks()[0].ID, "u1"))

	assert.Equal(t, callsAfterDegrade, f.gw.remoteCalls, "no remote calls after falling local")
	assert.Equal(t, probesAfterDegrade, f.gw.probeCalls, "probe is not re-invoked per operation")
}

func TestReset_AllowsReProbe(t *testing.T) {
	f := newFixture(t)

	f.gw.reachable = false
	mustLoad(t, f.svc, "u1")
	require.Equal(t, recon.ModeLocal, f.svc.Mode())

	f.gw.reachable = true
	f.svc.Reset()

	mustLoad(t, f.svc, "u1")
	assert.Equal(t, recon.ModeRemote, f.svc.Mode())
}

func TestDelete_MissingIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, recon.CreateTaskInput{Title: "A", Description: "d"}, "u1")
	require.NoError(t, err)
	before := len(f.tasks.Tasks())
	callsBefore := f.gw.remoteCalls

	require.NoError(t, f.svc.Delete(ctx, "never-existed", "u1"))

	assert.Len(t, f.tasks.Tasks(), before, "store unchanged after deleting a missing id")
	assert.Equal(t, callsBefore, f.gw.remoteCalls, "no remote call for a missing id")
}

func TestUpdate_ShallowMerge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, recon.CreateTaskInput{
		Title:       "Original",
		Description: "keep me",
		Priority:    models.PriorityHigh,
	}, "u1")
	require.NoError(t, err)

	completed := true
	_, err = f.svc.Update(ctx, created.ID, "u1", recon.TaskChanges{IsCompleted: &completed})
	require.NoError(t, err)

	got, ok := f.tasks.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, "Original", got.Title, "absent fields keep their values")
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.True(t, got.IsCompleted)

	// An explicit false must override, not read as absent.
	notCompleted := false
	updated, err := f.svc.Update(ctx, created.ID, "u1", recon.TaskChanges{IsCompleted: &notCompleted})
	require.NoError(t, err)
	assert.False(t, updated.IsCompleted)
	assert.Equal(t, models.StatusOngoing, updated.Status, "derived fields recomputed after merge")
}

func TestUpdate_MissingIsNoOp(t *testing.T) {
	f := newFixture(t)

	title := "ghost"
	task, err := f.svc.Update(context.Background(), "missing", "u1", recon.TaskChanges{Title: &title})
	require.NoError(t, err)
	assert.Empty(t, task.ID)
	assert.Empty(t, f.tasks.Tasks())
}

func TestUpdate_RejectedSurfacesRefusal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, recon.CreateTaskInput{Title: "A", Description: "d"}, "u1")
	require.NoError(t, err)

	f.gw.rejectAll = true

	title := "B"
	updated, err := f.svc.Update(ctx, created.ID, "u1", recon.TaskChanges{Title: &title})
	require.NoError(t, err, "refusal still completes the mutation locally")

	assert.Equal(t, "B", updated.Title)
	assert.Equal(t, recon.ModeLocal, f.svc.Mode())
	assert.Contains(t, f.tasks.Err(), "refused", "diagnostic distinguishes refusal from unreachability")
}

func TestLoad_UnreachableProbeGoesLocal(t *testing.T) {
	f := newFixture(t)
	f.gw.reachable = false

	mustLoad(t, f.svc, "u1")

	assert.Equal(t, recon.ModeLocal, f.svc.Mode())
	assert.Equal(t, 1, f.gw.probeCalls)
	assert.Zero(t, f.gw.remoteCalls, "no remote query after a failed probe")
	assert.Contains(t, f.tasks.Err(), "unreachable")
}

func TestNilRemote_RunsLocalOnly(t *testing.T) {
	dir := t.TempDir()
	tasks := store.NewTaskStore()
	members := store.NewMemberStore()
	local := localstore.New(filepath.Join(dir, "tasks.json"), filepath.Join(dir, "members.json"))
	svc := recon.New(nil, local, tasks, members)
	ctx := context.Background()

	created, err := svc.Create(ctx, recon.CreateTaskInput{Title: "A", Description: "d"}, "u1")
	require.NoError(t, err)
	assert.Equal(t, recon.ModeLocal, svc.Mode())

	mustLoad(t, svc, "u1")
	tasksNow := tasks.Tasks()
	require.Len(t, tasksNow, 1)
	assert.Equal(t, created.ID, tasksNow[0].ID)
}

func TestUpdate_ForeignOwnerRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, recon.CreateTaskInput{Title: "A", Description: "d"}, "u1")
	require.NoError(t, err)
	callsBefore := f.gw.remoteCalls

	title := "hijacked"
	_, err = f.svc.Update(ctx, created.ID, "u2", recon.TaskChanges{Title: &title})
	require.ErrorIs(t, err, recon.ErrNotOwner)

	got, ok := f.tasks.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, "A", got.Title, "foreign update must not touch the record")
	assert.Equal(t, callsBefore, f.gw.remoteCalls, "refusal happens before any remote call")

	_, err = f.svc.Move(ctx, created.ID, "u2", models.StatusCompleted)
	assert.ErrorIs(t, err, recon.ErrNotOwner)
}

func TestDelete_ForeignOwnerRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, recon.CreateTaskInput{Title: "A", Description: "d"}, "u1")
	require.NoError(t, err)
	callsBefore := f.gw.remoteCalls

	err = f.svc.Delete(ctx, created.ID, "u2")
	require.ErrorIs(t, err, recon.ErrNotOwner)

	_, ok := f.tasks.Get(created.ID)
	assert.True(t, ok, "foreign delete must leave the record in place")
	assert.Equal(t, callsBefore, f.gw.remoteCalls)
}

func TestUpdate_OwnerlessLegacyRecordIsWritable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gw.reachable = false

	require.NoError(t, f.local.WriteTasks([]models.TaskRecord{
		{ID: "legacy", Title: "old", Priority: models.PriorityLow},
	}))
	mustLoad(t, f.svc, "u1")

	title := "claimed"
	updated, err := f.svc.Update(ctx, "legacy", "u1", recon.TaskChanges{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "claimed", updated.Title)
}

func TestLoad_SnapshotSurvivesOtherOwnersLoad(t *testing.T) {
	f := newFixture(t)

	f.gw.tasks["a1"] = models.TaskRecord{ID: "a1", Title: "mine", Priority: models.PriorityLow, UserID: "u1"}
	f.gw.tasks["b1"] = models.TaskRecord{ID: "b1", Title: "theirs", Priority: models.PriorityLow, UserID: "u2"}

	first := mustLoad(t, f.svc, "u1")
	mustLoad(t, f.svc, "u2") // another session replaces the shared store

	require.Len(t, first, 1)
	assert.Equal(t, "a1", first[0].ID, "a returned snapshot must not reflect later loads")

	stored := f.tasks.Tasks()
	require.Len(t, stored, 1)
	assert.Equal(t, "b1", stored[0].ID)
}

func TestLocalMutations_RewriteFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gw.reachable = false

	created, err := f.svc.Create(ctx, recon.CreateTaskInput{Title: "A", Description: "d"}, "u1")
	require.NoError(t, err)

	moved, err := f.svc.Move(ctx, created.ID, "u1", models.StatusOngoing)
	require.NoError(t, err)

	persisted := f.local.ReadTasks()
	require.Len(t, persisted, 1)
	assert.Equal(t, models.PriorityHigh, persisted[0].Priority)
	assert.Equal(t, moved.ID, persisted[0].ID)

	require.NoError(t, f.svc.Delete(ctx, created.ID, "u1"))
	assert.Empty(t, f.local.ReadTasks(), "delete rewrites the full file")
}
