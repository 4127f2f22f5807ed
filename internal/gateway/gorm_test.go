package gateway_test

import (
	"context"
	"errors"
	"testing"

	"taskie/backend/internal/gateway"
	"taskie/backend/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestGateway(t *testing.T) *gateway.GormGateway {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}

	if err := gateway.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	return gateway.NewGormGateway(db)
}

func TestInsertTask_AssignsIDAndCreatedAt(t *testing.T) {
	g := setupTestGateway(t)
	ctx := context.Background()

	rec, err := g.InsertTask(ctx, models.TaskRecord{
		Title:    "Write spec",
		Priority: models.PriorityLow,
		UserID:   "u1",
	})
	if err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}

	if rec.ID == "" {
		t.Error("Expected inserted record to have an assigned id")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("Expected inserted record to have created_at stamped")
	}
}

func TestQueryTasksByOwner_Filters(t *testing.T) {
	g := setupTestGateway(t)
	ctx := context.Background()

	if _, err := g.InsertTask(ctx, models.TaskRecord{Title: "mine", Priority: models.PriorityLow, UserID: "u1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.InsertTask(ctx, models.TaskRecord{Title: "theirs", Priority: models.PriorityLow, UserID: "u2"}); err != nil {
		t.Fatal(err)
	}

	records, err := g.QueryTasksByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("QueryTasksByOwner failed: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("Expected 1 record for u1, got %d", len(records))
	}
	if records[0].Title != "mine" {
		t.Errorf("Expected task 'mine', got %q", records[0].Title)
	}
}

func TestUpdateTask_WritesThrough(t *testing.T) {
	g := setupTestGateway(t)
	ctx := context.Background()

	rec, err := g.InsertTask(ctx, models.TaskRecord{Title: "before", Priority: models.PriorityLow, UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}

	rec.Title = "after"
	rec.Priority = models.PriorityHigh
	rec.IsCompleted = true
	if err := g.UpdateTask(ctx, rec.ID, "u1", rec); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	records, err := g.QueryTasksByOwner(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.Title != "after" || got.Priority != models.PriorityHigh || !got.IsCompleted {
		t.Errorf("Expected updated record, got %+v", got)
	}
}

func TestUpdateTask_ForeignOwnerRefused(t *testing.T) {
	g := setupTestGateway(t)
	ctx := context.Background()

	rec, err := g.InsertTask(ctx, models.TaskRecord{Title: "guarded", Priority: models.PriorityLow, UserID: "owner"})
	if err != nil {
		t.Fatal(err)
	}

	rec.Title = "hijacked"
	err = g.UpdateTask(ctx, rec.ID, "intruder", rec)
	if !errors.Is(err, gateway.ErrRejected) {
		t.Errorf("Expected ErrRejected for foreign owner, got %v", err)
	}

	records, _ := g.QueryTasksByOwner(ctx, "owner")
	if records[0].Title != "guarded" {
		t.Error("Expected foreign update to leave the record untouched")
	}
}

func TestUpdateTask_MissingID(t *testing.T) {
	g := setupTestGateway(t)

	err := g.UpdateTask(context.Background(), "missing", "u1", models.TaskRecord{Title: "x", Priority: models.PriorityLow})
	if !errors.Is(err, gateway.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing id, got %v", err)
	}
}

func TestDeleteTask_ForeignOwnerRefused(t *testing.T) {
	g := setupTestGateway(t)
	ctx := context.Background()

	rec, err := g.InsertTask(ctx, models.TaskRecord{Title: "keep", Priority: models.PriorityLow, UserID: "owner"})
	if err != nil {
		t.Fatal(err)
	}

	err = g.DeleteTask(ctx, rec.ID, "intruder")
	if !errors.Is(err, gateway.ErrRejected) {
		t.Errorf("Expected ErrRejected for foreign delete, got %v", err)
	}

	records, _ := g.QueryTasksByOwner(ctx, "owner")
	if len(records) != 1 {
		t.Error("Expected foreign delete to leave the record in place")
	}
}

func TestDeleteTask_MissingIsNoOp(t *testing.T) {
	g := setupTestGateway(t)

	if err := g.DeleteTask(context.Background(), "missing", "u1"); err != nil {
		t.Errorf("Expected delete of missing id to be a no-op, got %v", err)
	}
}

func TestMembers_CRUD(t *testing.T) {
	g := setupTestGateway(t)
	ctx := context.Background()

	member, err := g.InsertMember(ctx, models.TeamMember{Name: "Dana", Email: "dana@example.com", Role: "engineer", OwnerID: "u1"})
	if err != nil {
		t.Fatalf("InsertMember failed: %v", err)
	}
	if member.ID == "" {
		t.Fatal("Expected assigned member id")
	}

	member.Role = "lead"
	if err := g.UpdateMember(ctx, member.ID, "u1", member); err != nil {
		t.Fatalf("UpdateMember failed: %v", err)
	}

	if err := g.UpdateMember(ctx, member.ID, "intruder", member); !errors.Is(err, gateway.ErrRejected) {
		t.Errorf("Expected ErrRejected for foreign member update, got %v", err)
	}

	members, err := g.QueryMembersByOwner(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 || members[0].Role != "lead" {
		t.Errorf("Expected updated member, got %+v", members)
	}

	if err := g.DeleteMember(ctx, member.ID, "u1"); err != nil {
		t.Fatalf("DeleteMember failed: %v", err)
	}
	members, _ = g.QueryMembersByOwner(ctx, "u1")
	if len(members) != 0 {
		t.Error("Expected member deleted")
	}
}

func TestProbeConnectivity_Reachable(t *testing.T) {
	g := setupTestGateway(t)

	result := g.ProbeConnectivity(context.Background())
	if !result.Reachable {
		t.Errorf("Expected reachable store, got reason %q", result.Reason)
	}
}
