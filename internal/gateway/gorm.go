package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"taskie/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const probeTimeout = 3 * time.Second

// taskRow is the backend-native row. It never leaves this package: rows are
// parsed into models.TaskRecord at the boundary so malformed data cannot
// reach the reconciliation layer.
type taskRow struct {
	ID          string  `gorm:"primaryKey"`
	Title       string  `gorm:"not null"`
	Description *string
	IsCompleted bool   `gorm:"not null;default:false"`
	Priority    string `gorm:"not null;default:'low'"`
	DueDate     *string
	UserID      string `gorm:"index"`
	Category    string
	CreatedAt   time.Time
}

func (taskRow) TableName() string { return "tasks" }

type memberRow struct {
	ID     string `gorm:"primaryKey"`
	Name   string `gorm:"not null"`
	Email  string `gorm:"not null"`
	Role   string
	UserID string `gorm:"index"`
}

func (memberRow) TableName() string { return "team_members" }

// GormGateway implements RemoteGateway on a relational store.
type GormGateway struct {
	db *gorm.DB
}

func NewGormGateway(db *gorm.DB) *GormGateway {
	return &GormGateway{db: db}
}

// Migrate creates the backing tables. Used by main and by sqlite tests.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&taskRow{}, &memberRow{})
}

func parseTaskRow(row taskRow) (models.TaskRecord, error) {
	if row.ID == "" {
		return models.TaskRecord{}, fmt.Errorf("task row missing id")
	}
	if row.Title == "" {
		return models.TaskRecord{}, fmt.Errorf("task row %s missing title", row.ID)
	}
	priority := models.Priority(row.Priority)
	if !priority.Valid() {
		return models.TaskRecord{}, fmt.Errorf("task row %s has unknown priority %q", row.ID, row.Priority)
	}
	return models.TaskRecord{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		IsCompleted: row.IsCompleted,
		Priority:    priority,
		DueDate:     row.DueDate,
		UserID:      row.UserID,
		Category:    row.Category,
		CreatedAt:   row.CreatedAt,
	}, nil
}

func rowFromRecord(rec models.TaskRecord) taskRow {
	return taskRow{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		IsCompleted: rec.IsCompleted,
		Priority:    string(rec.Priority),
		DueDate:     rec.DueDate,
		UserID:      rec.UserID,
		Category:    rec.Category,
		CreatedAt:   rec.CreatedAt,
	}
}

func (g *GormGateway) QueryTasksByOwner(ctx context.Context, ownerID string) ([]models.TaskRecord, error) {
	var rows []taskRow
	result := g.db.WithContext(ctx).Where("user_id = ?", ownerID).Order("created_at").Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	records := make([]models.TaskRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := parseTaskRow(row)
		if err != nil {
			log.Printf("Skipping malformed task row: %v", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (g *GormGateway) InsertTask(ctx context.Context, rec models.TaskRecord) (models.TaskRecord, error) {
	row := rowFromRecord(rec)
	if row.ID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return models.TaskRecord{}, fmt.Errorf("failed to generate task id: %w", err)
		}
		row.ID = id.String()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.TaskRecord{}, err
	}
	return parseTaskRow(row)
}

func (g *GormGateway) UpdateTask(ctx context.Context, id, ownerID string, rec models.TaskRecord) error {
	row := rowFromRecord(rec)
	result := g.db.WithContext(ctx).
		Model(&taskRow{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Updates(map[string]interface{}{
			"title":        row.Title,
			"description":  row.Description,
			"is_completed": row.IsCompleted,
			"priority":     row.Priority,
			"due_date":     row.DueDate,
			"category":     row.Category,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return g.classifyMiss(ctx, &taskRow{}, id)
	}
	return nil
}

func (g *GormGateway) DeleteTask(ctx context.Context, id, ownerID string) error {
	result := g.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).Delete(&taskRow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if err := g.classifyMiss(ctx, &taskRow{}, id); errors.Is(err, ErrRejected) {
			return err
		}
		// Deleting a record that is simply gone is a no-op.
	}
	return nil
}

// classifyMiss distinguishes "record does not exist" from "record exists but
// is owned by someone else" after a zero-row write.
func (g *GormGateway) classifyMiss(ctx context.Context, model interface{}, id string) error {
	var count int64
	if err := g.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrRejected
	}
	return ErrNotFound
}

func (g *GormGateway) QueryMembersByOwner(ctx context.Context, ownerID string) ([]models.TeamMember, error) {
	var rows []memberRow
	result := g.db.WithContext(ctx).Where("user_id = ?", ownerID).Order("name").Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	members := make([]models.TeamMember, 0, len(rows))
	for _, row := range rows {
		if row.ID == "" || row.Name == "" {
			log.Printf("Skipping malformed member row %q", row.ID)
			continue
		}
		members = append(members, models.TeamMember{
			ID:      row.ID,
			Name:    row.Name,
			Email:   row.Email,
			Role:    row.Role,
			OwnerID: row.UserID,
		})
	}
	return members, nil
}

func (g *GormGateway) InsertMember(ctx context.Context, member models.TeamMember) (models.TeamMember, error) {
	row := memberRow{
		ID:     member.ID,
		Name:   member.Name,
		Email:  member.Email,
		Role:   member.Role,
		UserID: member.OwnerID,
	}
	if row.ID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return models.TeamMember{}, fmt.Errorf("failed to generate member id: %w", err)
		}
		row.ID = id.String()
	}

	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.TeamMember{}, err
	}

	member.ID = row.ID
	return member, nil
}

func (g *GormGateway) UpdateMember(ctx context.Context, id, ownerID string, member models.TeamMember) error {
	result := g.db.WithContext(ctx).
		Model(&memberRow{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Updates(map[string]interface{}{
			"name":  member.Name,
			"email": member.Email,
			"role":  member.Role,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return g.classifyMiss(ctx, &memberRow{}, id)
	}
	return nil
}

func (g *GormGateway) DeleteMember(ctx context.Context, id, ownerID string) error {
	result := g.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).Delete(&memberRow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if err := g.classifyMiss(ctx, &memberRow{}, id); errors.Is(err, ErrRejected) {
			return err
		}
	}
	return nil
}

func (g *GormGateway) ProbeConnectivity(ctx context.Context) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var one int
	if err := g.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		return ProbeResult{Reachable: false, Reason: err.Error()}
	}
	return ProbeResult{Reachable: true}
}
