package handlers

import (
	"errors"
	"net/http"
	"time"

	"taskie/backend/internal/models"
	"taskie/backend/internal/recon"
	"taskie/backend/internal/reports"
	"taskie/backend/internal/store"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	svc   *recon.Service
	tasks *store.TaskStore
}

func NewTaskHandler(svc *recon.Service, tasks *store.TaskStore) *TaskHandler {
	return &TaskHandler{svc: svc, tasks: tasks}
}

// ownerID reads the authenticated user set by the authz middleware.
func ownerID(c *gin.Context) (string, bool) {
	userIDInterface, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return "", false
	}
	userID, ok := userIDInterface.(string)
	if !ok || userID == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return "", false
	}
	return userID, true
}

func handleServiceError(c *gin.Context, err error) {
	if recon.IsValidation(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errors.Is(err, recon.ErrNotOwner) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your record"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process task request"})
}

func (h *TaskHandler) GetTasks(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	tasks, err := h.svc.Load(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"mode":  h.svc.Mode().String(),
		"error": h.tasks.Err(),
	})
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	var taskInput struct {
		Title       string  `json:"title" binding:"required"`
		Description string  `json:"description"`
		Priority    string  `json:"priority"`
		DueDate     *string `json:"due_date"`
		Category    string  `json:"category"`
	}
	if err := c.ShouldBindJSON(&taskInput); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.svc.Create(c.Request.Context(), recon.CreateTaskInput{
		Title:       taskInput.Title,
		Description: taskInput.Description,
		Priority:    models.Priority(taskInput.Priority),
		DueDate:     taskInput.DueDate,
		Category:    taskInput.Category,
	}, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	var taskInput struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		IsCompleted *bool   `json:"is_completed"`
		Priority    *string `json:"priority"`
		DueDate     *string `json:"due_date"`
		Category    *string `json:"category"`
	}
	if err := c.ShouldBindJSON(&taskInput); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	changes := recon.TaskChanges{
		Title:       taskInput.Title,
		Description: taskInput.Description,
		IsCompleted: taskInput.IsCompleted,
		DueDate:     taskInput.DueDate,
		Category:    taskInput.Category,
	}
	if taskInput.Priority != nil {
		priority := models.Priority(*taskInput.Priority)
		changes.Priority = &priority
	}

	task, err := h.svc.Update(c.Request.Context(), c.Param("id"), userID, changes)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if task.ID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

func (h *TaskHandler) MoveTask(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	var moveInput struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&moveInput); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.svc.Move(c.Request.Context(), c.Param("id"), userID, models.Status(moveInput.Status))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if task.ID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, task)
}

// GetBoard returns the owner's tasks grouped into kanban columns.
func (h *TaskHandler) GetBoard(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	tasks, err := h.svc.Load(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	columns := map[models.Status][]models.Task{
		models.StatusToDo:      {},
		models.StatusOngoing:   {},
		models.StatusCompleted: {},
	}
	for _, task := range tasks {
		columns[task.Status] = append(columns[task.Status], task)
	}

	c.JSON(http.StatusOK, gin.H{
		"to_do":     columns[models.StatusToDo],
		"ongoing":   columns[models.StatusOngoing],
		"completed": columns[models.StatusCompleted],
		"mode":      h.svc.Mode().String(),
	})
}

func (h *TaskHandler) GetAnalytics(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	tasks, err := h.svc.Load(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, reports.Build(userID, tasks, time.Now()))
}
