package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tugasku/internal/models"
	"tugasku/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TaskHandler struct {
	taskService services.TaskService
	log         *zap.Logger
}

func NewTaskHandler(taskService services.TaskService, log *zap.Logger) *TaskHandler {
	if log == nil {
		log = zap.NewNop()
	}
	registerValidators()
	return &TaskHandler{taskService: taskService, log: log}
}

func bindTask(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	if problems, ok := fieldProblems(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task", "fields": problems})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	return false
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if !bindTask(c, &req) {
		return
	}

	var deadline any = models.Today()
	if req.Deadline != "" {
		deadline = req.Deadline
	}
	task, _ := models.NewTask(models.TaskInput{
		Subject:     req.Subject,
		Description: req.Description,
		Deadline:    deadline,
		Priority:    req.Priority,
		Status:      req.Status,
	})

	if err := h.taskService.CreateTask(c.Request.Context(), &task); err != nil {
		h.log.Error("failed to create task", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to create task",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, task)
}

// UpdateTask replaces a task. Fields left empty keep their stored value.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if !bindTask(c, &req) {
		return
	}

	ctx := c.Request.Context()
	current, err := h.taskService.GetTaskByID(ctx, id)
	if err != nil {
		handleTaskError(c, err)
		return
	}

	if strings.TrimSpace(req.Subject) != "" {
		current.Subject = req.Subject
	}
	if strings.TrimSpace(req.Description) != "" {
		current.Description = req.Description
	}
	if req.Deadline != "" {
		current.Deadline, _ = models.ParseDate(req.Deadline)
	}
	if req.Priority != "" {
		current.Priority = models.Priority(req.Priority)
	}
	if req.Status != "" {
		current.Status = models.Status(req.Status)
	}

	if err := h.taskService.UpdateTask(ctx, current); err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task updated successfully"})
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.taskService.DeleteTask(c.Request.Context(), id); err != nil {
		handleTaskError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) MarkComplete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.taskService.MarkComplete(c.Request.Context(), id); err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task marked complete"})
}

func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	task, err := h.taskService.GetTaskByID(c.Request.Context(), id)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) GetTasks(c *gin.Context) {
	tasks, err := h.taskService.GetTasks(c.Request.Context())
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": len(tasks),
	})
}

// GetTaskTable serves the filtered tabular view. Query parameters status,
// priority and date are optional and combined with AND.
func (h *TaskHandler) GetTaskTable(c *gin.Context) {
	date, ok := parseDateQuery(c)
	if !ok {
		return
	}

	table := h.taskService.FilterTasks(c.Request.Context(), services.TaskFilter{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Date:     date,
	})
	c.JSON(http.StatusOK, table)
}

func (h *TaskHandler) CountTasks(c *gin.Context) {
	date, ok := parseDateQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": h.taskService.CountTasks(c.Request.Context(), date)})
}

func (h *TaskHandler) Summary(c *gin.Context) {
	date, ok := parseDateQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.taskService.Summarize(c.Request.Context(), date))
}

// Options lists the selectable priorities and statuses with their defaults.
func (h *TaskHandler) Options(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"priorities":       models.Priorities(),
		"statuses":         models.Statuses(),
		"default_priority": models.DefaultPriority,
		"default_status":   models.DefaultStatus,
	})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return 0, false
	}
	return id, true
}

// parseDateQuery reads the optional date query parameter. "today" selects the
// current date.
func parseDateQuery(c *gin.Context) (*time.Time, bool) {
	raw := c.Query("date")
	switch raw {
	case "":
		return nil, true
	case "today":
		today := models.Today()
		return &today, true
	}

	date, err := models.ParseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD or today"})
		return nil, false
	}
	return &date, true
}

func handleTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "task not found",
		})
	case errors.Is(err, services.ErrInvalidID), errors.Is(err, services.ErrInvalidTask):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to process task request",
		})
	}
}
