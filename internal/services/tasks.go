package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"tugasku/internal/models"
	"tugasku/internal/monitoring"
	"tugasku/internal/repositories"

	"go.uber.org/zap"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidTask  = errors.New("invalid task")
	ErrInvalidID    = errors.New("invalid task id")
)

const selectTasks = "SELECT id, matkul, deskripsi, deadline, prioritas, status FROM tugas"

const orderByDeadline = " ORDER BY deadline ASC, id ASC"

// TaskStore is the storage surface the task service depends on.
type TaskStore interface {
	SchemaInitializer
	Execute(ctx context.Context, stmt string, args ...interface{}) (repositories.ExecResult, error)
	Insert(ctx context.Context, record *repositories.TaskRecord) (int64, error)
	Fetch(ctx context.Context, stmt string, args ...interface{}) ([]repositories.TaskRecord, error)
	FetchOne(ctx context.Context, stmt string, args ...interface{}) (repositories.TaskRecord, error)
	Scan(ctx context.Context, dest interface{}, stmt string, args ...interface{}) error
	FetchTable(ctx context.Context, stmt string, args ...interface{}) repositories.Table
}

type TaskService interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTasks(ctx context.Context) ([]models.Task, error)
	GetTaskByID(ctx context.Context, id int64) (models.Task, error)
	FilterTasks(ctx context.Context, filter TaskFilter) repositories.Table
	UpdateTask(ctx context.Context, task models.Task) error
	DeleteTask(ctx context.Context, id int64) error
	MarkComplete(ctx context.Context, id int64) error
	CountTasks(ctx context.Context, date *time.Time) int64
	Summarize(ctx context.Context, date *time.Time) Summary
}

// TaskFilter holds optional equality predicates. Zero values are omitted.
type TaskFilter struct {
	Status   string
	Priority string
	Date     *time.Time
}

type GroupCount struct {
	Label string `json:"label" gorm:"column:label"`
	Count int64  `json:"count" gorm:"column:total"`
}

type Summary struct {
	Date       string       `json:"date,omitempty"`
	Total      int64        `json:"total"`
	ByStatus   []GroupCount `json:"by_status"`
	ByPriority []GroupCount `json:"by_priority"`
}

type TaskServiceImpl struct {
	store TaskStore
	log   *zap.Logger
}

// NewTaskService builds the task service. When a gate is given the schema is
// initialized first; a failure is logged and construction still succeeds.
func NewTaskService(store TaskStore, gate *SchemaGate, log *zap.Logger) *TaskServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	if gate != nil {
		if err := gate.Ready(context.Background()); err != nil {
			log.Error("schema initialization failed", zap.Error(err))
		}
	}
	return &TaskServiceImpl{store: store, log: log}
}

func (s *TaskServiceImpl) CreateTask(ctx context.Context, task *models.Task) error {
	if task == nil {
		return ErrInvalidTask
	}

	normalized := s.normalize(*task)
	id, err := s.store.Insert(ctx, toRecord(normalized))
	monitoring.RecordTaskMutation("create", err)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	normalized.ID = id
	*task = normalized
	s.log.Info("task created", zap.Int64("id", id), zap.String("subject", task.Subject))
	return nil
}

func (s *TaskServiceImpl) GetTasks(ctx context.Context) ([]models.Task, error) {
	records, err := s.store.Fetch(ctx, selectTasks+orderByDeadline)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]models.Task, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, s.fromRecord(r))
	}
	return tasks, nil
}

func (s *TaskServiceImpl) GetTaskByID(ctx context.Context, id int64) (models.Task, error) {
	if id <= 0 {
		return models.Task{}, ErrInvalidID
	}

	record, err := s.store.FetchOne(ctx, selectTasks+" WHERE id = ?", id)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return s.fromRecord(record), nil
}

// FilterTasks returns the tabular projection of tasks matching every given
// predicate, ordered by deadline then id. It never fails; storage errors
// produce an empty table.
func (s *TaskServiceImpl) FilterTasks(ctx context.Context, filter TaskFilter) repositories.Table {
	var conds []string
	var args []interface{}

	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		conds = append(conds, "prioritas = ?")
		args = append(args, filter.Priority)
	}
	if filter.Date != nil {
		conds = append(conds, "DATE(deadline) = ?")
		args = append(args, filter.Date.Format(models.DateLayout))
	}

	query := selectTasks
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderByDeadline

	return s.store.FetchTable(ctx, query, args...)
}

func (s *TaskServiceImpl) UpdateTask(ctx context.Context, task models.Task) error {
	if task.ID <= 0 {
		return ErrInvalidID
	}

	normalized := s.normalize(task)
	err := s.mutate(ctx, "update", task.ID,
		"UPDATE tugas SET matkul = ?, deskripsi = ?, deadline = ?, prioritas = ?, status = ? WHERE id = ?",
		normalized.Subject, normalized.Description, normalized.DeadlineString(),
		string(normalized.Priority), string(normalized.Status), task.ID)
	if err != nil {
		return err
	}

	s.log.Info("task updated", zap.Int64("id", task.ID))
	return nil
}

func (s *TaskServiceImpl) DeleteTask(ctx context.Context, id int64) error {
	if err := s.mutate(ctx, "delete", id, "DELETE FROM tugas WHERE id = ?", id); err != nil {
		return err
	}

	s.log.Info("task deleted", zap.Int64("id", id))
	return nil
}

// MarkComplete sets the status to Complete regardless of the prior status.
func (s *TaskServiceImpl) MarkComplete(ctx context.Context, id int64) error {
	err := s.mutate(ctx, "complete", id, "UPDATE tugas SET status = ? WHERE id = ?", string(models.StatusComplete), id)
	if err != nil {
		return err
	}

	s.log.Info("task completed", zap.Int64("id", id))
	return nil
}

// CountTasks counts every task, or only those due on date. Storage failures
// are logged and reported as zero.
func (s *TaskServiceImpl) CountTasks(ctx context.Context, date *time.Time) int64 {
	count, err := s.countTasks(ctx, date)
	if err != nil {
		s.log.Warn("count failed, reporting zero", zap.Error(err))
		return 0
	}
	return count
}

// Summarize aggregates the total and the per-status and per-priority counts.
// Groups are ordered as the enumerations list them; unknown labels follow
// alphabetically. Storage failures yield an empty summary.
func (s *TaskServiceImpl) Summarize(ctx context.Context, date *time.Time) Summary {
	summary, err := s.summarize(ctx, date)
	if err != nil {
		s.log.Warn("summary failed, reporting empty", zap.Error(err))
	}
	return summary
}

func (s *TaskServiceImpl) countTasks(ctx context.Context, date *time.Time) (int64, error) {
	where, args := dateClause(date)

	var count int64
	if err := s.store.Scan(ctx, &count, "SELECT COUNT(*) FROM tugas"+where, args...); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}

func (s *TaskServiceImpl) summarize(ctx context.Context, date *time.Time) (Summary, error) {
	summary := Summary{
		ByStatus:   []GroupCount{},
		ByPriority: []GroupCount{},
	}
	if date != nil {
		summary.Date = date.Format(models.DateLayout)
	}

	total, err := s.countTasks(ctx, date)
	if err != nil {
		return summary, err
	}

	statusOrder := make([]string, 0, len(models.Statuses()))
	for _, st := range models.Statuses() {
		statusOrder = append(statusOrder, string(st))
	}
	priorityOrder := make([]string, 0, len(models.Priorities()))
	for _, p := range models.Priorities() {
		priorityOrder = append(priorityOrder, string(p))
	}

	byStatus, err := s.groupCounts(ctx, "status", date, statusOrder)
	if err != nil {
		return summary, err
	}
	byPriority, err := s.groupCounts(ctx, "prioritas", date, priorityOrder)
	if err != nil {
		return summary, err
	}

	summary.Total = total
	summary.ByStatus = byStatus
	summary.ByPriority = byPriority
	return summary, nil
}

func (s *TaskServiceImpl) groupCounts(ctx context.Context, column string, date *time.Time, order []string) ([]GroupCount, error) {
	where, args := dateClause(date)
	query := fmt.Sprintf("SELECT %s AS label, COUNT(*) AS total FROM tugas%s GROUP BY %s", column, where, column)

	groups := []GroupCount{}
	if err := s.store.Scan(ctx, &groups, query, args...); err != nil {
		return nil, fmt.Errorf("count tasks by %s: %w", column, err)
	}

	rank := make(map[string]int, len(order))
	for i, label := range order {
		rank[label] = i
	}
	sort.SliceStable(groups, func(i, j int) bool {
		ri, okI := rank[groups[i].Label]
		rj, okJ := rank[groups[j].Label]
		switch {
		case okI && okJ:
			return ri < rj
		case okI != okJ:
			return okI
		default:
			return groups[i].Label < groups[j].Label
		}
	})
	return groups, nil
}

func (s *TaskServiceImpl) mutate(ctx context.Context, kind string, id int64, stmt string, args ...interface{}) error {
	result, err := s.store.Execute(ctx, stmt, args...)
	if err == nil && result.RowsAffected == 0 {
		err = ErrTaskNotFound
	}
	monitoring.RecordTaskMutation(kind, err)

	if errors.Is(err, ErrTaskNotFound) {
		s.log.Warn("task not found", zap.String("op", kind), zap.Int64("id", id))
		return err
	}
	if err != nil {
		return fmt.Errorf("%s task %d: %w", kind, id, err)
	}
	return nil
}

func (s *TaskServiceImpl) normalize(task models.Task) models.Task {
	var deadline any
	if !task.Deadline.IsZero() {
		deadline = task.Deadline
	}

	normalized, fallbacks := models.NewTask(models.TaskInput{
		ID:          task.ID,
		Subject:     task.Subject,
		Description: task.Description,
		Deadline:    deadline,
		Priority:    string(task.Priority),
		Status:      string(task.Status),
	})
	s.logFallbacks(task.ID, fallbacks)
	return normalized
}

func (s *TaskServiceImpl) fromRecord(r repositories.TaskRecord) models.Task {
	task, fallbacks := models.NewTask(models.TaskInput{
		ID:          r.ID,
		Subject:     r.Subject,
		Description: r.Description,
		Deadline:    string(r.Deadline),
		Priority:    r.Priority,
		Status:      r.Status,
	})
	s.logFallbacks(r.ID, fallbacks)
	return task
}

func (s *TaskServiceImpl) logFallbacks(id int64, fallbacks []models.Fallback) {
	for _, fb := range fallbacks {
		monitoring.RecordFallback(fb.Field)
		s.log.Warn("default substituted", zap.Int64("id", id), zap.String("fallback", fb.String()))
	}
}

func toRecord(t models.Task) *repositories.TaskRecord {
	return &repositories.TaskRecord{
		Subject:     t.Subject,
		Description: t.Description,
		Deadline:    repositories.DateString(t.DeadlineString()),
		Priority:    string(t.Priority),
		Status:      string(t.Status),
	}
}

func dateClause(date *time.Time) (string, []interface{}) {
	if date == nil {
		return "", nil
	}
	return " WHERE DATE(deadline) = ?", []interface{}{date.Format(models.DateLayout)}
}
