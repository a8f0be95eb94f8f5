package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tugasku/internal/database"
	"tugasku/internal/models"
	"tugasku/internal/repositories"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm/logger"
)

type TaskServiceTestSuite struct {
	suite.Suite
	store   *repositories.Store
	gate    *SchemaGate
	service *TaskServiceImpl
	ctx     context.Context
}

func (suite *TaskServiceTestSuite) SetupTest() {
	connector, err := database.NewConnector(&database.ConnConfig{
		Driver:   database.DriverSQLite,
		DSN:      filepath.Join(suite.T().TempDir(), "tasks.db") + "?_busy_timeout=1000",
		LogLevel: logger.Silent,
	}, nil)
	suite.Require().NoError(err)

	suite.ctx = context.Background()
	suite.store = repositories.NewStore(connector, nil)
	suite.gate = NewSchemaGate(suite.store)
	suite.service = NewTaskService(suite.store, suite.gate, nil)
	suite.Require().True(suite.gate.IsReady())
}

func (suite *TaskServiceTestSuite) create(subject, deadline string, priority models.Priority, status models.Status) models.Task {
	task, _ := models.NewTask(models.TaskInput{
		Subject:     subject,
		Description: "desc " + subject,
		Deadline:    deadline,
		Priority:    string(priority),
		Status:      string(status),
	})
	suite.Require().NoError(suite.service.CreateTask(suite.ctx, &task))
	return task
}

func (suite *TaskServiceTestSuite) tableColumn(table repositories.Table, name string) []interface{} {
	values := table.Column(name)
	if values == nil {
		return []interface{}{}
	}
	return values
}

func (suite *TaskServiceTestSuite) TestCreateThenListIncludesTask() {
	task := suite.create("Kalkulus", "2024-12-31", models.PriorityHigh, models.StatusInProgress)
	suite.Greater(task.ID, int64(0))

	tasks, err := suite.service.GetTasks(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(tasks, 1)
	suite.Equal(task, tasks[0])
	suite.Equal("2024-12-31", tasks[0].DeadlineString())
}

func (suite *TaskServiceTestSuite) TestCreateNormalizesRawTask() {
	task := models.Task{Subject: "  ", Deadline: time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC)}
	suite.Require().NoError(suite.service.CreateTask(suite.ctx, &task))

	suite.Equal(models.DefaultSubject, task.Subject)
	suite.Equal(models.DefaultDescription, task.Description)
	suite.Equal(models.DefaultPriority, task.Priority)
	suite.Equal(models.DefaultStatus, task.Status)

	stored, err := suite.service.GetTaskByID(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.Equal("2024-05-01", stored.DeadlineString())
}

func (suite *TaskServiceTestSuite) TestCreateNilTask() {
	suite.True(errors.Is(suite.service.CreateTask(suite.ctx, nil), ErrInvalidTask))
}

func (suite *TaskServiceTestSuite) TestGetTaskByID() {
	task := suite.create("Basis Data", "2024-06-01", models.PriorityLow, models.StatusPending)

	got, err := suite.service.GetTaskByID(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.Equal(task, got)

	_, err = suite.service.GetTaskByID(suite.ctx, task.ID+1)
	suite.True(errors.Is(err, ErrTaskNotFound))

	_, err = suite.service.GetTaskByID(suite.ctx, 0)
	suite.True(errors.Is(err, ErrInvalidID))
}

func (suite *TaskServiceTestSuite) TestUpdateUnknownIDLeavesTableUnchanged() {
	task := suite.create("A", "2024-01-01", models.PriorityLow, models.StatusPending)
	before, err := suite.service.GetTasks(suite.ctx)
	suite.Require().NoError(err)

	ghost := task
	ghost.ID = task.ID + 100
	ghost.Subject = "Changed"
	err = suite.service.UpdateTask(suite.ctx, ghost)
	suite.True(errors.Is(err, ErrTaskNotFound))

	after, err := suite.service.GetTasks(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(before, after)

	suite.True(errors.Is(suite.service.UpdateTask(suite.ctx, models.Task{}), ErrInvalidID))
}

func (suite *TaskServiceTestSuite) TestUpdateReplacesFields() {
	task := suite.create("A", "2024-01-01", models.PriorityLow, models.StatusPending)

	task.Subject = "Struktur Data"
	task.Deadline = time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	task.Priority = "Whenever"
	task.Status = models.StatusNeedApproval
	suite.Require().NoError(suite.service.UpdateTask(suite.ctx, task))

	got, err := suite.service.GetTaskByID(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.Equal("Struktur Data", got.Subject)
	suite.Equal("2024-02-02", got.DeadlineString())
	suite.Equal(models.Priority("Whenever"), got.Priority)
	suite.Equal(models.StatusNeedApproval, got.Status)
}

func (suite *TaskServiceTestSuite) TestDeleteAndCompleteUnknownID() {
	suite.create("A", "2024-01-01", models.PriorityLow, models.StatusPending)

	suite.True(errors.Is(suite.service.DeleteTask(suite.ctx, 999), ErrTaskNotFound))
	suite.True(errors.Is(suite.service.MarkComplete(suite.ctx, 999), ErrTaskNotFound))

	suite.Equal(int64(1), suite.service.CountTasks(suite.ctx, nil))
	tasks, err := suite.service.GetTasks(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(models.StatusPending, tasks[0].Status)
}

func (suite *TaskServiceTestSuite) TestDeleteExisting() {
	task := suite.create("A", "2024-01-01", models.PriorityLow, models.StatusPending)

	suite.Require().NoError(suite.service.DeleteTask(suite.ctx, task.ID))
	suite.Equal(int64(0), suite.service.CountTasks(suite.ctx, nil))
	suite.True(errors.Is(suite.service.DeleteTask(suite.ctx, task.ID), ErrTaskNotFound))
}

func (suite *TaskServiceTestSuite) TestMarkCompleteRegardlessOfPriorStatus() {
	for _, status := range []models.Status{models.StatusInProgress, models.StatusNeedApproval, models.StatusPending, models.StatusComplete} {
		task := suite.create(string(status), "2024-01-01", models.PriorityLow, status)
		suite.Require().NoError(suite.service.MarkComplete(suite.ctx, task.ID))
	}

	tasks, err := suite.service.GetTasks(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(tasks, 4)
	for _, task := range tasks {
		suite.Equal(models.StatusComplete, task.Status)
	}
}

func (suite *TaskServiceTestSuite) TestFilterTasks() {
	a := suite.create("A", "2024-03-01", models.PriorityHigh, models.StatusPending)
	b := suite.create("B", "2024-01-01", models.PriorityHigh, models.StatusPending)
	c := suite.create("C", "2024-01-01", models.PriorityHigh, models.StatusPending)
	d := suite.create("D", "2024-01-01", models.PriorityLow, models.StatusPending)
	e := suite.create("E", "2024-02-01", models.PriorityHigh, models.StatusComplete)

	table := suite.service.FilterTasks(suite.ctx, TaskFilter{Status: "Pending", Priority: "High"})
	suite.Equal([]string{"id", "matkul", "deskripsi", "deadline", "prioritas", "status"}, table.Columns)
	suite.Equal([]interface{}{b.ID, c.ID, a.ID}, suite.tableColumn(table, "id"))

	all := suite.service.FilterTasks(suite.ctx, TaskFilter{})
	suite.Equal([]interface{}{b.ID, c.ID, d.ID, e.ID, a.ID}, suite.tableColumn(all, "id"))
	suite.Equal([]interface{}{"2024-01-01", "2024-01-01", "2024-01-01", "2024-02-01", "2024-03-01"}, suite.tableColumn(all, "deadline"))

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	byDate := suite.service.FilterTasks(suite.ctx, TaskFilter{Date: &day, Priority: "Low"})
	suite.Equal([]interface{}{d.ID}, suite.tableColumn(byDate, "id"))

	none := suite.service.FilterTasks(suite.ctx, TaskFilter{Status: "Archived"})
	suite.True(none.Empty())
}

func (suite *TaskServiceTestSuite) TestGetTasksOrdering() {
	suite.create("late", "2024-12-01", models.PriorityLow, models.StatusPending)
	suite.create("early", "2024-01-01", models.PriorityLow, models.StatusPending)

	tasks, err := suite.service.GetTasks(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal("early", tasks[0].Subject)
	suite.Equal("late", tasks[1].Subject)
}

func (suite *TaskServiceTestSuite) TestCountTasks() {
	suite.Equal(int64(0), suite.service.CountTasks(suite.ctx, nil))

	suite.create("A", "2024-01-01", models.PriorityLow, models.StatusPending)
	suite.create("B", "2024-01-01", models.PriorityLow, models.StatusPending)
	suite.create("C", "2024-01-02", models.PriorityLow, models.StatusPending)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	other := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.Equal(int64(3), suite.service.CountTasks(suite.ctx, nil))
	suite.Equal(int64(2), suite.service.CountTasks(suite.ctx, &day))
	suite.Equal(int64(0), suite.service.CountTasks(suite.ctx, &other))
}

func (suite *TaskServiceTestSuite) TestSummarize() {
	suite.create("A", "2024-01-01", models.PriorityLow, models.StatusPending)
	suite.create("B", "2024-01-01", models.PriorityUrgent, models.StatusComplete)
	suite.create("C", "2024-01-01", models.PriorityUrgent, models.StatusPending)
	suite.create("D", "2024-02-01", models.PriorityHigh, "Archived")

	summary := suite.service.Summarize(suite.ctx, nil)
	suite.Equal(int64(4), summary.Total)
	suite.Equal([]GroupCount{
		{Label: "Pending", Count: 2},
		{Label: "Complete", Count: 1},
		{Label: "Archived", Count: 1},
	}, summary.ByStatus)
	suite.Equal([]GroupCount{
		{Label: "Urgent", Count: 2},
		{Label: "High", Count: 1},
		{Label: "Low", Count: 1},
	}, summary.ByPriority)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	daily := suite.service.Summarize(suite.ctx, &day)
	suite.Equal("2024-01-01", daily.Date)
	suite.Equal(int64(3), daily.Total)
	suite.Len(daily.ByPriority, 2)
}

func (suite *TaskServiceTestSuite) TestEnsureSchemaIdempotentKeepsRows() {
	suite.create("A", "2024-01-01", models.PriorityLow, models.StatusPending)

	suite.Require().NoError(suite.store.EnsureSchema(suite.ctx))
	suite.Require().NoError(suite.store.EnsureSchema(suite.ctx))

	suite.Equal(int64(1), suite.service.CountTasks(suite.ctx, nil))
}

func (suite *TaskServiceTestSuite) brokenService() *TaskServiceImpl {
	blocker := filepath.Join(suite.T().TempDir(), "blocker")
	suite.Require().NoError(os.WriteFile(blocker, []byte("x"), 0o600))

	connector, err := database.NewConnector(&database.ConnConfig{
		Driver:   database.DriverSQLite,
		DSN:      filepath.Join(blocker, "tasks.db"),
		LogLevel: logger.Silent,
	}, nil)
	suite.Require().NoError(err)

	store := repositories.NewStore(connector, nil)
	gate := NewSchemaGate(store)
	service := NewTaskService(store, gate, nil)
	suite.False(gate.IsReady())
	return service
}

func (suite *TaskServiceTestSuite) TestNeutralValuesOnBrokenStore() {
	service := suite.brokenService()
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	suite.Equal(int64(0), service.CountTasks(suite.ctx, nil))
	suite.Equal(int64(0), service.CountTasks(suite.ctx, &day))

	summary := service.Summarize(suite.ctx, &day)
	suite.Equal("2024-01-01", summary.Date)
	suite.Equal(int64(0), summary.Total)
	suite.Empty(summary.ByStatus)
	suite.Empty(summary.ByPriority)

	suite.True(service.FilterTasks(suite.ctx, TaskFilter{}).Empty())
	suite.True(service.FilterTasks(suite.ctx, TaskFilter{Status: "Pending", Date: &day}).Empty())
}

func (suite *TaskServiceTestSuite) TestErrorsOnBrokenStore() {
	service := suite.brokenService()

	_, err := service.GetTasks(suite.ctx)
	suite.True(errors.Is(err, repositories.ErrConnection))

	task, _ := models.NewTask(models.TaskInput{Subject: "A", Description: "B"})
	suite.True(errors.Is(service.CreateTask(suite.ctx, &task), repositories.ErrConnection))
	suite.True(errors.Is(service.DeleteTask(suite.ctx, 1), repositories.ErrConnection))
	suite.True(errors.Is(service.MarkComplete(suite.ctx, 1), repositories.ErrConnection))

	_, err = service.countTasks(suite.ctx, nil)
	suite.True(errors.Is(err, repositories.ErrConnection))
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}
