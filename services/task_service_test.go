package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard-app/taskboard/models"
	"taskboard-app/taskboard/testutils"
)

func strPtr(s string) *string { return &s }

func TestCreateTask(t *testing.T) {
	db := testutils.SetupTestDB(t)
	service := &TaskService{}

	t.Run("Defaults", func(t *testing.T) {
		created, err := service.CreateTask(db, models.Task{Title: "Water plants"})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, 1, created.Version)
		assert.False(t, created.Completed)
		assert.Nil(t, created.CompletedAt)
		assert.False(t, created.CreatedAt.IsZero())
		assert.False(t, created.ModifiedAt.IsZero())
	})

	t.Run("Title Required", func(t *testing.T) {
		_, err := service.CreateTask(db, models.Task{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Caller Version Ignored", func(t *testing.T) {
		created, err := service.CreateTask(db, models.Task{Title: "Pay rent", Version: 42})
		require.NoError(t, err)
		assert.Equal(t, 1, created.Version)
	})

	t.Run("Created Completed Gets Timestamp", func(t *testing.T) {
		created, err := service.CreateTask(db, models.Task{Title: "Already done", Completed: true})
		require.NoError(t, err)
		require.NotNil(t, created.CompletedAt)
	})

	t.Run("Tags Created And Deduplicated", func(t *testing.T) {
		created, err := service.CreateTask(db, models.Task{
			Title: "Buy paint",
			Tags:  []string{"errands", "home", "errands", ""},
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"errands", "home"}, created.Tags)

		fetched, err := service.GetTaskById(db, created.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"errands", "home"}, fetched.Tags)
	})
}

func TestGetTaskById(t *testing.T) {
	db := testutils.SetupTestDB(t)
	service := &TaskService{}

	t.Run("Task Not Found", func(t *testing.T) {
		_, err := service.GetTaskById(db, "no-such-id")
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})

	t.Run("Task Found", func(t *testing.T) {
		created, err := service.CreateTask(db, models.Task{Title: "Read book", Notes: strPtr("chapter 3")})
		require.NoError(t, err)

		fetched, err := service.GetTaskById(db, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, fetched.ID)
		assert.Equal(t, "Read book", fetched.Title)
		require.NotNil(t, fetched.Notes)
		assert.Equal(t, "chapter 3", *fetched.Notes)
		assert.Equal(t, []string{}, fetched.Tags)
	})
}

func TestUpdateTask(t *testing.T) {
	db := testutils.SetupTestDB(t)
	service := &TaskService{}

	t.Run("Task Not Found", func(t *testing.T) {
		_, err := service.UpdateTask(db, "no-such-id", models.Task{Title: "x"})
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})

	t.Run("Version Increments From Stored Value", func(t *testing.T) {
		created, err := service.CreateTask(db, models.Task{Title: "Draft report"})
		require.NoError(t, err)

		// The client-sent version is irrelevant; last writer wins.
		updated, err := service.UpdateTask(db, created.ID, models.Task{Title: "Draft report v2", Version: 99})
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Version)

		updated, err = service.UpdateTask(db, created.ID, models.Task{Title: "Draft report v3"})
		require.NoError(t, err)
		assert.Equal(t, 3, updated.Version)
	})

	t.Run("Completed Timestamp Invariant", func(t *testing.T) {
		created, err := service.CreateTask(db, models.Task{Title: "Mow lawn"})
		require.NoError(t, err)

		done, err := service.UpdateTask(db, created.ID, models.Task{Title: "Mow lawn", Completed: true})
		require.NoError(t, err)
		require.NotNil(t, done.CompletedAt)
		firstCompletion := *done.CompletedAt

		// Completing an already-completed task keeps the original timestamp.
		done, err = service.UpdateTask(db, created.ID, models.Task{Title: "Mow lawn", Completed: true})
		require.NoError(t, err)
		require.NotNil(t, done.CompletedAt)
		assert.Equal(t, firstCompletion.Unix(), done.CompletedAt.Unix())

		reopened, err := service.UpdateTask(db, created.ID, models.Task{Title: "Mow lawn", Completed: false})
		require.NoError(t, err)
		assert.Nil(t, reopened.CompletedAt)
	})

	t.Run("Tag Set Fully Replaced", func(t *testing.T) {
		created, err := service.CreateTask(db, models.Task{Title: "Plan trip", Tags: []string{"travel", "family"}})
		require.NoError(t, err)

		updated, err := service.UpdateTask(db, created.ID, models.Task{Title: "Plan trip", Tags: []string{"travel", "budget"}})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"travel", "budget"}, updated.Tags)

		fetched, err := service.GetTaskById(db, created.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"travel", "budget"}, fetched.Tags)
	})
}

func TestDeleteTask(t *testing.T) {
	db := testutils.SetupTestDB(t)
	service := &TaskService{}

	t.Run("Delete Is Idempotent", func(t *testing.T) {
		created, err := service.CreateTask(db, models.Task{Title: "Old task"})
		require.NoError(t, err)

		deleted, err := service.DeleteTask(db, created.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = service.DeleteTask(db, created.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		_, err = service.GetTaskById(db, created.ID)
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})

	t.Run("Associations Removed With Task", func(t *testing.T) {
		created, err := service.CreateTask(db, models.Task{Title: "Tagged task", Tags: []string{"keepme"}})
		require.NoError(t, err)

		_, err = service.DeleteTask(db, created.ID)
		require.NoError(t, err)

		var count int
		err = db.DB.Raw("SELECT COUNT(*) FROM task_tags WHERE task_id = ?", created.ID).Scan(&count).Error
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		// The tag itself survives its last task.
		tag, err := (&TagService{}).GetTagByName(db, "keepme")
		require.NoError(t, err)
		assert.Equal(t, "keepme", tag.Name)
	})
}

func TestGetTasksFilters(t *testing.T) {
	db := testutils.SetupTestDB(t)
	service := &TaskService{}

	mustCreate := func(task models.Task) models.Task {
		created, err := service.CreateTask(db, task)
		require.NoError(t, err)
		return created
	}
	mustCreate(models.Task{Title: "A", Completed: true, Tags: []string{"home"}})
	mustCreate(models.Task{Title: "B", Tags: []string{"home"}})
	mustCreate(models.Task{Title: "C"})

	titlesOf := func(tasks []models.Task) []string {
		titles := make([]string, len(tasks))
		for i, task := range tasks {
			titles[i] = task.Title
		}
		return titles
	}

	t.Run("No Filter", func(t *testing.T) {
		tasks, err := service.GetTasks(db, TaskFilter{})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"A", "B", "C"}, titlesOf(tasks))
	})

	t.Run("Completed Filter", func(t *testing.T) {
		incomplete := false
		tasks, err := service.GetTasks(db, TaskFilter{Completed: &incomplete})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"B", "C"}, titlesOf(tasks))
	})

	t.Run("Tag Filter", func(t *testing.T) {
		tasks, err := service.GetTasks(db, TaskFilter{Tag: "home"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"A", "B"}, titlesOf(tasks))
	})

	t.Run("Combined Filters", func(t *testing.T) {
		incomplete := false
		tasks, err := service.GetTasks(db, TaskFilter{Completed: &incomplete, Tag: "home"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"B"}, titlesOf(tasks))
	})

	t.Run("Unknown Tag Matches Nothing", func(t *testing.T) {
		tasks, err := service.GetTasks(db, TaskFilter{Tag: "nope"})
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})
}

func TestGetTasksOrdering(t *testing.T) {
	db := testutils.SetupTestDB(t)
	service := &TaskService{}

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mustCreate := func(title string, dueDate *string, createdAt time.Time) {
		_, err := service.CreateTask(db, models.Task{Title: title, DueDate: dueDate, CreatedAt: createdAt})
		require.NoError(t, err)
	}

	mustCreate("undated old", nil, base)
	mustCreate("due later", strPtr("2026-09-02"), base.Add(time.Minute))
	mustCreate("due soon", strPtr("2026-09-01"), base.Add(2*time.Minute))
	mustCreate("undated new", nil, base.Add(3*time.Minute))

	tasks, err := service.GetTasks(db, TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 4)

	// Dated tasks first in due order, then undated newest-created first.
	assert.Equal(t, "due soon", tasks[0].Title)
	assert.Equal(t, "due later", tasks[1].Title)
	assert.Equal(t, "undated new", tasks[2].Title)
	assert.Equal(t, "undated old", tasks[3].Title)
}

func TestGetTasksPagination(t *testing.T) {
	db := testutils.SetupTestDB(t)
	service := &TaskService{}

	for i := 0; i < 10; i++ {
		_, err := service.CreateTask(db, models.Task{Title: "Task"})
		require.NoError(t, err)
	}

	first, err := service.GetTasks(db, TaskFilter{Limit: 5})
	require.NoError(t, err)
	second, err := service.GetTasks(db, TaskFilter{Limit: 5, Offset: 5})
	require.NoError(t, err)
	require.Len(t, first, 5)
	require.Len(t, second, 5)

	// Identical sort keys are broken by id, so the pages never overlap.
	seen := make(map[string]bool)
	for _, task := range append(first, second...) {
		assert.False(t, seen[task.ID], "task %s appeared on both pages", task.ID)
		seen[task.ID] = true
	}
}

func TestSearchTasks(t *testing.T) {
	db := testutils.SetupTestDB(t)
	service := &TaskService{}

	mustCreate := func(title string, notes *string) models.Task {
		created, err := service.CreateTask(db, models.Task{Title: title, Notes: notes})
		require.NoError(t, err)
		return created
	}
	milk := mustCreate("Buy milk", nil)
	groceries := mustCreate("Buy groceries", strPtr("milk and eggs"))
	dentist := mustCreate("Call dentist", nil)

	t.Run("Query Required", func(t *testing.T) {
		_, err := service.SearchTasks(db, "", 0)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Malformed Query Rejected", func(t *testing.T) {
		_, err := service.SearchTasks(db, `"milk`, 0)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Matches Title And Notes", func(t *testing.T) {
		results, err := service.SearchTasks(db, "milk", 0)
		require.NoError(t, err)
		require.Len(t, results, 2)
		ids := []string{results[0].ID, results[1].ID}
		assert.ElementsMatch(t, []string{milk.ID, groceries.ID}, ids)
	})

	t.Run("Stemmed Match", func(t *testing.T) {
		results, err := service.SearchTasks(db, "calling", 0)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, dentist.ID, results[0].ID)
	})

	t.Run("Index Follows Updates", func(t *testing.T) {
		_, err := service.UpdateTask(db, dentist.ID, models.Task{Title: "Reschedule appointment"})
		require.NoError(t, err)

		results, err := service.SearchTasks(db, "dentist", 0)
		require.NoError(t, err)
		assert.Empty(t, results)

		results, err = service.SearchTasks(db, "reschedule", 0)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, dentist.ID, results[0].ID)
	})

	t.Run("Index Follows Deletes", func(t *testing.T) {
		_, err := service.DeleteTask(db, milk.ID)
		require.NoError(t, err)

		results, err := service.SearchTasks(db, "milk", 0)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, groceries.ID, results[0].ID)
	})
}

func TestCreateTaskTransactionFailure(t *testing.T) {
	mockDB, mock, closeFn := testutils.SetupMockDB()
	defer closeFn()
	service := &TaskService{}

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := service.CreateTask(mockDB, models.Task{Title: "doomed"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
