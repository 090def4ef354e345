package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskboard-app/taskboard/database"
	"taskboard-app/taskboard/models"
	"taskboard-app/taskboard/services"
)

// TaskInput is the request body for task create and update. Every field of
// the task is carried; an update replaces the stored content in full.
type TaskInput struct {
	Title     string   `json:"title" binding:"required"`
	Notes     *string  `json:"notes"`
	DueDate   *string  `json:"due_date"`
	DueTime   *string  `json:"due_time"`
	Priority  int      `json:"priority" binding:"gte=0,lte=3"`
	Completed bool     `json:"completed"`
	DeviceID  string   `json:"device_id"`
	Tags      []string `json:"tags"`
	Version   int      `json:"version"`
}

// CompleteInput toggles completion. Completed defaults to true when omitted.
type CompleteInput struct {
	Completed *bool  `json:"completed"`
	DeviceID  string `json:"device_id"`
}

func RegisterTaskRoutes(group *gin.RouterGroup, db *database.Database, taskService services.TaskServiceInterface, syncService services.SyncServiceInterface) {
	group.GET("/tasks", func(c *gin.Context) { GetTasks(c, db, taskService) })
	group.POST("/tasks", func(c *gin.Context) { CreateTask(c, db, syncService) })
	group.GET("/tasks/search", func(c *gin.Context) { SearchTasks(c, db, taskService) })
	group.GET("/tasks/:id", func(c *gin.Context) { GetTaskById(c, db, taskService) })
	group.PUT("/tasks/:id", func(c *gin.Context) { UpdateTask(c, db, syncService) })
	group.POST("/tasks/:id/complete", func(c *gin.Context) { CompleteTask(c, db, syncService) })
	group.DELETE("/tasks/:id", func(c *gin.Context) { DeleteTask(c, db, syncService) })
}

func CreateTask(c *gin.Context, db *database.Database, syncService services.SyncServiceInterface) {
	var input TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	createdTask, err := syncService.CreateTask(db, input.toTask())
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, createdTask)
}

func GetTaskById(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	id := c.Param("id")
	task, err := taskService.GetTaskById(db, id)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

func UpdateTask(c *gin.Context, db *database.Database, syncService services.SyncServiceInterface) {
	id := c.Param("id")
	var input TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updatedTask, err := syncService.UpdateTask(db, id, input.toTask())
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, updatedTask)
}

func CompleteTask(c *gin.Context, db *database.Database, syncService services.SyncServiceInterface) {
	id := c.Param("id")
	// The body is optional; an empty POST marks the task completed.
	var input CompleteInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	completed := true
	if input.Completed != nil {
		completed = *input.Completed
	}

	task, err := syncService.CompleteTask(db, id, completed, input.DeviceID)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

func DeleteTask(c *gin.Context, db *database.Database, syncService services.SyncServiceInterface) {
	id := c.Param("id")

	deleted, err := syncService.DeleteTask(db, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func GetTasks(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	var filter services.TaskFilter

	if completed := c.Query("completed"); completed != "" {
		value, err := strconv.ParseBool(completed)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "completed must be a boolean"})
			return
		}
		filter.Completed = &value
	}
	filter.Tag = c.Query("tag")
	filter.Limit = intQuery(c, "limit")
	filter.Offset = intQuery(c, "offset")

	tasks, err := taskService.GetTasks(db, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func SearchTasks(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	tasks, err := taskService.SearchTasks(db, query, intQuery(c, "limit"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (in TaskInput) toTask() models.Task {
	return models.Task{
		Title:     in.Title,
		Notes:     in.Notes,
		DueDate:   in.DueDate,
		DueTime:   in.DueTime,
		Priority:  in.Priority,
		Completed: in.Completed,
		DeviceID:  in.DeviceID,
		Tags:      in.Tags,
		Version:   in.Version,
	}
}

func intQuery(c *gin.Context, name string) int {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
