package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskboard-app/taskboard/database"
	"taskboard-app/taskboard/models"
)

type TaskServiceInterface interface {
	CreateTask(db *database.Database, task models.Task) (models.Task, error)
	GetTaskById(db *database.Database, id string) (models.Task, error)
	GetTasks(db *database.Database, filter TaskFilter) ([]models.Task, error)
	UpdateTask(db *database.Database, id string, updated models.Task) (models.Task, error)
	DeleteTask(db *database.Database, id string) (bool, error)
	SearchTasks(db *database.Database, query string, limit int) ([]models.Task, error)
}

// TaskFilter narrows GetTasks results. Completed and Tag are AND-ed when
// both are set; Tag is an exact-name membership test.
type TaskFilter struct {
	Completed *bool
	Tag       string
	Limit     int
	Offset    int
}

const (
	defaultListLimit   = 100
	defaultSearchLimit = 50
)

type TaskService struct{}

// CreateTask persists a new task and its tag associations as one atomic
// unit. Server-assigned fields (id, timestamps, version) overwrite whatever
// the caller supplied; version is always 1 on create.
func (s *TaskService) CreateTask(db *database.Database, task models.Task) (models.Task, error) {
	if task.Title == "" {
		return models.Task{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	if task.ID == "" {
		task.ID = models.NewTaskID()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.ModifiedAt = now
	task.Version = 1
	if task.Completed {
		if task.CompletedAt == nil {
			task.CompletedAt = &now
		}
	} else {
		task.CompletedAt = nil
	}
	task.Tags = dedupeTagNames(task.Tags)

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.Task{}, tx.Error
	}

	if err := tx.Create(&task).Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	if err := resolveTags(tx, task.ID, task.Tags); err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	log.Printf("Created task %s (version %d)", task.ID, task.Version)
	return task, nil
}

// GetTaskById returns the task with its resolved tag-name set, or
// ErrTaskNotFound for a missing id.
func (s *TaskService) GetTaskById(db *database.Database, id string) (models.Task, error) {
	var task models.Task
	if err := db.DB.First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}

	tags, err := tagNamesForTask(db.DB, task.ID)
	if err != nil {
		return models.Task{}, err
	}
	task.Tags = tags
	return task, nil
}

// GetTasks lists tasks ordered by due date ascending with undated tasks
// last, then newest-created first. The id tie-break makes the order total,
// so consecutive pages are disjoint absent concurrent mutation.
func (s *TaskService) GetTasks(db *database.Database, filter TaskFilter) ([]models.Task, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := db.DB.Model(&models.Task{})
	if filter.Completed != nil {
		query = query.Where("completed = ?", *filter.Completed)
	}
	if filter.Tag != "" {
		query = query.Where(
			"id IN (SELECT tt.task_id FROM task_tags tt JOIN tags t ON t.id = tt.tag_id WHERE t.name = ?)",
			filter.Tag,
		)
	}

	var tasks []models.Task
	err := query.
		Order("due_date IS NULL, due_date ASC, created_at DESC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	if err := attachTags(db.DB, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateTask performs a full update of an existing task: content fields are
// taken from updated, the modified timestamp is recomputed, the version is
// incremented by exactly 1 from the stored value (the caller's version is
// ignored), and the tag association set is fully replaced.
func (s *TaskService) UpdateTask(db *database.Database, id string, updated models.Task) (models.Task, error) {
	if updated.Title == "" {
		return models.Task{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.Task{}, tx.Error
	}

	var stored models.Task
	if err := tx.First(&stored, "id = ?", id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}

	now := time.Now().UTC()
	stored.Title = updated.Title
	stored.Notes = updated.Notes
	stored.DueDate = updated.DueDate
	stored.DueTime = updated.DueTime
	stored.Priority = updated.Priority
	stored.DeviceID = updated.DeviceID
	stored.Completed = updated.Completed
	if stored.Completed {
		if stored.CompletedAt == nil {
			stored.CompletedAt = &now
		}
	} else {
		stored.CompletedAt = nil
	}
	stored.ModifiedAt = now
	stored.Version++

	if err := tx.Save(&stored).Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	// Full replace of the association set, never a diff.
	if err := tx.Where("task_id = ?", id).Delete(&models.TaskTag{}).Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}
	stored.Tags = dedupeTagNames(updated.Tags)
	if err := resolveTags(tx, id, stored.Tags); err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	log.Printf("Updated task %s (version %d)", stored.ID, stored.Version)
	return stored, nil
}

// DeleteTask removes the task and its associations. A missing id yields
// (false, nil), not an error.
func (s *TaskService) DeleteTask(db *database.Database, id string) (bool, error) {
	tx := db.DB.Begin()
	if tx.Error != nil {
		return false, tx.Error
	}

	if err := tx.Where("task_id = ?", id).Delete(&models.TaskTag{}).Error; err != nil {
		tx.Rollback()
		return false, err
	}

	result := tx.Where("id = ?", id).Delete(&models.Task{})
	if result.Error != nil {
		tx.Rollback()
		return false, result.Error
	}
	deleted := result.RowsAffected > 0

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return false, err
	}

	if deleted {
		log.Printf("Deleted task %s", id)
	}
	return deleted, nil
}

// SearchTasks runs a full-text match over title and notes. Results come
// back in bm25 relevance order from the FTS index, which the schema keeps
// synchronized with the tasks table via triggers.
func (s *TaskService) SearchTasks(db *database.Database, query string, limit int) ([]models.Task, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var tasks []models.Task
	err := db.DB.Raw(`
		SELECT t.*
		FROM tasks t
		JOIN (
			SELECT rowid, rank FROM tasks_fts WHERE tasks_fts MATCH ?
		) f ON f.rowid = t.rowid
		ORDER BY f.rank
		LIMIT ?`, query, limit).Scan(&tasks).Error
	if err != nil {
		// A query the MATCH parser rejects (unbalanced quote, stray
		// operator) is the caller's fault, not a storage failure.
		if strings.Contains(err.Error(), "fts5") {
			return nil, fmt.Errorf("%w: malformed search query", ErrInvalidInput)
		}
		return nil, err
	}

	if err := attachTags(db.DB, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// resolveTags makes sure every named tag exists and is associated with the
// task. Creating a missing tag and re-inserting an existing association are
// both idempotent within the surrounding transaction.
func resolveTags(tx *gorm.DB, taskID string, names []string) error {
	for _, name := range names {
		var tag models.Tag
		err := tx.First(&tag, "name = ?", name).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = models.Tag{
				ID:        uuid.New().String(),
				Name:      name,
				CreatedAt: time.Now().UTC(),
			}
			if err := tx.Create(&tag).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		assoc := models.TaskTag{TaskID: taskID, TagID: tag.ID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&assoc).Error; err != nil {
			return err
		}
	}
	return nil
}

// tagNamesForTask returns the tag names of one task, name-sorted.
func tagNamesForTask(db *gorm.DB, taskID string) ([]string, error) {
	var names []string
	err := db.Table("task_tags").
		Joins("JOIN tags ON tags.id = task_tags.tag_id").
		Where("task_tags.task_id = ?", taskID).
		Order("tags.name ASC").
		Pluck("tags.name", &names).Error
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// attachTags resolves tag names for a batch of tasks with one query.
func attachTags(db *gorm.DB, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}

	var rows []struct {
		TaskID string
		Name   string
	}
	err := db.Table("task_tags").
		Select("task_tags.task_id AS task_id, tags.name AS name").
		Joins("JOIN tags ON tags.id = task_tags.tag_id").
		Where("task_tags.task_id IN ?", ids).
		Order("tags.name ASC").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	byTask := make(map[string][]string, len(tasks))
	for _, row := range rows {
		byTask[row.TaskID] = append(byTask[row.TaskID], row.Name)
	}
	for i := range tasks {
		if names, ok := byTask[tasks[i].ID]; ok {
			tasks[i].Tags = names
		} else {
			tasks[i].Tags = []string{}
		}
	}
	return nil
}

// dedupeTagNames collapses duplicates and drops empty names, preserving
// first-occurrence order.
func dedupeTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

var TaskServiceInstance TaskServiceInterface = &TaskService{}
