package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard-app/taskboard/database"
	"taskboard-app/taskboard/models"
)

type TagServiceInterface interface {
	CreateTag(db *database.Database, tag models.Tag) (models.Tag, error)
	GetTagById(db *database.Database, id string) (models.Tag, error)
	GetTagByName(db *database.Database, name string) (models.Tag, error)
	GetTags(db *database.Database) ([]models.Tag, error)
	DeleteTag(db *database.Database, id string) (bool, error)
}

type TagService struct{}

// CreateTag creates a tag with a globally unique, case-sensitive name. The
// name is pre-checked so a duplicate surfaces as ErrTagExists rather than a
// raw constraint violation.
func (s *TagService) CreateTag(db *database.Database, tag models.Tag) (models.Tag, error) {
	if tag.Name == "" {
		return models.Tag{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	if _, err := s.GetTagByName(db, tag.Name); err == nil {
		return models.Tag{}, ErrTagExists
	} else if !errors.Is(err, ErrTagNotFound) {
		return models.Tag{}, err
	}

	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = time.Now().UTC()
	}

	if err := db.DB.Create(&tag).Error; err != nil {
		return models.Tag{}, err
	}

	log.Printf("Created tag %s (%s)", tag.Name, tag.ID)
	return tag, nil
}

func (s *TagService) GetTagById(db *database.Database, id string) (models.Tag, error) {
	var tag models.Tag
	if err := db.DB.First(&tag, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Tag{}, ErrTagNotFound
		}
		return models.Tag{}, err
	}
	return tag, nil
}

func (s *TagService) GetTagByName(db *database.Database, name string) (models.Tag, error) {
	var tag models.Tag
	if err := db.DB.First(&tag, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Tag{}, ErrTagNotFound
		}
		return models.Tag{}, err
	}
	return tag, nil
}

// GetTags lists all tags sorted by name ascending.
func (s *TagService) GetTags(db *database.Database) ([]models.Tag, error) {
	var tags []models.Tag
	if err := db.DB.Order("name ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// DeleteTag removes the tag and its task associations. Tasks themselves are
// untouched. A missing id yields (false, nil).
func (s *TagService) DeleteTag(db *database.Database, id string) (bool, error) {
	tx := db.DB.Begin()
	if tx.Error != nil {
		return false, tx.Error
	}

	if err := tx.Where("tag_id = ?", id).Delete(&models.TaskTag{}).Error; err != nil {
		tx.Rollback()
		return false, err
	}

	result := tx.Where("id = ?", id).Delete(&models.Tag{})
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
		log.Printf("Deleted tag %s", id)
	}
	return deleted, nil
}

var TagServiceInstance TagServiceInterface = &TagService{}
