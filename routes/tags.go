package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard-app/taskboard/database"
	"taskboard-app/taskboard/models"
	"taskboard-app/taskboard/services"
)

type TagInput struct {
	Name  string  `json:"name" binding:"required"`
	Color *string `json:"color"`
}

func RegisterTagRoutes(group *gin.RouterGroup, db *database.Database, tagService services.TagServiceInterface) {
	group.GET("/tags", func(c *gin.Context) { GetTags(c, db, tagService) })
	group.POST("/tags", func(c *gin.Context) { CreateTag(c, db, tagService) })
	group.GET("/tags/:id", func(c *gin.Context) { GetTagById(c, db, tagService) })
	group.DELETE("/tags/:id", func(c *gin.Context) { DeleteTag(c, db, tagService) })
}

func GetTags(c *gin.Context, db *database.Database, tagService services.TagServiceInterface) {
	tags, err := tagService.GetTags(db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tags)
}

func CreateTag(c *gin.Context, db *database.Database, tagService services.TagServiceInterface) {
	var input TagInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	createdTag, err := tagService.CreateTag(db, models.Tag{Name: input.Name, Color: input.Color})
	if err != nil {
		if errors.Is(err, services.ErrTagExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "Tag already exists"})
			return
		}
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, createdTag)
}

func GetTagById(c *gin.Context, db *database.Database, tagService services.TagServiceInterface) {
	id := c.Param("id")
	tag, err := tagService.GetTagById(db, id)
	if err != nil {
		if errors.Is(err, services.ErrTagNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tag)
}

func DeleteTag(c *gin.Context, db *database.Database, tagService services.TagServiceInterface) {
	id := c.Param("id")

	deleted, err := tagService.DeleteTag(db, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
