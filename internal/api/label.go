package api

import (
	"context"  // Context for cache loads
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"strconv"  // Query parsing
	"strings"  // String manipulation
	"time"     // Cache TTL

	"recipe_api/internal/cache"  // Response cache
	"recipe_api/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// labelKind describes where one kind of label lives and how recipes reference it
type labelKind struct {
	name       string // Singular name used in logs
	table      string // Label table
	joinTable  string // Recipe join table
	joinColumn string // Label column in the join table
}

var (
	ingredientLabels = labelKind{name: "ingredient", table: "ingredients", joinTable: "recipe_ingredients", joinColumn: "ingredient_id"}
	tagLabels        = labelKind{name: "tag", table: "tags", joinTable: "recipe_tags", joinColumn: "tag_id"}
)

// LabelRequest is the body for creating or renaming a label
type LabelRequest struct {
	Name string `json:"name" binding:"required,max=255"` // Label name
}

// parseAssignedOnly interprets assigned_only as an integer flag; absent means false
func parseAssignedOnly(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// findLabel loads one of the user's labels
func findLabel(db *gorm.DB, kind labelKind, userID, id uint) (*domain.Label, error) {
	var label domain.Label
	err := db.Table(kind.table).Where("id = ? AND user_id = ?", id, userID).First(&label).Error
	if err != nil {
		return nil, err
	}
	return &label, nil
}

// ListLabelsHandler lists the user's labels ordered by name descending.
// assigned_only=1 keeps only labels attached to at least one recipe.
func ListLabelsHandler(db *gorm.DB, store cache.Cache, ttl time.Duration, kind labelKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		assignedOnly, err := parseAssignedOnly(c.Query("assigned_only"))
		if err != nil {
			respondFieldError(c, "assigned_only", "A valid integer is required.")
			return
		}
		ctx := c.Request.Context()
		cacheKey := kind.table + ":assigned=" + strconv.FormatBool(assignedOnly)
		labels, hit, err := cache.Fetch(ctx, store, cache.UserPrefix(user.ID), cacheKey, ttl, func(ctx context.Context) ([]domain.Label, error) {
			query := db.WithContext(ctx).Table(kind.table).Where(kind.table+".user_id = ?", user.ID)
			if assignedOnly {
				// EXISTS keeps each label once however many recipes use it
				query = query.Where("EXISTS (SELECT 1 FROM " + kind.joinTable + " WHERE " +
					kind.joinTable + "." + kind.joinColumn + " = " + kind.table + ".id)")
			}
			labels := []domain.Label{} // Render an empty list, not null
			err := query.Order(kind.table + ".name desc").Order(kind.table + ".id desc").Find(&labels).Error
			return labels, err
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": user.ID,     // User ID
				"kind":    kind.name,   // Label kind
				"error":   err.Error(), // Error message
			}).Error("Failed to list labels")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch " + kind.table})
			return
		}
		cacheStatus(c, hit)
		c.JSON(http.StatusOK, labels)
	}
}

// CreateLabelHandler creates a label owned by the caller
func CreateLabelHandler(db *gorm.DB, store cache.Cache, kind labelKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		var req LabelRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			respondFieldError(c, "name", "This field may not be blank.")
			return
		}
		label := domain.Label{Name: name, UserID: user.ID}
		if err := db.WithContext(c.Request.Context()).Table(kind.table).Create(&label).Error; err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": user.ID,     // User ID
				"kind":    kind.name,   // Label kind
				"error":   err.Error(), // Error message
			}).Error("Failed to create label")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create " + kind.name})
			return
		}
		invalidateUser(c.Request.Context(), store, user.ID)
		c.JSON(http.StatusCreated, label)
	}
}

// GetLabelHandler returns one of the caller's labels
func GetLabelHandler(db *gorm.DB, kind labelKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		id, ok := parseID(c)
		if !ok {
			return
		}
		label, err := findLabel(db.WithContext(c.Request.Context()), kind, user.ID, id)
		if err != nil {
			respondLookupError(c, err)
			return
		}
		c.JSON(http.StatusOK, label)
	}
}

// UpdateLabelHandler renames one of the caller's labels (PUT and PATCH)
func UpdateLabelHandler(db *gorm.DB, store cache.Cache, kind labelKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		id, ok := parseID(c)
		if !ok {
			return
		}
		tx := db.WithContext(c.Request.Context())
		label, err := findLabel(tx, kind, user.ID, id)
		if err != nil {
			respondLookupError(c, err)
			return
		}
		var req LabelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			respondFieldError(c, "name", "This field may not be blank.")
			return
		}
		if err := tx.Table(kind.table).Where("id = ?", label.ID).Update("name", name).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update " + kind.name})
			return
		}
		label.Name = name
		invalidateUser(c.Request.Context(), store, user.ID)
		c.JSON(http.StatusOK, label)
	}
}

// DeleteLabelHandler deletes one of the caller's labels and detaches it from recipes
func DeleteLabelHandler(db *gorm.DB, store cache.Cache, kind labelKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		id, ok := parseID(c)
		if !ok {
			return
		}
		tx := db.WithContext(c.Request.Context())
		label, err := findLabel(tx, kind, user.ID, id)
		if err != nil {
			respondLookupError(c, err)
			return
		}
		err = tx.Transaction(func(tx *gorm.DB) error {
			// Detach from recipes first
			if err := tx.Exec("DELETE FROM "+kind.joinTable+" WHERE "+kind.joinColumn+" = ?", label.ID).Error; err != nil {
				return err
			}
			return tx.Table(kind.table).Where("id = ?", label.ID).Delete(&domain.Label{}).Error
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id":  user.ID,     // User ID
				"label_id": label.ID,    // Label ID
				"kind":     kind.name,   // Label kind
				"error":    err.Error(), // Error message
			}).Error("Failed to delete label")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete " + kind.name})
			return
		}
		invalidateUser(c.Request.Context(), store, user.ID)
		c.Status(http.StatusNoContent)
	}
}

// respondLookupError maps a lookup failure to 404 or 500
func respondLookupError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch record"})
}
