package api

import (
	"context"  // Context for cache loads
	"fmt"      // Error wrapping
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"recipe_api/internal/cache"  // Response cache
	"recipe_api/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// UserAdminResponse represents the user data returned to staff
type UserAdminResponse struct {
	ID       uint   `json:"id"`        // User ID
	Email    string `json:"email"`     // Email
	Name     string `json:"name"`      // Name
	IsActive bool   `json:"is_active"` // Can authenticate
	IsStaff  bool   `json:"is_staff"`  // Staff flag
}

// userPage is the paginated admin listing
type userPage struct {
	Users      []UserAdminResponse `json:"users"`       // List of users
	Page       int                 `json:"page"`        // Current page
	PageSize   int                 `json:"page_size"`   // Page size
	Total      int64               `json:"total"`       // Total number of users
	TotalPages int                 `json:"total_pages"` // Total pages
	Cached     bool                `json:"cached"`      // Response is from cache
}

// ListUsersHandler returns all users, paginated
func ListUsersHandler(db *gorm.DB, store cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page := 1      // Default page number
		pageSize := 20 // Default page size
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// Check and set page size within limits
		if ps := c.Query("page_size"); ps != "" {
			// If valid, set page size
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size
			}
		}
		// Create a cache key based on the effective pagination
		cacheKey := "page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		resp, hit, err := cache.Fetch(ctx, store, "admin:users:", cacheKey, ttl, func(ctx context.Context) (userPage, error) {
			offset := (page - 1) * pageSize // Calculate offset for pagination
			var total int64                 // Total user count
			if err := db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error; err != nil {
				return userPage{}, fmt.Errorf("count users: %w", err)
			}
			var users []domain.User // Slice to hold users
			if err := db.WithContext(ctx).Order("id").Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
				return userPage{}, fmt.Errorf("fetch users: %w", err)
			}
			// Map users to response format
			resp := userPage{
				Users:      make([]UserAdminResponse, len(users)),
				Page:       page,                                   // Current page
				PageSize:   pageSize,                               // Page size
				Total:      total,                                  // Total number of users
				TotalPages: (int(total) + pageSize - 1) / pageSize, // Calculate total pages
			}
			for i, u := range users {
				resp.Users[i] = UserAdminResponse{
					ID:       u.ID,       // User ID
					Email:    u.Email,    // Email
					Name:     u.Name,     // Name
					IsActive: u.IsActive, // Active flag
					IsStaff:  u.IsStaff,  // Staff flag
				}
			}
			return resp, nil
		})
		if err != nil {
			logrus.WithField("error", err.Error()).Error("Failed to list users")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"}) // Return on error
			return
		}
		resp.Cached = hit           // Indicate response is from cache
		c.JSON(http.StatusOK, resp) // Return the response
	}
}
