package api

import (
	"context"  // Context for cache operations
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"strconv"  // Id parsing
	"strings"  // String manipulation

	"recipe_api/internal/cache"      // Response cache
	"recipe_api/internal/domain"     // Importing domain models
	"recipe_api/internal/middleware" // Auth context helpers
	"recipe_api/internal/utils"      // Validation messages

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// requireUser returns the authenticated user or writes a 401
func requireUser(c *gin.Context) (*domain.User, bool) {
	user, exists := middleware.CurrentUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	return user, true
}

// respondBindError turns a binding failure into a 400 with per-field reasons
func respondBindError(c *gin.Context, err error) {
	resp := gin.H{"error": "Invalid request"}
	if fields := utils.FieldErrors(err); fields != nil {
		resp["fields"] = fields
	} else if errors.Is(err, domain.ErrInvalidPrice) {
		resp["fields"] = map[string]string{"price": domain.ErrInvalidPrice.Error()}
	}
	c.JSON(http.StatusBadRequest, resp)
}

// respondFieldError writes a 400 for a single invalid field
func respondFieldError(c *gin.Context, field, reason string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":  "Invalid request",
		"fields": map[string]string{field: reason},
	})
}

// parseID reads the :id path parameter; malformed ids cannot match a record
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
		return 0, false
	}
	return uint(id), true
}

// parseIDList parses a comma separated list of ids such as "1,2,3"
func parseIDList(raw string) ([]uint, error) {
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// uniqueIDs drops duplicates while keeping first-seen order
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// invalidateUser drops every cached response for the user after a write
func invalidateUser(ctx context.Context, store cache.Cache, userID uint) {
	if err := store.DeletePrefix(ctx, cache.UserPrefix(userID)); err != nil {
		// Stale reads expire with the TTL
		logrus.WithFields(logrus.Fields{
			"user_id": userID,      // User ID
			"error":   err.Error(), // Error message
		}).Warn("Failed to invalidate cache")
	}
}

// cacheStatus reports cache hits to clients
func cacheStatus(c *gin.Context, hit bool) {
	if hit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
}
