package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"recipe_api/internal/domain" // Importing domain models
	"recipe_api/internal/utils"  // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// Context keys set by TokenAuthMiddleware
const (
	UserIDKey = "userID"
	UserKey   = "user"
)

// Accepted Authorization header schemes
var authSchemes = []string{"Token ", "Bearer "}

// TokenAuthMiddleware validates the token and loads the active user it names
func TokenAuthMiddleware(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := extractToken(c.GetHeader("Authorization")) // Get token from Authorization header
		if !ok {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication credentials were not provided."})
			return
		}
		claims, err := utils.ParseJWT(tokenStr, secret) // Parse the JWT token
		if err != nil {
			// If parsing fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; err != nil || !user.IsActive {
			// Deleted or deactivated users lose access immediately
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User inactive or deleted."})
			return
		}
		c.Set(UserIDKey, user.ID) // Store userID in context
		c.Set(UserKey, &user)     // Store user in context
		c.Next()                  // Proceed to the next handler
	}
}

func extractToken(header string) (string, bool) {
	for _, scheme := range authSchemes {
		if strings.HasPrefix(header, scheme) {
			token := strings.TrimSpace(strings.TrimPrefix(header, scheme))
			return token, token != ""
		}
	}
	return "", false
}

// CurrentUser returns the authenticated user stored by TokenAuthMiddleware
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, exists := c.Get(UserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok
}
