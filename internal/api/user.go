package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Token lifetime

	"recipe_api/internal/domain" // Importing domain models
	"recipe_api/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// Request struct for registration
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"` // Email must be a valid address
	Password string `json:"password" binding:"required,min=5"`      // Password must be at least 5 characters
	Name     string `json:"name" binding:"required,max=255"`        // Name must be provided
}

// Request struct for token creation
type TokenRequest struct {
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Request struct for profile updates; nil fields are left unchanged
type UpdateUserRequest struct {
	Email    *string `json:"email" binding:"omitempty,email,max=255"`
	Password *string `json:"password" binding:"omitempty,min=5"`
	Name     *string `json:"name" binding:"omitempty,min=1,max=255"`
}

// Response struct for user profiles
type UserResponse struct {
	Email string `json:"email"` // User email
	Name  string `json:"name"`  // User name
}

// Response struct for authentication
type AuthResponse struct {
	Token string `json:"token"` // JWT token
}

const errBadCredentials = "Unable to authenticate with provided credentials"

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{Email: u.Email, Name: u.Name}
}

// emailTaken reports whether another user already owns email
func emailTaken(db *gorm.DB, email string, exceptID uint) (bool, error) {
	var count int64
	err := db.Model(&domain.User{}).Where("email = ? AND id <> ?", email, exceptID).Count(&count).Error
	return count > 0, err
}

// CreateUserHandler registers a new user
func CreateUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateUserRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			respondBindError(c, err)
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			respondFieldError(c, "name", "This field may not be blank.")
			return
		}
		email := domain.NormalizeEmail(req.Email) // Normalize email for uniqueness
		taken, err := emailTaken(db, email, 0)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}
		if taken {
			respondFieldError(c, "email", "user with this email already exists.")
			return
		}
		// Hash the password and create the user
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			// If hashing fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		user := domain.User{Email: email, Name: name, Password: string(hash)}
		// Attempt to create the user in the database
		if err := db.Create(&user).Error; err != nil {
			// A concurrent signup can still win the unique index
			respondFieldError(c, "email", "user with this email already exists.")
			return
		}
		logrus.WithField("user_id", user.ID).Info("User created") // Log user creation
		c.JSON(http.StatusCreated, toUserResponse(&user))
	}
}

// TokenHandler authenticates a user and returns a JWT token
func TokenHandler(db *gorm.DB, jwtSecret string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TokenRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			respondBindError(c, err)
			return
		}
		var user domain.User // Fetch user from database
		if err := db.Where("email = ?", domain.NormalizeEmail(req.Email)).First(&user).Error; err != nil {
			// If user not found, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": errBadCredentials})
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil || !user.IsActive {
			c.JSON(http.StatusBadRequest, gin.H{"error": errBadCredentials})
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(user.ID, jwtSecret, ttl)
		if err != nil {
			// If token generation fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		// Return the token in the response
		c.JSON(http.StatusOK, AuthResponse{Token: token})
	}
}

// MeHandler returns the authenticated user's profile
func MeHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// UpdateMeHandler updates the authenticated user's profile.
// With full set every field is required (PUT), otherwise only given fields change (PATCH).
func UpdateMeHandler(db *gorm.DB, full bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		var req UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if full {
			missing := map[string]string{}
			if req.Email == nil {
				missing["email"] = "This field is required."
			}
			if req.Password == nil {
				missing["password"] = "This field is required."
			}
			if req.Name == nil {
				missing["name"] = "This field is required."
			}
			if len(missing) > 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "fields": missing})
				return
			}
		}
		updates := map[string]any{}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				respondFieldError(c, "name", "This field may not be blank.")
				return
			}
			updates["name"] = name
		}
		if req.Email != nil {
			email := domain.NormalizeEmail(*req.Email)
			taken, err := emailTaken(db, email, user.ID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
				return
			}
			if taken {
				respondFieldError(c, "email", "user with this email already exists.")
				return
			}
			updates["email"] = email
		}
		if req.Password != nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
				return
			}
			updates["password"] = string(hash)
		}
		if len(updates) > 0 {
			if err := db.Model(user).Updates(updates).Error; err != nil {
				logrus.WithFields(logrus.Fields{
					"user_id": user.ID,     // User ID
					"error":   err.Error(), // Error message
				}).Error("Failed to update user")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
				return
			}
		}
		if err := db.First(user, user.ID).Error; err != nil { // Reload the stored profile
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			return
		}
		c.JSON(http.StatusOK, toUserResponse(user))
	}
}
