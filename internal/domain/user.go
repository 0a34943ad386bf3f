package domain

import (
	"strings" // String manipulation
	"time"    // Timestamps
)

// User Model
type User struct {
	ID        uint      `gorm:"primaryKey"`                    // Primary key
	Email     string    `gorm:"size:255;uniqueIndex;not null"` // Unique, normalized email
	Name      string    `gorm:"size:255;not null"`             // Display name
	Password  string    `gorm:"not null"`                      // Hashed password
	IsActive  bool      `gorm:"not null;default:true"`         // Inactive users cannot authenticate
	IsStaff   bool      `gorm:"not null;default:false"`        // Staff users can reach admin routes
	CreatedAt time.Time `gorm:"autoCreateTime"`                // Timestamp of creation
	Recipes   []Recipe  `gorm:"constraint:OnDelete:CASCADE;"`  // Owned recipes
}

// NormalizeEmail trims the address and lower-cases its domain part
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}
