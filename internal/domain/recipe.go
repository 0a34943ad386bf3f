package domain

import "time"

// Recipe Model
type Recipe struct {
	ID          uint         `gorm:"primaryKey"`
	UserID      uint         `gorm:"index;not null"`
	Title       string       `gorm:"size:255;not null"`
	TimeMinutes int          `gorm:"not null"`
	Price       Price        `gorm:"column:price_cents;not null"`
	Link        string       `gorm:"size:255"`
	Image       string       `gorm:"size:255"` // Storage key of the uploaded image
	Ingredients []Ingredient `gorm:"many2many:recipe_ingredients;constraint:OnDelete:CASCADE;"`
	Tags        []Tag        `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE;"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IngredientIDs returns the ids of the attached ingredients
func (r *Recipe) IngredientIDs() []uint {
	ids := make([]uint, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		ids[i] = ing.ID
	}
	return ids
}

// TagIDs returns the ids of the attached tags
func (r *Recipe) TagIDs() []uint {
	ids := make([]uint, len(r.Tags))
	for i, tag := range r.Tags {
		ids[i] = tag.ID
	}
	return ids
}
