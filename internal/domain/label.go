package domain

// Label is the shape shared by ingredients and tags: a name owned by one user
type Label struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"size:255;not null" json:"name"`
	UserID uint   `gorm:"index;not null" json:"-"`
}

// Ingredient Model
type Ingredient struct {
	Label
	User User `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

// Tag Model
type Tag struct {
	Label
	User User `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}
