package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recipe is owned by exactly one user and holds its ingredients in order.
type Recipe struct {
	ID           uuid.UUID    `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID       uuid.UUID    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	User         *User        `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Name         string       `gorm:"not null" json:"name"`
	Description  string       `gorm:"type:text" json:"description"`
	Instructions string       `gorm:"type:text" json:"instructions"`
	HasNuts      bool         `gorm:"not null" json:"has_nuts"`
	ImagePath    string       `gorm:"size:255" json:"image_path,omitempty"`
	Ingredients  []Ingredient `gorm:"constraint:OnDelete:CASCADE" json:"ingredients"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Ingredient belongs to a recipe; Position keeps the submitted order.
type Ingredient struct {
	ID       uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	RecipeID uuid.UUID `gorm:"type:varchar(36);not null;index" json:"recipe_id"`
	Name     string    `gorm:"not null" json:"name"`
	Position int       `gorm:"not null" json:"position"`
}

func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (i *Ingredient) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// IngredientNames returns ingredient names in position order
func (r *Recipe) IngredientNames() []string {
	names := make([]string, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		names[i] = ing.Name
	}
	return names
}
