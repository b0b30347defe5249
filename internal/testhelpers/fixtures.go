package testhelpers

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/google/uuid"
	"github.com/pageza/recipebox/internal/models"
)

// DefaultPassword is the plaintext password of users created by CreateUser
const DefaultPassword = "correct-horse-battery"

// CreateUser inserts a user with fake identity data
func CreateUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Username:     gofakeit.Username(),
		Email:        gofakeit.Email(),
		PasswordHash: string(hash),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// CreateRecipe inserts a recipe owned by userID with the given ingredients
func CreateRecipe(t *testing.T, db *gorm.DB, userID uuid.UUID, ingredients ...string) *models.Recipe {
	t.Helper()
	recipe := &models.Recipe{
		UserID:       userID,
		Name:         gofakeit.Dinner(),
		Description:  gofakeit.Sentence(8),
		Instructions: gofakeit.Paragraph(1, 3, 10, " "),
	}
	for i, name := range ingredients {
		recipe.Ingredients = append(recipe.Ingredients, models.Ingredient{Name: name, Position: i})
	}
	if err := db.Create(recipe).Error; err != nil {
		t.Fatalf("failed to create recipe: %v", err)
	}
	return recipe
}

// CountRows returns the number of rows of model
func CountRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return count
}
