package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/recipebox/internal/apperrors"
	"github.com/pageza/recipebox/internal/models"
)

// MsgRecipeNotFound is the client message for a missing recipe
const MsgRecipeNotFound = "Recipe not found"

// RecipeFields are the fields an update overwrites
type RecipeFields struct {
	Name         string
	Description  string
	Instructions string
	HasNuts      bool
}

// RecipeService handles recipe operations
type RecipeService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB, log *zap.Logger) *RecipeService {
	return &RecipeService{db: db, log: log}
}

func orderedIngredients(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func scoped(db *gorm.DB, id uuid.UUID, owner *uuid.UUID) *gorm.DB {
	db = db.Where("id = ?", id)
	if owner != nil {
		db = db.Where("user_id = ?", *owner)
	}
	return db
}

// ListRecipes lists the recipes owned by userID with their ingredients
func (s *RecipeService) ListRecipes(ctx context.Context, userID uuid.UUID) ([]*models.Recipe, error) {
	recipes := []*models.Recipe{}
	err := s.db.WithContext(ctx).
		Preload("Ingredients", orderedIngredients).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&recipes).Error
	if err != nil {
		return nil, apperrors.Store("list recipes", err)
	}
	return recipes, nil
}

// GetRecipe retrieves a recipe by ID with its ingredients
func (s *RecipeService) GetRecipe(ctx context.Context, id uuid.UUID, owner *uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := scoped(s.db.WithContext(ctx), id, owner).
		Preload("Ingredients", orderedIngredients).
		First(&recipe).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(MsgRecipeNotFound)
		}
		return nil, apperrors.Store("get recipe", err)
	}
	return &recipe, nil
}

// CreateRecipe creates a recipe and its ingredients in one call
func (s *RecipeService) CreateRecipe(ctx context.Context, recipe *models.Recipe) (*models.Recipe, error) {
	if recipe.ID == uuid.Nil {
		recipe.ID = uuid.New()
	}
	for i := range recipe.Ingredients {
		recipe.Ingredients[i].Position = i
	}
	if err := s.db.WithContext(ctx).Create(recipe).Error; err != nil {
		return nil, apperrors.Store("create recipe", err)
	}
	s.log.Info("recipe created",
		zap.String("recipe_id", recipe.ID.String()),
		zap.String("user_id", recipe.UserID.String()),
	)
	return recipe, nil
}

// UpdateRecipe overwrites the four editable fields of an existing recipe
func (s *RecipeService) UpdateRecipe(ctx context.Context, id uuid.UUID, owner *uuid.UUID, fields RecipeFields) error {
	var recipe models.Recipe
	if err := scoped(s.db.WithContext(ctx), id, owner).First(&recipe).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound(MsgRecipeNotFound)
		}
		return apperrors.Store("find recipe", err)
	}

	err := s.db.WithContext(ctx).Model(&recipe).
		Select("name", "description", "instructions", "has_nuts").
		Updates(models.Recipe{
			Name:         fields.Name,
			Description:  fields.Description,
			Instructions: fields.Instructions,
			HasNuts:      fields.HasNuts,
		}).Error
	if err != nil {
		return apperrors.Store("update recipe", err)
	}
	return nil
}

// DeleteRecipe deletes a recipe; ingredients go with it
func (s *RecipeService) DeleteRecipe(ctx context.Context, id uuid.UUID, owner *uuid.UUID) error {
	result := scoped(s.db.WithContext(ctx), id, owner).Delete(&models.Recipe{})
	if result.Error != nil {
		return apperrors.Store("delete recipe", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound(MsgRecipeNotFound)
	}
	return nil
}
