package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/pageza/recipebox/internal/models"
	"github.com/pageza/recipebox/internal/types"
)

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Register(ctx context.Context, req types.RegisterRequest) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

// IRecipeService defines the interface for recipe operations. A non-nil
// owner restricts the lookup to recipes of that user.
type IRecipeService interface {
	ListRecipes(ctx context.Context, userID uuid.UUID) ([]*models.Recipe, error)
	GetRecipe(ctx context.Context, id uuid.UUID, owner *uuid.UUID) (*models.Recipe, error)
	CreateRecipe(ctx context.Context, recipe *models.Recipe) (*models.Recipe, error)
	UpdateRecipe(ctx context.Context, id uuid.UUID, owner *uuid.UUID, fields RecipeFields) error
	DeleteRecipe(ctx context.Context, id uuid.UUID, owner *uuid.UUID) error
}
