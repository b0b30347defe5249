package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/pageza/recipebox/internal/models"
	"github.com/pageza/recipebox/internal/service"
)

// MockRecipeService is a mock implementation of service.IRecipeService
type MockRecipeService struct {
	mock.Mock
}

func (m *MockRecipeService) ListRecipes(ctx context.Context, userID uuid.UUID) ([]*models.Recipe, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Recipe), args.Error(1)
}

func (m *MockRecipeService) GetRecipe(ctx context.Context, id uuid.UUID, owner *uuid.UUID) (*models.Recipe, error) {
	args := m.Called(ctx, id, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recipe), args.Error(1)
}

func (m *MockRecipeService) CreateRecipe(ctx context.Context, recipe *models.Recipe) (*models.Recipe, error) {
	args := m.Called(ctx, recipe)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recipe), args.Error(1)
}

func (m *MockRecipeService) UpdateRecipe(ctx context.Context, id uuid.UUID, owner *uuid.UUID, fields service.RecipeFields) error {
	args := m.Called(ctx, id, owner, fields)
	return args.Error(0)
}

func (m *MockRecipeService) DeleteRecipe(ctx context.Context, id uuid.UUID, owner *uuid.UUID) error {
	args := m.Called(ctx, id, owner)
	return args.Error(0)
}

var (
	_ service.IRecipeService = (*MockRecipeService)(nil)
	_ service.IAuthService   = (*MockAuthService)(nil)
)
