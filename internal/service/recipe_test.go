package service

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/recipebox/internal/apperrors"
	"github.com/pageza/recipebox/internal/models"
	"github.com/pageza/recipebox/internal/testhelpers"
)

func newRecipeService(t *testing.T) (*RecipeService, *gorm.DB) {
	db := testhelpers.SetupTestDatabase(t)
	return NewRecipeService(db, zap.NewNop()), db
}

func TestListRecipesOwnedOnly(t *testing.T) {
	svc, db := newRecipeService(t)
	ctx := context.Background()

	owner := testhelpers.CreateUser(t, db)
	other := testhelpers.CreateUser(t, db)
	withIngredients := testhelpers.CreateRecipe(t, db, owner.ID, "flour", "eggs", "milk")
	testhelpers.CreateRecipe(t, db, owner.ID)
	testhelpers.CreateRecipe(t, db, other.ID, "salt")

	recipes, err := svc.ListRecipes(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	for _, r := range recipes {
		assert.Equal(t, owner.ID, r.UserID)
		if r.ID == withIngredients.ID {
			assert.Equal(t, []string{"flour", "eggs", "milk"}, r.IngredientNames())
		} else {
			assert.Empty(t, r.Ingredients)
		}
	}

	empty, err := svc.ListRecipes(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestGetRecipe(t *testing.T) {
	svc, db := newRecipeService(t)
	ctx := context.Background()

	owner := testhelpers.CreateUser(t, db)
	other := testhelpers.CreateUser(t, db)
	created := testhelpers.CreateRecipe(t, db, owner.ID, "basil", "pine nuts")

	got, err := svc.GetRecipe(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, []string{"basil", "pine nuts"}, got.IngredientNames())

	_, err = svc.GetRecipe(ctx, uuid.New(), nil)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	_, err = svc.GetRecipe(ctx, created.ID, &other.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	_, err = svc.GetRecipe(ctx, created.ID, &owner.ID)
	assert.NoError(t, err)
}

func TestCreateRecipeWithIngredients(t *testing.T) {
	svc, db := newRecipeService(t)
	owner := testhelpers.CreateUser(t, db)

	recipe, err := svc.CreateRecipe(context.Background(), &models.Recipe{
		UserID:      owner.ID,
		Name:        "Pesto",
		HasNuts:     true,
		Ingredients: []models.Ingredient{{Name: "basil"}, {Name: "pine nuts"}},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, recipe.ID)
	assert.Equal(t, 1, recipe.Ingredients[1].Position)
	assert.Equal(t, int64(2), testhelpers.CountRows(t, db, &models.Ingredient{}))
}

func TestCreateRecipeUnknownOwner(t *testing.T) {
	svc, _ := newRecipeService(t)

	_, err := svc.CreateRecipe(context.Background(), &models.Recipe{UserID: uuid.New(), Name: "Orphan"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStore, apperrors.KindOf(err))
}

func TestUpdateRecipeOverwritesFields(t *testing.T) {
	svc, db := newRecipeService(t)
	ctx := context.Background()

	owner := testhelpers.CreateUser(t, db)
	created, err := svc.CreateRecipe(ctx, &models.Recipe{
		UserID: owner.ID, Name: "Old", Description: "old", Instructions: "old", HasNuts: true,
	})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateRecipe(ctx, created.ID, nil, RecipeFields{Name: "New"}))

	got, err := svc.GetRecipe(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.Empty(t, got.Description)
	assert.Empty(t, got.Instructions)
	assert.False(t, got.HasNuts)

	err = svc.UpdateRecipe(ctx, uuid.New(), nil, RecipeFields{Name: "x"})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	stranger := uuid.New()
	err = svc.UpdateRecipe(ctx, created.ID, &stranger, RecipeFields{Name: "x"})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestDeleteRecipe(t *testing.T) {
	svc, db := newRecipeService(t)
	ctx := context.Background()

	owner := testhelpers.CreateUser(t, db)
	created := testhelpers.CreateRecipe(t, db, owner.ID, "a", "b")

	stranger := uuid.New()
	err := svc.DeleteRecipe(ctx, created.ID, &stranger)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	assert.Equal(t, int64(1), testhelpers.CountRows(t, db, &models.Recipe{}))

	require.NoError(t, svc.DeleteRecipe(ctx, created.ID, nil))
	assert.Zero(t, testhelpers.CountRows(t, db, &models.Recipe{}))
	assert.Zero(t, testhelpers.CountRows(t, db, &models.Ingredient{}))

	err = svc.DeleteRecipe(ctx, created.ID, nil)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestRecipeStoreFailures(t *testing.T) {
	errConn := errors.New("connection refused")
	ctx := context.Background()

	t.Run("list", func(t *testing.T) {
		db, mock := testhelpers.SetupMockDatabase(t)
		mock.ExpectQuery(`SELECT \* FROM "recipes"`).WillReturnError(errConn)

		_, err := NewRecipeService(db, zap.NewNop()).ListRecipes(ctx, uuid.New())
		assert.Equal(t, apperrors.KindStore, apperrors.KindOf(err))
		assert.ErrorIs(t, err, errConn)
	})

	t.Run("get", func(t *testing.T) {
		db, mock := testhelpers.SetupMockDatabase(t)
		mock.ExpectQuery(`SELECT \* FROM "recipes"`).WillReturnError(errConn)

		_, err := NewRecipeService(db, zap.NewNop()).GetRecipe(ctx, uuid.New(), nil)
		assert.Equal(t, apperrors.KindStore, apperrors.KindOf(err))
	})

	t.Run("delete", func(t *testing.T) {
		db, mock := testhelpers.SetupMockDatabase(t)
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "recipes"`).WillReturnError(errConn)
		mock.ExpectRollback()

		err := NewRecipeService(db, zap.NewNop()).DeleteRecipe(ctx, uuid.New(), nil)
		assert.Equal(t, apperrors.KindStore, apperrors.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete not found", func(t *testing.T) {
		db, mock := testhelpers.SetupMockDatabase(t)
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "recipes"`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := NewRecipeService(db, zap.NewNop()).DeleteRecipe(ctx, uuid.New(), nil)
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	})
}
