package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/recipebox/config"
	"github.com/pageza/recipebox/internal/apperrors"
	"github.com/pageza/recipebox/internal/database"
	"github.com/pageza/recipebox/internal/logger"
	"github.com/pageza/recipebox/internal/models"
	"github.com/pageza/recipebox/internal/service"
	"github.com/pageza/recipebox/internal/types"
)

const demoPassword = "testpassword123"

var demoUsers = []types.RegisterRequest{
	{Username: "johndoe", Email: "john.doe@example.com", Password: demoPassword},
	{Username: "janesmith", Email: "jane.smith@example.com", Password: demoPassword},
	{Username: "bobwilson", Email: "bob.wilson@example.com", Password: demoPassword},
}

func main() {
	recipesPerUser := flag.Int("recipes", 3, "recipes to create for each demo user")
	seed := flag.Int64("seed", 0, "gofakeit seed, 0 for random")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	zl, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zl.Sync()

	db, err := database.New(cfg, zl)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.RunMigrations(db, zl); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}

	gofakeit.Seed(*seed)
	created, err := seedDemoData(context.Background(), db, zl, *recipesPerUser)
	if err != nil {
		log.Fatalf("failed to seed demo data: %v", err)
	}
	fmt.Printf("Seeded %d recipes. Demo users log in with password %q\n", created, demoPassword)
}

// seedDemoData registers the demo users and gives each of them fake
// recipes. Users that already exist are reused.
func seedDemoData(ctx context.Context, db *gorm.DB, log *zap.Logger, recipesPerUser int) (int, error) {
	auth := service.NewAuthService(db, log)
	recipes := service.NewRecipeService(db, log)

	created := 0
	for _, req := range demoUsers {
		user, err := auth.Register(ctx, req)
		if apperrors.Is(err, apperrors.KindConflict) {
			user = &models.User{}
			if err := db.WithContext(ctx).Where("email = ?", req.Email).First(user).Error; err != nil {
				return created, fmt.Errorf("load existing user %s: %w", req.Email, err)
			}
			log.Info("demo user already exists", zap.String("email", req.Email))
		} else if err != nil {
			return created, fmt.Errorf("register %s: %w", req.Email, err)
		}

		for i := 0; i < recipesPerUser; i++ {
			if _, err := recipes.CreateRecipe(ctx, fakeRecipe(user)); err != nil {
				return created, fmt.Errorf("create recipe for %s: %w", req.Email, err)
			}
			created++
		}
	}
	return created, nil
}

func fakeRecipe(user *models.User) *models.Recipe {
	recipe := &models.Recipe{
		UserID:       user.ID,
		Name:         gofakeit.Dinner(),
		Description:  gofakeit.Sentence(10),
		Instructions: strings.Join([]string{gofakeit.Sentence(6), gofakeit.Sentence(8), gofakeit.Sentence(5)}, "\n"),
		HasNuts:      gofakeit.Bool(),
	}
	for i := 0; i < gofakeit.Number(2, 6); i++ {
		recipe.Ingredients = append(recipe.Ingredients, models.Ingredient{Name: gofakeit.Noun()})
	}
	return recipe
}
