package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/recipebox/internal/apperrors"
	"github.com/pageza/recipebox/internal/database"
	"github.com/pageza/recipebox/internal/models"
	"github.com/pageza/recipebox/internal/types"
)

const (
	msgUserExists         = "User already exists"
	msgInvalidCredentials = "Incorrect email or password, please try again"
)

type AuthService struct {
	db   *gorm.DB
	log  *zap.Logger
	cost int
}

func NewAuthService(db *gorm.DB, log *zap.Logger) *AuthService {
	return &AuthService{
		db:   db,
		log:  log,
		cost: bcrypt.DefaultCost,
	}
}

// Register creates a user unless the email is already taken. Only the
// allow-listed request fields reach the store.
func (s *AuthService) Register(ctx context.Context, req types.RegisterRequest) (*models.User, error) {
	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return nil, apperrors.Conflict(msgUserExists)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Store("lookup user by email", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.Conflict(msgUserExists)
		}
		return nil, apperrors.Store("create user", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return &user, nil
}

// Authenticate checks an email and password pair
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Unauthorized(msgInvalidCredentials)
		}
		return nil, apperrors.Store("lookup user by email", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized(msgInvalidCredentials)
	}
	return &user, nil
}
