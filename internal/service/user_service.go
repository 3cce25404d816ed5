package service

import (
	"context"
	"strings"

	"zeroai/internal/cache"
	"zeroai/internal/models"
	"zeroai/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
	entities *cache.Entities
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) WithCache(entities *cache.Entities) *UserService {
	s.entities = entities
	return s
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, models.NewValidationError("User ID is required")
	}
	user, err := s.entities.User(ctx, id, s.userRepo.GetByID)
	if err != nil {
		return nil, err
	}
	user.Normalize()
	return user, nil
}
