package user

import (
	"context"
	"fmt"

	"github.com/xpanvictor/annotator/pkg/Logger"
)

// UserService defines the user operations the annotation flow consumes
type UserService interface {
	Upsert(ctx context.Context, profile Profile) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
}

type userService struct {
	repository UserRepository
	logger     *Logger.Logger
}

func NewUserService(repository UserRepository, logger *Logger.Logger) UserService {
	if logger == nil {
		logger = Logger.Nop()
	}
	return &userService{repository: repository, logger: logger}
}

// Upsert implements UserService
func (s *userService) Upsert(ctx context.Context, profile Profile) (*User, error) {
	u := &User{
		ID:     profile.ID,
		Email:  profile.Email,
		Name:   profile.Name,
		Avatar: profile.Picture,
	}
	if err := s.repository.Upsert(ctx, u); err != nil {
		s.logger.Errorf("error upserting user %d: %v", profile.ID, err)
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	s.logger.Infof("user upserted: %d (%s)", u.ID, u.Email)
	return u, nil
}

// GetUser implements UserService
func (s *userService) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repository.GetByID(ctx, id)
}
