package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/models"
)

// userService implements the UserService interface.
type userService struct {
	stores *Stores
	logger *zap.Logger
}

// NewUserService creates a new UserService instance.
func NewUserService(stores *Stores, logger *zap.Logger) UserService {
	return &userService{stores: stores, logger: logger}
}

// EnsureProfile retrieves the profile of uid. If it doesn't exist, a new one
// with the default role is written under the uid.
func (s *userService) EnsureProfile(ctx context.Context, uid, email, displayName string) (models.User, bool, error) {
	if u, ok := s.stores.users.Find(uid); ok {
		return u, false, nil
	}

	newUser := models.User{
		UID:         uid, // Firebase Auth UID is the document key
		Email:       email,
		DisplayName: displayName,
		Role:        models.RoleUser,
		CreatedAt:   time.Now().UTC(),
	}
	created, err := s.stores.UpdateUser(ctx, newUser).Wait(ctx)
	if err != nil {
		return models.User{}, false, fmt.Errorf("failed to create profile for user '%s': %w", uid, err)
	}
	s.logger.Info("Created user profile", zap.String("uid", uid))
	return created, true, nil
}

func (s *userService) GetByID(uid string) (models.User, error) {
	u, ok := s.stores.users.Find(uid)
	if !ok {
		return models.User{}, fmt.Errorf("%w: user '%s'", ErrNotFound, uid)
	}
	return u, nil
}

func (s *userService) IsAdmin(uid string) bool {
	u, ok := s.stores.users.Find(uid)
	return ok && u.IsAdmin()
}

func (s *userService) List() []models.User {
	return s.stores.users.Items()
}

func (s *userService) SetRole(ctx context.Context, uid, role string) (models.User, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return models.User{}, fmt.Errorf("%w: '%s'", ErrInvalidRole, role)
	}
	u, err := s.GetByID(uid)
	if err != nil {
		return models.User{}, err
	}
	u.Role = role
	updated, err := s.stores.UpdateUser(ctx, u).Wait(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to set role of user '%s': %w", uid, err)
	}
	s.logger.Info("Changed user role", zap.String("uid", uid), zap.String("role", role))
	return updated, nil
}
